package location

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/goleak"

	"github.com/shivdhaba/delivery-core/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// scriptedSource replays a fixed sequence of fixes and then repeats the
// last one.
type scriptedSource struct {
	mu    sync.Mutex
	fixes []models.LocationSample
	next  int
}

func (s *scriptedSource) Fix(ctx context.Context) (models.LocationSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.fixes) == 0 {
		return models.LocationSample{}, errors.New("no fix available")
	}
	sample := s.fixes[s.next]
	if s.next < len(s.fixes)-1 {
		s.next++
	}
	return sample, nil
}

type recordingUploader struct {
	mu      sync.Mutex
	uploads []models.LocationUpdateRequest
	err     error
}

func (u *recordingUploader) UpdateLocation(ctx context.Context, req models.LocationUpdateRequest) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return u.err
	}
	u.uploads = append(u.uploads, req)
	return nil
}

func (u *recordingUploader) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.uploads)
}

func (u *recordingUploader) setErr(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.err = err
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func fastConfig() Config {
	return Config{
		SampleInterval:        10 * time.Millisecond,
		UploadInterval:        time.Hour,
		MinDisplacementMeters: 10,
	}
}

func TestStartStopLifecycle(t *testing.T) {
	source := &scriptedSource{fixes: []models.LocationSample{{Latitude: 18.52, Longitude: 73.85}}}
	uploader := &recordingUploader{}
	tracker := NewTracker(source, uploader, fastConfig(), testLogger())

	if _, tracking := tracker.Tracking(); tracking {
		t.Fatal("tracker should start idle")
	}

	tracker.Start(context.Background(), 42)
	orderID, tracking := tracker.Tracking()
	if !tracking || orderID != 42 {
		t.Errorf("got (%d, %v), expected tracking order 42", orderID, tracking)
	}

	waitFor(t, time.Second, func() bool {
		_, ok := tracker.Current()
		return ok
	})

	tracker.Stop()
	if _, tracking := tracker.Tracking(); tracking {
		t.Error("tracker should be idle after Stop")
	}

	// Stop again while idle.
	tracker.Stop()
}

func TestFirstFixUploadsImmediately(t *testing.T) {
	source := &scriptedSource{fixes: []models.LocationSample{{Latitude: 18.52, Longitude: 73.85}}}
	uploader := &recordingUploader{}
	tracker := NewTracker(source, uploader, fastConfig(), testLogger())

	tracker.Start(context.Background(), 42)
	defer tracker.Stop()

	waitFor(t, time.Second, func() bool { return uploader.count() >= 1 })

	uploader.mu.Lock()
	first := uploader.uploads[0]
	uploader.mu.Unlock()
	if first.OrderID != 42 || first.Latitude != 18.52 {
		t.Errorf("unexpected upload: %+v", first)
	}
}

func TestSmallMovementIsThrottled(t *testing.T) {
	// Second fix is roughly a metre away, below the displacement gate,
	// and the upload interval is far longer than the test.
	source := &scriptedSource{fixes: []models.LocationSample{
		{Latitude: 18.52, Longitude: 73.85},
		{Latitude: 18.520009, Longitude: 73.85},
	}}
	uploader := &recordingUploader{}
	tracker := NewTracker(source, uploader, fastConfig(), testLogger())

	tracker.Start(context.Background(), 42)
	waitFor(t, time.Second, func() bool { return uploader.count() >= 1 })
	time.Sleep(100 * time.Millisecond)
	tracker.Stop()

	if got := uploader.count(); got != 1 {
		t.Errorf("got %d uploads, expected the throttle to hold at 1", got)
	}
}

func TestLargeDisplacementUploadsEarly(t *testing.T) {
	// Second fix is about 110 m north, beyond the displacement gate.
	source := &scriptedSource{fixes: []models.LocationSample{
		{Latitude: 18.52, Longitude: 73.85},
		{Latitude: 18.521, Longitude: 73.85},
	}}
	uploader := &recordingUploader{}
	tracker := NewTracker(source, uploader, fastConfig(), testLogger())

	tracker.Start(context.Background(), 42)
	defer tracker.Stop()

	waitFor(t, time.Second, func() bool { return uploader.count() >= 2 })
}

func TestUploadFailureKeepsTracking(t *testing.T) {
	source := &scriptedSource{fixes: []models.LocationSample{{Latitude: 18.52, Longitude: 73.85}}}
	uploader := &recordingUploader{}
	uploader.setErr(errors.New("connection refused"))
	tracker := NewTracker(source, uploader, fastConfig(), testLogger())

	tracker.Start(context.Background(), 42)
	defer tracker.Stop()

	waitFor(t, time.Second, func() bool {
		_, ok := tracker.Current()
		return ok
	})

	if _, tracking := tracker.Tracking(); !tracking {
		t.Error("upload failure should not stop tracking")
	}

	// Recovery: once the network returns the next sample goes through.
	uploader.setErr(nil)
	waitFor(t, time.Second, func() bool { return uploader.count() >= 1 })
}

func TestNoUploadsAfterStop(t *testing.T) {
	source := &scriptedSource{fixes: []models.LocationSample{{Latitude: 18.52, Longitude: 73.85}}}
	uploader := &recordingUploader{}
	tracker := NewTracker(source, uploader, fastConfig(), testLogger())

	tracker.Start(context.Background(), 42)
	waitFor(t, time.Second, func() bool { return uploader.count() >= 1 })
	tracker.Stop()

	before := uploader.count()
	time.Sleep(100 * time.Millisecond)
	if got := uploader.count(); got != before {
		t.Errorf("got %d uploads after Stop, expected %d", got, before)
	}
}

func TestStartReplacesActiveSession(t *testing.T) {
	source := &scriptedSource{fixes: []models.LocationSample{{Latitude: 18.52, Longitude: 73.85}}}
	uploader := &recordingUploader{}
	tracker := NewTracker(source, uploader, fastConfig(), testLogger())

	tracker.Start(context.Background(), 42)
	tracker.Start(context.Background(), 43)
	defer tracker.Stop()

	orderID, tracking := tracker.Tracking()
	if !tracking || orderID != 43 {
		t.Errorf("got (%d, %v), expected tracking order 43", orderID, tracking)
	}

	waitFor(t, time.Second, func() bool { return uploader.count() >= 1 })
	uploader.mu.Lock()
	last := uploader.uploads[len(uploader.uploads)-1]
	uploader.mu.Unlock()
	if last.OrderID != 43 {
		t.Errorf("upload carries order %d, expected 43", last.OrderID)
	}
}

func TestConcurrentStartsLeaveOneSession(t *testing.T) {
	source := &scriptedSource{fixes: []models.LocationSample{{Latitude: 18.52, Longitude: 73.85}}}
	uploader := &recordingUploader{}
	tracker := NewTracker(source, uploader, fastConfig(), testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		orderID := int64(100 + i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Start(context.Background(), orderID)
		}()
	}
	wg.Wait()

	orderID, tracking := tracker.Tracking()
	if !tracking || orderID < 100 || orderID > 107 {
		t.Errorf("got (%d, %v), expected one of the started orders", orderID, tracking)
	}

	// The single surviving loop stops here; goleak catches any orphaned
	// session in TestMain.
	tracker.Stop()
	if _, tracking := tracker.Tracking(); tracking {
		t.Error("tracker should be idle after Stop")
	}
}

func TestDistanceToMeters(t *testing.T) {
	source := &scriptedSource{fixes: []models.LocationSample{{Latitude: 18.52, Longitude: 73.85}}}
	tracker := NewTracker(source, &recordingUploader{}, fastConfig(), testLogger())

	if _, ok := tracker.DistanceToMeters(18.53, 73.85); ok {
		t.Error("distance should be unavailable before the first fix")
	}

	tracker.Start(context.Background(), 42)
	waitFor(t, time.Second, func() bool {
		_, ok := tracker.Current()
		return ok
	})
	tracker.Stop()

	dist, ok := tracker.DistanceToMeters(18.53, 73.85)
	if !ok {
		t.Fatal("distance should be available after a fix")
	}
	// 0.01 degrees of latitude is roughly 1.1 km.
	if dist < 1000 || dist > 1250 {
		t.Errorf("got %.0f m, expected roughly 1.1 km", dist)
	}
}
