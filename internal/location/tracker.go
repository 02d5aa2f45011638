// Package location runs the courier's tracking loop: while an order is out
// for delivery it polls the device position, keeps the latest fix in memory
// for the UI, and uploads it upstream behind a time-and-displacement gate.
package location

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shivdhaba/delivery-core/internal/geo"
	"github.com/shivdhaba/delivery-core/pkg/models"
)

// Source provides device position fixes. Fix blocks until a fix is
// available or the context is cancelled.
type Source interface {
	Fix(ctx context.Context) (models.LocationSample, error)
}

// Uploader sends a position fix upstream for one order.
type Uploader interface {
	UpdateLocation(ctx context.Context, req models.LocationUpdateRequest) error
}

// Config gates the tracking loop. Zero values fall back to the defaults
// used by the delivery app.
type Config struct {
	// SampleInterval is how often Source is polled.
	SampleInterval time.Duration
	// UploadInterval is the minimum time between uploads.
	UploadInterval time.Duration
	// MinDisplacementMeters uploads early when the courier has moved at
	// least this far since the last upload.
	MinDisplacementMeters float64
}

func (c *Config) applyDefaults() {
	if c.SampleInterval <= 0 {
		c.SampleInterval = 2 * time.Second
	}
	if c.UploadInterval <= 0 {
		c.UploadInterval = 10 * time.Second
	}
	if c.MinDisplacementMeters <= 0 {
		c.MinDisplacementMeters = 10
	}
}

// Tracker follows at most one order at a time. Start moves it from idle to
// tracking; Stop or context cancellation moves it back. All methods are
// safe for concurrent use.
type Tracker struct {
	source   Source
	uploader Uploader
	cfg      Config
	logger   *logrus.Logger

	// startMu serializes session turnover so two Start calls cannot
	// register over each other and orphan a running loop.
	startMu sync.Mutex

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	orderID int64
	current *models.LocationSample
}

func NewTracker(source Source, uploader Uploader, cfg Config, logger *logrus.Logger) *Tracker {
	cfg.applyDefaults()
	return &Tracker{
		source:   source,
		uploader: uploader,
		cfg:      cfg,
		logger:   logger,
	}
}

// Tracking reports whether a tracking loop is currently running, and for
// which order.
func (t *Tracker) Tracking() (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.orderID, t.cancel != nil
}

// Current returns the latest position fix of the active session, if any.
func (t *Tracker) Current() (models.LocationSample, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return models.LocationSample{}, false
	}
	return *t.current, true
}

// DistanceToMeters returns the straight-line distance from the latest fix
// to the given coordinate.
func (t *Tracker) DistanceToMeters(lat, lon float64) (float64, bool) {
	sample, ok := t.Current()
	if !ok {
		return 0, false
	}
	return geo.DistanceMeters(sample.Latitude, sample.Longitude, lat, lon), true
}

// Start begins tracking the given order. If a session is already running it
// is stopped first; the new session replaces it.
func (t *Tracker) Start(ctx context.Context, orderID int64) {
	t.startMu.Lock()
	defer t.startMu.Unlock()
	t.stopSession()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	t.mu.Lock()
	t.cancel = cancel
	t.done = done
	t.orderID = orderID
	t.current = nil
	t.mu.Unlock()

	t.logger.WithField("order_id", orderID).Info("Location tracking started")
	go t.run(loopCtx, orderID, done)
}

// Stop ends the active session and waits for the loop to exit. Calling Stop
// when idle is a no-op.
func (t *Tracker) Stop() {
	t.startMu.Lock()
	defer t.startMu.Unlock()
	t.stopSession()
}

func (t *Tracker) stopSession() {
	t.mu.Lock()
	cancel := t.cancel
	done := t.done
	t.cancel = nil
	t.done = nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	t.logger.Info("Location tracking stopped")
}

func (t *Tracker) run(ctx context.Context, orderID int64, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.cfg.SampleInterval)
	defer ticker.Stop()

	var lastUpload *models.LocationSample
	var lastUploadAt time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		sample, err := t.source.Fix(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.logger.WithError(err).Warn("Failed to read device position")
			continue
		}

		t.mu.Lock()
		t.current = &sample
		t.mu.Unlock()

		if !t.shouldUpload(sample, lastUpload, lastUploadAt) {
			continue
		}

		err = t.uploader.UpdateLocation(ctx, models.LocationUpdateRequest{
			OrderID:   orderID,
			Latitude:  sample.Latitude,
			Longitude: sample.Longitude,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Tracking survives flaky connectivity; the next gate
			// window retries naturally.
			t.logger.WithError(err).WithField("order_id", orderID).
				Warn("Failed to upload location")
			continue
		}

		lastUpload = &sample
		lastUploadAt = time.Now()
	}
}

func (t *Tracker) shouldUpload(sample models.LocationSample, lastUpload *models.LocationSample, lastUploadAt time.Time) bool {
	if lastUpload == nil {
		return true
	}
	if time.Since(lastUploadAt) >= t.cfg.UploadInterval {
		return true
	}
	moved := geo.DistanceMeters(lastUpload.Latitude, lastUpload.Longitude, sample.Latitude, sample.Longitude)
	return moved >= t.cfg.MinDisplacementMeters
}
