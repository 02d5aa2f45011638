package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shivdhaba/delivery-core/pkg/models"
)

// stdinSource turns "lat,lng" lines into position fixes. It stands in for
// device GPS on a terminal; the tracker polls it like any other source.
type stdinSource struct {
	mu     sync.Mutex
	latest *models.LocationSample
	done   chan struct{}
}

func newStdinSource(r io.Reader) *stdinSource {
	s := &stdinSource{done: make(chan struct{})}
	go s.read(r)
	return s
}

func (s *stdinSource) read(r io.Reader) {
	defer close(s.done)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		parts := strings.SplitN(strings.TrimSpace(scanner.Text()), ",", 2)
		if len(parts) != 2 {
			continue
		}
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errLat != nil || errLng != nil {
			continue
		}

		s.mu.Lock()
		s.latest = &models.LocationSample{
			Latitude:  lat,
			Longitude: lng,
			Timestamp: time.Now().UnixMilli(),
		}
		s.mu.Unlock()
	}
}

func (s *stdinSource) Fix(ctx context.Context) (models.LocationSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return models.LocationSample{}, errors.New("no position entered yet")
	}
	return *s.latest, nil
}

// doneReading closes when stdin hits EOF.
func (s *stdinSource) doneReading() <-chan struct{} {
	return s.done
}
