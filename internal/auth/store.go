// Package auth holds the session: access and refresh tokens plus the logged
// in user's profile, kept in memory and written through to device storage so
// a restart resumes the session.
package auth

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/shivdhaba/delivery-core/internal/storage"
	"github.com/shivdhaba/delivery-core/pkg/models"
)

type Store struct {
	storage *storage.Store
	logger  *logrus.Logger

	mu      sync.RWMutex
	access  string
	refresh string
	profile *models.User
}

// NewStore loads any persisted session from the device store. A corrupt or
// missing session just starts logged out.
func NewStore(st *storage.Store, logger *logrus.Logger) *Store {
	s := &Store{storage: st, logger: logger}

	if access, ok := st.Get(storage.KeyAccessToken); ok {
		s.access = access
	}
	if refresh, ok := st.Get(storage.KeyRefreshToken); ok {
		s.refresh = refresh
	}
	var user models.User
	if st.GetJSON(storage.KeyUserProfile, &user) {
		s.profile = &user
	}

	return s
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// SetTokens replaces the token pair in memory and on disk. A storage failure
// keeps the in-memory session usable.
func (s *Store) SetTokens(access, refresh string) error {
	s.mu.Lock()
	s.access = access
	s.refresh = refresh
	s.mu.Unlock()

	if err := s.storage.Set(storage.KeyAccessToken, access); err != nil {
		return err
	}
	return s.storage.Set(storage.KeyRefreshToken, refresh)
}

// SetSession records a successful login.
func (s *Store) SetSession(resp models.AuthResponse) error {
	s.mu.Lock()
	user := resp.User
	s.profile = &user
	s.mu.Unlock()

	if err := s.SetTokens(resp.AccessToken, resp.RefreshToken); err != nil {
		return err
	}
	return s.storage.SetJSON(storage.KeyUserProfile, resp.User)
}

// Profile returns the logged-in user, if any.
func (s *Store) Profile() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return models.User{}, false
	}
	return *s.profile, true
}

func (s *Store) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access != ""
}

// Clear drops the session everywhere; used on logout and on unrecoverable
// 401s.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.access = ""
	s.refresh = ""
	s.profile = nil
	s.mu.Unlock()

	for _, key := range []string{storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyUserProfile, storage.KeyFCMToken} {
		if err := s.storage.Delete(key); err != nil {
			s.logger.WithField("key", key).WithError(err).Warn("Failed to remove session key")
		}
	}
	return nil
}
