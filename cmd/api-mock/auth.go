package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shivdhaba/delivery-core/pkg/models"
)

// mockOtp is accepted for every mobile number. Real OTP delivery is out of
// scope for a dev backend; the code is also printed to the log on send.
const mockOtp = "123456"

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
)

type session struct {
	userID    int64
	role      string
	expiresAt time.Time
}

// tokenRegistry keeps issued tokens in memory. A restart logs everyone out,
// which doubles as a cheap way to exercise the apps' refresh paths.
type tokenRegistry struct {
	mu      sync.Mutex
	access  map[string]session
	refresh map[string]session
}

func newTokenRegistry() *tokenRegistry {
	return &tokenRegistry{
		access:  make(map[string]session),
		refresh: make(map[string]session),
	}
}

func (t *tokenRegistry) issue(userID int64, role string) (access, refresh string) {
	access = uuid.NewString()
	refresh = uuid.NewString()
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.access[access] = session{userID: userID, role: role, expiresAt: now.Add(accessTokenTTL)}
	t.refresh[refresh] = session{userID: userID, role: role, expiresAt: now.Add(refreshTokenTTL)}
	return access, refresh
}

func (t *tokenRegistry) lookupAccess(token string) (session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.access[token]
	if !ok || time.Now().After(s.expiresAt) {
		return session{}, false
	}
	return s, true
}

// rotate consumes a refresh token and issues a fresh pair.
func (t *tokenRegistry) rotate(refreshToken string) (access, refresh string, ok bool) {
	t.mu.Lock()
	s, found := t.refresh[refreshToken]
	if !found || time.Now().After(s.expiresAt) {
		t.mu.Unlock()
		return "", "", false
	}
	delete(t.refresh, refreshToken)
	t.mu.Unlock()

	access, refresh = t.issue(s.userID, s.role)
	return access, refresh, true
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

type contextKey string

const sessionKey contextKey = "session"

func sessionFrom(r *http.Request) session {
	s, _ := r.Context().Value(sessionKey).(session)
	return s
}

// requireRole authenticates the bearer token and gates the subtree to one
// user role.
func (s *server) requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				s.respondError(w, http.StatusUnauthorized, "Missing access token")
				return
			}
			sess, ok := s.tokens.lookupAccess(token)
			if !ok {
				s.respondError(w, http.StatusUnauthorized, "Access token expired")
				return
			}
			if sess.role != role {
				s.respondError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
		})
	}
}

func (s *server) handleSendOtp(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.OtpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Mobile == "" {
			s.respondError(w, http.StatusBadRequest, "Mobile number is required")
			return
		}

		s.logger.WithFields(logrus.Fields{
			"mobile": req.Mobile,
			"role":   role,
			"otp":    mockOtp,
		}).Info("OTP issued")
		s.respondData(w, http.StatusOK, "OTP sent", nil)
	}
}

func (s *server) handleVerifyOtp(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.OtpVerifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Mobile == "" {
			s.respondError(w, http.StatusBadRequest, "Mobile number is required")
			return
		}
		if req.Otp != mockOtp {
			s.respondError(w, http.StatusBadRequest, "Invalid OTP")
			return
		}

		user, err := s.store.upsertUser(req.Mobile, role)
		if err != nil {
			s.logger.WithError(err).Error("Failed to upsert user")
			s.respondError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}

		access, refresh := s.tokens.issue(user.ID, role)
		s.respondData(w, http.StatusOK, "Login successful", models.AuthResponse{
			AccessToken:  access,
			RefreshToken: refresh,
			User:         user,
		})
	}
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		s.respondError(w, http.StatusUnauthorized, "Missing refresh token")
		return
	}

	access, refresh, ok := s.tokens.rotate(token)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "Refresh token expired")
		return
	}

	s.respondData(w, http.StatusOK, "Token refreshed", models.TokenRefreshResponse{
		AccessToken:  access,
		RefreshToken: refresh,
	})
}
