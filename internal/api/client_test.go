package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type fakeTokens struct {
	mu      sync.Mutex
	access  string
	refresh string
	cleared bool
}

func (f *fakeTokens) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access
}

func (f *fakeTokens) RefreshToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refresh
}

func (f *fakeTokens) SetTokens(access, refresh string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = access
	f.refresh = refresh
	return nil
}

func (f *fakeTokens) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = ""
	f.refresh = ""
	f.cleared = true
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]interface{}{"success": success, "message": message}
	if data != nil {
		body["data"] = data
	}
	json.NewEncoder(w).Encode(body)
}

func TestGetAttachesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeEnvelope(w, http.StatusOK, true, "", map[string]string{"value": "ok"})
	}))
	defer server.Close()

	client := NewClient(server.URL, &fakeTokens{access: "token-1"}, testLogger())

	var out struct {
		Value string `json:"value"`
	}
	if err := client.Get(context.Background(), "/thing", &out); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if gotAuth != "Bearer token-1" {
		t.Errorf("Authorization = %q, expected %q", gotAuth, "Bearer token-1")
	}
	if out.Value != "ok" {
		t.Errorf("decoded value = %q, expected %q", out.Value, "ok")
	}
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	var refreshCalls int64
	tokens := &fakeTokens{access: "stale", refresh: "refresh-1"}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			atomic.AddInt64(&refreshCalls, 1)
			// Hold the refresh long enough for both 401s to queue behind it.
			time.Sleep(200 * time.Millisecond)
			writeEnvelope(w, http.StatusOK, true, "", map[string]string{
				"accessToken":  "fresh",
				"refreshToken": "refresh-2",
			})
		default:
			if r.Header.Get("Authorization") != "Bearer fresh" {
				writeEnvelope(w, http.StatusUnauthorized, false, "Unauthorized", nil)
				return
			}
			writeEnvelope(w, http.StatusOK, true, "", map[string]string{"value": "ok"})
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, tokens, testLogger())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var out struct {
				Value string `json:"value"`
			}
			errs[i] = client.Get(context.Background(), "/protected", &out)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("request %d failed after refresh: %v", i, err)
		}
	}
	if n := atomic.LoadInt64(&refreshCalls); n != 1 {
		t.Errorf("refresh called %d times, expected exactly 1", n)
	}
	if tokens.AccessToken() != "fresh" {
		t.Errorf("access token = %q, expected %q", tokens.AccessToken(), "fresh")
	}
	if tokens.RefreshToken() != "refresh-2" {
		t.Errorf("refresh token = %q, expected %q", tokens.RefreshToken(), "refresh-2")
	}
}

func TestRefreshFailureForcesLogout(t *testing.T) {
	tokens := &fakeTokens{access: "stale", refresh: "dead"}
	var loggedOut atomic.Bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			writeEnvelope(w, http.StatusUnauthorized, false, "Refresh token expired", nil)
			return
		}
		writeEnvelope(w, http.StatusUnauthorized, false, "Unauthorized", nil)
	}))
	defer server.Close()

	client := NewClient(server.URL, tokens, testLogger(),
		WithAuthFailureHandler(func() { loggedOut.Store(true) }))

	err := client.Get(context.Background(), "/protected", nil)
	if !IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if !loggedOut.Load() {
		t.Error("auth failure handler was not invoked")
	}
	tokens.mu.Lock()
	cleared := tokens.cleared
	tokens.mu.Unlock()
	if !cleared {
		t.Error("tokens were not cleared after refresh failure")
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		success      bool
		message      string
		expectedKind Kind
		expectedMsg  string
	}{
		{"validation_with_server_message", http.StatusBadRequest, false, "Minimum order amount is 200", KindValidation, "Minimum order amount is 200"},
		{"business_failure_on_200", http.StatusOK, false, "Restaurant is closed", KindValidation, "Restaurant is closed"},
		{"not_found", http.StatusNotFound, false, "Order not found", KindNotFound, "Order not found"},
		{"server_error_gets_generic_message", http.StatusInternalServerError, false, "stack trace details", KindServer, serverErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, tt.status, tt.success, tt.message, nil)
			}))
			defer server.Close()

			client := NewClient(server.URL, &fakeTokens{access: "t"}, testLogger())
			err := client.Get(context.Background(), "/thing", nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if KindOf(err) != tt.expectedKind {
				t.Errorf("kind = %s, expected %s", KindOf(err), tt.expectedKind)
			}
			apiErr := err.(*Error)
			if apiErr.Message != tt.expectedMsg {
				t.Errorf("message = %q, expected %q", apiErr.Message, tt.expectedMsg)
			}
		})
	}
}

func TestNetworkErrorWhenServerUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // reachable URL, nothing listening

	client := NewClient(server.URL, &fakeTokens{}, testLogger(), WithTimeout(time.Second))
	err := client.Get(context.Background(), "/thing", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != KindNetwork {
		t.Errorf("kind = %s, expected network", KindOf(err))
	}
	apiErr := err.(*Error)
	if apiErr.Message != networkErrorMessage {
		t.Errorf("message = %q, expected the generic network message", apiErr.Message)
	}
}
