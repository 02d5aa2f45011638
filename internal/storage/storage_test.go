package storage

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	s, err := Open(filepath.Join(t.TempDir(), "app.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGetRoundTrip(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set(KeyAccessToken, "token-1"))

	got, ok := s.Get(KeyAccessToken)
	assert.True(t, ok)
	assert.Equal(t, "token-1", got)
}

func TestGetMissingKey(t *testing.T) {
	s := newTestStore(t)

	got, ok := s.Get("nope")
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestSetOverwrites(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set(KeyRefreshToken, "old"))
	require.NoError(t, s.Set(KeyRefreshToken, "new"))

	got, _ := s.Get(KeyRefreshToken)
	assert.Equal(t, "new", got)
}

func TestDeleteAndClear(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set(KeyAccessToken, "a"))
	require.NoError(t, s.Set(KeyRefreshToken, "r"))

	require.NoError(t, s.Delete(KeyAccessToken))
	_, ok := s.Get(KeyAccessToken)
	assert.False(t, ok)

	// Deleting again is a no-op.
	require.NoError(t, s.Delete(KeyAccessToken))

	require.NoError(t, s.Clear())
	_, ok = s.Get(KeyRefreshToken)
	assert.False(t, ok)
}

func TestJSONRoundTrip(t *testing.T) {
	s := newTestStore(t)

	type profile struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	require.NoError(t, s.SetJSON(KeyUserProfile, profile{ID: 7, Name: "Ravi"}))

	var got profile
	assert.True(t, s.GetJSON(KeyUserProfile, &got))
	assert.Equal(t, profile{ID: 7, Name: "Ravi"}, got)
}

func TestGetJSONRejectsCorruptValue(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set(KeyCartItems, "{not json"))

	var out []string
	assert.False(t, s.GetJSON(KeyCartItems, &out))
}

func TestValuesSurviveReopen(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	path := filepath.Join(t.TempDir(), "app.db")

	s, err := Open(path, logger)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeyCartItems, `[{"menuItemId":1}]`))
	require.NoError(t, s.Close())

	s2, err := Open(path, logger)
	require.NoError(t, err)
	defer s2.Close()

	got, ok := s2.Get(KeyCartItems)
	assert.True(t, ok)
	assert.Equal(t, `[{"menuItemId":1}]`, got)
}
