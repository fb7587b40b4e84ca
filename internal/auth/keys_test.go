package auth

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSalt = "test-salt-0123456789"

func newKeyStore(t *testing.T) (*KeyStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api_keys.json")
	s, err := OpenKeyStore(path, testSalt)
	require.NoError(t, err)
	return s, path
}

func TestKeyStoreCreateVerify(t *testing.T) {
	s, path := newKeyStore(t)
	ctx := context.Background()

	key, rec, err := s.Create("collector")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, KeyPrefix))
	assert.NotContains(t, rec.Hash, key)
	assert.Nil(t, rec.LastUsed)

	assert.True(t, s.Verify(ctx, key))
	assert.False(t, s.Verify(ctx, key+"x"))
	assert.False(t, s.Verify(ctx, ""))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), key, "plaintext is never stored")

	list := s.List()
	require.Len(t, list, 1)
	assert.NotNil(t, list[0].LastUsed)
}

func TestKeyStoreReload(t *testing.T) {
	s, path := newKeyStore(t)
	key, _, err := s.Create("a")
	require.NoError(t, err)

	reopened, err := OpenKeyStore(path, testSalt)
	require.NoError(t, err)
	assert.True(t, reopened.Verify(context.Background(), key))

	other, err := OpenKeyStore(path, "a-different-salt-value")
	require.NoError(t, err)
	assert.False(t, other.Verify(context.Background(), key), "hashes are salt-bound")
}

func TestKeyStoreRevoke(t *testing.T) {
	s, path := newKeyStore(t)
	key, rec, err := s.Create("old")
	require.NoError(t, err)
	keep, _, err := s.Create("new")
	require.NoError(t, err)

	require.NoError(t, s.Revoke(rec.ID))
	require.NoError(t, s.Revoke(rec.ID), "revoking twice is a no-op")
	assert.False(t, s.Verify(context.Background(), key))
	assert.True(t, s.Verify(context.Background(), keep))

	assert.ErrorIs(t, s.Revoke("missing"), ErrKeyNotFound)

	reopened, err := OpenKeyStore(path, testSalt)
	require.NoError(t, err)
	assert.False(t, reopened.Verify(context.Background(), key))
}

func TestKeyStoreListOrder(t *testing.T) {
	s, _ := newKeyStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Hour)
	}
	for _, name := range []string{"first", "second", "third"} {
		_, _, err := s.Create(name)
		require.NoError(t, err)
	}
	var names []string
	for _, r := range s.List() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"first", "second", "third"}, names)
}

func TestOpenKeyStoreErrors(t *testing.T) {
	_, err := OpenKeyStore(filepath.Join(t.TempDir(), "k.json"), "short")
	assert.ErrorIs(t, err, ErrWeakSalt)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err = OpenKeyStore(path, testSalt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing key file")
}

func TestStaticKeysAndAny(t *testing.T) {
	ctx := context.Background()
	static := NewStaticKeys("alpha-key", "", "beta-key")
	assert.Equal(t, 2, static.Len())
	assert.True(t, static.Verify(ctx, "alpha-key"))
	assert.True(t, static.Verify(ctx, "beta-key"))
	assert.False(t, static.Verify(ctx, "gamma-key"))
	assert.False(t, static.Verify(ctx, ""))

	s, _ := newKeyStore(t)
	stored, _, err := s.Create("x")
	require.NoError(t, err)

	combined := Any{static, nil, s}
	assert.True(t, combined.Verify(ctx, "alpha-key"))
	assert.True(t, combined.Verify(ctx, stored))
	assert.False(t, combined.Verify(ctx, "nope"))
	assert.False(t, Any{}.Verify(ctx, "alpha-key"))
}

func TestCallerID(t *testing.T) {
	a := CallerID("alpha-key")
	assert.Equal(t, a, CallerID("alpha-key"))
	assert.NotEqual(t, a, CallerID("beta-key"))
	assert.Len(t, a, len("key-")+12)
	assert.NotContains(t, a, "alpha")
}
