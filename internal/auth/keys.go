// Package auth verifies inbound API keys. Keys are stored as salted SHA-256
// hashes in a JSON file and are never recoverable after creation.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// KeyPrefix starts every generated key.
const KeyPrefix = "hp_"

// lastUsedFlush limits how often a successful Verify rewrites the file.
const lastUsedFlush = time.Minute

var (
	// ErrKeyNotFound is returned by Revoke for an unknown id.
	ErrKeyNotFound = errors.New("api key not found")
	// ErrWeakSalt rejects salts too short to matter.
	ErrWeakSalt = errors.New("api key salt must be at least 16 bytes")
)

// Verifier decides whether a presented key may call the API.
type Verifier interface {
	Verify(ctx context.Context, key string) bool
}

// Record is the stored form of a key. Hash is hex(sha256(salt || key)).
type Record struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Hash      string     `json:"hash"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	Revoked   bool       `json:"revoked,omitempty"`
}

// KeyStore is a file-backed set of API keys. It is safe for concurrent use.
type KeyStore struct {
	path string
	salt []byte
	now  func() time.Time

	mu      sync.Mutex
	records []Record
	flushed time.Time
}

// OpenKeyStore loads path, treating a missing file as empty.
func OpenKeyStore(path, salt string) (*KeyStore, error) {
	if len(salt) < 16 {
		return nil, ErrWeakSalt
	}
	s := &KeyStore{path: path, salt: []byte(salt), now: time.Now}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("parsing key file %s: %w", path, err)
	}
	return s, nil
}

func (s *KeyStore) hash(key string) string {
	h := sha256.New()
	h.Write(s.salt)
	h.Write([]byte(key))
	return hex.EncodeToString(h.Sum(nil))
}

// Create generates a key named name and returns the plaintext once.
func (s *KeyStore) Create(name string) (string, Record, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", Record{}, fmt.Errorf("generating key: %w", err)
	}
	key := KeyPrefix + hex.EncodeToString(buf)
	rec := Record{
		ID:        uuid.NewString(),
		Name:      name,
		Hash:      s.hash(key),
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	if err := s.save(); err != nil {
		s.records = s.records[:len(s.records)-1]
		return "", Record{}, err
	}
	return key, rec, nil
}

// Verify reports whether key matches a live record. Every record is compared
// so timing does not depend on which one matches.
func (s *KeyStore) Verify(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	want := []byte(s.hash(key))

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i := range s.records {
		if subtle.ConstantTimeCompare(want, []byte(s.records[i].Hash)) == 1 && !s.records[i].Revoked {
			idx = i
		}
	}
	if idx < 0 {
		return false
	}
	now := s.now().UTC()
	s.records[idx].LastUsed = &now
	if now.Sub(s.flushed) >= lastUsedFlush {
		if err := s.save(); err != nil {
			log.Warn().Err(err).Str("key_id", s.records[idx].ID).Msg("api_key_last_used_not_saved")
		}
	}
	return true
}

// Revoke disables the key with id.
func (s *KeyStore) Revoke(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			if s.records[i].Revoked {
				return nil
			}
			s.records[i].Revoked = true
			if err := s.save(); err != nil {
				s.records[i].Revoked = false
				return err
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrKeyNotFound, id)
}

// List returns the records ordered by creation time.
func (s *KeyStore) List() []Record {
	s.mu.Lock()
	out := append([]Record(nil), s.records...)
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// save writes the file atomically with owner-only permissions. Callers hold mu.
func (s *KeyStore) save() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding key file: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing key file: %w", err)
	}
	s.flushed = s.now()
	return nil
}
