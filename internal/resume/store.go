package resume

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"

	"github.com/satprep/satprep/internal/kv"
	"github.com/satprep/satprep/internal/session"
)

// FormatVersion is the slot serialization version. Slots with a different
// major version are discarded on load.
const FormatVersion = "v1.0.0"

var (
	// ErrMalformedState marks a slot that cannot be decoded into a
	// resumable session.
	ErrMalformedState = errors.New("malformed session state")

	// ErrNotResumable rejects saving a completed or unstarted session.
	ErrNotResumable = errors.New("session is not resumable")
)

// Store keeps at most one in-progress session in a named kv slot.
type Store struct {
	kv  *kv.Store
	key string
	log *zap.Logger
}

// NewStore returns a Store over the slot key of kvs.
func NewStore(kvs *kv.Store, key string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: kvs, key: key, log: log}
}

// Save overwrites the slot with sess.
func (s *Store) Save(sess *session.Session) error {
	if !sess.Resumable() {
		return ErrNotResumable
	}
	c := sess.Clone()
	c.Format = FormatVersion
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.kv.Set(s.key, data)
}

// Load returns the resumable session, or nil when the slot is empty,
// malformed or holds an ended session. Malformed and ended slots are
// cleared. Only I/O failures are returned as errors.
func (s *Store) Load() (*session.Session, error) {
	data, err := s.kv.Get(s.key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sess, err := Decode(data)
	if err != nil {
		s.log.Warn("discarding malformed resumable session", zap.String("key", s.key), zap.Error(err))
		s.clearQuietly()
		return nil, nil
	}
	if !sess.Resumable() {
		s.log.Info("discarding ended session from resumable slot", zap.String("session_id", sess.ID))
		s.clearQuietly()
		return nil, nil
	}
	return sess, nil
}

// Clear empties the slot.
func (s *Store) Clear() error {
	return s.kv.Delete(s.key)
}

func (s *Store) clearQuietly() {
	if err := s.Clear(); err != nil {
		s.log.Warn("clear resumable slot", zap.String("key", s.key), zap.Error(err))
	}
}

// Decode parses a slot value. Every failure wraps ErrMalformedState.
func Decode(data []byte) (*session.Session, error) {
	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}

	if sess.Format != "" {
		if !semver.IsValid(sess.Format) {
			return nil, fmt.Errorf("%w: bad format version %q", ErrMalformedState, sess.Format)
		}
		if semver.Major(sess.Format) != semver.Major(FormatVersion) {
			return nil, fmt.Errorf("%w: format %s incompatible with %s", ErrMalformedState, sess.Format, FormatVersion)
		}
	}

	if sess.ID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrMalformedState)
	}
	if len(sess.Attempts) == 0 {
		return nil, fmt.Errorf("%w: no attempts", ErrMalformedState)
	}
	if sess.Current < 0 || sess.Current >= len(sess.Attempts) {
		return nil, fmt.Errorf("%w: current index %d out of range", ErrMalformedState, sess.Current)
	}
	seen := make(map[string]bool, len(sess.Attempts))
	for _, a := range sess.Attempts {
		if a.QuestionID == "" || seen[a.QuestionID] {
			return nil, fmt.Errorf("%w: bad or duplicate question id %q", ErrMalformedState, a.QuestionID)
		}
		seen[a.QuestionID] = true
		if a.TimeSpent < 0 {
			return nil, fmt.Errorf("%w: negative time spent", ErrMalformedState)
		}
	}
	return &sess, nil
}
