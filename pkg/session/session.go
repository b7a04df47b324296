// Package session tracks editing sessions.
//
// A session binds one editor connection to the page it edits. Sessions
// expire after a TTL and are refreshed on activity. Storage backends:
//   - [MemoryStore]: in-process, for the dev server and tests
//   - [RedisStore]: shared across server instances
//   - [FileStore]: JSON files, for the CLI
//
// # Usage
//
//	sess := session.New("home", "site", session.DefaultTTL)
//	if err := store.Set(ctx, sess); err != nil {
//	    return err
//	}
//
//	sess, err := store.Get(ctx, id)
//	if err != nil {
//	    return err
//	}
//	if sess == nil {
//	    // unknown or expired
//	}
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidID is returned for ids that are not session ids.
	ErrInvalidID = errors.New("invalid session id")
)

// DefaultTTL is the default session lifetime without activity.
const DefaultTTL = 2 * time.Hour

// Session is one editing session.
type Session struct {
	ID        string    `json:"id"`
	PageID    string    `json:"page_id"`
	SiteID    string    `json:"site_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// New creates a session for a page.
func New(pageID, siteID string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		PageID:    pageID,
		SiteID:    siteID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Touch extends the session by ttl from now.
func (s *Session) Touch(ttl time.Duration) {
	s.ExpiresAt = time.Now().Add(ttl)
}

// ValidateID reports whether id has the form of a session id.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions (may be a no-op for Redis).
	Cleanup(ctx context.Context) error

	Close() error
}
