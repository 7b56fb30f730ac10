// Package tokenstore owns the current bearer credential for outbound Lumora
// API calls: one value process-wide, cached in memory, backed by durable
// storage.
package tokenstore

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrTokenNotFound is returned by Storage implementations when no token has
// been persisted.
var ErrTokenNotFound = errors.New("token not found")

// Storage is the durable collaborator behind the in-memory store.
type Storage interface {
	ReadToken(ctx context.Context) (string, error)
	WriteToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// Store holds the single current credential for the process. The first Get
// hydrates from durable storage exactly once; afterwards reads are served
// from memory until Set or Clear replaces the value. The store never infers
// expiry; staleness surfaces as classified errors from the API.
type Store struct {
	mu      sync.Mutex
	storage Storage
	logger  zerolog.Logger
	loaded  bool
	token   string
	present bool
}

// New creates a store over the given durable storage.
func New(storage Storage, logger zerolog.Logger) *Store {
	return &Store{
		storage: storage,
		logger:  logger.With().Str("component", "tokenstore").Logger(),
	}
}

// Get returns the current credential and whether one is present. The first
// call of the process lifetime reads durable storage; a failed read is
// treated as absence and not re-queried.
func (s *Store) Get(ctx context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.loaded = true
		tok, err := s.storage.ReadToken(ctx)
		switch {
		case errors.Is(err, ErrTokenNotFound):
		case err != nil:
			s.logger.Warn().Err(err).Msg("durable token read failed, treating as absent")
		default:
			s.token, s.present = tok, true
		}
	}
	return s.token, s.present
}

// Set replaces the current credential in durable storage and memory. On a
// durable write failure the in-memory value is left unchanged.
func (s *Store) Set(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.WriteToken(ctx, token); err != nil {
		return err
	}
	s.loaded = true
	s.token, s.present = token, true
	return nil
}

// Clear removes the credential from durable storage and memory.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.ClearToken(ctx); err != nil {
		return err
	}
	s.loaded = true
	s.token, s.present = "", false
	return nil
}
