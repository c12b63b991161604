// Package tokenstore holds the backend bearer token: an authoritative
// in-memory copy mirrored into secure storage.
//
// The in-memory copy is hydrated from storage lazily, once. Concurrent
// GetToken calls made before hydration share a single storage read, and the
// result of that read (including "no token") is cached until Invalidate.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/communityapp/internal/client/securestore"
	"github.com/dmitrijs2005/communityapp/internal/common"
	"github.com/dmitrijs2005/communityapp/internal/logging"
	"github.com/dmitrijs2005/communityapp/internal/metrics"
	"golang.org/x/sync/singleflight"
)

type Store struct {
	secure  securestore.Store
	log     logging.Logger
	metrics *metrics.Metrics

	// writeMu orders persistence of successive writes.
	writeMu sync.Mutex

	mu    sync.Mutex
	token string
	known bool
	// gen is bumped by every SetToken and Invalidate so that a hydrate
	// started before them cannot overwrite their result.
	gen uint64

	loads singleflight.Group
}

func New(secure securestore.Store, log logging.Logger, m *metrics.Metrics) (*Store, error) {
	if secure == nil {
		return nil, errors.New("secure store is required")
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Store{secure: secure, log: log, metrics: m}, nil
}

// GetToken returns the current bearer token, or "" when there is none.
func (s *Store) GetToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.known {
		t := s.token
		s.mu.Unlock()
		return t, nil
	}
	s.mu.Unlock()

	v, err, _ := s.loads.Do(common.AuthTokenKey, func() (any, error) {
		return s.hydrate(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Store) hydrate(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.known {
		t := s.token
		s.mu.Unlock()
		return t, nil
	}
	gen := s.gen
	s.mu.Unlock()

	b, err := s.secure.GetSecureItem(ctx, common.AuthTokenKey)
	s.metrics.IncTokenLoads()
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		// A write or invalidation landed while reading.
		if s.known {
			return s.token, nil
		}
		return "", nil
	}

	s.token = string(b)
	s.known = true
	return s.token, nil
}

// SetToken replaces the token. The in-memory copy is updated before the call
// touches storage, so later GetToken calls see it even if persisting fails.
// An empty token clears the persisted copy.
func (s *Store) SetToken(ctx context.Context, token string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.token = token
	s.known = true
	s.gen++
	s.mu.Unlock()

	var err error
	if token == "" {
		err = s.secure.DeleteSecureItem(ctx, common.AuthTokenKey)
	} else {
		err = s.secure.SetSecureItem(ctx, common.AuthTokenKey, []byte(token))
	}
	if err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	return nil
}

// Invalidate drops both copies. The next GetToken reads storage again.
//
// Until the persisted copy is gone the store reports "no token" without
// reading storage, so the rejected token cannot be loaded back.
func (s *Store) Invalidate(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.token = ""
	s.known = true
	s.gen++
	s.mu.Unlock()

	s.metrics.IncTokenPurges()
	s.log.Info(ctx, "bearer token invalidated")

	if err := s.secure.DeleteSecureItem(ctx, common.AuthTokenKey); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}

	s.mu.Lock()
	s.known = false
	s.gen++
	s.mu.Unlock()
	return nil
}
