package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/xraph/storefront/id"
)

// ErrNotFound is returned when a game is not present in the catalog.
var ErrNotFound = errors.New("catalog: not found")

// Store is the read-only catalog access the engine consumes. The catalog
// itself is maintained elsewhere; the commerce engine only looks games up.
type Store interface {
	GetGame(ctx context.Context, gameID id.GameID) (*Game, error)
	ListGames(ctx context.Context, opts ListOpts) ([]*Game, error)
}

// ListOpts filters catalog listings.
type ListOpts struct {
	Genre  string
	OnSale bool
	Limit  int
	Offset int
}

// MapStore is an in-memory Store keyed by game id. Suitable for tests and
// embedded catalogs; production deployments adapt their catalog service
// behind the Store interface instead.
type MapStore struct {
	mu    sync.RWMutex
	games map[string]*Game
}

// NewMapStore creates an empty MapStore.
func NewMapStore() *MapStore {
	return &MapStore{games: make(map[string]*Game)}
}

// Put inserts or replaces a game.
func (s *MapStore) Put(g *Game) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.games[g.ID.String()] = g
}

// GetGame implements Store.
func (s *MapStore) GetGame(_ context.Context, gameID id.GameID) (*Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if g, ok := s.games[gameID.String()]; ok {
		return g, nil
	}
	return nil, ErrNotFound
}

// ListGames implements Store.
func (s *MapStore) ListGames(_ context.Context, opts ListOpts) ([]*Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Game, 0, len(s.games))
	for _, g := range s.games {
		if opts.Genre != "" && g.Genre != opts.Genre {
			continue
		}
		if opts.OnSale && !g.OnSale {
			continue
		}
		result = append(result, g)
	}

	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}
