package memory

import (
	"context"
	"fmt"
	"sync"

	"orderflow/internal/domain/identity"
)

// IdentityGateway is the embedded identity collaborator.
type IdentityGateway struct {
	mu    sync.RWMutex
	users map[string]identity.User
}

func NewIdentityGateway(seed ...identity.User) *IdentityGateway {
	g := &IdentityGateway{
		users: make(map[string]identity.User, len(seed)),
	}
	for _, u := range seed {
		g.users[u.ID] = u
	}
	return g
}

var _ identity.Gateway = (*IdentityGateway)(nil)

func (g *IdentityGateway) Put(u identity.User) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.users[u.ID] = u
}

func (g *IdentityGateway) GetUser(ctx context.Context, id string) (*identity.User, error) {
	_ = ctx

	g.mu.RLock()
	defer g.mu.RUnlock()

	u, ok := g.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", identity.ErrUserNotFound, id)
	}
	return &u, nil
}
