package gateway

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"orderflow/internal/domain/identity"
	"orderflow/internal/pkg/logging"
)

// FallbackIdentityGateway degrades an identity outage to a stub profile
// instead of failing the caller. The stub is marked Degraded so a verified
// user can never be confused with it. A definite "user not found" answer is
// passed through untouched. The wrapper is opt-in via configuration.
type FallbackIdentityGateway struct {
	inner identity.Gateway
}

func NewFallbackIdentityGateway(inner identity.Gateway) *FallbackIdentityGateway {
	return &FallbackIdentityGateway{inner: inner}
}

var _ identity.Gateway = (*FallbackIdentityGateway)(nil)

func (g *FallbackIdentityGateway) GetUser(ctx context.Context, id string) (*identity.User, error) {
	user, err := g.inner.GetUser(ctx, id)
	if err == nil {
		return user, nil
	}
	if errors.Is(err, identity.ErrUserNotFound) {
		return nil, err
	}

	logging.FromContext(ctx).Warn("identity_unreachable_using_fallback",
		zap.String("user_id", id),
		zap.Error(err),
	)
	return &identity.User{
		ID:       id,
		Name:     "Default User",
		Email:    "default@example.com",
		Degraded: true,
	}, nil
}
