package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"orderflow/internal/domain/identity"
)

// IdentityGateway resolves users against the identity service over HTTP.
type IdentityGateway struct {
	client  *Client
	baseURL string
}

func NewIdentityGateway(client *Client, baseURL string) *IdentityGateway {
	return &IdentityGateway{client: client, baseURL: baseURL}
}

var _ identity.Gateway = (*IdentityGateway)(nil)

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (g *IdentityGateway) GetUser(ctx context.Context, id string) (*identity.User, error) {
	status, raw, err := g.client.do(ctx, http.MethodGet, g.baseURL+"/users/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", identity.ErrUserNotFound, id)
	case status != http.StatusOK:
		return nil, fmt.Errorf("gateway: identity service returned status %d", status)
	}

	var body userResponse
	if err := decode(raw, &body); err != nil {
		return nil, err
	}
	return &identity.User{
		ID:    body.ID,
		Name:  body.Name,
		Email: body.Email,
	}, nil
}
