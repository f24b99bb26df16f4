package auth

import (
	"chat-relay/domain"
	"chat-relay/errors"
)

// TokenCookie is the cookie carrying the session token on HTTP and websocket handshakes.
const TokenCookie = "token"

// Resolver implements contract.IIdentityResolver on top of session tokens.
type Resolver struct {
	issuer *TokenIssuer
}

func NewResolver(issuer *TokenIssuer) *Resolver {
	return &Resolver{issuer: issuer}
}

func (r *Resolver) Resolve(credential string) (domain.Identity, error) {
	if credential == "" {
		return domain.Identity{}, errors.ErrMissingToken
	}
	claims, err := r.issuer.ValidateToken(credential)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{UserID: claims.UserID, Username: claims.Username}, nil
}
