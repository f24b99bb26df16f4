package services

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	stderrors "errors"
	"fmt"
)

type IAuthService interface {
	Register(ctx context.Context, username, password string) (Session, error)
	Login(ctx context.Context, username, password string) (Session, error)
	Profile(token string) (domain.Identity, error)
}

// Session is what the HTTP layer needs to answer and set the cookie.
type Session struct {
	Token    string
	Identity domain.Identity
}

type AuthService struct {
	userRepository contract.IUserRepository
	issuer         *auth.TokenIssuer
}

func NewAuthService(repo contract.IUserRepository, issuer *auth.TokenIssuer) IAuthService {
	return &AuthService{userRepository: repo, issuer: issuer}
}

func (s *AuthService) Register(ctx context.Context, username, password string) (Session, error) {
	// Validation runs before any expensive cryptographic operation
	if err := auth.ValidateRegister(auth.RegisterRequest{Username: username, Password: password}); err != nil {
		return Session{}, err
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.userRepository.CreateUser(ctx, username, hashedPassword)
	if err != nil {
		return Session{}, err // ErrUserAlreadyExists when the username is taken
	}
	return s.session(domain.Identity{UserID: user.ID, Username: user.Username})
}

func (s *AuthService) Login(ctx context.Context, username, password string) (Session, error) {
	user, err := s.userRepository.GetUserByUsername(ctx, username)
	if stderrors.Is(err, errors.ErrUserNotFound) {
		// Same answer as a wrong password, so usernames cannot be probed
		return Session{}, errors.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return Session{}, errors.ErrInvalidCredentials
	}
	return s.session(domain.Identity{UserID: user.ID, Username: user.Username})
}

func (s *AuthService) Profile(token string) (domain.Identity, error) {
	claims, err := s.issuer.ValidateToken(token)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

func (s *AuthService) session(identity domain.Identity) (Session, error) {
	token, err := s.issuer.GenerateToken(identity)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", errors.ErrTokenGeneration, err)
	}
	return Session{Token: token, Identity: identity}, nil
}
