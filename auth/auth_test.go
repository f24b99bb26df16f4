package auth

import (
	"chat-relay/errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "correct-horse-42"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	// Wrong password
	match, err = ComparePassword("battery-staple-42", hash)
	req.NoError(err)
	req.False(match)
}

func TestComparePassword_InvalidFormat(t *testing.T) {
	req := require.New(t)

	_, err := ComparePassword("whatever", "$2a$10$bcrypt-looking-hash")
	req.Error(err)

	_, err = ComparePassword("whatever", "plain")
	req.Error(err)
}

func TestRegistrationValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr error
	}{
		{"Valid request", RegisterRequest{"alice", "s3cretpass"}, nil},
		{"Missing username", RegisterRequest{"", "s3cretpass"}, errors.ErrInvalidUsername},
		{"Username too short", RegisterRequest{"al", "s3cretpass"}, errors.ErrInvalidUsername},
		{"Username with spaces", RegisterRequest{"al ice", "s3cretpass"}, errors.ErrInvalidUsername},
		{"Password too short", RegisterRequest{"alice", "s3cret"}, errors.ErrInvalidPassword},
		{"Missing digit", RegisterRequest{"alice", "secretpass"}, errors.ErrInvalidPassword},
		{"Missing letter", RegisterRequest{"alice", "1234567890"}, errors.ErrInvalidPassword},
		{"Password too long", RegisterRequest{"alice", strings.Repeat("a1", 37)}, errors.ErrInvalidPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(tt.req)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
