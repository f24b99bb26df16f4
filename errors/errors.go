package errors

import "fmt"

var (
	ErrWorkerPanic   = fmt.Errorf("worker panic")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	ErrUnauthenticated    = fmt.Errorf("connection is not authenticated")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token")
	ErrMissingToken       = fmt.Errorf("no token")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not match the complexity rules")
	ErrInvalidUsername    = fmt.Errorf("invalid username")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	ErrUnidentifiedSender = fmt.Errorf("sender has no identity")
	ErrMissingRecipient   = fmt.Errorf("recipient is missing")
	ErrNothingToSend      = fmt.Errorf("neither text nor file")
	ErrInvalidFilePayload = fmt.Errorf("invalid file payload")
	ErrPersistence        = fmt.Errorf("message could not be persisted")
	ErrMalformedFrame     = fmt.Errorf("malformed frame")
)
