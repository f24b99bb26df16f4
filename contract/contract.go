//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Transport is one live client session as seen by the core.
// WriteFrame is only called from a single goroutine; Ping and Close may be called
// concurrently with everything else.
type Transport interface {
	ReadFrame(ctx context.Context) ([]byte, error)
	WriteFrame(ctx context.Context, data []byte) error
	Ping(ctx context.Context) error
	// OnPong registers the callback invoked when the peer answers a ping.
	OnPong(fn func())
	Close() error
	RemoteAddr() string
}

// IIdentityResolver turns the credential carried by the handshake into an identity.
type IIdentityResolver interface {
	Resolve(credential string) (domain.Identity, error)
}

// IMessageRepository is the durable, append-only message store.
// Create assigns the message ID and, when zero, the creation time.
type IMessageRepository interface {
	Create(ctx context.Context, message domain.Message) (domain.Message, error)
	FindConversation(ctx context.Context, userA, userB string) ([]domain.Message, error)
}

type IUserRepository interface {
	CreateUser(ctx context.Context, username, passwordHash string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	FindAllUsers(ctx context.Context) ([]domain.User, error)
}

// IFileStore persists uploaded payloads under a generated name.
type IFileStore interface {
	Save(ctx context.Context, name string, data []byte) error
}
