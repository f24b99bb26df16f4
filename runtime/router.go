package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
)

// Router validates, persists and forwards inbound messages.
// No registry lock is held while the store is written.
type Router struct {
	log             *slog.Logger
	registry        *Registry
	messages        contract.IMessageRepository
	files           contract.IFileStore
	namer           *domain.FileNamer
	monitoring      *observability.MonitoringManager
	persistTimeout  time.Duration
	deliveryTimeout time.Duration
}

func NewRouter(log *slog.Logger, registry *Registry, messages contract.IMessageRepository,
	files contract.IFileStore, monitoring *observability.MonitoringManager,
	persistTimeout, deliveryTimeout time.Duration) *Router {
	return &Router{
		log:             log,
		registry:        registry,
		messages:        messages,
		files:           files,
		namer:           domain.NewFileNamer(),
		monitoring:      monitoring,
		persistTimeout:  persistTimeout,
		deliveryTimeout: deliveryTimeout,
	}
}

// Route handles one inbound message from sender.
// The stored message is forwarded to every connection of the recipient except
// the sending one. Nothing is forwarded unless the message was persisted.
func (r *Router) Route(ctx context.Context, sender *Connection, in domain.InboundMessage) (domain.Message, error) {
	identity, ok := sender.Identity()
	if !ok {
		return domain.Message{}, errors.ErrUnidentifiedSender
	}
	if err := in.Validate(); err != nil {
		return domain.Message{}, err
	}

	message := domain.Message{
		Sender:    identity.UserID,
		Recipient: in.Recipient,
		Text:      in.Text,
	}
	if in.File != nil {
		name, err := r.storeFile(ctx, *in.File)
		if err != nil {
			r.log.Warn("Attachment discarded", "sender", identity.UserID, "name", in.File.Name, "error", err)
		} else {
			message.File = name
		}
	}
	if !message.HasContent() {
		return domain.Message{}, errors.ErrNothingToSend
	}

	stored, err := r.persist(ctx, message)
	if err != nil {
		r.monitoring.IncrPersistenceFailures()
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	frame, err := json.Marshal(domain.ToMessageFrame(stored))
	if err != nil {
		return stored, err
	}
	targets := lo.Filter(r.registry.FindByUser(stored.Recipient), func(c *Connection, _ int) bool {
		return c != sender
	})
	delivered := 0
	for _, conn := range targets {
		if conn.Send(frame, r.deliveryTimeout) {
			delivered++
			continue
		}
		r.monitoring.IncrFramesDropped()
		r.log.Warn("Message frame dropped", "message_id", stored.ID, "connection_id", conn.ID())
	}
	r.monitoring.MessageRouted(stored.ID, stored.Sender, stored.Recipient, delivered)
	r.log.Debug(fmt.Sprintf("Message %s delivered to %d connection(s)", stored.ID, delivered))
	return stored, nil
}

func (r *Router) storeFile(ctx context.Context, file domain.InboundFile) (string, error) {
	data, err := file.Decode()
	if err != nil {
		return "", err
	}
	name := r.namer.Next(domain.FileExtension(file.Name, data))
	if err := r.files.Save(ctx, name, data); err != nil {
		return "", err
	}
	return name, nil
}

// persist writes the message under persistTimeout. A write still running when
// the timeout fires is left to finish and shows up in the history later.
func (r *Router) persist(ctx context.Context, message domain.Message) (domain.Message, error) {
	if r.persistTimeout <= 0 {
		return r.messages.Create(ctx, message)
	}

	type result struct {
		message domain.Message
		err     error
	}
	done := make(chan result, 1)
	go func() {
		stored, err := r.messages.Create(ctx, message)
		done <- result{stored, err}
	}()

	timer := time.NewTimer(r.persistTimeout)
	defer timer.Stop()
	select {
	case res := <-done:
		return res.message, res.err
	case <-ctx.Done():
		return domain.Message{}, ctx.Err()
	case <-timer.C:
		return domain.Message{}, fmt.Errorf("store did not answer within %s", r.persistTimeout)
	}
}
