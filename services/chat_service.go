package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"

	"github.com/samber/lo"
)

type IChatService interface {
	History(ctx context.Context, userID, otherID string) ([]domain.HistoryEntry, error)
	People(ctx context.Context) ([]domain.Person, error)
}

// ChatService serves the read side of the chat: conversation history and the user directory.
type ChatService struct {
	messageRepository contract.IMessageRepository
	userRepository    contract.IUserRepository
}

func NewChatService(messages contract.IMessageRepository, users contract.IUserRepository) *ChatService {
	return &ChatService{messageRepository: messages, userRepository: users}
}

// History returns the conversation between userID and otherID, oldest first.
func (s *ChatService) History(ctx context.Context, userID, otherID string) ([]domain.HistoryEntry, error) {
	messages, err := s.messageRepository.FindConversation(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	return lo.Map(messages, func(m domain.Message, _ int) domain.HistoryEntry {
		return domain.ToHistoryEntry(m)
	}), nil
}

func (s *ChatService) People(ctx context.Context) ([]domain.Person, error) {
	users, err := s.userRepository.FindAllUsers(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(u domain.User, _ int) domain.Person {
		return domain.Person{ID: u.ID, Username: u.Username}
	}), nil
}
