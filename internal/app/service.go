package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sonuparjapat/stocksWebsiteMain/internal/domain"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 500

	DefaultUserLimit = 100
)

// Service is the only component that references multiple domain components.
type Service struct {
	users     domain.UserRepository
	messages  domain.MessageRepository
	publisher domain.MessagePublisher
}

// NewService creates the application layer service. publisher receives every stored message.
func NewService(users domain.UserRepository, messages domain.MessageRepository, publisher domain.MessagePublisher) *Service {
	return &Service{
		users:     users,
		messages:  messages,
		publisher: publisher,
	}
}

// PostMessage persists a message and fans it out to every open connection.
// The insert is the only failure surfaced to the caller; fan-out is best effort.
func (s *Service) PostMessage(ctx context.Context, authorID int64, content string) (*domain.StoredMessage, error) {
	if err := domain.ValidateMessage(authorID, content); err != nil {
		return nil, err
	}

	msg, err := s.messages.Insert(ctx, authorID, content)
	if err != nil {
		return nil, err
	}

	if err := s.publisher.PublishMessage(ctx, *msg); err != nil {
		slog.WarnContext(ctx, "Failed to fan out message", "message_id", msg.ID, "error", err)
	}

	slog.DebugContext(ctx, "Message posted", "message_id", msg.ID, "author_id", msg.AuthorID)
	return msg, nil
}

// ListRecentMessages returns up to limit messages, newest first. A zero limit means the default.
func (s *Service) ListRecentMessages(ctx context.Context, limit int) ([]domain.MessageView, error) {
	if limit == 0 {
		limit = DefaultMessageLimit
	}
	if limit < 1 || limit > MaxMessageLimit {
		return nil, domain.NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", MaxMessageLimit))
	}
	return s.messages.ListRecent(ctx, limit)
}

func (s *Service) CreateUser(ctx context.Context, name, email string) (*domain.User, error) {
	if err := domain.ValidateUser(name, email); err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, name, email)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "User created", "user_id", user.ID)
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx, DefaultUserLimit)
}

func (s *Service) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// DeleteUser removes a user and, by cascade, every message they authored.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "User deleted", "user_id", id)
	return nil
}

// EnsureDefaultUser seeds the default author on an empty users table.
func (s *Service) EnsureDefaultUser(ctx context.Context) error {
	created, err := s.users.EnsureDefault(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed default user: %w", err)
	}
	if created {
		slog.InfoContext(ctx, "Seeded default user", "email", domain.DefaultUserEmail)
	}
	return nil
}
