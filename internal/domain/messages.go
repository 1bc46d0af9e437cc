package domain

import (
	"context"
	"strings"
	"time"
)

// FallbackAuthorLabel is what clients show when a message has no author name.
const FallbackAuthorLabel = "User"

// StoredMessage is a message after insertion, with server-assigned id and timestamp.
type StoredMessage struct {
	ID        int64
	AuthorID  int64
	Content   string
	CreatedAt time.Time
}

// MessageView is a stored message joined with its author's display name.
// AuthorName is nil when the author row no longer exists.
type MessageView struct {
	StoredMessage
	AuthorName *string
}

type MessageRepository interface {
	Insert(ctx context.Context, authorID int64, content string) (*StoredMessage, error)
	ListRecent(ctx context.Context, limit int) ([]MessageView, error)
}

// MessagePublisher fans a stored message out to connected clients.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, msg StoredMessage) error
}

// ValidateMessage rejects blank content, content Postgres text cannot hold, and non-positive author ids.
func ValidateMessage(authorID int64, content string) error {
	if authorID <= 0 {
		return NewValidationError("authorId", "author does not exist")
	}
	if strings.TrimSpace(content) == "" {
		return NewValidationError("content", "must not be empty")
	}
	if strings.ContainsRune(content, 0) {
		return NewValidationError("content", "must not contain NUL characters")
	}
	return nil
}
