package domain

import "time"

// EventType tags a WebSocket frame.
type EventType string

const (
	EventPostMessage      EventType = "post-message"
	EventMessageBroadcast EventType = "message-broadcast"
	EventError            EventType = "error"
	EventConnected        EventType = "connected"
	EventWarning          EventType = "warning"
)

// PostMessage is the only inbound event.
type PostMessage struct {
	AuthorID int64  `json:"authorId" validate:"required,gt=0"`
	Content  string `json:"content" validate:"required"`
}

type MessageBroadcast struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewMessageBroadcast(msg StoredMessage) MessageBroadcast {
	return MessageBroadcast{
		ID:        msg.ID,
		AuthorID:  msg.AuthorID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

type ErrorEvent struct {
	Message string `json:"message"`
}

type ConnectedEvent struct {
	ConnectionID string    `json:"connectionId"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
}

type WarningEvent struct {
	Message string `json:"message"`
}
