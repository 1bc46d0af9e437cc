package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/domain"
)

const recentMessagesQuery = `SELECT m.id, m.user_id, m.content, m.created_at, u.name
FROM messages m
LEFT JOIN users u ON u.id = m.user_id`

type MessageRepo struct {
	pool *pgxpool.Pool
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Insert stores one message. A missing author surfaces as a validation error and writes nothing.
func (r *MessageRepo) Insert(ctx context.Context, authorID int64, content string) (*domain.StoredMessage, error) {
	if err := domain.ValidateMessage(authorID, content); err != nil {
		return nil, err
	}
	if !validID(authorID) {
		return nil, domain.NewValidationError("authorId", "author does not exist")
	}

	sql, args, err := buildInsert("messages",
		[]string{"user_id", "content"},
		[]any{authorID, content},
		"id", "user_id", "content", "created_at",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build message insert: %w", err)
	}

	var msg domain.StoredMessage
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&msg.ID, &msg.AuthorID, &msg.Content, &msg.CreatedAt); err != nil {
		return nil, mapMessageError("insert message", err)
	}
	return &msg, nil
}

// ListRecent returns up to limit messages, newest first, with the author's name when it still exists.
func (r *MessageRepo) ListRecent(ctx context.Context, limit int) ([]domain.MessageView, error) {
	if limit <= 0 {
		return nil, domain.NewValidationError("limit", "must be positive")
	}

	sql, args, err := buildSelect(recentMessagesQuery, listOptions{
		OrderBy: []orderTerm{{Column: "m.created_at", Desc: true}, {Column: "m.id", Desc: true}},
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build message list: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.StoreUnavailable("list messages", err)
	}

	views, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.MessageView, error) {
		var v domain.MessageView
		err := row.Scan(&v.ID, &v.AuthorID, &v.Content, &v.CreatedAt, &v.AuthorName)
		return v, err
	})
	if err != nil {
		return nil, domain.StoreUnavailable("list messages", err)
	}
	return views, nil
}
