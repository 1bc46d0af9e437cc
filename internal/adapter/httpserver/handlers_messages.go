package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/app"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/domain"
	apperrors "github.com/sonuparjapat/stocksWebsiteMain/internal/platform/errors"
)

type messageResponse struct {
	ID         int64     `json:"id"`
	AuthorID   int64     `json:"authorId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	AuthorName *string   `json:"authorName"`
}

func toMessageResponse(v domain.MessageView) messageResponse {
	return messageResponse{
		ID:         v.ID,
		AuthorID:   v.AuthorID,
		Content:    v.Content,
		CreatedAt:  v.CreatedAt,
		AuthorName: v.AuthorName,
	}
}

func (s *Server) handleListMessages(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > app.MaxMessageLimit {
			return apperrors.ValidationError(fmt.Sprintf("limit must be an integer between 1 and %d", app.MaxMessageLimit)).
				WithField("limit", raw)
		}
		limit = n
	}

	views, err := s.app.ListRecentMessages(c.Request().Context(), limit)
	if err != nil {
		return err
	}

	response := make([]messageResponse, 0, len(views))
	for _, v := range views {
		response = append(response, toMessageResponse(v))
	}

	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
