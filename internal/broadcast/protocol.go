package broadcast

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/domain"
)

// Envelope is the frame layout in both directions: {"type": "...", "data": {...}}.
type Envelope struct {
	Type domain.EventType `json:"type"`
	Data json.RawMessage  `json:"data,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Encode wraps data in an envelope of the given type.
func Encode(eventType domain.EventType, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	frame, err := json.Marshal(Envelope{Type: eventType, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s envelope: %w", eventType, err)
	}
	return frame, nil
}

// DecodePostMessage parses an inbound frame into a validated post-message event.
// Every failure is a *domain.ValidationError.
func DecodePostMessage(frame []byte) (domain.PostMessage, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return domain.PostMessage{}, domain.NewValidationError("", "malformed event")
	}

	if env.Type != domain.EventPostMessage {
		return domain.PostMessage{}, domain.NewValidationError("type", fmt.Sprintf("unknown event type %q", env.Type))
	}

	var event domain.PostMessage
	if len(env.Data) == 0 {
		return domain.PostMessage{}, domain.NewValidationError("data", "is required")
	}
	if err := json.Unmarshal(env.Data, &event); err != nil {
		return domain.PostMessage{}, domain.NewValidationError("data", "malformed post-message payload")
	}

	if err := validate.Struct(event); err != nil {
		return domain.PostMessage{}, toValidationError(err)
	}
	return event, nil
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		switch fe.Tag() {
		case "required":
			return domain.NewValidationError(fe.Field(), "is required")
		case "gt":
			return domain.NewValidationError(fe.Field(), "must be greater than "+fe.Param())
		default:
			return domain.NewValidationError(fe.Field(), "failed "+fe.Tag()+" check")
		}
	}
	return domain.NewValidationError("", err.Error())
}
