package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/domain"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	// Raised for bytes the server encoding cannot store, such as NUL.
	codeCharacterNotInRepertoire = "22021"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// mapUserError translates a failed users write into the domain taxonomy.
func mapUserError(op string, err error) error {
	if pgErrorCode(err) == codeUniqueViolation {
		return domain.ErrDuplicateEmail
	}
	return domain.StoreUnavailable(op, err)
}

// mapMessageError translates a failed messages write into the domain taxonomy.
func mapMessageError(op string, err error) error {
	switch pgErrorCode(err) {
	case codeForeignKeyViolation:
		return domain.NewValidationError("authorId", "author does not exist")
	case codeCheckViolation:
		return domain.NewValidationError("content", "must not be empty")
	case codeCharacterNotInRepertoire:
		return domain.NewValidationError("content", "contains characters that cannot be stored")
	}
	return domain.StoreUnavailable(op, err)
}
