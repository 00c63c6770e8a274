package repository

import (
	"errors"

	"github.com/diagnosis/luxbus/services/reservations/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// constraintErr maps unique and foreign key failures to the given domain
// errors. A nil mapping, or any other failure, is a store failure.
func constraintErr(op string, err error, unique, foreignKey error) error {
	switch code := pgCode(err); {
	case code == uniqueViolation && unique != nil:
		return unique
	case code == foreignKeyViolation && foreignKey != nil:
		return foreignKey
	}
	return storeErr(op, err)
}

// insertErr maps constraint failures on reservation writes.
func insertErr(op string, err error) error {
	return constraintErr(op, err, domain.ErrSeatTaken, domain.ErrUnknownReference)
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &domain.StoreError{Op: op, Err: err}
}
