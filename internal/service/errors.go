package service

import (
	"errors"

	"github.com/donaldmo/pandopot-api/internal/domain/apperr"
	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/repository"
)

// storeErr maps a repository error onto the taxonomy. Unknown errors become PersistenceFailure.
func storeErr(op string, err error, what string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrInvalidID):
		return &apperr.Error{Kind: apperr.KindNotFound, Op: op, Message: what + " not found", Err: err}
	case errors.Is(err, repository.ErrConflict):
		return &apperr.Error{Kind: apperr.KindConflict, Op: op, Message: what + " was modified concurrently", Err: err}
	case errors.Is(err, repository.ErrAlreadyExists):
		return &apperr.Error{Kind: apperr.KindConflict, Op: op, Message: what + " already exists", Err: err}
	default:
		return apperr.Wrap(apperr.KindPersistenceFailure, op, err)
	}
}

func subscriptionErr(op string, err error) error {
	switch {
	case errors.Is(err, entity.ErrSubscriptionNotFound):
		return apperr.Wrap(apperr.KindNotFound, op, err)
	case errors.Is(err, entity.ErrSubscriptionUsed), errors.Is(err, entity.ErrSubscriptionReserved):
		return apperr.Wrap(apperr.KindConflict, op, err)
	case errors.Is(err, entity.ErrSubscriptionExpired):
		return apperr.Wrap(apperr.KindValidation, op, err)
	default:
		return storeErr(op, err, "subscription")
	}
}
