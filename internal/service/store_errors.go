package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	appErrors "github.com/campusworks/registrar-api/pkg/errors"
)

// mapStoreError classifies a persistence failure. Timeouts, cancellations
// and dead connections are retryable; everything else is internal.
// Validating operations re-check state from scratch, so retries are safe.
func mapStoreError(err error, message string) *appErrors.Error {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, sql.ErrTxDone) {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
