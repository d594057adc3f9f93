package repository

import (
	"github.com/lib/pq"

	appErrors "github.com/noah-isme/alumni-portal-api/pkg/errors"
)

// translateUniqueViolation maps a PostgreSQL unique-constraint violation to
// the shared conflict error so services can react without parsing driver
// details. Any other error passes through untouched.
func translateUniqueViolation(err error) error {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, appErrors.ErrConflict.Message)
	}
	return err
}
