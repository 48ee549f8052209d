// package repositories provides persistence layer implementations for all model types.
//
// Each repository implements models.Repository[T] for a specific entity type
// over database/sql with the sqlite3 driver.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested record does not exist or has been removed.
var ErrNotFound = errors.New("record not found")

// scanErr normalizes sql.ErrNoRows into ErrNotFound with entity context.
func scanErr(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	return fmt.Errorf("failed to query %s: %w", entity, err)
}
