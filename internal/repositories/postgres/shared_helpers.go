package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/learnflow/lms-service/internal/repositories"
)

// handleDBError translates gorm errors into the repository error taxonomy
// while preserving the operation context. Relies on the driver's
// TranslateError mode for constraint violations.
func handleDBError(err error, operation string) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", operation, repositories.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", operation, repositories.ErrDuplicateKey)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s: %w", operation, repositories.ErrForeignKeyViolated)
	default:
		return fmt.Errorf("%s failed: %w", operation, err)
	}
}

// applyPaginationAndSorting applies limit/offset and a whitelisted sort.
// sortKeyToColumn maps logical API sort keys to SQL-safe column names.
func applyPaginationAndSorting(query *gorm.DB, limit, offset int, sortBy, sortOrder, defaultColumn string, sortKeyToColumn map[string]string) *gorm.DB {
	column, ok := sortKeyToColumn[sortBy]
	if !ok {
		column = defaultColumn
	}

	order := "DESC"
	if sortOrder == "asc" || sortOrder == "ASC" {
		order = "ASC"
	}

	// Only use mapped SQL column name and constant sort order
	query = query.Order(fmt.Sprintf("%s %s", column, order))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}
