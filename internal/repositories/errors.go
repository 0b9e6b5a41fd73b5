package repositories

import (
	"errors"
	"strings"

	"pantry/internal/models"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey is returned when a write violates a unique index.
	ErrDuplicateKey = errors.New("duplicate key")
)

// isUniqueViolation recognises unique-index violations from gorm's error
// translation and from the raw postgres/sqlite driver messages.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// containsPattern builds a LIKE pattern matching query as a literal
// substring of a folded column. Use it with likeClause.
func containsPattern(query string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(models.FoldName(query))
	return "%" + escaped + "%"
}

// likeClause matches a column already folded with models.FoldName. The
// database never folds case itself; SQLite's LOWER only handles ASCII.
func likeClause(foldedColumn string) string {
	return foldedColumn + ` LIKE ? ESCAPE '\'`
}

// containsFold reports whether s contains query, ignoring case. It is the
// in-memory counterpart of likeClause.
func containsFold(s, query string) bool {
	return strings.Contains(models.FoldName(s), models.FoldName(query))
}
