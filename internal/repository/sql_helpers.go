package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"tenant-inbox/internal/domain"
)

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a lower-cased LIKE pattern matching value anywhere.
func containsPattern(value string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(value)) + "%"
}

const searchClause = `(LOWER(tenant_name) LIKE ? ESCAPE '\' OR LOWER(subject) LIKE ? ESCAPE '\')`

// filterCondition renders filter as one boolean expression over a
// conversation row. It returns an empty expression when nothing is filtered.
func filterCondition(filter ConversationFilter) (string, []interface{}) {
	var (
		parts []string
		args  []interface{}
	)
	if filter.Status != "" {
		parts = append(parts, "status = ?")
		args = append(args, filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := containsPattern(search)
		parts = append(parts, searchClause)
		args = append(args, pattern, pattern)
	}
	return strings.Join(parts, " AND "), args
}

func applyFilter(q *gorm.DB, filter ConversationFilter) *gorm.DB {
	if cond, args := filterCondition(filter); cond != "" {
		q = q.Where(cond, args...)
	}
	return q
}

func pageOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}

func readFlagColumn(role domain.Role) string {
	if role.IsTenant() {
		return "read_by_tenant"
	}
	return "read_by_counterpart"
}
