package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rpggio/routine/internal/calendar"
)

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func dateArg(d *calendar.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanDate(ns sql.NullString) (*calendar.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := calendar.Parse(ns.String)
	if err != nil {
		return nil, fmt.Errorf("invalid stored date %q: %w", ns.String, err)
	}
	return &d, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
