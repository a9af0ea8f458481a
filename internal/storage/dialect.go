package storage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect captures the few places where sqlite and postgres SQL differ.
type Dialect struct {
	// Name is both the database/sql driver name and the migrations directory.
	Name string

	monthOf        func(col string) string
	yearOf         func(col string) string
	positional     bool
	uniqueViolated func(error) bool
}

var SQLite = Dialect{
	Name: "sqlite",
	monthOf: func(col string) string {
		return fmt.Sprintf("CAST(strftime('%%m', %s) AS INTEGER)", col)
	},
	yearOf: func(col string) string {
		return fmt.Sprintf("CAST(strftime('%%Y', %s) AS INTEGER)", col)
	},
	uniqueViolated: func(err error) bool {
		var se *sqlite.Error
		if !errors.As(err, &se) {
			return false
		}
		if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return true
		}
		return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
	},
}

var Postgres = Dialect{
	Name: "postgres",
	monthOf: func(col string) string {
		return fmt.Sprintf("CAST(EXTRACT(MONTH FROM %s) AS INTEGER)", col)
	},
	yearOf: func(col string) string {
		return fmt.Sprintf("CAST(EXTRACT(YEAR FROM %s) AS INTEGER)", col)
	},
	positional: true,
	uniqueViolated: func(err error) bool {
		var pe *pq.Error
		return errors.As(err, &pe) && pe.Code == "23505"
	},
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case SQLite.Name:
		return SQLite, nil
	case Postgres.Name:
		return Postgres, nil
	}
	return Dialect{}, fmt.Errorf("unsupported database driver %q", name)
}

// rebind rewrites ? placeholders to $n for positional dialects.
func (d Dialect) rebind(query string) string {
	if !d.positional {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
