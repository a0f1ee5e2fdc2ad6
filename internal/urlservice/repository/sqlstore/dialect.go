package sqlstore

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Dialect captures the differences between the supported SQL backends.
type Dialect struct {
	name string
	// lockRow is appended to the entry SELECT inside Update.
	lockRow string
	// readTx isolates FindByCode so the counter and the log agree.
	readTx            *sql.TxOptions
	numbered          bool
	isUniqueViolation func(error) bool
}

var (
	// SQLite relies on its single connection for per-code serialization.
	SQLite = Dialect{
		name: "sqlite",
		isUniqueViolation: func(err error) bool {
			var sqliteErr sqlite3.Error
			if !errors.As(err, &sqliteErr) {
				return false
			}
			return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
				sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
		},
	}

	// Postgres locks the entry row for the duration of an Update.
	Postgres = Dialect{
		name:     "postgres",
		lockRow:  " FOR UPDATE",
		readTx:   &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
		numbered: true,
		isUniqueViolation: func(err error) bool {
			var pqErr *pq.Error
			return errors.As(err, &pqErr) && pqErr.Code == "23505"
		},
	}
)

func (d Dialect) String() string {
	return d.name
}

// rebind rewrites ? placeholders into $n for numbered dialects.
func (d Dialect) rebind(query string) string {
	if !d.numbered {
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
