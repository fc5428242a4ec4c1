package sqlstore

import (
	"strconv"
	"strings"
)

// dialect captures the few places postgres and sqlite disagree
type dialect struct {
	name string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
	// row locks are taken with SELECT ... FOR UPDATE
	rowLocks bool
}

var (
	postgresDialect = dialect{name: "postgres", numbered: true, rowLocks: true}
	sqliteDialect   = dialect{name: "sqlite"}
)

// rebind rewrites ? placeholders for the dialect
func (d dialect) rebind(query string) string {
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

// forUpdate returns the locking clause appended to row reads inside a unit
func (d dialect) forUpdate(lock bool) string {
	if lock && d.rowLocks {
		return " FOR UPDATE"
	}
	return ""
}
