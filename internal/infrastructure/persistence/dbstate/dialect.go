package dbstate

import (
	"strconv"
	"strings"
)

// Dialect describes the SQL differences between supported drivers
type Dialect struct {
	// Driver is the database/sql driver name
	Driver string
	// Placeholder renders the n-th (1-based) bind parameter
	Placeholder func(n int) string
}

// SQLite uses positional "?" parameters
var SQLite = Dialect{
	Driver:      "sqlite3",
	Placeholder: func(int) string { return "?" },
}

// Postgres uses numbered "$n" parameters
var Postgres = Dialect{
	Driver:      "postgres",
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
}

// Rebind rewrites "?" parameters in query to the dialect's placeholders
func (d Dialect) Rebind(query string) string {
	if d.Placeholder == nil {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
