package db

import (
	"database/sql"
	"strings"

	"github.com/teranos/scribe/errors"
)

// ErrDatabaseClosed marks work that reached the database after Close.
// Cache writes from workers still draining a cancelled run hit this.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err comes from a closed *sql.DB or
// connection. database/sql does not export its closed error, so the
// driver message is matched as well.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
