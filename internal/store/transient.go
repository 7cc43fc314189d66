package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// IsTransient reports whether a store error is worth retrying: lock
// contention, dropped connections and server-side resource or
// serialization failures. Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08: connection exception, 40: transaction rollback (serialization,
		// deadlock), 53: insufficient resources, 57P: operator intervention.
		for _, class := range []string{"08", "40", "53", "57P"} {
			if strings.HasPrefix(pgErr.Code, class) {
				return true
			}
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
