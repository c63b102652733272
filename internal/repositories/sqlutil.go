package repositories

import (
	"database/sql"
	"errors"
	"time"
)

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// notFound maps a missing row, or an id Postgres cannot parse as a uuid, to
// the sentinel. Any other error is returned unchanged.
func notFound(err error, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
		return sentinel
	}
	return err
}

func rowsAffected(res sql.Result, sentinel error) error {
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return sentinel
	}
	return nil
}
