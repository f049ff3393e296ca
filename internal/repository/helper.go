package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/rrebane/market-data-loader/internal/apperrors"
	"github.com/rrebane/market-data-loader/internal/calendar"
)

// querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type querier interface {
	sqlx.ExtContext
}

// ParseTime parses a date string in "2006-01-02" or RFC3339 format.
func ParseTime(str string) (time.Time, error) {
	returnTime, err := time.Parse(calendar.DateLayout, str)
	if err != nil {
		returnTime, err = time.Parse(time.RFC3339, str)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
		}
	}
	return calendar.Day(returnTime), nil
}

// dbDate scans a DATE column regardless of how the driver surfaces it:
// modernc/sqlite may return text or time.Time, lib/pq returns time.Time.
type dbDate time.Time

func (d *dbDate) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = dbDate(calendar.Day(v))
		return nil
	case string:
		t, err := ParseTime(v)
		if err != nil {
			return err
		}
		*d = dbDate(t)
		return nil
	case []byte:
		return d.Scan(string(v))
	default:
		return fmt.Errorf("unsupported date value %T", src)
	}
}

func (d dbDate) Value() (driver.Value, error) {
	return calendar.Format(time.Time(d)), nil
}

// collectDates runs a single-column date query and returns the distinct dates.
func collectDates(ctx context.Context, q querier, query string, args ...any) (calendar.Set, error) {
	rows, err := q.QueryxContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dates := calendar.NewSet()
	for rows.Next() {
		var d dbDate
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan date: %w", err)
		}
		dates.Add(time.Time(d))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dates: %w", err)
	}
	return dates, nil
}

// translateError maps unique-key violations of either supported driver onto
// apperrors.ErrDuplicateEntry so callers can recognize a lost insert race.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			(code == sqlite3.SQLITE_CONSTRAINT && strings.Contains(err.Error(), "UNIQUE")) {
			return fmt.Errorf("%w: %v", apperrors.ErrDuplicateEntry, err)
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %v", apperrors.ErrDuplicateEntry, err)
	}

	return err
}

var _ sql.Scanner = (*dbDate)(nil)
