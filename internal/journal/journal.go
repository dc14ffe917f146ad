// Package journal keeps a durable record of reservation outcomes.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/example/court-scheduler/internal/booking"
	"github.com/example/court-scheduler/internal/db"
)

type Entry struct {
	ID        int64     `json:"id"`
	AccountID string    `json:"account_id"`
	Court     int       `json:"court"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Hours     int       `json:"hours"`
	Result    string    `json:"result"`
	Detail    string    `json:"detail,omitempty"`
	Holder    string    `json:"holder,omitempty"`
	At        time.Time `json:"at"`
}

func FromOutcome(o booking.Outcome) Entry {
	return Entry{
		AccountID: o.AccountID,
		Court:     o.Target.Court,
		Date:      o.Target.Date,
		Time:      o.Target.Time,
		Hours:     o.Target.Hours,
		Result:    o.Result.String(),
		Detail:    o.Detail,
		Holder:    o.Holder,
		At:        o.At,
	}
}

type Store interface {
	Insert(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	ForDate(ctx context.Context, date string) ([]Entry, error)
}

// Repo is the Postgres Store.
type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

func (r *Repo) Insert(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	err := r.db.Exec(ctx, `
INSERT INTO attempts(account_id,court,order_date,start_time,hours,result,detail,holder,at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.AccountID, e.Court, e.Date, e.Time, e.Hours, e.Result, e.Detail, e.Holder, e.At)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

const selectEntries = `
SELECT id,account_id,court,order_date,start_time,hours,result,detail,holder,at
FROM attempts`

func (r *Repo) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, selectEntries+`
ORDER BY at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (r *Repo) ForDate(ctx context.Context, date string) ([]Entry, error) {
	rows, err := r.db.Query(ctx, selectEntries+`
WHERE order_date=$1
ORDER BY at DESC`, date)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func scanEntries(rows db.Rows) ([]Entry, error) {
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Court, &e.Date, &e.Time, &e.Hours, &e.Result, &e.Detail, &e.Holder, &e.At); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
