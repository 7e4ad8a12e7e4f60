// Package postgres implements plasticboy.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/codenameh8m/plasticboy-sub000/internal/plasticboy"
)

// PgxPool is the subset of *pgxpool.Pool the store needs. pgxmock.PgxPoolIface
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool PgxPool
}

var _ plasticboy.Store = (*Store)(nil)

func New(pool PgxPool) *Store {
	return &Store{pool: pool}
}

const pointColumns = `id, name, lat, lng, qr_secret, qr_code, status, created_at, scheduled_time, collected_at, collector`

func (s *Store) CreatePoint(ctx context.Context, p plasticboy.Point) error {
	const q = `INSERT INTO points (id, name, lat, lng, qr_secret, qr_code, status, created_at, scheduled_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.pool.Exec(ctx, q, p.ID, p.Name, p.Coordinates.Lat, p.Coordinates.Lng,
		p.QRSecret, p.QRCode, string(p.Status), p.CreatedAt.UTC(), p.ScheduledTime.UTC())
	if err != nil {
		return fmt.Errorf("inserting point: %w", err)
	}
	return nil
}

func (s *Store) GetPoint(ctx context.Context, id string) (plasticboy.Point, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pointColumns+` FROM points WHERE id = $1`, id)
	p, err := scanPoint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return plasticboy.Point{}, plasticboy.ErrNotFound
	}
	return p, err
}

func (s *Store) Points(ctx context.Context, f plasticboy.PointFilter) iter.Seq2[plasticboy.Point, error] {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if f.AuthMethod != "" {
		args = append(args, string(f.AuthMethod))
		where = append(where, "auth_method = $"+strconv.Itoa(len(args)))
	}
	q := `SELECT ` + pointColumns + ` FROM points`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id`

	return func(yield func(plasticboy.Point, error) bool) {
		rows, err := s.pool.Query(ctx, q, args...)
		if err != nil {
			yield(plasticboy.Point{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPoint(rows)
			if err != nil {
				yield(plasticboy.Point{}, err)
				return
			}
			if !yield(p, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(plasticboy.Point{}, err)
		}
	}
}

// MarkCollected relies on row locking of the conditional UPDATE: concurrent
// writers serialize on the row and only the first sees status 'available'.
func (s *Store) MarkCollected(ctx context.Context, id string, at time.Time, info plasticboy.CollectorInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding collector: %w", err)
	}

	const q = `UPDATE points
		SET status = 'collected', collected_at = $2, auth_method = $3, collector = $4
		WHERE id = $1 AND status = 'available'`
	tag, err := s.pool.Exec(ctx, q, id, at.UTC(), string(info.AuthMethod), data)
	if err != nil {
		return fmt.Errorf("updating point: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var status string
	err = s.pool.QueryRow(ctx, `SELECT status FROM points WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return plasticboy.ErrNotFound
	}
	if err != nil {
		return err
	}
	return plasticboy.ErrAlreadyCollected
}

func (s *Store) DeletePoint(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM points WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return plasticboy.ErrNotFound
	}
	return nil
}

func scanPoint(row pgx.Row) (plasticboy.Point, error) {
	var (
		p           plasticboy.Point
		status      string
		collectedAt *time.Time
		collector   []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.Coordinates.Lat, &p.Coordinates.Lng, &p.QRSecret, &p.QRCode,
		&status, &p.CreatedAt, &p.ScheduledTime, &collectedAt, &collector)
	if err != nil {
		return plasticboy.Point{}, err
	}
	p.Status = plasticboy.Status(status)
	p.CreatedAt = p.CreatedAt.UTC()
	p.ScheduledTime = p.ScheduledTime.UTC()
	if collectedAt != nil {
		t := collectedAt.UTC()
		p.CollectedAt = &t
	}
	if len(collector) > 0 {
		var info plasticboy.CollectorInfo
		if err := json.Unmarshal(collector, &info); err != nil {
			return plasticboy.Point{}, fmt.Errorf("decoding collector of %s: %w", p.ID, err)
		}
		p.Collector = &info
	}
	return p, nil
}
