// Package sqlite implements plasticboy.Store on libSQL.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/codenameh8m/plasticboy-sub000/internal/plasticboy"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Store struct {
	db *sql.DB
}

var _ plasticboy.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const pointColumns = `id, name, lat, lng, qr_secret, qr_code, status, created_at, scheduled_time, collected_at, collector`

func (s *Store) CreatePoint(ctx context.Context, p plasticboy.Point) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO points (id, name, lat, lng, qr_secret, qr_code, status, created_at, scheduled_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Coordinates.Lat, p.Coordinates.Lng, p.QRSecret, p.QRCode,
		string(p.Status), formatTime(p.CreatedAt), formatTime(p.ScheduledTime))
	if err != nil {
		return fmt.Errorf("inserting point: %w", err)
	}
	return nil
}

func (s *Store) GetPoint(ctx context.Context, id string) (plasticboy.Point, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pointColumns+` FROM points WHERE id = ?`, id)
	p, err := scanPoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return plasticboy.Point{}, plasticboy.ErrNotFound
	}
	return p, err
}

// Points runs a fresh query every time the sequence is ranged over.
func (s *Store) Points(ctx context.Context, f plasticboy.PointFilter) iter.Seq2[plasticboy.Point, error] {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.AuthMethod != "" {
		where = append(where, "auth_method = ?")
		args = append(args, string(f.AuthMethod))
	}
	q := `SELECT ` + pointColumns + ` FROM points`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id`

	return func(yield func(plasticboy.Point, error) bool) {
		rows, err := s.db.QueryContext(ctx, q, args...)
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

// MarkCollected flips status only while the row is still available, so the
// first of concurrent writers wins and the rest affect zero rows.
func (s *Store) MarkCollected(ctx context.Context, id string, at time.Time, info plasticboy.CollectorInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding collector: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE points
		SET status = 'collected', collected_at = ?, auth_method = ?, collector = ?
		WHERE id = ? AND status = 'available'
	`, formatTime(at), string(info.AuthMethod), string(data), id)
	if err != nil {
		return fmt.Errorf("updating point: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM points WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return plasticboy.ErrNotFound
	}
	if err != nil {
		return err
	}
	return plasticboy.ErrAlreadyCollected
}

func (s *Store) DeletePoint(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM points WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return plasticboy.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPoint(sc scanner) (plasticboy.Point, error) {
	var (
		p                      plasticboy.Point
		status                 string
		createdAt, scheduledAt string
		collectedAt, collector sql.NullString
	)
	err := sc.Scan(&p.ID, &p.Name, &p.Coordinates.Lat, &p.Coordinates.Lng, &p.QRSecret, &p.QRCode,
		&status, &createdAt, &scheduledAt, &collectedAt, &collector)
	if err != nil {
		return plasticboy.Point{}, err
	}
	p.Status = plasticboy.Status(status)

	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return plasticboy.Point{}, err
	}
	if p.ScheduledTime, err = parseTime(scheduledAt); err != nil {
		return plasticboy.Point{}, err
	}
	if collectedAt.Valid {
		t, err := parseTime(collectedAt.String)
		if err != nil {
			return plasticboy.Point{}, err
		}
		p.CollectedAt = &t
	}
	if collector.Valid {
		var info plasticboy.CollectorInfo
		if err := json.Unmarshal([]byte(collector.String), &info); err != nil {
			return plasticboy.Point{}, fmt.Errorf("decoding collector of %s: %w", p.ID, err)
		}
		p.Collector = &info
	}
	return p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
