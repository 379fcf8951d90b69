package mail

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/auto-report/internal/db"
)

// ListFilter controls which deliveries are returned by List.
type ListFilter struct {
	Status []Status
	Since  time.Time
	Until  time.Time
	Limit  int
	Offset int
}

// Store persists deliveries in the outbox table.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

const deliveryColumns = "id, subject, recipients, senders, body, status, error, attempts, created_at, sent_at"

// Create inserts a new delivery. If d.ID is empty a UUID is generated and
// written back; an empty status becomes pending.
func (s *Store) Create(ctx context.Context, d *Delivery) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Status == "" {
		d.Status = StatusPending
	}

	recipients, err := json.Marshal(d.Recipients)
	if err != nil {
		return fmt.Errorf("marshalling recipients: %w", err)
	}
	senders, err := json.Marshal(d.Senders)
	if err != nil {
		return fmt.Errorf("marshalling senders: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deliveries (id, subject, recipients, senders, body, status, error, attempts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Subject, string(recipients), string(senders), d.Body,
		string(d.Status), d.Error, d.Attempts,
	)
	if err != nil {
		return fmt.Errorf("inserting delivery: %w", err)
	}
	return nil
}

// GetByID retrieves a single delivery.
func (s *Store) GetByID(ctx context.Context, id string) (*Delivery, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+deliveryColumns+" FROM deliveries WHERE id = ?", id)

	d, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying delivery %s: %w", id, err)
	}
	return d, nil
}

// List returns deliveries matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Delivery, error) {
	var (
		clauses []string
		args    []any
	)

	if len(filter.Status) > 0 {
		marks := make([]string, len(filter.Status))
		for i, st := range filter.Status {
			marks[i] = "?"
			args = append(args, string(st))
		}
		clauses = append(clauses, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.DateTime))
	}
	if !filter.Until.IsZero() {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, filter.Until.UTC().Format(time.DateTime))
	}

	query := "SELECT " + deliveryColumns + " FROM deliveries"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying deliveries: %w", err)
	}
	defer rows.Close()

	var result []Delivery
	for rows.Next() {
		d, err := scanInto(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning delivery: %w", err)
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

// GetPending returns every delivery that has not been sent yet, including
// ones whose last attempt failed.
func (s *Store) GetPending(ctx context.Context) ([]Delivery, error) {
	return s.List(ctx, ListFilter{Status: []Status{StatusPending, StatusFailed}})
}

// MarkSent records a successful attempt.
func (s *Store) MarkSent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE deliveries
		SET status = 'sent', error = '', attempts = attempts + 1, sent_at = datetime('now')
		WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking delivery sent: %w", err)
	}
	return requireRow(res, id)
}

// MarkFailed records a failed attempt and its cause.
func (s *Store) MarkFailed(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE deliveries
		SET status = 'failed', error = ?, attempts = attempts + 1
		WHERE id = ?`, msg, id)
	if err != nil {
		return fmt.Errorf("marking delivery failed: %w", err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Delivery, error) {
	var (
		d                           Delivery
		status                      string
		recipientsJSON, sendersJSON string
		created                     string
		sent                        sql.NullString
	)

	err := sc.Scan(&d.ID, &d.Subject, &recipientsJSON, &sendersJSON, &d.Body,
		&status, &d.Error, &d.Attempts, &created, &sent)
	if err != nil {
		return nil, err
	}

	d.Status = Status(status)
	d.CreatedAt = parseTime(created)
	if sent.Valid {
		t := parseTime(sent.String)
		d.SentAt = &t
	}

	if err := json.Unmarshal([]byte(recipientsJSON), &d.Recipients); err != nil {
		d.Recipients = nil
	}
	if err := json.Unmarshal([]byte(sendersJSON), &d.Senders); err != nil {
		d.Senders = nil
	}

	return &d, nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.DateTime, time.RFC3339, "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
