package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/gemchat/internal/db"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02 15:04:05.000"

// ErrNotFound is returned by GetByID for unknown ids.
var ErrNotFound = errors.New("exchange not found")

// Store persists exchanges.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

// Log inserts a new exchange. If ID is empty a UUID is generated; a zero
// Timestamp is set to now.
func (s *Store) Log(ctx context.Context, x Exchange) (Exchange, error) {
	if x.ID == "" {
		x.ID = uuid.New().String()
	}
	if x.Timestamp.IsZero() {
		x.Timestamp = s.now()
	}
	x.Timestamp = x.Timestamp.UTC().Truncate(time.Millisecond)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exchanges (
			id, created_at, kind, prompt, output_chars, file, status, error,
			provider, model, input_tokens, output_tokens, cost_usd, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		x.ID,
		x.Timestamp.Format(timeLayout),
		string(x.Kind),
		x.Prompt,
		x.OutputChars,
		x.File,
		string(x.Status),
		x.Error,
		x.Provider,
		x.Model,
		x.InputTokens,
		x.OutputTokens,
		x.CostUSD,
		x.DurationMS,
	)
	if err != nil {
		return Exchange{}, fmt.Errorf("inserting exchange: %w", err)
	}
	return x, nil
}

const selectColumns = `SELECT id, created_at, kind, prompt, output_chars, file, status, error,
	provider, model, input_tokens, output_tokens, cost_usd, duration_ms FROM exchanges`

// GetByID retrieves a single exchange.
func (s *Store) GetByID(ctx context.Context, id string) (*Exchange, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	x, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return x, err
}

// QueryFilter controls which exchanges are returned by Query.
type QueryFilter struct {
	Kind   Kind
	Status Status
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}

func (f QueryFilter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.Since.UTC().Format(timeLayout))
	}
	if f.Until != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, f.Until.UTC().Format(timeLayout))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Query returns exchanges matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Exchange, error) {
	where, args := filter.where()
	query := selectColumns + where + " ORDER BY created_at DESC, rowid DESC"

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
		return nil, fmt.Errorf("querying exchanges: %w", err)
	}
	defer rows.Close()

	exchanges := []Exchange{}
	for rows.Next() {
		x, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		exchanges = append(exchanges, *x)
	}
	return exchanges, rows.Err()
}

// Summarize aggregates the exchanges matching filter. Limit and Offset
// are ignored.
func (s *Store) Summarize(ctx context.Context, filter QueryFilter) (*Summary, error) {
	where, args := filter.where()
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, status, COUNT(*), COALESCE(SUM(input_tokens), 0),
			   COALESCE(SUM(output_tokens), 0), COALESCE(SUM(cost_usd), 0)
		FROM exchanges`+where+` GROUP BY kind, status`, args...)
	if err != nil {
		return nil, fmt.Errorf("summarizing exchanges: %w", err)
	}
	defer rows.Close()

	sum := &Summary{ByStatus: map[Status]int{}, ByKind: map[Kind]int{}}
	for rows.Next() {
		var (
			kind, status string
			n, in, out   int
			cost         float64
		)
		if err := rows.Scan(&kind, &status, &n, &in, &out, &cost); err != nil {
			return nil, err
		}
		sum.Total += n
		sum.ByKind[Kind(kind)] += n
		sum.ByStatus[Status(status)] += n
		sum.InputTokens += in
		sum.OutputTokens += out
		sum.CostUSD += cost
	}
	return sum, rows.Err()
}

// DeleteBefore removes all exchanges older than the given time.
// Returns the number of deleted rows.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM exchanges WHERE created_at < ?",
		before.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old exchanges: %w", err)
	}
	return res.RowsAffected()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Exchange, error) {
	var (
		x            Exchange
		ts           string
		kind, status string
	)

	err := sc.Scan(
		&x.ID, &ts, &kind, &x.Prompt, &x.OutputChars, &x.File, &status, &x.Error,
		&x.Provider, &x.Model, &x.InputTokens, &x.OutputTokens, &x.CostUSD, &x.DurationMS,
	)
	if err != nil {
		return nil, err
	}

	x.Kind = Kind(kind)
	x.Status = Status(status)
	if t, parseErr := time.Parse(timeLayout, ts); parseErr == nil {
		x.Timestamp = t
	}
	return &x, nil
}
