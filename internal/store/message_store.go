package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/nhle/mailmirror/internal/model"
)

// selectMessages reads every column of the mail table. Nullable columns are
// coalesced so legacy rows scan into plain strings.
const selectMessages = `
	SELECT id, datetime, "to", sender,
		COALESCE(cc, '') AS cc,
		COALESCE(subject, '') AS subject,
		COALESCE(body, '') AS body,
		COALESCE(folder, '') AS folder
	FROM mail`

// messageRow mirrors one mail table row.
type messageRow struct {
	ID       int64  `db:"id"`
	Datetime string `db:"datetime"`
	To       string `db:"to"`
	Sender   string `db:"sender"`
	Cc       string `db:"cc"`
	Subject  string `db:"subject"`
	Body     string `db:"body"`
	Folder   string `db:"folder"`
}

func (r messageRow) toMessage() (model.Message, error) {
	receivedAt, err := parseStoredTime(r.Datetime)
	if err != nil {
		return model.Message{}, fmt.Errorf("scanning message %d: %w", r.ID, err)
	}
	return model.Message{
		ID:         r.ID,
		ReceivedAt: receivedAt,
		Sender:     r.Sender,
		To:         r.To,
		Cc:         r.Cc,
		Subject:    r.Subject,
		Body:       r.Body,
		Folder:     r.Folder,
	}, nil
}

// Insert stores a new message. The unique index on datetime is the dedup
// gate: a second message with the same ReceivedAt yields a *ConflictError.
func (s *SQLiteStore) Insert(ctx context.Context, msg model.Message) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO mail (datetime, "to", sender, cc, subject, body, folder)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		formatStoredTime(msg.ReceivedAt), msg.To, msg.Sender,
		msg.Cc, msg.Subject, msg.Body, nullIfEmpty(msg.Folder),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, &ConflictError{ReceivedAt: msg.ReceivedAt, Err: err}
		}
		return 0, fmt.Errorf("inserting message %s: %w",
			formatStoredTime(msg.ReceivedAt), err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted id: %w", err)
	}
	return id, nil
}

// Exists reports whether a message with the given ReceivedAt is stored.
func (s *SQLiteStore) Exists(ctx context.Context, receivedAt time.Time) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM mail WHERE datetime = ?", formatStoredTime(receivedAt),
	)
	if err != nil {
		return false, fmt.Errorf("checking message %s: %w",
			formatStoredTime(receivedAt), err)
	}
	return n > 0, nil
}

// Get retrieves a single message by its ID.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*model.Message, error) {
	var row messageRow
	err := s.db.GetContext(ctx, &row, selectMessages+" WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting message %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting message %d: %w", id, err)
	}

	msg, err := row.toMessage()
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Range returns messages whose ID lies within [fromID, toID].
func (s *SQLiteStore) Range(ctx context.Context, fromID, toID int64) ([]model.Message, error) {
	var conditions []string
	var args []any

	if fromID > 0 {
		conditions = append(conditions, "id >= ?")
		args = append(args, fromID)
	}
	if toID > 0 {
		conditions = append(conditions, "id <= ?")
		args = append(args, toID)
	}

	return s.Select(ctx, Condition{SQL: strings.Join(conditions, " AND "), Args: args})
}

// Select returns messages matching cond, ordered by ID. An empty condition
// selects everything.
func (s *SQLiteStore) Select(ctx context.Context, cond Condition) ([]model.Message, error) {
	query := selectMessages
	if cond.SQL != "" {
		query += " WHERE " + cond.SQL
	}
	query += " ORDER BY id"

	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, query, cond.Args...); err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}

	msgs := make([]model.Message, 0, len(rows))
	for _, r := range rows {
		msg, err := r.toMessage()
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Count returns the number of stored messages.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM mail"); err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return n, nil
}

// CountWhere returns the number of messages matching cond. An empty
// condition counts everything.
func (s *SQLiteStore) CountWhere(ctx context.Context, cond Condition) (int, error) {
	query := "SELECT COUNT(*) FROM mail"
	if cond.SQL != "" {
		query += " WHERE " + cond.SQL
	}

	var n int
	if err := s.db.GetContext(ctx, &n, query, cond.Args...); err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return n, nil
}

// DateExtent returns the oldest and newest ReceivedAt in the store. When the
// store is empty both values are the current time.
func (s *SQLiteStore) DateExtent(ctx context.Context) (time.Time, time.Time, error) {
	var extent struct {
		Min sql.NullString `db:"min_dt"`
		Max sql.NullString `db:"max_dt"`
	}
	err := s.db.GetContext(ctx, &extent,
		"SELECT MIN(datetime) AS min_dt, MAX(datetime) AS max_dt FROM mail",
	)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("reading date extent: %w", err)
	}

	if !extent.Min.Valid || !extent.Max.Valid {
		now := s.now().UTC()
		return now, now, nil
	}

	oldest, err := parseStoredTime(extent.Min.String)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("reading date extent: %w", err)
	}
	newest, err := parseStoredTime(extent.Max.String)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("reading date extent: %w", err)
	}
	return oldest, newest, nil
}

// DistinctFolders returns the folder labels present in the store, sorted.
// Legacy rows without a folder are not reported.
func (s *SQLiteStore) DistinctFolders(ctx context.Context) ([]string, error) {
	var folders []string
	err := s.db.SelectContext(ctx, &folders, `
		SELECT DISTINCT folder FROM mail
		WHERE folder IS NOT NULL AND folder != ''
		ORDER BY folder`)
	if err != nil {
		return nil, fmt.Errorf("querying folders: %w", err)
	}
	return folders, nil
}

// isUniqueViolation reports whether err is a SQLite constraint failure.
// The primary result code is compared so extended codes match too.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

// nullIfEmpty maps "" to NULL for optional columns.
func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
