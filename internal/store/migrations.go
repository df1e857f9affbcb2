package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// migration holds a single schema migration with its target version and SQL.
// When skip is set and returns true the SQL is not executed but the version
// is still recorded.
type migration struct {
	version int
	sql     string
	skip    func(tx *sqlx.Tx) (bool, error)
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
// The schema is additive only: files written by older releases must keep
// opening.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS mail (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	datetime TEXT NOT NULL,
	"to"     TEXT NOT NULL DEFAULT '',
	sender   TEXT NOT NULL DEFAULT '',
	cc       TEXT,
	subject  TEXT,
	body     TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_mail_datetime ON mail(datetime);
`,
	},
	{
		version: 2,
		sql: `
ALTER TABLE mail ADD COLUMN folder TEXT;
`,
		skip: func(tx *sqlx.Tx) (bool, error) {
			return columnExists(tx, "mail", "folder")
		},
	},
	{
		version: 3,
		sql: `
CREATE INDEX IF NOT EXISTS idx_mail_folder ON mail(folder);
`,
	},
	{
		// Older tools wrote offsets, fractional seconds or a T separator.
		// Equality lookups and range filters compare the text, so every row
		// is rewritten to the canonical UTC form. A row whose canonical form
		// is already taken keeps its original text.
		version: 4,
		sql: `
UPDATE OR IGNORE mail
SET datetime = strftime('%Y-%m-%d %H:%M:%S', datetime)
WHERE strftime('%Y-%m-%d %H:%M:%S', datetime) IS NOT NULL
	AND datetime != strftime('%Y-%m-%d %H:%M:%S', datetime);
`,
	},
}

// columnExists reports whether table has a column with the given name.
func columnExists(tx *sqlx.Tx, table, column string) (bool, error) {
	var n int
	err := tx.Get(&n,
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?",
		table, column,
	)
	if err != nil {
		return false, fmt.Errorf("inspecting %s.%s: %w", table, column, err)
	}
	return n > 0, nil
}
