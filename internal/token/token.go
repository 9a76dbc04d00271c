package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"actcal/internal/errs"
	appLog "actcal/internal/log"
	"actcal/internal/model"
)

// Gate supplies the current calendar credential. It never refreshes; an
// expired token is returned as-is and the caller decides what to do.
type Gate interface {
	Token(ctx context.Context) (model.CalendarToken, error)
}

// Static is a Gate for backends that need no credential (e.g. a local ICS
// file). It returns an empty token that never expires.
type Static struct {
	model.CalendarToken
}

func (s Static) Token(context.Context) (model.CalendarToken, error) {
	return s.CalendarToken, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS calendar_tokens (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	scope         TEXT NOT NULL DEFAULT '',
	token_type    TEXT NOT NULL DEFAULT 'Bearer',
	expiry_date   TEXT NOT NULL,
	created_at    TEXT NOT NULL
);`

// createdLayout is fixed width so created_at sorts lexically.
const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store keeps calendar tokens in a SQLite database. The most recently
// saved row is the current token.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the token database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("token db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open token database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init token schema: %w", err)
	}
	_ = os.Chmod(path, 0o600)

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Token implements Gate.
func (s *Store) Token(ctx context.Context) (model.CalendarToken, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, expiry_date
		FROM calendar_tokens
		ORDER BY created_at DESC, id DESC
		LIMIT 1`)

	var tok model.CalendarToken
	var expiry string
	if err := row.Scan(&tok.AccessToken, &tok.RefreshToken, &expiry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CalendarToken{}, errs.CredentialMissing(errors.New("no token found"))
		}
		return model.CalendarToken{}, errs.Unavailable(errs.SourceTokens, 0, err)
	}

	t, err := time.Parse(time.RFC3339, expiry)
	if err != nil {
		return model.CalendarToken{}, errs.Malformed(errs.SourceTokens, fmt.Errorf("expiry %q: %w", expiry, err))
	}
	tok.Expiry = t
	return tok, nil
}

// Save inserts tok as the new current token.
func (s *Store) Save(ctx context.Context, tok model.CalendarToken) error {
	if tok.AccessToken == "" {
		return errors.New("access token is empty")
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calendar_tokens (access_token, refresh_token, expiry_date, created_at)
		VALUES (?, ?, ?, ?)`,
		tok.AccessToken, tok.RefreshToken, tok.Expiry.UTC().Format(time.RFC3339), now.Format(createdLayout))
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	appLog.Info("calendar token saved", "expiry", tok.Expiry.UTC().Format(time.RFC3339))
	return nil
}
