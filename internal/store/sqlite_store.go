package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"bridge/internal/model"
)

type SQLiteStore struct {
	db         *sql.DB
	quotaBytes int64
}

func NewSQLiteStore(filePath string, quotaBytes int64) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return nil, err
	}
	st := &SQLiteStore{db: db, quotaBytes: quotaBytes}
	if err := st.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadUserState(userID string) (model.UserState, error) {
	row := s.db.QueryRow(`
		SELECT payload
		FROM user_states
		WHERE user_id = ?`,
		userID,
	)
	var payload string
	err := row.Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return decodeState(nil)
	}
	if err != nil {
		return model.UserState{}, err
	}
	return decodeState([]byte(payload))
}

func (s *SQLiteStore) SaveUserState(userID string, state model.UserState) error {
	payload, err := encodeState(state, s.quotaBytes)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO user_states (user_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		userID,
		string(payload),
		toTS(time.Now()),
	)
	return err
}

func (s *SQLiteStore) SaveAccount(account model.Account) error {
	result, err := s.db.Exec(`
		INSERT OR IGNORE INTO accounts
		(email, id, password_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		accountKey(account.Email),
		account.ID,
		account.PasswordHash,
		toTS(account.CreatedAt),
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrAccountExists, account.Email)
	}
	return nil
}

func (s *SQLiteStore) GetAccount(email string) (model.Account, bool, error) {
	row := s.db.QueryRow(`
		SELECT email, id, password_hash, created_at
		FROM accounts
		WHERE email = ?`,
		accountKey(email),
	)
	var account model.Account
	var createdAt string
	err := row.Scan(
		&account.Email,
		&account.ID,
		&account.PasswordHash,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, false, nil
	}
	if err != nil {
		return model.Account{}, false, err
	}
	account.CreatedAt = fromTS(createdAt)
	return account, true, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		PRAGMA journal_mode=WAL;
		CREATE TABLE IF NOT EXISTS user_states (
			user_id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS accounts (
			email TEXT PRIMARY KEY,
			id TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
	`)
	return err
}

func toTS(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func fromTS(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
