package session

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// DefaultDSN keeps the database in memory, so sessions die with the process.
const DefaultDSN = "file:sessions?mode=memory&cache=shared"

// SQLite is a Store backed by a sqlite3 database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens dsn, DefaultDSN when empty, and creates the sessions table.
func NewSQLite(dsn string) (*SQLite, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// A shared in-memory database is dropped with its last connection,
	// so keep exactly one open for the life of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema to %s: %w", dsn, err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Put(sess Session) error {
	options := sess.Options
	if options == nil {
		options = []string{}
	}
	raw, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}

	_, err = s.db.Exec(`INSERT OR REPLACE INTO sessions (poll_id, kind, options, chat_id, message_id, answers)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.PollID, string(sess.Kind), string(raw), sess.ChatID, sess.MessageID, sess.Answers)
	if err != nil {
		return fmt.Errorf("put poll %s: %w", sess.PollID, err)
	}
	return nil
}

func (s *SQLite) Get(pollID string) (Session, error) {
	return get(s.db.QueryRow, pollID)
}

func (s *SQLite) RecordAnswer(pollID string) (Session, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return Session{}, err
	}
	defer tx.Rollback()

	res, err := tx.Exec("UPDATE sessions SET answers = answers + 1 WHERE poll_id = ?", pollID)
	if err != nil {
		return Session{}, fmt.Errorf("record answer for poll %s: %w", pollID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return Session{}, err
	} else if n == 0 {
		return Session{}, fmt.Errorf("poll %s: %w", pollID, ErrNotFound)
	}

	sess, err := get(tx.QueryRow, pollID)
	if err != nil {
		return Session{}, err
	}
	return sess, tx.Commit()
}

func (s *SQLite) Len() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func get(queryRow func(query string, args ...any) *sql.Row, pollID string) (Session, error) {
	var (
		sess Session
		kind string
		raw  string
	)
	err := queryRow(`SELECT poll_id, kind, options, chat_id, message_id, answers
		FROM sessions WHERE poll_id = ?`, pollID).
		Scan(&sess.PollID, &kind, &raw, &sess.ChatID, &sess.MessageID, &sess.Answers)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("poll %s: %w", pollID, ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get poll %s: %w", pollID, err)
	}

	sess.Kind = Kind(kind)
	if err := json.Unmarshal([]byte(raw), &sess.Options); err != nil {
		return Session{}, fmt.Errorf("decode options for poll %s: %w", pollID, err)
	}
	if len(sess.Options) == 0 {
		sess.Options = nil
	}
	return sess, nil
}
