// Package journal appends committed ledger events to a SQLite database.
// A Journal is a vesting.EventSink.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"

	"github.com/p2eengineering/chim-vesting-contract/vesting"
)

// Entry is one journaled event.
type Entry struct {
	ID         string
	Name       string
	Payload    []byte
	RecordedAt time.Time
}

type Journal struct {
	mu        sync.Mutex
	db        *sql.DB
	statement *sql.Stmt
	now       func() time.Time
}

var _ vesting.EventSink = (*Journal)(nil)

// Open opens or creates the journal at path. ":memory:" keeps it in
// memory for the lifetime of the Journal.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	// a second connection to ":memory:" would see a different database
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, now: time.Now}
	if err := j.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	if err := j.prepareStatement(); err != nil {
		db.Close()
		return nil, err
	}

	return j, nil
}

func (j *Journal) createTable() error {
	_, err := j.db.Exec(`
		create table if not exists events
		(
			seq         integer primary key autoincrement,
			event_id    varchar(20)  not null unique,
			name        varchar(100) not null,
			payload     text         not null,
			recorded_at integer      not null
		);
	`)
	if err != nil {
		return fmt.Errorf("create events table: %w", err)
	}

	_, err = j.db.Exec(`create index if not exists events_name_index on events (name);`)
	if err != nil {
		return fmt.Errorf("create events index: %w", err)
	}

	return nil
}

func (j *Journal) prepareStatement() error {
	statement, err := j.db.Prepare(`
		insert into events (event_id, name, payload, recorded_at)
		values (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	j.statement = statement
	return nil
}

// SetEvent appends an event.
func (j *Journal) SetEvent(name string, payload []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.statement.Exec(xid.New().String(), name, string(payload), j.now().UnixNano())
	if err != nil {
		return fmt.Errorf("insert event %s: %w", name, err)
	}
	return nil
}

// Entries returns every journaled event in append order. A non-empty name
// filters by event name.
func (j *Journal) Entries(name string) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	query := `select event_id, name, payload, recorded_at from events`
	args := []any{}
	if name != "" {
		query += ` where name = ?`
		args = append(args, name)
	}
	query += ` order by seq`

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry      Entry
			payload    string
			recordedAt int64
		)
		if err := rows.Scan(&entry.ID, &entry.Name, &payload, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		entry.Payload = []byte(payload)
		entry.RecordedAt = time.Unix(0, recordedAt)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.statement.Close(); err != nil {
		return err
	}
	return j.db.Close()
}
