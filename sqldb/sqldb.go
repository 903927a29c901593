// Package sqldb archives finished games in a SQLite database.
package sqldb

import (
	"database/sql"
	"fmt"
	"time"

	katmannames "github.com/katmannames/katmannames"

	_ "github.com/mattn/go-sqlite3"
)

// DB stores game results in SQLite. Since the database doesn't support
// concurrent writers, we don't hold the *sql.DB in this struct; all callers
// get a handle via channels, which serializes access.
type DB struct {
	dbChan   chan func(*sql.DB)
	doneChan chan struct{}
}

const schema = `
CREATE TABLE IF NOT EXISTS game_results (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	room_code   TEXT NOT NULL,
	winner      TEXT NOT NULL,
	reason      TEXT NOT NULL,
	reveals     INTEGER NOT NULL,
	chaos_mode  INTEGER NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	ended_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_game_results_ended_at ON game_results (ended_at);
`

// New opens (and if needed initializes) the results database at the given
// filename.
func New(fn string) (*DB, error) {
	sdb, err := sql.Open("sqlite3", fn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := sdb.Exec(schema); err != nil {
		sdb.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	db := &DB{
		dbChan:   make(chan func(*sql.DB)),
		doneChan: make(chan struct{}),
	}
	go db.run(sdb)
	return db, nil
}

// run handles all database calls, and ensures that only one thing is
// happening against the database at a time.
func (s *DB) run(sdb *sql.DB) {
	for {
		select {
		case dbFn := <-s.dbChan:
			dbFn(sdb)
		case <-s.doneChan:
			sdb.Close()
			return
		}
	}
}

// Close shuts the database down. Calls after Close will hang, so don't.
func (s *DB) Close() error {
	close(s.doneChan)
	return nil
}

// RecordResult archives one finished game.
func (s *DB) RecordResult(r *katmannames.GameResult) error {
	errChan := make(chan error)
	s.dbChan <- func(sdb *sql.DB) {
		_, err := sdb.Exec(`
			INSERT INTO game_results
				(room_code, winner, reason, reveals, chaos_mode, started_at, ended_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(r.RoomCode), string(r.Winner), string(r.Reason),
			r.Reveals, r.ChaosMode, r.StartedAt.UTC(), r.EndedAt.UTC())
		if err != nil {
			errChan <- fmt.Errorf("failed to insert result: %w", err)
			return
		}
		errChan <- nil
	}
	return <-errChan
}

// Recent returns up to limit results, most recently ended first.
func (s *DB) Recent(limit int) ([]*katmannames.GameResult, error) {
	type answer struct {
		results []*katmannames.GameResult
		err     error
	}
	ansChan := make(chan answer)
	s.dbChan <- func(sdb *sql.DB) {
		rows, err := sdb.Query(`
			SELECT room_code, winner, reason, reveals, chaos_mode, started_at, ended_at
			FROM game_results
			ORDER BY ended_at DESC, id DESC
			LIMIT ?`, limit)
		if err != nil {
			ansChan <- answer{err: fmt.Errorf("failed to query results: %w", err)}
			return
		}
		defer rows.Close()

		var results []*katmannames.GameResult
		for rows.Next() {
			var (
				r                    katmannames.GameResult
				code, winner, reason string
				startedAt, endedAt   time.Time
			)
			if err := rows.Scan(&code, &winner, &reason, &r.Reveals, &r.ChaosMode, &startedAt, &endedAt); err != nil {
				ansChan <- answer{err: fmt.Errorf("failed to scan result: %w", err)}
				return
			}
			r.RoomCode = katmannames.RoomCode(code)
			r.Winner = katmannames.Team(winner)
			r.Reason = katmannames.EndReason(reason)
			r.StartedAt = startedAt
			r.EndedAt = endedAt
			results = append(results, &r)
		}
		ansChan <- answer{results: results, err: rows.Err()}
	}
	ans := <-ansChan
	return ans.results, ans.err
}
