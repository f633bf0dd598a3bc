// Package sqlite persists finished session records. The store is never
// touched from the frame path; saves happen once per session at End.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/formcoach-app/engine/internal/exercise"
	"github.com/formcoach-app/engine/internal/session"
)

// ErrNotFound is returned when a session id has no row.
var ErrNotFound = errors.New("sqlite: session not found")

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. Callers normally follow
// with Migrate before first use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession inserts a finished record. Saving the same session id
// again replaces the stored row.
func (s *Store) SaveSession(record *session.Record) error {
	topIssues, err := json.Marshal(record.TopIssues)
	if err != nil {
		return fmt.Errorf("failed to encode top issues: %w", err)
	}
	issueCounts, err := json.Marshal(record.IssueCounts)
	if err != nil {
		return fmt.Errorf("failed to encode issue counts: %w", err)
	}
	sets, err := json.Marshal(record.Sets)
	if err != nil {
		return fmt.Errorf("failed to encode sets: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO sessions (
			session_id, user_id, exercise_type, start_time, end_time,
			total_frames, total_reps, total_sets, average_score,
			top_issues, issue_counts, sets
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.SessionID,
		record.UserID,
		string(record.ExerciseType),
		record.StartTime.UTC().Format(time.RFC3339Nano),
		record.EndTime.UTC().Format(time.RFC3339Nano),
		record.TotalFrames,
		record.TotalReps,
		record.TotalSets,
		record.AverageScore,
		string(topIssues),
		string(issueCounts),
		string(sets),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

const selectColumns = `
	session_id, user_id, exercise_type, start_time, end_time,
	total_frames, total_reps, total_sets, average_score,
	top_issues, issue_counts, sets
`

// GetSession returns one record by id.
func (s *Store) GetSession(sessionID string) (*session.Record, error) {
	row := s.db.QueryRow(
		`SELECT `+selectColumns+` FROM sessions WHERE session_id = ?`, sessionID)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListSessions returns up to limit records for one exercise in
// chronological order. An empty exercise type matches all exercises;
// limit <= 0 means no limit.
func (s *Store) ListSessions(exerciseType exercise.Type, limit int) ([]session.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM sessions`
	args := []interface{}{}
	if exerciseType != "" {
		query += ` WHERE exercise_type = ?`
		args = append(args, string(exerciseType))
	}
	query += ` ORDER BY start_time ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var records []session.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteSession removes one record by id.
func (s *Store) DeleteSession(sessionID string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*session.Record, error) {
	var (
		record      session.Record
		exType      string
		startTime   string
		endTime     string
		topIssues   string
		issueCounts string
		sets        string
	)
	err := row.Scan(
		&record.SessionID,
		&record.UserID,
		&exType,
		&startTime,
		&endTime,
		&record.TotalFrames,
		&record.TotalReps,
		&record.TotalSets,
		&record.AverageScore,
		&topIssues,
		&issueCounts,
		&sets,
	)
	if err != nil {
		return nil, err
	}

	record.ExerciseType = exercise.Type(exType)
	if record.StartTime, err = time.Parse(time.RFC3339Nano, startTime); err != nil {
		return nil, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if record.EndTime, err = time.Parse(time.RFC3339Nano, endTime); err != nil {
		return nil, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if err := json.Unmarshal([]byte(topIssues), &record.TopIssues); err != nil {
		return nil, fmt.Errorf("failed to decode top issues: %w", err)
	}
	if err := json.Unmarshal([]byte(issueCounts), &record.IssueCounts); err != nil {
		return nil, fmt.Errorf("failed to decode issue counts: %w", err)
	}
	if err := json.Unmarshal([]byte(sets), &record.Sets); err != nil {
		return nil, fmt.Errorf("failed to decode sets: %w", err)
	}
	return &record, nil
}
