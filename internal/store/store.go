// Package store persists exam sessions and their answers in SQLite or
// PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/examtrainer/internal/model"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session not found")
	// ErrNotInProgress is returned when saving an answer to a closed session.
	ErrNotInProgress = errors.New("session not in progress")
	// ErrBlockFull is returned when a block already holds its limit of answers.
	ErrBlockFull = errors.New("block answer limit reached")
)

// Driver selects the database backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Store is a database-backed session store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open connects to the database and ensures the schema exists.
// An empty dsn selects a default for the driver.
func Open(ctx context.Context, driver Driver, dsn string) (*Store, error) {
	var drvName, schema string
	switch driver {
	case DriverSQLite, "":
		drvName, schema = "sqlite", schemaSQLite
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
		drvName, schema = "pgx", schemaPostgres
		if dsn == "" {
			dsn = "postgres://localhost:5432/examtrainer?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		// Every new connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	slog.Debug("database ready", "driver", drvName)
	return &Store{db: db, now: time.Now}, nil
}

func sqliteDSN(dsn string) string {
	switch {
	case dsn == "":
		return "file:examtrainer.db?mode=rwc&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	case dsn == ":memory:", strings.Contains(dsn, "?"):
		return dsn
	default:
		return dsn + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS exam_sessions (
	id TEXT PRIMARY KEY,
	subject TEXT NOT NULL,
	exam_json TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'in_progress',
	started_at INTEGER NOT NULL,
	deadline INTEGER NOT NULL,
	submitted_at INTEGER,
	grade INTEGER
);

CREATE TABLE IF NOT EXISTS answers (
	session_id TEXT NOT NULL REFERENCES exam_sessions(id) ON DELETE CASCADE,
	question_id TEXT NOT NULL,
	block TEXT NOT NULL,
	notes TEXT NOT NULL,
	coverage INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (session_id, question_id)
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS exam_sessions (
	id TEXT PRIMARY KEY,
	subject TEXT NOT NULL,
	exam_json TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'in_progress',
	started_at BIGINT NOT NULL,
	deadline BIGINT NOT NULL,
	submitted_at BIGINT,
	grade INTEGER
);

CREATE TABLE IF NOT EXISTS answers (
	session_id TEXT NOT NULL REFERENCES exam_sessions(id) ON DELETE CASCADE,
	question_id TEXT NOT NULL,
	block TEXT NOT NULL,
	notes TEXT NOT NULL,
	coverage INTEGER NOT NULL DEFAULT 0,
	updated_at BIGINT NOT NULL,
	PRIMARY KEY (session_id, question_id)
);
`

// CreateSession stores a new in-progress session for an assembled exam.
// A non-positive duration means the session has no deadline.
func (s *Store) CreateSession(ctx context.Context, subject string, ex model.Exam, duration time.Duration) (model.ExamSession, error) {
	examJSON, err := json.Marshal(ex)
	if err != nil {
		return model.ExamSession{}, fmt.Errorf("marshal exam: %w", err)
	}
	started := s.now().UTC().Truncate(time.Millisecond)
	sess := model.ExamSession{
		ID:        uuid.NewString(),
		Subject:   subject,
		Exam:      ex,
		Status:    model.StatusInProgress,
		StartedAt: started,
	}
	var deadline int64
	if duration > 0 {
		sess.Deadline = started.Add(duration).Truncate(time.Millisecond)
		deadline = sess.Deadline.UnixMilli()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exam_sessions (id, subject, exam_json, status, started_at, deadline)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sess.ID, sess.Subject, string(examJSON), sess.Status, sess.StartedAt.UnixMilli(), deadline,
	)
	if err != nil {
		return model.ExamSession{}, err
	}
	slog.Info("created exam session", "id", sess.ID, "subject", subject)
	return sess, nil
}

const sessionColumns = `id, subject, exam_json, status, started_at, deadline, submitted_at, grade`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (model.ExamSession, error) {
	var (
		sess              model.ExamSession
		examJSON          string
		started, deadline int64
		submitted, grade  sql.NullInt64
	)
	if err := row.Scan(&sess.ID, &sess.Subject, &examJSON, &sess.Status, &started, &deadline, &submitted, &grade); err != nil {
		return model.ExamSession{}, err
	}
	if err := json.Unmarshal([]byte(examJSON), &sess.Exam); err != nil {
		return model.ExamSession{}, fmt.Errorf("decode exam of session %s: %w", sess.ID, err)
	}
	sess.StartedAt = time.UnixMilli(started).UTC()
	if deadline != 0 {
		sess.Deadline = time.UnixMilli(deadline).UTC()
	}
	if submitted.Valid {
		t := time.UnixMilli(submitted.Int64).UTC()
		sess.SubmittedAt = &t
	}
	if grade.Valid {
		g := int(grade.Int64)
		sess.Grade = &g
	}
	return sess, nil
}

// GetSession returns a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (model.ExamSession, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ExamSession{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, err
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]model.ExamSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.ExamSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SubmitSession closes an in-progress session with its final grade.
// It returns false if the session was not in progress.
func (s *Store) SubmitSession(ctx context.Context, id string, grade int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE exam_sessions SET status = $1, submitted_at = $2, grade = $3
		 WHERE id = $4 AND status = $5`,
		model.StatusSubmitted, s.now().UTC().UnixMilli(), grade, id, model.StatusInProgress,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SaveAnswer inserts or replaces the answer to one question of a session.
func (s *Store) SaveAnswer(ctx context.Context, a model.Answer) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO answers (session_id, question_id, block, notes, coverage, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (session_id, question_id) DO UPDATE
		 SET notes = EXCLUDED.notes, coverage = EXCLUDED.coverage, updated_at = EXCLUDED.updated_at`,
		a.SessionID, a.QuestionID, a.Block, a.Notes, a.Coverage, s.now().UTC().UnixMilli(),
	)
	return err
}

// SaveAnswerWithinLimit saves an answer like SaveAnswer, but only while the
// session is in progress and, for non-empty notes, while the answer's block
// holds fewer than limit other non-empty answers. The check and the write run
// in one transaction that first locks the session row.
func (s *Store) SaveAnswerWithinLimit(ctx context.Context, a model.Answer, limit int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// A no-op write takes the write lock in SQLite and the row lock in
	// PostgreSQL, so concurrent saves to one session run one at a time.
	res, err := tx.ExecContext(ctx,
		`UPDATE exam_sessions SET status = status WHERE id = $1 AND status = $2`,
		a.SessionID, model.StatusInProgress)
	if err != nil {
		return fmt.Errorf("lock session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM exam_sessions WHERE id = $1`, a.SessionID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrNotFound, a.SessionID)
		}
		if err != nil {
			return err
		}
		return ErrNotInProgress
	}

	if a.Notes != "" {
		var count int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM answers
			 WHERE session_id = $1 AND block = $2 AND question_id <> $3 AND notes <> ''`,
			a.SessionID, a.Block, a.QuestionID).Scan(&count)
		if err != nil {
			return fmt.Errorf("count answers: %w", err)
		}
		if count >= limit {
			return ErrBlockFull
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO answers (session_id, question_id, block, notes, coverage, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (session_id, question_id) DO UPDATE
		 SET notes = EXCLUDED.notes, coverage = EXCLUDED.coverage, updated_at = EXCLUDED.updated_at`,
		a.SessionID, a.QuestionID, a.Block, a.Notes, a.Coverage, s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	return tx.Commit()
}

// GetAnswers returns all saved answers of a session ordered by block.
func (s *Store) GetAnswers(ctx context.Context, sessionID string) ([]model.Answer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, question_id, block, notes, coverage, updated_at
		 FROM answers WHERE session_id = $1 ORDER BY block, question_id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var answers []model.Answer
	for rows.Next() {
		var (
			a       model.Answer
			updated int64
		)
		if err := rows.Scan(&a.SessionID, &a.QuestionID, &a.Block, &a.Notes, &a.Coverage, &updated); err != nil {
			return nil, err
		}
		a.UpdatedAt = time.UnixMilli(updated).UTC()
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// GetSessionView returns a session together with its answers.
func (s *Store) GetSessionView(ctx context.Context, id string) (*model.SessionView, error) {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	answers, err := s.GetAnswers(ctx, id)
	if err != nil {
		return nil, err
	}
	if answers == nil {
		answers = []model.Answer{}
	}
	return &model.SessionView{Session: sess, Answers: answers}, nil
}
