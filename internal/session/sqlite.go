package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/classifier"
	honeypototel "github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/otel"
)

var tracer = honeypototel.Tracer("github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/session")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	state          TEXT NOT NULL,
	confidence     REAL NOT NULL DEFAULT 0,
	observations   INTEGER NOT NULL DEFAULT 0,
	scam_confirmed INTEGER NOT NULL DEFAULT 0,
	callback_sent  INTEGER NOT NULL DEFAULT 0,
	category       TEXT NOT NULL DEFAULT '',
	channel        TEXT NOT NULL DEFAULT '',
	language       TEXT NOT NULL DEFAULT '',
	locale         TEXT NOT NULL DEFAULT '',
	created_at     INTEGER NOT NULL,
	last_activity  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	sender     TEXT NOT NULL,
	text       TEXT NOT NULL,
	timestamp  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq);

CREATE TABLE IF NOT EXISTS intelligence (
	session_id TEXT NOT NULL REFERENCES sessions(id),
	category   TEXT NOT NULL,
	value      TEXT NOT NULL,
	PRIMARY KEY (session_id, category, value)
);

CREATE TABLE IF NOT EXISTS replays (
	key        TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	reply      TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_replays_created ON replays(created_at);
`

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating session schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get loads a session with its messages and intelligence.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "session.get", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	var (
		sess              Session
		state             string
		created, lastSeen int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, state, confidence, observations, scam_confirmed, callback_sent, category,
		       channel, language, locale, created_at, last_activity
		FROM sessions WHERE id = ?`, id).Scan(
		&sess.ID, &state, &sess.Confidence, &sess.Observations, &sess.ScamConfirmed, &sess.CallbackSent,
		&sess.Category, &sess.Metadata.Channel, &sess.Metadata.Language, &sess.Metadata.Locale,
		&created, &lastSeen,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	sess.State = State(state)
	sess.CreatedAt = time.UnixMilli(created).UTC()
	sess.LastActivity = time.UnixMilli(lastSeen).UTC()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sender, text, timestamp FROM messages WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m Message
		var sender string
		if err := rows.Scan(&m.ID, &sender, &m.Text, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Sender = Sender(sender)
		sess.Messages = append(sess.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	irows, err := s.db.QueryContext(ctx,
		`SELECT category, value FROM intelligence WHERE session_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("querying intelligence: %w", err)
	}
	defer irows.Close()
	for irows.Next() {
		var cat, value string
		if err := irows.Scan(&cat, &value); err != nil {
			return nil, fmt.Errorf("scanning intelligence: %w", err)
		}
		sess.Intelligence.Add(classifier.Category(cat), value)
	}
	if err := irows.Err(); err != nil {
		return nil, fmt.Errorf("iterating intelligence: %w", err)
	}

	span.SetAttributes(
		attribute.String("session.state", string(sess.State)),
		attribute.Int("session.messages", len(sess.Messages)),
	)
	return &sess, nil
}

// AppendMessage appends msg, creating the session row if it does not exist.
func (s *SQLiteStore) AppendMessage(ctx context.Context, id string, msg Message) error {
	ctx, span := tracer.Start(ctx, "session.append_message", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := s.now().UnixMilli()
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO sessions (id, state, created_at, last_activity) VALUES (?, ?, ?, ?)`,
			id, string(StateNew), now, now); err != nil {
			return fmt.Errorf("ensuring session: %w", err)
		}
		if err := insertMessages(ctx, tx, id, []Message{msg}); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE sessions SET last_activity = ? WHERE id = ?`, now, id)
		return err
	})
}

// UpsertIntelligence unions in into the stored set for the session.
func (s *SQLiteStore) UpsertIntelligence(ctx context.Context, id string, in classifier.Intelligence) error {
	ctx, span := tracer.Start(ctx, "session.upsert_intelligence", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertIntelligence(ctx, tx, id, in)
	})
}

// MarkReported flips callback_sent with compare-and-set semantics. A session
// with no actionable intelligence is never marked.
func (s *SQLiteStore) MarkReported(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "session.mark_reported", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	var flipped bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		flipped, err = markReported(ctx, tx, id)
		return err
	})
	return flipped, err
}

// Commit writes the whole cycle in one immediate transaction.
func (s *SQLiteStore) Commit(ctx context.Context, c Cycle) (CommitResult, error) {
	if c.Session == nil {
		return CommitResult{}, errors.New("commit: nil session")
	}
	sess := c.Session
	ctx, span := tracer.Start(ctx, "session.commit", trace.WithAttributes(
		attribute.String("session.id", sess.ID),
		attribute.Int("commit.messages", len(c.Messages)),
		attribute.Bool("commit.report", c.Report),
	))
	defer span.End()

	var res CommitResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (id, state, confidence, observations, scam_confirmed, callback_sent, category,
			                      channel, language, locale, created_at, last_activity)
			VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				state = CASE WHEN sessions.callback_sent = 1 THEN sessions.state ELSE excluded.state END,
				confidence = excluded.confidence,
				observations = excluded.observations,
				scam_confirmed = MAX(sessions.scam_confirmed, excluded.scam_confirmed),
				category = excluded.category,
				last_activity = excluded.last_activity`,
			sess.ID, string(sess.State), sess.Confidence, sess.Observations, sess.ScamConfirmed, sess.Category,
			sess.Metadata.Channel, sess.Metadata.Language, sess.Metadata.Locale,
			sess.CreatedAt.UnixMilli(), sess.LastActivity.UnixMilli())
		if err != nil {
			return fmt.Errorf("upserting session: %w", err)
		}
		if err := insertMessages(ctx, tx, sess.ID, c.Messages); err != nil {
			return err
		}
		if err := insertIntelligence(ctx, tx, sess.ID, c.Intelligence); err != nil {
			return err
		}
		if c.Report {
			if res.Reported, err = markReported(ctx, tx, sess.ID); err != nil {
				return err
			}
		}
		if r := c.Replay; r != nil {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO replays (key, session_id, reply, created_at) VALUES (?, ?, ?, ?)`,
				r.Key, sess.ID, r.Reply, r.CreatedAt.UnixMilli()); err != nil {
				return fmt.Errorf("recording replay: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return CommitResult{}, err
	}
	span.SetAttributes(attribute.Bool("commit.reported", res.Reported))
	return res, nil
}

// Replay returns the reply recorded for key.
func (s *SQLiteStore) Replay(ctx context.Context, key string) (string, bool, error) {
	var reply string
	err := s.db.QueryRowContext(ctx, `SELECT reply FROM replays WHERE key = ?`, key).Scan(&reply)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying replay: %w", err)
	}
	return reply, true, nil
}

// PurgeReplays deletes replay entries older than before.
func (s *SQLiteStore) PurgeReplays(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM replays WHERE created_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purging replays: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func insertMessages(ctx context.Context, tx *sql.Tx, sessionID string, msgs []Message) error {
	for _, m := range msgs {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (id, session_id, sender, text, timestamp) VALUES (?, ?, ?, ?, ?)`,
			m.ID, sessionID, string(m.Sender), m.Text, m.Timestamp); err != nil {
			return fmt.Errorf("inserting message: %w", err)
		}
	}
	return nil
}

var storedCategories = []classifier.Category{
	classifier.CategoryBankAccount,
	classifier.CategoryUPI,
	classifier.CategoryPhishingLink,
	classifier.CategoryPhoneNumber,
	classifier.CategoryKeyword,
}

func insertIntelligence(ctx context.Context, tx *sql.Tx, sessionID string, in classifier.Intelligence) error {
	for _, cat := range storedCategories {
		for _, v := range in.Items(cat) {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO intelligence (session_id, category, value) VALUES (?, ?, ?)`,
				sessionID, string(cat), v); err != nil {
				return fmt.Errorf("inserting intelligence: %w", err)
			}
		}
	}
	return nil
}

func markReported(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE sessions SET callback_sent = 1, state = ?
		WHERE id = ? AND callback_sent = 0
		  AND EXISTS (SELECT 1 FROM intelligence WHERE session_id = ? AND category != ?)`,
		string(StateReported), id, id, string(classifier.CategoryKeyword))
	if err != nil {
		return false, fmt.Errorf("marking session reported: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("marking session reported: %w", err)
	}
	return n == 1, nil
}
