package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/snow-ghost/codeassist/core"
)

// SQL driver names.
const (
	DriverSQLite  = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3, cgo
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	provider TEXT NOT NULL DEFAULT '',
	confidence REAL NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS agent_thoughts (
	message_id INTEGER PRIMARY KEY REFERENCES chat_messages(id) ON DELETE CASCADE,
	reasoning TEXT NOT NULL,
	tool_invoked TEXT NOT NULL DEFAULT '',
	observation TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS tool_usages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id INTEGER NOT NULL REFERENCES chat_messages(id) ON DELETE CASCADE,
	tool_name TEXT NOT NULL,
	input_params TEXT NOT NULL,
	output_result TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS memory_store (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	category TEXT NOT NULL,
	content TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS agent_feedback (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id INTEGER NOT NULL REFERENCES chat_messages(id) ON DELETE CASCADE,
	agent_name TEXT NOT NULL,
	rating INTEGER NOT NULL,
	comment TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON chat_messages(session_id, id);
CREATE INDEX IF NOT EXISTS idx_memory_session ON memory_store(session_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_feedback_message ON agent_feedback(message_id);
`

// SQLiteStore implements Store on SQLite. Timestamps are stored as Unix
// microseconds so both drivers read them back the same way.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens dsn with driver and creates the schema
func NewSQLiteStore(driver, dsn string) (*SQLiteStore, error) {
	if driver != DriverSQLite && driver != DriverSQLite3 {
		return nil, fmt.Errorf("unsupported sqlite driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dsn == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func toUnix(t time.Time) int64 { return t.UnixMicro() }

func fromUnix(v int64) time.Time { return time.UnixMicro(v).UTC() }

func (s *SQLiteStore) CreateSession(ctx context.Context, id string) (ChatSession, error) {
	if id == "" {
		return ChatSession{}, core.ErrMissingSession
	}

	now := s.now()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, created_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		id, toUnix(now)); err != nil {
		return ChatSession{}, fmt.Errorf("failed to create session: %w", err)
	}
	return s.GetSession(ctx, id)
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (ChatSession, error) {
	var created int64
	err := s.db.QueryRowContext(ctx, `SELECT created_at FROM chat_sessions WHERE id = ?`, id).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return ChatSession{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return ChatSession{}, fmt.Errorf("failed to get session: %w", err)
	}
	return ChatSession{ID: id, CreatedAt: fromUnix(created)}, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context) ([]ChatSession, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at FROM chat_sessions ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []ChatSession
	for rows.Next() {
		var (
			sess    ChatSession
			created int64
		)
		if err := rows.Scan(&sess.ID, &created); err != nil {
			return nil, err
		}
		sess.CreatedAt = fromUnix(created)
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, msg Message) (Message, error) {
	if _, err := s.GetSession(ctx, msg.SessionID); err != nil {
		return Message{}, err
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Message{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO chat_messages (session_id, role, content, provider, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.SessionID, msg.Role, msg.Content, msg.Provider, msg.Confidence, toUnix(msg.CreatedAt))
	if err != nil {
		return Message{}, fmt.Errorf("failed to insert message: %w", err)
	}
	if msg.ID, err = res.LastInsertId(); err != nil {
		return Message{}, err
	}

	if msg.Thought != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO agent_thoughts (message_id, reasoning, tool_invoked, observation)
			VALUES (?, ?, ?, ?)`,
			msg.ID, msg.Thought.Reasoning, msg.Thought.ToolInvoked, msg.Thought.Observation); err != nil {
			return Message{}, fmt.Errorf("failed to insert thought: %w", err)
		}
	}

	for _, u := range msg.ToolUsages {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tool_usages (message_id, tool_name, input_params, output_result)
			VALUES (?, ?, ?, ?)`,
			msg.ID, u.ToolName, u.Input, u.Output); err != nil {
			return Message{}, fmt.Errorf("failed to insert tool usage: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Message{}, fmt.Errorf("failed to commit message: %w", err)
	}
	return msg, nil
}

const messageColumns = `
	m.id, m.session_id, m.role, m.content, m.provider, m.confidence, m.created_at,
	t.reasoning, t.tool_invoked, t.observation`

const messageFrom = `
	FROM chat_messages m
	LEFT JOIN agent_thoughts t ON t.message_id = m.id`

func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (Message, error) {
	msgs, err := s.queryMessages(ctx, `SELECT `+messageColumns+messageFrom+` WHERE m.id = ?`, id)
	if err != nil {
		return Message{}, err
	}
	if len(msgs) == 0 {
		return Message{}, fmt.Errorf("%w: %d", ErrMessageNotFound, id)
	}
	return msgs[0], nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	return s.queryMessages(ctx, `SELECT `+messageColumns+messageFrom+` WHERE m.session_id = ? ORDER BY m.id ASC`, sessionID)
}

func (s *SQLiteStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	msgs, err := s.queryMessages(ctx,
		`SELECT `+messageColumns+messageFrom+` WHERE m.session_id = ? ORDER BY m.id DESC LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var (
			msg                             Message
			created                         int64
			reasoning, toolInvoked, observe sql.NullString
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.Provider, &msg.Confidence,
			&created, &reasoning, &toolInvoked, &observe); err != nil {
			return nil, err
		}
		msg.CreatedAt = fromUnix(created)
		if reasoning.Valid {
			msg.Thought = &Thought{
				Reasoning:   reasoning.String,
				ToolInvoked: toolInvoked.String,
				Observation: observe.String,
			}
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range msgs {
		usages, err := s.toolUsages(ctx, msgs[i].ID)
		if err != nil {
			return nil, err
		}
		msgs[i].ToolUsages = usages
	}
	return msgs, nil
}

func (s *SQLiteStore) toolUsages(ctx context.Context, messageID int64) ([]ToolUsageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tool_name, input_params, output_result FROM tool_usages WHERE message_id = ? ORDER BY id ASC`,
		messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tool usages: %w", err)
	}
	defer rows.Close()

	var out []ToolUsageRecord
	for rows.Next() {
		var u ToolUsageRecord
		if err := rows.Scan(&u.ToolName, &u.Input, &u.Output); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Append(ctx context.Context, sessionID, category, content string) (core.MemoryItem, error) {
	if sessionID == "" {
		return core.MemoryItem{}, core.ErrMissingSession
	}

	item := core.MemoryItem{
		SessionID: sessionID,
		Category:  category,
		Content:   content,
		UpdatedAt: s.now(),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO memory_store (session_id, category, content, updated_at) VALUES (?, ?, ?, ?)`,
		sessionID, category, content, toUnix(item.UpdatedAt))
	if err != nil {
		return core.MemoryItem{}, fmt.Errorf("failed to store memory: %w", err)
	}
	if item.ID, err = res.LastInsertId(); err != nil {
		return core.MemoryItem{}, err
	}
	return item, nil
}

func (s *SQLiteStore) ListRecent(ctx context.Context, sessionID string, limit int) ([]core.MemoryItem, error) {
	if limit < 0 {
		return s.ListMemories(ctx, sessionID)
	}
	return s.queryMemories(ctx, `
		SELECT id, session_id, category, content, updated_at FROM memory_store
		WHERE session_id = ? ORDER BY updated_at DESC, id DESC LIMIT ?`, sessionID, limit)
}

func (s *SQLiteStore) ListMemories(ctx context.Context, sessionID string) ([]core.MemoryItem, error) {
	return s.queryMemories(ctx, `
		SELECT id, session_id, category, content, updated_at FROM memory_store
		WHERE session_id = ? ORDER BY updated_at DESC, id DESC`, sessionID)
}

func (s *SQLiteStore) queryMemories(ctx context.Context, query string, args ...any) ([]core.MemoryItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	var out []core.MemoryItem
	for rows.Next() {
		var (
			item    core.MemoryItem
			updated int64
		)
		if err := rows.Scan(&item.ID, &item.SessionID, &item.Category, &item.Content, &updated); err != nil {
			return nil, err
		}
		item.UpdatedAt = fromUnix(updated)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveFeedback(ctx context.Context, fb Feedback) (Feedback, error) {
	if !ValidRating(fb.Rating) {
		return Feedback{}, ErrInvalidRating
	}
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM chat_messages WHERE id = ?`, fb.MessageID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return Feedback{}, fmt.Errorf("%w: %d", ErrMessageNotFound, fb.MessageID)
	}
	if err != nil {
		return Feedback{}, fmt.Errorf("failed to look up message: %w", err)
	}

	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_feedback (message_id, agent_name, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		fb.MessageID, fb.AgentName, fb.Rating, fb.Comment, toUnix(fb.CreatedAt))
	if err != nil {
		return Feedback{}, fmt.Errorf("failed to save feedback: %w", err)
	}
	if fb.ID, err = res.LastInsertId(); err != nil {
		return Feedback{}, err
	}
	return fb, nil
}

func (s *SQLiteStore) ListFeedback(ctx context.Context, messageID int64) ([]Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message_id, agent_name, rating, comment, created_at FROM agent_feedback
		WHERE message_id = ? ORDER BY id ASC`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		var (
			fb      Feedback
			created int64
		)
		if err := rows.Scan(&fb.ID, &fb.MessageID, &fb.AgentName, &fb.Rating, &fb.Comment, &created); err != nil {
			return nil, err
		}
		fb.CreatedAt = fromUnix(created)
		out = append(out, fb)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
