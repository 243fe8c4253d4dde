package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/snow-ghost/codeassist/core"
)

// MemoryStore keeps everything in process memory
type MemoryStore struct {
	mu sync.RWMutex

	sessions map[string]ChatSession
	messages []Message
	memories []core.MemoryItem
	feedback []Feedback

	nextMessageID  int64
	nextMemoryID   int64
	nextFeedbackID int64

	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]ChatSession),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) CreateSession(ctx context.Context, id string) (ChatSession, error) {
	if id == "" {
		return ChatSession{}, core.ErrMissingSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	s := ChatSession{ID: id, CreatedAt: m.now()}
	m.sessions[id] = s
	return s, nil
}

func (m *MemoryStore) GetSession(ctx context.Context, id string) (ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return ChatSession{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

func (m *MemoryStore) ListSessions(ctx context.Context) ([]ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ChatSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) AppendMessage(ctx context.Context, msg Message) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[msg.SessionID]; !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrSessionNotFound, msg.SessionID)
	}

	m.nextMessageID++
	msg.ID = m.nextMessageID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = m.now()
	}
	msg.ToolUsages = append([]ToolUsageRecord(nil), msg.ToolUsages...)
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m *MemoryStore) GetMessage(ctx context.Context, id int64) (Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, msg := range m.messages {
		if msg.ID == id {
			return msg, nil
		}
	}
	return Message{}, fmt.Errorf("%w: %d", ErrMessageNotFound, id)
}

func (m *MemoryStore) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Message
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *MemoryStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	all, err := m.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

// Append stores a memory item. The session does not need to exist.
func (m *MemoryStore) Append(ctx context.Context, sessionID, category, content string) (core.MemoryItem, error) {
	if sessionID == "" {
		return core.MemoryItem{}, core.ErrMissingSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextMemoryID++
	item := core.MemoryItem{
		ID:        m.nextMemoryID,
		SessionID: sessionID,
		Category:  category,
		Content:   content,
		UpdatedAt: m.now(),
	}
	m.memories = append(m.memories, item)
	return item, nil
}

func (m *MemoryStore) ListRecent(ctx context.Context, sessionID string, limit int) ([]core.MemoryItem, error) {
	items, err := m.ListMemories(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *MemoryStore) ListMemories(ctx context.Context, sessionID string) ([]core.MemoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.MemoryItem
	for _, item := range m.memories {
		if item.SessionID == sessionID {
			out = append(out, item)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) SaveFeedback(ctx context.Context, fb Feedback) (Feedback, error) {
	if !ValidRating(fb.Rating) {
		return Feedback{}, ErrInvalidRating
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	found := false
	for _, msg := range m.messages {
		if msg.ID == fb.MessageID {
			found = true
			break
		}
	}
	if !found {
		return Feedback{}, fmt.Errorf("%w: %d", ErrMessageNotFound, fb.MessageID)
	}

	m.nextFeedbackID++
	fb.ID = m.nextFeedbackID
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = m.now()
	}
	m.feedback = append(m.feedback, fb)
	return fb, nil
}

func (m *MemoryStore) ListFeedback(ctx context.Context, messageID int64) ([]Feedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Feedback
	for _, fb := range m.feedback {
		if fb.MessageID == messageID {
			out = append(out, fb)
		}
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

func sortNewestFirst(items []core.MemoryItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
}
