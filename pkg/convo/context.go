package convo

import (
	"context"
	"log/slog"
	"time"

	"github.com/serenehq/serene/pkg/emotion"
	"github.com/serenehq/serene/pkg/errorsx"
)

// Entry is one prior turn exposed to prompt construction.
type Entry struct {
	Role      string
	Content   string
	Emotion   emotion.Label
	Timestamp time.Time
}

// Context is the bounded recent-message window plus the inferred latent
// topic. Read-only within a request.
type Context struct {
	Entries []Entry
	Topic   string
}

// UserTurns returns the contents of user entries in order.
func (c Context) UserTurns() []string {
	var out []string
	for _, e := range c.Entries {
		if e.Role == RoleUser {
			out = append(out, e.Content)
		}
	}
	return out
}

// Manager loads conversation context. Store failures degrade to an empty
// window rather than failing the request.
type Manager struct {
	store  Store
	rules  []TopicRule
	window int
	log    *slog.Logger
}

func NewManager(store Store, rules []TopicRule, window int, log *slog.Logger) *Manager {
	if window <= 0 {
		window = 10
	}
	if len(rules) == 0 {
		rules = DefaultTopicRules()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: store, rules: rules, window: window, log: log}
}

func (m *Manager) Load(ctx context.Context, sessionID string) Context {
	msgs, err := m.store.RecentMessages(ctx, sessionID, m.window)
	if err != nil {
		m.log.Warn("context_load_failed",
			"session_id", sessionID,
			"reason", string(errorsx.ReasonStoreRead),
			"error", err.Error(),
		)
		return Context{Topic: TopicGeneral}
	}
	out := Context{Entries: make([]Entry, 0, len(msgs))}
	for _, msg := range msgs {
		out.Entries = append(out.Entries, Entry{
			Role:      msg.Role,
			Content:   msg.Content,
			Emotion:   msg.Emotion,
			Timestamp: msg.CreatedAt,
		})
	}
	out.Topic = InferTopic(m.rules, out.UserTurns())
	return out
}
