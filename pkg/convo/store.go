package convo

import "context"

// Store is the persistence collaborator. All calls are fire-and-forget
// from the pipeline's perspective: failures degrade the response, they
// never abort it.
type Store interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	UpdateSessionLanguage(ctx context.Context, id, language string) error

	AppendMessage(ctx context.Context, msg *Message) error
	// RecentMessages returns up to limit most recent messages in
	// chronological order.
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]Message, error)

	EmergencyContact(ctx context.Context, userID string) (*EmergencyContact, error)
	AppendAlert(ctx context.Context, record *AlertRecord) error

	Close() error
}
