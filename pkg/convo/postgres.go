package convo

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/serenehq/serene/pkg/emotion"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// PostgresStore implements Store on lib/pq.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(config DatabaseConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}
	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (id, user_id, language)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, query, session.ID, session.UserID, session.Language).
		Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating session: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, user_id, language, created_at, updated_at
		FROM sessions
		WHERE id = $1`
	var session Session
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID, &session.UserID, &session.Language,
		&session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying session: %w", err)
	}
	return &session, nil
}

func (s *PostgresStore) UpdateSessionLanguage(ctx context.Context, id, language string) error {
	query := `
		UPDATE sessions
		SET language = $2, updated_at = now()
		WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id, language); err != nil {
		return fmt.Errorf("error updating session language: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, msg *Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO messages (id, session_id, role, content, emotion, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.SessionID, msg.Role, msg.Content,
		string(msg.Emotion), msg.Confidence, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("error appending message: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	query := `
		SELECT id, session_id, role, content, emotion, confidence, created_at
		FROM (
			SELECT id, session_id, role, content, emotion, confidence, created_at
			FROM messages
			WHERE session_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var msg Message
		var label string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content,
			&label, &msg.Confidence, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}
		msg.Emotion = emotion.Label(label)
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *PostgresStore) EmergencyContact(ctx context.Context, userID string) (*EmergencyContact, error) {
	query := `
		SELECT user_id, name, address, notifications_enabled
		FROM emergency_contacts
		WHERE user_id = $1`
	var contact EmergencyContact
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&contact.UserID, &contact.Name, &contact.Address, &contact.NotificationsEnabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying emergency contact: %w", err)
	}
	return &contact, nil
}

func (s *PostgresStore) AppendAlert(ctx context.Context, record *AlertRecord) error {
	if record.SentAt.IsZero() {
		record.SentAt = time.Now()
	}
	query := `
		INSERT INTO alert_log (id, user_id, contact_address, alert_type, excerpt, sent_at, was_delivered)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.UserID, record.ContactAddress, record.AlertType,
		record.Excerpt, record.SentAt, record.WasDelivered)
	if err != nil {
		return fmt.Errorf("error appending alert record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
