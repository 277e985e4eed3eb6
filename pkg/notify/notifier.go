package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/serenehq/serene/pkg/convo"
	"github.com/serenehq/serene/pkg/emotion"
	"github.com/serenehq/serene/pkg/errorsx"
	"github.com/serenehq/serene/pkg/metrics"
	"github.com/serenehq/serene/pkg/risk"
)

// Outcome is the terminal state of one notifier run.
type Outcome string

const (
	OutcomeAlerted    Outcome = "alerted"
	OutcomeLoggedOnly Outcome = "logged-only"
	OutcomeSkipped    Outcome = "skipped"
)

// Sender delivers an alert to a contact address.
type Sender interface {
	Send(ctx context.Context, address, content string) (bool, error)
	Name() string
}

// ContactSource looks up a user's designated contact.
type ContactSource interface {
	EmergencyContact(ctx context.Context, userID string) (*convo.EmergencyContact, error)
}

// Journal appends alert audit records.
type Journal interface {
	AppendAlert(ctx context.Context, record *convo.AlertRecord) error
}

// Input is one escalation decision request.
type Input struct {
	UserID  string
	Emotion emotion.Label
	Risk    risk.Assessment
	Excerpt string
}

// Result reports the terminal state and the audit record, if one was
// created.
type Result struct {
	Outcome Outcome
	Record  *convo.AlertRecord
}

// Notifier decides whether to alert the designated contact and journals
// the incident. Neither send nor journal failures ever propagate; they
// only degrade to diagnostics.
type Notifier struct {
	enabled  bool
	contacts ContactSource
	journal  Journal
	sender   Sender
	obs      metrics.Observer
	log      *slog.Logger
}

func NewNotifier(enabled bool, contacts ContactSource, journal Journal, sender Sender, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		enabled:  enabled,
		contacts: contacts,
		journal:  journal,
		sender:   sender,
		obs:      metrics.NoopObserver{},
		log:      log,
	}
}

func (n *Notifier) SetObserver(obs metrics.Observer) {
	if obs != nil {
		n.obs = obs
	}
}

// Process runs the state machine for one request.
func (n *Notifier) Process(ctx context.Context, in Input) Result {
	if in.Risk.Level == risk.LevelNone {
		return Result{Outcome: OutcomeSkipped}
	}
	if !n.enabled {
		n.log.Info("alerts_disabled", "user_id", in.UserID, "risk", string(in.Risk.Level))
		return Result{Outcome: OutcomeSkipped}
	}

	record := &convo.AlertRecord{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		AlertType: alertType(in.Risk.Level),
		Excerpt:   in.Excerpt,
		SentAt:    time.Now(),
	}

	contact := n.lookupContact(ctx, in.UserID)
	if n.sender == nil || contact == nil || !contact.NotificationsEnabled {
		n.journalRecord(ctx, record)
		n.recordOutcome(in.UserID, OutcomeLoggedOnly)
		return Result{Outcome: OutcomeLoggedOnly, Record: record}
	}
	record.ContactAddress = contact.Address

	if !ShouldAlert(in.Emotion, in.Risk.Level) {
		n.journalRecord(ctx, record)
		n.recordOutcome(in.UserID, OutcomeLoggedOnly)
		return Result{Outcome: OutcomeLoggedOnly, Record: record}
	}

	delivered, err := n.sender.Send(ctx, contact.Address, alertContent(contact.Name, in))
	if err != nil {
		n.log.Error("alert_send_failed",
			"user_id", in.UserID,
			"sender", n.sender.Name(),
			"reason", string(errorsx.ReasonNotifySend),
			"error", err.Error(),
		)
		delivered = false
	}
	record.WasDelivered = delivered

	// Logging always happens, whatever the delivery outcome.
	n.journalRecord(ctx, record)
	n.recordOutcome(in.UserID, OutcomeAlerted)
	return Result{Outcome: OutcomeAlerted, Record: record}
}

// ShouldAlert is true for high risk, and for medium risk paired with a
// negative-affect emotion.
func ShouldAlert(label emotion.Label, level risk.Level) bool {
	switch level {
	case risk.LevelHigh:
		return true
	case risk.LevelMedium:
		return emotion.Negative(label)
	}
	return false
}

func (n *Notifier) lookupContact(ctx context.Context, userID string) *convo.EmergencyContact {
	if n.contacts == nil {
		return nil
	}
	contact, err := n.contacts.EmergencyContact(ctx, userID)
	if err != nil {
		n.log.Warn("contact_lookup_failed",
			"user_id", userID,
			"reason", string(errorsx.ReasonStoreRead),
			"error", err.Error(),
		)
		return nil
	}
	return contact
}

func (n *Notifier) journalRecord(ctx context.Context, record *convo.AlertRecord) {
	if n.journal == nil {
		return
	}
	if err := n.journal.AppendAlert(ctx, record); err != nil {
		n.log.Error("alert_journal_failed",
			"user_id", record.UserID,
			"reason", string(errorsx.ReasonAlertLog),
			"error", err.Error(),
		)
	}
}

func (n *Notifier) recordOutcome(userID string, outcome Outcome) {
	n.obs.RecordEvent(metrics.MetricsEvent{
		Name: metrics.EventNotifyOutcome,
		Time: time.Now(),
		Tags: map[string]string{"outcome": string(outcome), "user_id": userID},
	})
}

func alertType(level risk.Level) string {
	return string(level) + "_risk"
}

func alertContent(contactName string, in Input) string {
	name := contactName
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(
		"Hi %s. Serene wellbeing alert: someone who listed you as their emergency contact sent a message "+
			"that our screening flagged as %s risk (detected mood: %s). Please consider checking in on them soon. "+
			"Message excerpt: %q",
		name, in.Risk.Level, in.Emotion, in.Excerpt,
	)
}
