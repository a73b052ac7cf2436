package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"kehila/internal/external"
	"kehila/internal/metrics"
	"kehila/internal/models"
	"kehila/internal/repository"

	"github.com/nats-io/stan.go"
)

type Handlers struct {
	repos       *repository.Repositories
	emailClient *external.EmailClient
}

func NewHandlers(repos *repository.Repositories, emailClient *external.EmailClient) *Handlers {
	return &Handlers{
		repos:       repos,
		emailClient: emailClient,
	}
}

// HandleBundleRegistrationCompleted sends the purchaser confirmation and the
// admin summary for a finished bundle purchase. The message is acked even when
// delivery fails: registration emails are best-effort and an operator can
// resend manually.
func (h *Handlers) HandleBundleRegistrationCompleted(m *stan.Msg) {
	var event models.BundleRegistrationCompletedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal bundle registration completed event", "error", err)
		m.Ack()
		return
	}

	slog.Info("Processing bundle registration completed event",
		"bundle_registration_id", event.BundleRegistrationID,
		"purchaser_email", event.PurchaserEmail)

	ctx := context.Background()

	subject := fmt.Sprintf("אישור הרשמה: %s", event.BundleTitle)
	body := h.renderBundleSummary(ctx, &event, false)
	h.send(ctx, []external.Recipient{{Email: event.PurchaserEmail, Name: event.PurchaserName}}, subject, body)

	if admin := h.emailClient.AdminRecipient(); admin != nil {
		adminSubject := fmt.Sprintf("הרשמה חדשה לחבילה: %s", event.BundleTitle)
		adminBody := h.renderBundleSummary(ctx, &event, true)
		h.send(ctx, []external.Recipient{*admin}, adminSubject, adminBody)
	}

	m.Ack()
}

func (h *Handlers) HandleRegistrationCreated(m *stan.Msg) {
	var event models.RegistrationCreatedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal registration created event", "error", err)
		m.Ack()
		return
	}

	slog.Info("Processing registration created event",
		"registration_id", event.RegistrationID,
		"event_id", event.EventID)

	ctx := context.Background()

	subject := fmt.Sprintf("אישור הרשמה: %s", event.EventTitle)
	body := fmt.Sprintf(
		"<div dir=\"rtl\"><p>שלום %s,</p><p>נרשמת בהצלחה לאירוע <b>%s</b>.</p><p>נתראה!</p></div>",
		event.PurchaserName, event.EventTitle)
	h.send(ctx, []external.Recipient{{Email: event.PurchaserEmail, Name: event.PurchaserName}}, subject, body)

	m.Ack()
}

func (h *Handlers) HandleRegistrationCancelled(m *stan.Msg) {
	var event models.RegistrationCancelledEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal registration cancelled event", "error", err)
		m.Ack()
		return
	}

	slog.Info("Processing registration cancelled event",
		"registration_id", event.RegistrationID,
		"event_id", event.EventID,
		"reason", event.Reason)

	// Cancellations only notify the operator, and only when one is configured
	if admin := h.emailClient.AdminRecipient(); admin != nil {
		ctx := context.Background()
		subject := "ביטול הרשמה"
		body := fmt.Sprintf(
			"<div dir=\"rtl\"><p>הרשמה מספר %d לאירוע %d בוטלה.</p></div>",
			event.RegistrationID, event.EventID)
		h.send(ctx, []external.Recipient{*admin}, subject, body)
	}

	m.Ack()
}

// HandleAnnouncementPublished mails an announcement to every member of its
// target groups and records the dispatch stats on the announcement row.
func (h *Handlers) HandleAnnouncementPublished(m *stan.Msg) {
	var event models.AnnouncementPublishedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal announcement published event", "error", err)
		m.Ack()
		return
	}

	ctx := context.Background()

	announcement, err := h.repos.Announcements.GetByID(ctx, event.AnnouncementID)
	if err != nil {
		slog.Error("Failed to load announcement", "announcement_id", event.AnnouncementID, "error", err)
		// Transient DB failure: leave unacked so the subscription redelivers
		return
	}
	if announcement == nil {
		slog.Warn("Announcement deleted before dispatch", "announcement_id", event.AnnouncementID)
		m.Ack()
		return
	}

	recipients, err := h.resolveRecipients(ctx, announcement.TargetGroups)
	if err != nil {
		slog.Error("Failed to resolve announcement recipients", "announcement_id", announcement.ID, "error", err)
		return
	}

	subject := announcement.Title
	body := fmt.Sprintf("<div dir=\"rtl\"><h2>%s</h2><p>%s</p></div>", announcement.Title, announcement.Content)

	sent, failed := 0, 0
	for _, r := range recipients {
		if err := h.emailClient.Send(ctx, []external.Recipient{r}, subject, body); err != nil {
			slog.Error("Failed to send announcement email",
				"announcement_id", announcement.ID,
				"recipient", r.Email,
				"error", err)
			metrics.EmailsTotal.WithLabelValues("failure").Inc()
			failed++
			continue
		}
		metrics.EmailsTotal.WithLabelValues("success").Inc()
		sent++
	}

	if err := h.repos.Announcements.MarkEmailSent(ctx, announcement.ID, sent, failed); err != nil {
		slog.Error("Failed to record announcement dispatch stats",
			"announcement_id", announcement.ID,
			"error", err)
	}

	slog.Info("Announcement dispatched",
		"announcement_id", announcement.ID,
		"recipients", sent,
		"failures", failed)

	m.Ack()
}

func (h *Handlers) HandlePaymentIntentCreated(m *stan.Msg) {
	var event models.PaymentIntentCreatedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment intent created event", "error", err)
		m.Ack()
		return
	}

	slog.Info("Payment intent opened",
		"bundle_registration_id", event.BundleRegistrationID,
		"payment_intent_id", event.PaymentIntentID,
		"amount_agorot", event.AmountAgorot)

	m.Ack()
}

// resolveRecipients expands target groups into member email addresses.
// The ALL sentinel addresses every profile.
func (h *Handlers) resolveRecipients(ctx context.Context, targetGroups []string) ([]external.Recipient, error) {
	groups := make([]string, 0, len(targetGroups))
	all := false
	for _, g := range targetGroups {
		if g == models.GroupAll {
			all = true
			break
		}
		groups = append(groups, g)
	}

	var users []models.UserProfile
	var err error
	if all {
		users, err = h.repos.Users.List(ctx)
	} else {
		users, err = h.repos.Users.ListByGroups(ctx, groups)
	}
	if err != nil {
		return nil, err
	}

	recipients := make([]external.Recipient, 0, len(users))
	for _, u := range users {
		if u.Email == "" {
			continue
		}
		recipients = append(recipients, external.Recipient{Email: u.Email, Name: u.Name})
	}

	return recipients, nil
}

// renderBundleSummary builds the registered/replaced/skipped breakdown shared
// by the purchaser confirmation and the admin notification
func (h *Handlers) renderBundleSummary(ctx context.Context, event *models.BundleRegistrationCompletedEvent, forAdmin bool) string {
	var b strings.Builder
	b.WriteString("<div dir=\"rtl\">")

	if forAdmin {
		fmt.Fprintf(&b, "<p>%s (%s) נרשמו לחבילה <b>%s</b>.</p>",
			event.PurchaserName, event.PurchaserEmail, event.BundleTitle)
	} else {
		fmt.Fprintf(&b, "<p>שלום %s,</p><p>הרשמתך לחבילה <b>%s</b> התקבלה.</p>",
			event.PurchaserName, event.BundleTitle)
	}

	if len(event.EventOutcomes) > 0 {
		b.WriteString("<p>אירועים שנרשמת אליהם:</p><ul>")
		for _, o := range event.EventOutcomes {
			title := h.eventTitle(ctx, o.EventID)
			if o.Outcome == "replaced" {
				fmt.Fprintf(&b, "<li>%s (אירוע חלופי)</li>", title)
			} else {
				fmt.Fprintf(&b, "<li>%s</li>", title)
			}
		}
		b.WriteString("</ul>")
	}

	if len(event.SkippedEvents) > 0 {
		b.WriteString("<p>אירועים שלא נכללו:</p><ul>")
		for _, s := range event.SkippedEvents {
			fmt.Fprintf(&b, "<li>%s</li>", h.eventTitle(ctx, s.EventID))
		}
		b.WriteString("</ul>")
	}

	b.WriteString("</div>")
	return b.String()
}

func (h *Handlers) eventTitle(ctx context.Context, eventID int64) string {
	event, err := h.repos.Events.GetByID(ctx, eventID)
	if err != nil || event == nil {
		return fmt.Sprintf("אירוע %d", eventID)
	}
	return event.Title
}

func (h *Handlers) send(ctx context.Context, to []external.Recipient, subject, body string) {
	if !h.emailClient.Configured() {
		slog.Warn("Email client not configured, skipping notification", "subject", subject)
		return
	}

	if err := h.emailClient.Send(ctx, to, subject, body); err != nil {
		slog.Error("Failed to send email", "subject", subject, "error", err)
		metrics.EmailsTotal.WithLabelValues("failure").Inc()
		return
	}

	metrics.EmailsTotal.WithLabelValues("success").Inc()
}
