package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mentorium/mentorium-api/internal/events"
	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/repository"
	"github.com/mentorium/mentorium-api/pkg/mailer"
	"github.com/mentorium/mentorium-api/pkg/retry"
)

const (
	notificationKindSessionBooked = "session_booked"
	displayTimeLayout             = "Mon 2 Jan 2006 15:04"
)

// notificationNamespace derives stable notification IDs from session IDs
var notificationNamespace = uuid.MustParse("0b6c8f5e-2d6a-4c39-9a51-7f3e1c2d4a10")

func decode(job *models.OutboxJob, v any) error {
	if err := json.Unmarshal(job.Payload, v); err != nil {
		return &retry.Permanent{Err: fmt.Errorf("invalid %s payload: %w", job.Kind, err)}
	}
	return nil
}

// NotifyMentorHandler stores the mentor's "new session" notification
func NotifyMentorHandler(store repository.NotificationStore) Handler {
	return func(ctx context.Context, job *models.OutboxJob) error {
		var p models.MentorNotificationPayload
		if err := decode(job, &p); err != nil {
			return err
		}
		return store.Create(ctx, &models.Notification{
			ID:        uuid.NewSHA1(notificationNamespace, []byte(p.SessionID)).String(),
			MentorID:  p.MentorID,
			SessionID: p.SessionID,
			Kind:      notificationKindSessionBooked,
			Title:     "New session booked",
			Body: fmt.Sprintf("%s booked %s for %s.",
				p.StudentName, p.SubjectName, p.StartsAt.Format(displayTimeLayout)),
		})
	}
}

// StudentEmailHandler sends the student's booking confirmation
func StudentEmailHandler(sender mailer.Sender) Handler {
	return emailHandler(sender, studentEmail)
}

// MentorEmailHandler sends the mentor's new session notice
func MentorEmailHandler(sender mailer.Sender) Handler {
	return emailHandler(sender, mentorEmail)
}

func emailHandler(sender mailer.Sender, build func(models.BookingEmailPayload) mailer.Message) Handler {
	return func(ctx context.Context, job *models.OutboxJob) error {
		var p models.BookingEmailPayload
		if err := decode(job, &p); err != nil {
			return err
		}
		msg := build(p)
		if err := sender.Send(ctx, msg); err != nil {
			return fmt.Errorf("failed to send %s: %w", msg.Subject, err)
		}
		return nil
	}
}

func studentEmail(p models.BookingEmailPayload) mailer.Message {
	return mailer.Message{
		To:      p.StudentContact.Email,
		Subject: fmt.Sprintf("Your session with %s is confirmed", p.MentorContact.Name),
		Text: fmt.Sprintf("Hi %s,\n\nYour session with %s is booked.\n\n%s",
			p.StudentContact.Name, p.MentorContact.Name, bookingDetails(p)),
		Tags: []string{"booking", p.SessionID},
	}
}

func mentorEmail(p models.BookingEmailPayload) mailer.Message {
	return mailer.Message{
		To:      p.MentorContact.Email,
		Subject: fmt.Sprintf("New session booked by %s", p.StudentContact.Name),
		Text: fmt.Sprintf("Hi %s,\n\n%s (%s) booked a session with you.\n\n%s",
			p.MentorContact.Name, p.StudentContact.Name, p.StudentContact.Email, bookingDetails(p)),
		Tags: []string{"booking", p.SessionID},
	}
}

func bookingDetails(p models.BookingEmailPayload) string {
	var details strings.Builder
	fmt.Fprintf(&details, "Subject: %s\n", p.SubjectName)
	fmt.Fprintf(&details, "Date: %s\n", p.Date)
	fmt.Fprintf(&details, "Time: %s (%d minutes)\n", p.Time, p.DurationMinutes)
	if p.Modality == models.ModalityInPerson {
		fmt.Fprintf(&details, "Where: in person, %s\n", p.Location.Label())
	} else {
		details.WriteString("Where: online\n")
	}
	fmt.Fprintf(&details, "Participants: %d\n", p.ParticipantCount)
	if len(p.ParticipantContacts) > 0 {
		fmt.Fprintf(&details, "Participant contacts: %s\n", strings.Join(p.ParticipantContacts, ", "))
	}
	if p.Description != "" {
		fmt.Fprintf(&details, "Notes: %s\n", p.Description)
	}
	fmt.Fprintf(&details, "Price: %d %s\n", p.Price, p.Currency)
	return details.String()
}

// BookingEventHandler publishes booking lifecycle events
func BookingEventHandler(pub events.Publisher) Handler {
	return func(ctx context.Context, job *models.OutboxJob) error {
		var event models.BookingEvent
		if err := decode(job, &event); err != nil {
			return err
		}
		return pub.Publish(ctx, event)
	}
}

// RegisterDefaults wires the booking side effects
func (d *Dispatcher) RegisterDefaults(notifications repository.NotificationStore, sender mailer.Sender, pub events.Publisher) {
	d.Register(models.JobNotifyMentor, NotifyMentorHandler(notifications))
	d.Register(models.JobStudentEmail, StudentEmailHandler(sender))
	d.Register(models.JobMentorEmail, MentorEmailHandler(sender))
	d.Register(models.JobBookingEvent, BookingEventHandler(pub))
}
