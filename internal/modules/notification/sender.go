package notification

import (
	"context"
	"errors"
	"time"

	"spacebooking/internal/domain"
	"spacebooking/internal/pkg/mailer"
)

type Mailer interface {
	Enabled() bool
	Send(ctx context.Context, msg mailer.Message) error
}

// Sender fans schedule lifecycle notifications out to the in-app feed and,
// when a mailer is configured, to email. It implements the schedule
// module's NotificationSender.
type Sender struct {
	service *Service
	mail    Mailer
	loc     *time.Location
}

func NewSender(service *Service, mail Mailer, loc *time.Location) *Sender {
	if loc == nil {
		loc = time.UTC
	}
	return &Sender{service: service, mail: mail, loc: loc}
}

func (s *Sender) SendApprovalRequest(ctx context.Context, approver *domain.User, sch *domain.Schedule) error {
	return s.deliver(ctx, approver, sch, approvalRequestedContent(sch, s.loc))
}

func (s *Sender) SendApproved(ctx context.Context, requester *domain.User, sch *domain.Schedule) error {
	return s.deliver(ctx, requester, sch, approvedContent(sch, s.loc))
}

func (s *Sender) SendRejected(ctx context.Context, requester *domain.User, sch *domain.Schedule, reason string) error {
	return s.deliver(ctx, requester, sch, rejectedContent(sch, reason, s.loc))
}

func (s *Sender) SendCancelled(ctx context.Context, requester *domain.User, sch *domain.Schedule) error {
	return s.deliver(ctx, requester, sch, cancelledContent(sch, s.loc))
}

// deliver attempts every channel and joins the failures.
func (s *Sender) deliver(ctx context.Context, to *domain.User, sch *domain.Schedule, c content) error {
	var errs []error

	err := s.service.Notify(ctx, &domain.Notification{
		TenantID: sch.TenantID,
		UserID:   to.ID,
		Type:     c.Type,
		Title:    c.Title,
		Message:  c.Message,
		Data:     c.Data,
	})
	if err != nil {
		errs = append(errs, err)
	}

	if s.mail != nil && s.mail.Enabled() && to.Email != "" {
		if err := s.mail.Send(ctx, mailer.Message{To: to.Email, Subject: c.Title, Text: c.Message}); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
