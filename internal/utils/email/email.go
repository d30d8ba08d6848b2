package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/Dan9191/foodlink-service/internal/config"
	"github.com/Dan9191/foodlink-service/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, a smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, a smtp.Auth) error {
			return e.Send(addr, a)
		},
	}
}

// NotifyClaimed tells the donor that their donation has been claimed
func (s *Sender) NotifyClaimed(ctx context.Context, donor *models.User, claimant string, d *models.ClaimedDonation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := s.claimEmail(donor, claimant, d)
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send claim notification to %s: %v", donor.Email, err)
		return fmt.Errorf("failed to send claim notification: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", donor.Email, e.Subject)
	return nil
}

func (s *Sender) claimEmail(donor *models.User, claimant string, d *models.ClaimedDonation) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{donor.Email}
	e.Subject = fmt.Sprintf("Your donation of %s has been claimed", d.FoodItem)

	body := fmt.Sprintf("Dear %s,\n\n", donor.Username)
	body += fmt.Sprintf(
		"Your donation \"%s\" (%d x %s) listed at %s was claimed by %s on %s.\n"+
			"They may contact you at %s to arrange pickup from %s.\n",
		d.Name, d.Quantity, d.FoodItem, d.Location, claimant,
		d.ClaimedAt.Format("2006-01-02 15:04"), d.PhoneNumber, d.Address,
	)
	body += "\nThank you for sharing,\nFoodLink"
	e.Text = []byte(body)
	return e
}
