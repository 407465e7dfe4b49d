// Package services sends consultant notifications over AWS SES and SNS.
package services

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/Pixelkingsa/consultant-connect/internal/config"
	"github.com/Pixelkingsa/consultant-connect/internal/logging"
	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

// Mailer sends one HTML email.
type Mailer interface {
	SendEmail(ctx context.Context, toEmail, subject, htmlBody string) error
}

// Texter sends one SMS.
type Texter interface {
	SendSMS(ctx context.Context, phoneNumber, message string) error
}

// Recipient is who a notification goes to.
type Recipient struct {
	Email    string
	FullName string
	Phone    *string
}

// Notifier delivers best-effort notifications. A nil Notifier, or one without
// channels, silently drops everything.
type Notifier struct {
	mail     Mailer
	sms      Texter
	currency string
}

// NewNotifier builds a notifier with whichever channels are configured.
func NewNotifier(ctx context.Context, cfg config.NotifyConfig, currency string) (*Notifier, error) {
	n := &Notifier{currency: currency}
	if cfg.FromEmail == "" && !cfg.SNSEnabled {
		return n, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS default config: %w", err)
	}
	if cfg.FromEmail != "" {
		n.mail = NewEmailService(awsCfg, cfg.SESRegion, cfg.FromEmail)
	}
	if cfg.SNSEnabled {
		n.sms = NewSmsService(awsCfg, cfg.SNSRegion)
	}
	return n, nil
}

// NewNotifierWith wires explicit channels. Either may be nil.
func NewNotifierWith(mail Mailer, sms Texter, currency string) *Notifier {
	return &Notifier{mail: mail, sms: sms, currency: currency}
}

// OrderPaid confirms a settled order to the buyer.
func (n *Notifier) OrderPaid(ctx context.Context, to Recipient, order *models.Order) {
	if n == nil || order == nil {
		return
	}
	ref := shortID(order.ID)
	subject := fmt.Sprintf("Payment received for order %s", ref)
	body := fmt.Sprintf("We have received your payment of %s for order %s. It earned you %.2f volume points and will be processed shortly.",
		n.money(order.Total), ref, order.TotalVP)
	n.send(ctx, to, subject, body, fmt.Sprintf("Consultant Connect: payment of %s received for order %s.", n.money(order.Total), ref))
}

// WithdrawalStatusChanged tells a consultant their payout request moved.
func (n *Notifier) WithdrawalStatusChanged(ctx context.Context, to Recipient, w *models.Withdrawal) {
	if n == nil || w == nil {
		return
	}
	subject := fmt.Sprintf("Withdrawal %s", w.Status)
	body := fmt.Sprintf("Your withdrawal request of %s to account %s is now %s.", n.money(w.Amount), w.MaskedAccount(), w.Status)
	if w.Notes != nil && strings.TrimSpace(*w.Notes) != "" {
		body += " Note: " + strings.TrimSpace(*w.Notes)
	}
	n.send(ctx, to, subject, body, fmt.Sprintf("Consultant Connect: your withdrawal of %s is %s.", n.money(w.Amount), w.Status))
}

func (n *Notifier) send(ctx context.Context, to Recipient, subject, body, sms string) {
	if n.mail != nil && to.Email != "" {
		if err := n.mail.SendEmail(ctx, to.Email, subject, renderEmail(subject, displayName(to), body)); err != nil {
			logging.Error("notification email failed", err, map[string]interface{}{"to": to.Email, "subject": subject})
		}
	}
	if n.sms != nil && to.Phone != nil && strings.HasPrefix(*to.Phone, "+") {
		if err := n.sms.SendSMS(ctx, *to.Phone, sms); err != nil {
			logging.Error("notification sms failed", err, map[string]interface{}{"subject": subject})
		}
	}
}

func (n *Notifier) money(v float64) string {
	cur := n.currency
	if cur == "" {
		cur = "ZAR"
	}
	return fmt.Sprintf("%s %.2f", cur, v)
}

func displayName(to Recipient) string {
	if to.FullName != "" {
		return to.FullName
	}
	return "consultant"
}

func shortID(id string) string {
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}
