package services

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// EmailService handles email sending via AWS SES (SESv2 API)
type EmailService struct {
	sesClient *sesv2.Client
	fromEmail string
}

// NewEmailService creates a new email service instance using the default credential chain
func NewEmailService(cfg aws.Config, region, fromEmail string) *EmailService {
	if region != "" {
		cfg.Region = region
	}
	return &EmailService{
		sesClient: sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
	}
}

// SendEmail sends a simple HTML email
func (e *EmailService) SendEmail(ctx context.Context, toEmail, subject, htmlBody string) error {
	if e.fromEmail == "" {
		return fmt.Errorf("SES_FROM_EMAIL not configured")
	}
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(e.fromEmail),
		Destination:      &sestypes.Destination{ToAddresses: []string{toEmail}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject)},
				Body:    &sestypes.Body{Html: &sestypes.Content{Data: aws.String(htmlBody)}},
			},
		},
	}
	if _, err := e.sesClient.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// renderEmail wraps a message in the shared layout.
func renderEmail(title, greetingName, paragraph string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5; }
        .container { background-color: white; border-radius: 8px; padding: 32px; }
        .logo { font-size: 24px; font-weight: bold; color: #7b2cbf; margin-bottom: 16px; }
        .footer { margin-top: 24px; color: #999; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="logo">Consultant Connect</div>
        <h2>%s</h2>
        <p>Hello %s,</p>
        <p>%s</p>
        <div class="footer">This is an automated message. Please do not reply to this email.</div>
    </div>
</body>
</html>`,
		html.EscapeString(title),
		html.EscapeString(title),
		html.EscapeString(greetingName),
		html.EscapeString(paragraph),
	)
}
