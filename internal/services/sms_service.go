package services

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SmsService handles sending SMS messages via AWS SNS.
type SmsService struct {
	client *sns.Client
}

// NewSmsService creates a new SMS service client.
func NewSmsService(cfg aws.Config, region string) *SmsService {
	if region != "" {
		cfg.Region = region
	}
	return &SmsService{client: sns.NewFromConfig(cfg)}
}

// SendSMS sends a message to a phone number in E.164 format (e.g. +27821234567).
func (s *SmsService) SendSMS(ctx context.Context, phoneNumber, message string) error {
	messageAttributes := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}

	result, err := s.client.Publish(ctx, &sns.PublishInput{
		Message:           aws.String(message),
		PhoneNumber:       aws.String(phoneNumber),
		MessageAttributes: messageAttributes,
	})
	if err != nil {
		log.Printf("[SMS] Failed to send SMS to %s: %v", phoneNumber, err)
		return err
	}

	log.Printf("[SMS] Sent SMS. Message ID: %s", aws.ToString(result.MessageId))
	return nil
}
