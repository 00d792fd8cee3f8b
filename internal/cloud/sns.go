package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSClient wraps AWS SNS client for notification operations
type SNSClient struct {
	svc      *sns.Client
	topicArn string
	ctx      context.Context
}

// NewSNSClient creates a new SNS client instance
func NewSNSClient(region, topicArn string) (*SNSClient, error) {
	ctx := context.Background()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &SNSClient{
		svc:      sns.NewFromConfig(cfg),
		topicArn: topicArn,
		ctx:      ctx,
	}, nil
}

// SendAlert publishes an alert notification to the SNS topic.
func (c *SNSClient) SendAlert(subject, message string) error {
	input := &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	}

	if _, err := c.svc.Publish(c.ctx, input); err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}
	return nil
}

// ComplaintAlert notifies the operations team about a critical complaint.
func (c *SNSClient) ComplaintAlert(customerID, subject string, priority string) error {
	title := fmt.Sprintf("UMS: %s priority complaint", priority)
	message := fmt.Sprintf(
		"Customer Complaint Filed\n\n"+
			"Customer: %s\n"+
			"Subject: %s\n"+
			"Priority: %s\n"+
			"Time: %s\n\n"+
			"Please investigate immediately.",
		customerID,
		subject,
		priority,
		time.Now().Format(time.RFC3339),
	)

	return c.SendAlert(title, message)
}

// OverdueAlert summarizes customers with overdue balances in one notification.
func (c *SNSClient) OverdueAlert(defaulters []string) error {
	if len(defaulters) == 0 {
		return nil
	}

	subject := fmt.Sprintf("UMS: %d customers overdue", len(defaulters))
	message := "Overdue Accounts:\n\n"
	for i, d := range defaulters {
		message += fmt.Sprintf("%d. %s\n", i+1, d)
	}

	return c.SendAlert(subject, message)
}
