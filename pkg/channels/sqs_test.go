package channels

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSQSChannelPublishSuccess(t *testing.T) {
	client := &fakeSQSClient{}
	ch := &sqsChannel{
		id:       "queue-1",
		typ:      TypeSQS,
		queueURL: "https://sqs.test/queue",
		client:   client,
		log:      noopLogger{},
	}

	err := ch.Publish(context.Background(), Batch{
		ID:       "b1",
		Category: domain.CategoryGovernment,
		Jobs:     []domain.JobRecord{{Title: "Clerk", Source: "SarkariResult"}},
	})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://sqs.test/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["category"]
	if !ok || aws.ToString(attr.StringValue) != "government" {
		t.Fatalf("category attribute missing or wrong: %#v", attr)
	}
	if kind := client.input.MessageAttributes["kind"]; aws.ToString(kind.StringValue) != "batch" {
		t.Fatalf("kind attribute wrong: %#v", kind)
	}
	if body := aws.ToString(client.input.MessageBody); !strings.Contains(body, `"id":"b1"`) {
		t.Fatalf("MessageBody missing batch id: %s", body)
	}
}

func TestSQSChannelPublishError(t *testing.T) {
	ch := &sqsChannel{
		id:       "queue-1",
		typ:      TypeSQS,
		queueURL: "https://sqs.test/queue",
		client:   &fakeSQSClient{err: errors.New("boom")},
		log:      noopLogger{},
	}

	if err := ch.Publish(context.Background(), Batch{ID: "b1"}); err == nil {
		t.Fatalf("expected error from Publish")
	}
}

func TestSQSChannelNotify(t *testing.T) {
	client := &fakeSQSClient{}
	ch := &sqsChannel{
		id:       "queue-1",
		typ:      TypeSQS,
		queueURL: "https://sqs.test/queue",
		client:   client,
		log:      noopLogger{},
	}

	if err := ch.Notify(context.Background(), "3 jobs pending"); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if kind := client.input.MessageAttributes["kind"]; aws.ToString(kind.StringValue) != "status" {
		t.Fatalf("kind attribute wrong: %#v", kind)
	}
	if body := aws.ToString(client.input.MessageBody); !strings.Contains(body, "3 jobs pending") {
		t.Fatalf("MessageBody missing status text: %s", body)
	}
}
