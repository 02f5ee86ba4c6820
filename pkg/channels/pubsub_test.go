package channels

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"

	"github.com/rozgar-hq/rozgar-dispatch/internal/domain"
)

func TestPubSubChannelPublishes(t *testing.T) {
	// Use the in-memory Pub/Sub emulator.
	server := pstest.NewServer()
	defer server.Close()
	defer os.Unsetenv("PUBSUB_EMULATOR_HOST")
	os.Setenv("PUBSUB_EMULATOR_HOST", server.Addr)

	ctx := context.Background()
	client, err := pubsub.NewClient(ctx, "test-project")
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	if _, err := client.CreateTopic(ctx, "jobs-topic"); err != nil {
		t.Fatalf("create topic: %v", err)
	}

	ch, err := newPubSubChannel(ctx, ChannelConfig{
		ID:   "queue",
		Type: TypePubSub,
		PubSub: &PubSubChannelConfig{
			ProjectID: "test-project",
			Topic:     "jobs-topic",
		},
	}, nil)
	if err != nil {
		t.Fatalf("newPubSubChannel: %v", err)
	}

	err = ch.Publish(ctx, Batch{
		ID:       "b1",
		Category: domain.CategoryGovernment,
		Jobs:     []domain.JobRecord{{Title: "Clerk", Source: "SarkariResult"}},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	msgs := server.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(msgs))
	}
	if msgs[0].Attributes["category"] != "government" {
		t.Fatalf("category attribute wrong: %v", msgs[0].Attributes)
	}
}
