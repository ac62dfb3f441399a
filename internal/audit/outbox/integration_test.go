//go:build integration

package outbox

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"trapper/internal/audit/models"
	auditstore "trapper/internal/audit/store"
	"trapper/internal/platform/config"
	id "trapper/pkg/domain"
	"trapper/pkg/testutil/containers"
)

// TestWorkerPublishesOutbox drains a committed correction into a real broker
// and reads it back.
func TestWorkerPublishesOutbox(t *testing.T) {
	ctx := context.Background()
	broker := containers.NewRedpandaContainer(t)
	defer broker.Terminate(ctx)

	cfg := config.KafkaConfig{
		Brokers: []string{broker.Broker},
		Topic:   "trapper.audit.corrections.test",
	}
	store := auditstore.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	worker, err := NewWorker(cfg, store, logger)
	require.NoError(t, err)
	defer worker.Close()

	entityID := id.NewEntityID()
	require.NoError(t, store.Append(ctx, &models.Entry{
		ID:         id.NewEntityID(),
		EntityType: "entity",
		EntityID:   entityID,
		ChangeType: models.ChangeMerge,
		Field:      "merged_into",
		Actor:      "integration",
	}))

	require.NoError(t, worker.drain(ctx))

	pending, err := store.ListUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, entityID.String(), string(records[0].Key))
	require.Contains(t, string(records[0].Value), string(models.ChangeMerge))
}
