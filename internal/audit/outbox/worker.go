package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"trapper/internal/audit/models"
	"trapper/internal/platform/config"
	id "trapper/pkg/domain"
)

const (
	pollInterval = 5 * time.Second
	batchSize    = 100
)

type Store interface {
	ListUnpublished(ctx context.Context, limit int) ([]*models.OutboxMessage, error)
	MarkPublished(ctx context.Context, messageID id.EntityID, at time.Time) error
}

// Worker drains the outbox into the audit Kafka topic. Messages stay in the
// outbox until the produce is acknowledged, so a crash between commit and
// publish replays rather than loses events.
type Worker struct {
	store  Store
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func NewWorker(cfg config.KafkaConfig, store Store, logger *slog.Logger) (*Worker, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	w := &Worker{store: store, client: client, topic: cfg.Topic, logger: logger}
	if err := w.ensureTopic(context.Background()); err != nil {
		client.Close()
		return nil, err
	}
	return w, nil
}

func (w *Worker) ensureTopic(ctx context.Context) error {
	adm := kadm.NewClient(w.client)
	resp, err := adm.CreateTopic(ctx, 3, 1, nil, w.topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create audit topic %s: %w", w.topic, resp.Err)
	}
	return nil
}

// Run drains the outbox until the context is canceled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				w.logger.Error("outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	for {
		pending, err := w.store.ListUnpublished(ctx, batchSize)
		if err != nil {
			return fmt.Errorf("list unpublished: %w", err)
		}
		if len(pending) == 0 {
			return nil
		}
		for _, msg := range pending {
			record := &kgo.Record{
				Topic: w.topic,
				Key:   []byte(msg.TopicKey),
				Value: msg.Payload,
			}
			if err := w.client.ProduceSync(ctx, record).FirstErr(); err != nil {
				return fmt.Errorf("produce audit event: %w", err)
			}
			if err := w.store.MarkPublished(ctx, msg.ID, time.Now().UTC()); err != nil {
				return fmt.Errorf("mark published: %w", err)
			}
		}
		if len(pending) < batchSize {
			return nil
		}
	}
}

func (w *Worker) Close() {
	w.client.Close()
}
