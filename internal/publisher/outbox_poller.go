package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/pkg/metrics"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "lux-clothing-events"

// ErrPermanent marks a handler failure that no retry can fix. The event is
// closed with the error recorded instead of being retried.
var ErrPermanent = errors.New("permanent outbox failure")

type EventStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	MarkEventFailed(ctx context.Context, id int64, reason string) error
	MarkEventDead(ctx context.Context, id int64, reason string) error
}

// MessageWriter is the subset of *kafka.Writer the poller needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Expirer expires payments whose session is older than validity.
type Expirer interface {
	ExpireStale(ctx context.Context, validity time.Duration) ([]*domain.Payment, error)
}

// Handler runs a side effect for an event before it is published. A failing
// handler leaves the event unprocessed for the next tick unless the error
// wraps ErrPermanent.
type Handler func(ctx context.Context, event *domain.OutboxEvent) error

type Options struct {
	EventTick       time.Duration
	RecoveryTick    time.Duration
	SessionValidity time.Duration
	BatchSize       int
	// MaxAttempts closes an event after that many failures. Zero retries forever.
	MaxAttempts int
}

func DefaultOptions() Options {
	return Options{
		EventTick:       time.Second,
		RecoveryTick:    time.Minute,
		SessionValidity: 24 * time.Hour,
		BatchSize:       100,
		MaxAttempts:     20,
	}
}

type OutboxPoller struct {
	opts     Options
	repo     EventStore
	writer   MessageWriter
	expirer  Expirer
	handlers map[string]Handler
	metrics  *metrics.OutboxMetrics
	log      *slog.Logger
}

// NewOutboxPoller builds a poller. A nil writer disables Kafka publishing;
// handlers still run and events are still marked processed.
func NewOutboxPoller(repo EventStore, writer MessageWriter, expirer Expirer, m *metrics.OutboxMetrics, log *slog.Logger, opts Options) *OutboxPoller {
	return &OutboxPoller{
		opts:     opts,
		repo:     repo,
		writer:   writer,
		expirer:  expirer,
		handlers: make(map[string]Handler),
		metrics:  m,
		log:      log.With("component", "outbox"),
	}
}

// Handle registers h for eventType. Call before Run.
func (p *OutboxPoller) Handle(eventType string, h Handler) {
	p.handlers[eventType] = h
}

// NewKafkaWriter returns a writer that keeps all events of one aggregate on
// one partition.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.opts.EventTick)
	recoveryTicker := time.NewTicker(p.opts.RecoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.expireStaleSessions(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.opts.BatchSize)
	if err != nil {
		p.log.ErrorContext(ctx, "failed to fetch outbox events", "error", err)
		return
	}

	for _, event := range events {
		if err := p.process(ctx, event); err != nil {
			p.fail(ctx, event, err)
			continue
		}

		if errMark := p.repo.MarkEventAsProcessed(ctx, event.ID); errMark != nil {
			p.log.ErrorContext(ctx, "failed to mark outbox event as processed", "event_id", event.ID, "error", errMark)
			continue
		}
		p.metrics.Published.WithLabelValues(event.EventType).Inc()
	}
}

func (p *OutboxPoller) fail(ctx context.Context, event *domain.OutboxEvent, err error) {
	attempts := event.Attempts + 1
	if errors.Is(err, ErrPermanent) || (p.opts.MaxAttempts > 0 && attempts >= p.opts.MaxAttempts) {
		p.metrics.Dead.WithLabelValues(event.EventType).Inc()
		p.log.ErrorContext(ctx, "outbox event abandoned",
			"event_id", event.ID, "event_type", event.EventType, "attempts", attempts, "error", err)
		if errMark := p.repo.MarkEventDead(ctx, event.ID, err.Error()); errMark != nil {
			p.log.ErrorContext(ctx, "failed to close outbox event", "event_id", event.ID, "error", errMark)
		}
		return
	}

	p.metrics.Failed.WithLabelValues(event.EventType).Inc()
	p.log.WarnContext(ctx, "outbox event failed",
		"event_id", event.ID, "event_type", event.EventType, "attempts", attempts, "error", err)
	if errMark := p.repo.MarkEventFailed(ctx, event.ID, err.Error()); errMark != nil {
		p.log.ErrorContext(ctx, "failed to record outbox failure", "event_id", event.ID, "error", errMark)
	}
}

func (p *OutboxPoller) process(ctx context.Context, event *domain.OutboxEvent) error {
	if h, ok := p.handlers[event.EventType]; ok {
		if err := h(ctx, event); err != nil {
			return fmt.Errorf("handle %s: %w", event.EventType, err)
		}
	}
	if p.writer == nil {
		return nil
	}
	if err := p.publishToKafka(ctx, event); err != nil {
		return fmt.Errorf("publish %s: %w", event.EventType, err)
	}
	return nil
}

func (p *OutboxPoller) expireStaleSessions(ctx context.Context) {
	expired, err := p.expirer.ExpireStale(ctx, p.opts.SessionValidity)
	if err != nil {
		p.log.ErrorContext(ctx, "failed to expire stale payment sessions", "error", err)
		return
	}
	p.metrics.Expired.Add(float64(len(expired)))
	for _, payment := range expired {
		p.log.InfoContext(ctx, "payment session expired",
			"payment_id", payment.ID, "order_id", payment.OrderID, "session_id", payment.SessionID)
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *domain.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id keeps per-order ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
		Time: event.CreatedAt,
	}
	return p.writer.WriteMessages(ctx, msg)
}
