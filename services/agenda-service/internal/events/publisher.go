// Package events announces agenda changes on Kafka so other calendar views
// can refresh.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/dentanova/libs/kafkax"
	otelx "github.com/md-rashed-zaman/dentanova/libs/otel"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/model"
	"github.com/segmentio/kafka-go"
)

const (
	TypeAppointmentCreated = "agenda.appointment.created.v1"
	TypeAppointmentUpdated = "agenda.appointment.updated.v1"
)

type AppointmentChanged struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Date           string    `json:"date"`
	Time           string    `json:"time"`
	ContactMethods []string  `json:"contact_methods"`
	SavedAt        time.Time `json:"saved_at"`
}

// Writer is the subset of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type queued struct {
	msg   kafka.Message
	trace otelx.TraceContext
}

type Publisher struct {
	logger  *slog.Logger
	brokers []string
	queue   chan queued
	writer  Writer
}

type PublisherConfig struct {
	Brokers   string
	QueueSize int
}

func NewPublisher(logger *slog.Logger, cfg PublisherConfig) *Publisher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	return &Publisher{
		logger:  logger,
		brokers: kafkax.SplitBrokers(cfg.Brokers),
		queue:   make(chan queued, cfg.QueueSize),
	}
}

func (p *Publisher) Enabled() bool {
	return len(p.brokers) > 0 || p.writer != nil
}

// AppointmentSaved enqueues a created or updated event. It never blocks and
// never fails the caller.
func (p *Publisher) AppointmentSaved(ctx context.Context, appt model.Appointment, created bool) {
	eventType := TypeAppointmentUpdated
	if created {
		eventType = TypeAppointmentCreated
	}
	if !p.Enabled() {
		p.logger.Debug("event dropped, publisher disabled", "event_type", eventType, "appointment_id", appt.ID)
		return
	}

	payload, err := json.Marshal(AppointmentChanged{
		ID:             appt.ID,
		Title:          appt.Title(),
		Date:           appt.DateString(),
		Time:           appt.Time,
		ContactMethods: model.ContactMethodStrings(appt.ContactMethods),
		SavedAt:        appt.UpdatedAt,
	})
	if err != nil {
		p.logger.Error("event encode failed", "event_type", eventType, "err", err)
		return
	}

	meta := kafkax.EventMeta{EventID: uuid.NewString(), EventType: eventType}
	item := queued{msg: kafkax.NewMessage(meta, appt.ID, payload), trace: otelx.Capture(ctx)}
	select {
	case p.queue <- item:
	default:
		p.logger.Warn("event queue full, dropping event", "event_type", eventType, "event_id", meta.EventID)
	}
}

// Run drains the queue into Kafka until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	if !p.Enabled() {
		p.logger.Warn("event publisher disabled (no kafka brokers configured)")
		return
	}

	writer := p.writer
	if writer == nil {
		writer = &kafka.Writer{
			Addr:                   kafka.TCP(p.brokers...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		}
	}
	defer writer.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case item := <-p.queue:
			p.send(ctx, writer, item)
		}
	}
}

func (p *Publisher) send(ctx context.Context, writer Writer, item queued) {
	msgCtx := item.trace.Attach(ctx)
	msg := item.msg
	msg.Headers = kafkax.InjectTraceHeaders(msgCtx, msg.Headers)

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := writer.WriteMessages(writeCtx, msg); err != nil {
		p.logger.Error("event publish failed", "event_type", msg.Topic, "err", err)
		return
	}
	p.logger.Debug("event published", "event_type", msg.Topic, "key", string(msg.Key))
}
