package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-timetable-api/internal/models"
	"github.com/noah-isme/academic-timetable-api/pkg/jobs"
)

// BookingEventType labels a booking change.
type BookingEventType string

const (
	BookingEventCreated BookingEventType = "booking.created"
	BookingEventUpdated BookingEventType = "booking.updated"
	BookingEventDeleted BookingEventType = "booking.deleted"
	BookingEventBulk    BookingEventType = "booking.bulk_scheduled"
)

const bookingViewPattern = "timetable:bookings:*"

// BookingEvent is emitted after a booking write commits.
type BookingEvent struct {
	Type       BookingEventType   `json:"type"`
	Kind       models.BookingKind `json:"kind,omitempty"`
	BookingIDs []string           `json:"booking_ids"`
	RunID      string             `json:"run_id,omitempty"`
	RequestID  string             `json:"request_id,omitempty"`
	At         time.Time          `json:"at"`
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

type bookingEventRecorder interface {
	RecordBookingEvent(eventType string, failed bool)
}

// BookingEventPublisher drains booking events on a worker queue and invalidates cached timetable views.
type BookingEventPublisher struct {
	queue   *jobs.Queue[BookingEvent]
	cache   cacheInvalidator
	metrics bookingEventRecorder
	logger  *zap.Logger
}

// NewBookingEventPublisher builds the publisher and its backing queue.
func NewBookingEventPublisher(cache cacheInvalidator, metrics bookingEventRecorder, logger *zap.Logger, cfg jobs.QueueConfig) *BookingEventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Logger = logger
	p := &BookingEventPublisher{cache: cache, metrics: metrics, logger: logger}
	p.queue = jobs.NewQueue[BookingEvent]("booking-events", p.handle, cfg)
	return p
}

// Start launches the queue workers.
func (p *BookingEventPublisher) Start(ctx context.Context) {
	p.queue.Start(ctx)
}

// Stop halts the workers and applies events still buffered, so no cached view outlives
// the bookings it was built from.
func (p *BookingEventPublisher) Stop() {
	p.queue.Stop()
}

// Publish hands the event to the queue. A rejected event is logged, never surfaced to the caller.
func (p *BookingEventPublisher) Publish(event BookingEvent) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	if err := p.queue.Enqueue(jobs.Job[BookingEvent]{ID: uuid.NewString(), Payload: event}); err != nil {
		p.logger.Warn("booking event dropped", zap.String("type", string(event.Type)), zap.Error(err))
		if p.metrics != nil {
			p.metrics.RecordBookingEvent(string(event.Type), true)
		}
	}
}

func (p *BookingEventPublisher) handle(ctx context.Context, job jobs.Job[BookingEvent]) error {
	event := job.Payload
	if p.cache != nil {
		if err := p.cache.Invalidate(ctx, bookingViewPattern); err != nil {
			if p.metrics != nil {
				p.metrics.RecordBookingEvent(string(event.Type), true)
			}
			return err
		}
	}
	if p.metrics != nil {
		p.metrics.RecordBookingEvent(string(event.Type), false)
	}
	p.logger.Info("booking event",
		zap.String("type", string(event.Type)),
		zap.String("kind", string(event.Kind)),
		zap.Strings("booking_ids", event.BookingIDs),
		zap.String("run_id", event.RunID),
		zap.String("request_id", event.RequestID),
		zap.Int("attempt", job.Attempt),
	)
	return nil
}
