package events

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// LoanEvent is published whenever a book is borrowed or returned.
type LoanEvent struct {
	Event      string    `json:"event"`
	LoanID     int       `json:"loan_id"`
	BookID     int       `json:"book_id"`
	UserID     int       `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RatingEvent is published when a user rates a book.
type RatingEvent struct {
	Event      string    `json:"event"`
	BookID     int       `json:"book_id"`
	UserID     int       `json:"user_id"`
	Rating     int       `json:"rating"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	EventBookBorrowed  = "book.borrowed"
	EventBookReturned  = "book.returned"
	EventRatingCreated = "rating.created"
)

type Producer struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

func NewProducer(url string, subject string, logger *slog.Logger) (*Producer, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}

	logger.Info("NATS producer initialized", "url", url, "subject", subject)

	return &Producer{
		conn:    nc,
		subject: subject,
		logger:  logger,
	}, nil
}

// Publish is best effort; the producer may be nil when NATS is not
// configured, and a publish failure never fails the request.
func (p *Producer) Publish(event interface{}) {
	if p == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal event", "error", err)
		return
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.logger.Error("failed to publish event", "error", err)
		return
	}

	p.logger.Info("event published", "subject", p.subject)
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	p.conn.Close()
	return nil
}
