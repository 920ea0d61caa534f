package metrics

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	Database *DatabaseMetrics

	usersRegistered metric.Int64Counter
	booksListViewed metric.Int64Counter
	booksViewed     metric.Int64Counter
	booksBorrowed   metric.Int64Counter
	booksReturned   metric.Int64Counter
	ratingsCreated  metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.Database, err = NewDatabaseMetrics(meter)
	if err != nil {
		return nil, err
	}

	m.usersRegistered, err = meter.Int64Counter(
		"library_service.users.registered",
		metric.WithDescription("Total number of users registered"),
		metric.WithUnit("{user}"),
	)
	if err != nil {
		return nil, err
	}

	m.booksListViewed, err = meter.Int64Counter(
		"library_service.books.list_viewed",
		metric.WithDescription("Total number of times the book list was viewed"),
		metric.WithUnit("{view}"),
	)
	if err != nil {
		return nil, err
	}

	m.booksViewed, err = meter.Int64Counter(
		"library_service.books.viewed",
		metric.WithDescription("Total number of single-book views"),
		metric.WithUnit("{view}"),
	)
	if err != nil {
		return nil, err
	}

	m.booksBorrowed, err = meter.Int64Counter(
		"library_service.books.borrowed",
		metric.WithDescription("Total number of books borrowed"),
		metric.WithUnit("{loan}"),
	)
	if err != nil {
		return nil, err
	}

	m.booksReturned, err = meter.Int64Counter(
		"library_service.books.returned",
		metric.WithDescription("Total number of books returned"),
		metric.WithUnit("{loan}"),
	)
	if err != nil {
		return nil, err
	}

	m.ratingsCreated, err = meter.Int64Counter(
		"library_service.ratings.created",
		metric.WithDescription("Total number of ratings created"),
		metric.WithUnit("{rating}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordUserRegistered(ctx context.Context) {
	if m != nil && m.usersRegistered != nil {
		m.usersRegistered.Add(ctx, 1)
	}
}

func (m *Metrics) RecordBooksListViewed(ctx context.Context) {
	if m != nil && m.booksListViewed != nil {
		m.booksListViewed.Add(ctx, 1)
	}
}

func (m *Metrics) RecordBookViewed(ctx context.Context) {
	if m != nil && m.booksViewed != nil {
		m.booksViewed.Add(ctx, 1)
	}
}

func (m *Metrics) RecordBookBorrowed(ctx context.Context) {
	if m != nil && m.booksBorrowed != nil {
		m.booksBorrowed.Add(ctx, 1)
	}
}

func (m *Metrics) RecordBookReturned(ctx context.Context) {
	if m != nil && m.booksReturned != nil {
		m.booksReturned.Add(ctx, 1)
	}
}

func (m *Metrics) RecordRatingCreated(ctx context.Context) {
	if m != nil && m.ratingsCreated != nil {
		m.ratingsCreated.Add(ctx, 1)
	}
}

// NewMock creates a no-op Metrics instance for testing
// The returned Metrics will safely ignore all Record* calls
func NewMock() *Metrics {
	return &Metrics{
		Database: &DatabaseMetrics{},
	}
}
