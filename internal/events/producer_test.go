package events_test

import (
	"testing"
	"time"

	"library-service/internal/events"

	"github.com/stretchr/testify/assert"
)

// A nil producer stands in for "NATS not configured"; publishing and closing
// must both be safe no-ops.
func TestProducer_NilSafe(t *testing.T) {
	var p *events.Producer

	assert.NotPanics(t, func() {
		p.Publish(events.LoanEvent{
			Event:      events.EventBookBorrowed,
			LoanID:     1,
			BookID:     2,
			UserID:     3,
			OccurredAt: time.Now(),
		})
	})
	assert.NoError(t, p.Close())
}
