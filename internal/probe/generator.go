package probe

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/showctl/pkg/logger"
)

// generateEvents builds n probe events tagged with a fresh run id so they
// can be told apart from real traffic at the measurement endpoint.
func generateEvents(ctx context.Context, n int, stats *Stats) (runID string, events []Event) {
	runID = uuid.NewString()
	now := time.Now().UTC()

	events = make([]Event, n)
	for i := range n {
		events[i] = Event{
			Name: EventName,
			TS:   now.Add(time.Duration(i) * time.Millisecond).Format(time.RFC3339),
			Parameters: map[string]string{
				"run_id": runID,
				"seq":    strconv.Itoa(i),
			},
		}
	}
	stats.EventsGenerated = n

	logger.Get().Info(ctx, "events generated",
		logger.Int("count", n),
		logger.String("run_id", runID))
	return runID, events
}
