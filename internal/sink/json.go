package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// JSONSink writes all events as one JSON document.
type JSONSink struct {
	out output
	now func() time.Time
}

type jsonDocument struct {
	GeneratedAt time.Time `json:"generated_at"`
	TimeZone    string    `json:"time_zone,omitempty"`
	Events      []Event   `json:"events"`
}

// Publish writes the document. An empty batch still produces a document.
func (s *JSONSink) Publish(ctx context.Context, events []Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if events == nil {
		events = []Event{}
	}
	doc := jsonDocument{GeneratedAt: s.now().UTC(), Events: events}
	if len(events) > 0 {
		doc.TimeZone = events[0].TimeZone
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	return s.out.write(append(data, '\n'))
}
