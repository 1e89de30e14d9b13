package attendee

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/teemow/odoocal/internal/calendar"
	"github.com/teemow/odoocal/internal/instrumentation"
)

// rowColumns is the number of columns of a detail row
const rowColumns = 4

// Tag is one attendee of the many2many tag widget
type Tag struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status"`
	Color       int    `json:"color"`
}

// Source returns the detail rows of partners for an event
type Source interface {
	AttendeeDetails(ctx context.Context, partnerIDs []int64, recordID *int64) ([]calendar.AttendeeRow, error)
}

// Renderer fetches attendee tags. It keeps no state between calls.
type Renderer struct {
	source Source
}

// NewRenderer creates a Renderer.
func NewRenderer(source Source) *Renderer {
	return &Renderer{source: source}
}

// Tags returns one tag per row of a single get_attendee_detail call.
// recordID is nil for an event that is not saved yet.
func (r *Renderer) Tags(ctx context.Context, partnerIDs []int64, recordID *int64) ([]Tag, error) {
	ctx, span := instrumentation.StartSpan(ctx, "attendee.tags")
	defer span.End()

	rows, err := r.source.AttendeeDetails(ctx, partnerIDs, recordID)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	tags := make([]Tag, 0, len(rows))
	for i, row := range rows {
		tag, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("invalid attendee row %d: %w", i, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func decodeRow(row calendar.AttendeeRow) (Tag, error) {
	if len(row) < rowColumns {
		return Tag{}, fmt.Errorf("expected %d columns, got %d", rowColumns, len(row))
	}

	var t Tag
	if err := json.Unmarshal(row[0], &t.ID); err != nil {
		return Tag{}, fmt.Errorf("id: %w", err)
	}
	if err := json.Unmarshal(row[1], &t.DisplayName); err != nil {
		return Tag{}, fmt.Errorf("display_name: %w", err)
	}
	if err := unmarshalOptional(row[2], &t.Status); err != nil {
		return Tag{}, fmt.Errorf("status: %w", err)
	}
	if err := unmarshalOptional(row[3], &t.Color); err != nil {
		return Tag{}, fmt.Errorf("color: %w", err)
	}
	return t, nil
}

// unmarshalOptional leaves dst untouched for an unset (false) value
func unmarshalOptional(raw json.RawMessage, dst any) error {
	if string(raw) == "false" || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
