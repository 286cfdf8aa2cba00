package domain

import (
	"fmt"
	"strings"
	"time"
)

// Timeline event statuses
const (
	TimelineCompleted = "completed"
	TimelineCurrent   = "current"
)

// Timeline icons
const (
	IconHarvest    = "harvest"
	IconProcessing = "processing"
	IconDrying     = "drying"
	IconTransport  = "transport"
	IconRoast      = "roast"
	IconRetail     = "retail"
	IconGeneric    = "generic"
)

// EventDetail is one labelled measurement shown on a timeline event
type EventDetail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// TimelineEvent is one consumer-facing entry in a batch's journey timeline
type TimelineEvent struct {
	ID          int           `json:"id"`
	Title       string        `json:"title"`
	Date        string        `json:"date"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Location    string        `json:"location,omitempty"`
	Actor       string        `json:"actor,omitempty"`
	Status      string        `json:"status"`
	Details     []EventDetail `json:"details,omitempty"`
}

// IconForAction picks the timeline icon keyed on markers inside the action
// code. Harvest is checked before retail so that codes carrying both markers
// resolve to the earlier stage.
func IconForAction(action string) string {
	upper := strings.ToUpper(action)
	switch {
	case strings.Contains(upper, "HARVEST"):
		return IconHarvest
	case strings.Contains(upper, "PROCESS"):
		return IconProcessing
	case strings.Contains(upper, "DRY"):
		return IconDrying
	case strings.Contains(upper, "TRANSPORT"):
		return IconTransport
	case strings.Contains(upper, "ROAST"):
		return IconRoast
	case strings.Contains(upper, "RETAIL"):
		return IconRetail
	default:
		return IconGeneric
	}
}

// ProjectJourney renders a batch's journey as a consumer timeline. Every
// journey step becomes one completed event in order, and any non-empty
// journey closes with a synthetic "Ready for You" event that carries the
// current marker. Projection is a pure read; calling it twice yields the
// same timeline.
func ProjectJourney(b *Batch) []TimelineEvent {
	events := make([]TimelineEvent, 0, len(b.Journey)+1)

	for i, step := range b.Journey {
		event := TimelineEvent{
			ID:          i + 1,
			Title:       humanizeAction(step.Action),
			Date:        step.Timestamp.Format("January 2, 2006"),
			Description: describeStep(b, step),
			Icon:        IconForAction(step.Action),
			Location:    step.Location,
			Actor:       step.Actor.Name,
			Status:      TimelineCompleted,
			Details:     stepDetails(step),
		}
		events = append(events, event)
	}

	if len(events) > 0 {
		events = append(events, TimelineEvent{
			ID:          len(events) + 1,
			Title:       "Ready for You",
			Date:        b.UpdatedAt.Format("January 2, 2006"),
			Description: fmt.Sprintf("This %s from %s is now available for you to enjoy.", b.CropType, origin(b)),
			Icon:        IconRetail,
			Status:      TimelineCurrent,
		})
	}

	return events
}

// humanizeAction turns an action code like PROCESSING_STARTED into a title
func humanizeAction(action string) string {
	words := strings.FieldsFunc(action, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, w := range words {
		if len(w) > 1 {
			words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		}
	}
	return strings.Join(words, " ")
}

func describeStep(b *Batch, step JourneyStep) string {
	switch IconForAction(step.Action) {
	case IconHarvest:
		return fmt.Sprintf("Harvested by %s in %s.", b.FarmerName, origin(b))
	case IconProcessing:
		return "The batch entered processing at a local washing station."
	case IconDrying:
		return "The batch was laid out to dry under careful moisture monitoring."
	case IconTransport:
		return "The batch was transported to its next custody point."
	case IconRoast:
		return "The batch was roasted to bring out its character."
	case IconRetail:
		return "The batch arrived at its retail destination."
	default:
		if step.Data != nil && step.Data.Notes != "" {
			return step.Data.Notes
		}
		return fmt.Sprintf("Recorded by %s.", step.Actor.Name)
	}
}

func stepDetails(step JourneyStep) []EventDetail {
	if step.Data == nil {
		return nil
	}
	details := make([]EventDetail, 0, 4)
	if step.Data.NewWeightKg != 0 {
		details = append(details, EventDetail{Label: "Weight", Value: fmt.Sprintf("%.1f kg", step.Data.NewWeightKg)})
	}
	if step.Data.MoistureContent != "" {
		details = append(details, EventDetail{Label: "Moisture", Value: step.Data.MoistureContent})
	}
	if step.Data.CuppingScore != 0 {
		details = append(details, EventDetail{Label: "Cupping Score", Value: fmt.Sprintf("%.1f", step.Data.CuppingScore)})
	}
	if step.Data.Notes != "" {
		details = append(details, EventDetail{Label: "Notes", Value: step.Data.Notes})
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

func origin(b *Batch) string {
	if b.Region != "" {
		return b.Region
	}
	return b.Location
}

// JourneyView is the cacheable wrapper around a projected timeline. The
// GeneratedAt stamp makes staleness observable to callers. Metadata carries
// curated display fields for the batch's asset when the catalog knows it.
type JourneyView struct {
	BatchID     string                 `json:"batchId"`
	Status      BatchStatus            `json:"status"`
	Events      []TimelineEvent        `json:"events"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	GeneratedAt time.Time              `json:"generatedAt"`
}

// NewJourneyView projects a batch and wraps the timeline for serving
func NewJourneyView(b *Batch) *JourneyView {
	return &JourneyView{
		BatchID:     b.BatchID,
		Status:      b.Status,
		Events:      ProjectJourney(b),
		GeneratedAt: time.Now().UTC(),
	}
}
