package domain

import (
	"fmt"
	"strings"
	"time"
)

// ActionHarvested is the action recorded for the initial journey step
const ActionHarvested = "HARVESTED"

// Status markers recognized inside action codes. Any action containing one of
// these substrings advances the batch to the corresponding stage.
const (
	markerProcessing = "PROCESSING"
	markerExport     = "EXPORT"
	markerRetail     = "RETAIL"
)

// ClassifyAction maps an action code to the lifecycle stage it implies.
// The second return value is false for actions that carry no stage marker;
// such actions are still recorded but leave the status untouched.
func ClassifyAction(action string) (BatchStatus, bool) {
	upper := strings.ToUpper(action)
	switch {
	case strings.Contains(upper, markerProcessing):
		return StatusProcessing, true
	case strings.Contains(upper, markerExport):
		return StatusExported, true
	case strings.Contains(upper, markerRetail):
		return StatusRetail, true
	default:
		return "", false
	}
}

// DeriveStatus folds a journey into the lifecycle stage it implies, starting
// from harvested. Stage markers only ever move the result forward.
func DeriveStatus(journey []JourneyStep) BatchStatus {
	status := StatusHarvested
	for _, step := range journey {
		if implied, ok := ClassifyAction(step.Action); ok && implied.Rank() > status.Rank() {
			status = implied
		}
	}
	return status
}

// UpdateInput carries one custody update to be appended to a batch
type UpdateInput struct {
	Action          string
	Timestamp       time.Time
	ActorID         string
	ActorName       string
	Location        string
	NewWeightKg     float64
	MoistureContent string
	CuppingScore    float64
	Grade           string
	Notes           string
	// Strict rejects updates whose action implies an earlier stage than the
	// batch already holds, instead of silently keeping the current status.
	Strict bool
}

// StepPlan is the validated outcome of planning one update against a batch.
// It is applied to the aggregate with Batch.ApplyPlan.
type StepPlan struct {
	Step          JourneyStep
	NewStatus     BatchStatus
	StatusChanged bool
	Recognized    bool
	Grade         string
}

// Engine plans custody updates against the transition rules. The zero value
// is not usable; construct with NewEngine.
type Engine struct {
	weightTolerance float64
}

// NewEngine creates a transition engine. A non-positive tolerance falls back
// to the default.
func NewEngine(weightTolerance float64) *Engine {
	if weightTolerance <= 0 {
		weightTolerance = DefaultWeightTolerance
	}
	return &Engine{weightTolerance: weightTolerance}
}

// WeightTolerance returns the configured weight tolerance
func (e *Engine) WeightTolerance() float64 {
	return e.weightTolerance
}

// Plan validates one update against the batch's current state and returns the
// step to append. The batch is not mutated.
func (e *Engine) Plan(b *Batch, in UpdateInput) (*StepPlan, error) {
	if strings.TrimSpace(in.Action) == "" {
		return nil, ErrEmptyAction
	}

	timestamp := in.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	if last := b.LastStep(); timestamp.Before(last.Timestamp) {
		return nil, fmt.Errorf("%w: %s is before last step at %s",
			ErrOutOfOrderStep, timestamp.Format(time.RFC3339), last.Timestamp.Format(time.RFC3339))
	}

	if in.NewWeightKg < 0 {
		return nil, fmt.Errorf("%w: weight must not be negative", ErrWeightOutOfRange)
	}
	if in.NewWeightKg != 0 {
		ceiling := b.InitialWeightKg * (1 + e.weightTolerance)
		if in.NewWeightKg > ceiling {
			return nil, fmt.Errorf("%w: %.2fkg exceeds ceiling %.2fkg", ErrWeightOutOfRange, in.NewWeightKg, ceiling)
		}
	}
	if in.CuppingScore < 0 || in.CuppingScore > 100 {
		return nil, fmt.Errorf("invalid cupping score %.2f", in.CuppingScore)
	}

	newStatus := b.Status
	implied, recognized := ClassifyAction(in.Action)
	if recognized {
		if implied.Rank() > b.Status.Rank() {
			newStatus = implied
		} else if implied.Rank() < b.Status.Rank() && in.Strict {
			return nil, fmt.Errorf("%w: action %s implies %s but batch is %s",
				ErrStatusRegression, in.Action, implied, b.Status)
		}
	}

	step := JourneyStep{
		Action:    strings.ToUpper(strings.TrimSpace(in.Action)),
		Timestamp: timestamp,
		Actor:     Actor{ID: in.ActorID, Name: in.ActorName},
		Location:  in.Location,
	}
	data := StepData{
		NewWeightKg:     in.NewWeightKg,
		MoistureContent: in.MoistureContent,
		CuppingScore:    in.CuppingScore,
		Notes:           in.Notes,
	}
	if !data.IsZero() {
		step.Data = &data
	}

	return &StepPlan{
		Step:          step,
		NewStatus:     newStatus,
		StatusChanged: newStatus != b.Status,
		Recognized:    recognized,
		Grade:         in.Grade,
	}, nil
}
