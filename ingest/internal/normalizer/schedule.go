package normalizer

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/accounting"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/canonical"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/skus"
	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/transform"
)

// CourseRun is one entry of the course calendar feed.
type CourseRun struct {
	ID       json.Number `json:"id"`
	Sku      string      `json:"sku"`
	Title    string      `json:"title,omitempty"`
	Start    string      `json:"start"`
	End      string      `json:"end,omitempty"`
	Location string      `json:"location,omitempty"`
	Capacity int         `json:"capacity,omitempty"`
	Status   string      `json:"status,omitempty"`
}

// Schedule normalizes course calendar entries.
type Schedule struct {
	transform.Transformer[model.Envelope, canonical.Record]
	trainers *skus.Resolver
}

// NewSchedule creates the course calendar normalizer.
func NewSchedule(trainers *skus.Resolver) *Schedule {
	s := &Schedule{trainers: trainers}
	s.Transformer = transform.Each(s.normalize)
	return s
}

func (s *Schedule) Source() string { return SourceSchedule }

func (s *Schedule) normalize(_ context.Context, env model.Envelope) ([]canonical.Record, error) {
	var run CourseRun
	if err := json.Unmarshal([]byte(env.Payload), &run); err != nil {
		return nil, malformed(SourceSchedule, "decode course run: %v", err)
	}

	runID := firstNonEmpty(run.ID.String(), env.ExternalID)
	if runID == "" {
		return nil, malformed(SourceSchedule, "missing id")
	}
	if strings.TrimSpace(run.Sku) == "" {
		return nil, malformed(SourceSchedule, "course run %s: missing sku", runID)
	}
	if run.Start == "" {
		return nil, malformed(SourceSchedule, "course run %s: missing start", runID)
	}

	start, err := accounting.ParseDate(run.Start)
	if err != nil {
		return nil, malformed(SourceSchedule, "course run %s start: %v", runID, err)
	}
	end := start
	if run.End != "" {
		if end, err = accounting.ParseDate(run.End); err != nil {
			return nil, malformed(SourceSchedule, "course run %s end: %v", runID, err)
		}
	}

	status := strings.ToLower(strings.TrimSpace(run.Status))
	if status == "" {
		status = "scheduled"
	}
	trainer, _ := s.trainers.FromSku(run.Sku)

	return []canonical.Record{canonical.CourseSchedule{
		ID:         canonical.NewID(canonical.KindCourseSchedule, SourceSchedule, runID),
		Source:     SourceSchedule,
		ExternalID: runID,
		Sku:        run.Sku,
		CourseCode: skus.CourseCode(run.Sku),
		Title:      run.Title,
		Trainer:    trainer,
		Start:      start,
		End:        end,
		Location:   run.Location,
		Capacity:   run.Capacity,
		Status:     status,
	}}, nil
}
