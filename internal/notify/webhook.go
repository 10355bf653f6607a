// Package notify delivers run summaries to external systems.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/config"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
	"github.com/go-resty/resty/v2"
)

const eventRunFinished = "run.finished"

// WebhookNotifier posts a JSON summary of every finished run.
type WebhookNotifier struct {
	client *resty.Client
	url    string
}

// NewWebhookNotifier creates a new WebhookNotifier.
func NewWebhookNotifier(cfg config.NotifyConfig) *WebhookNotifier {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("User-Agent", "elt-orchestrator")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	client.SetRetryCount(2)
	client.SetRetryWaitTime(500 * time.Millisecond)

	return &WebhookNotifier{
		client: client,
		url:    cfg.WebhookURL,
	}
}

type unitPayload struct {
	UnitID   string           `json:"unit_id"`
	State    domain.UnitState `json:"state"`
	Attempts int              `json:"attempts"`
	Error    string           `json:"error,omitempty"`
}

type runPayload struct {
	Event              string           `json:"event"`
	RunID              string           `json:"run_id"`
	Bucket             string           `json:"bucket"`
	Status             domain.RunStatus `json:"status"`
	Fatal              bool             `json:"fatal"`
	TotalUnits         int              `json:"total_units"`
	LoadedUnits        int              `json:"loaded_units"`
	SkippedUnits       int              `json:"skipped_units"`
	FailedUnits        int              `json:"failed_units"`
	ArchivedUnits      int              `json:"archived_units"`
	ArchiveFailedUnits int              `json:"archive_failed_units"`
	Error              string           `json:"error,omitempty"`
	StartedAt          time.Time        `json:"started_at"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
	Units              []unitPayload    `json:"units"`
}

// NotifyRun posts the run summary. Any non-2xx response is an error.
func (n *WebhookNotifier) NotifyRun(ctx context.Context, run *domain.RunRecord) error {
	payload := runPayload{
		Event:              eventRunFinished,
		RunID:              run.ID,
		Bucket:             run.Bucket,
		Status:             run.Status,
		Fatal:              run.Status.Fatal(),
		TotalUnits:         run.TotalUnits,
		LoadedUnits:        run.LoadedUnits,
		SkippedUnits:       run.SkippedUnits,
		FailedUnits:        run.FailedUnits,
		ArchivedUnits:      run.ArchivedUnits,
		ArchiveFailedUnits: run.ArchiveFailedUnits,
		Error:              run.ErrorLog,
		StartedAt:          run.StartedAt,
		CompletedAt:        run.CompletedAt,
		Units:              make([]unitPayload, len(run.Units)),
	}
	for i, u := range run.Units {
		payload.Units[i] = unitPayload{
			UnitID:   u.UnitID,
			State:    u.State,
			Attempts: u.Attempts,
			Error:    u.Error,
		}
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to call webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook error: status %d", resp.StatusCode())
	}
	return nil
}
