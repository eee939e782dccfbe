package scheduler

import (
	"sort"

	"github.com/Doppler617492/MagacinTracker-sub000/internal/config"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/apperrors"
	"github.com/Doppler617492/MagacinTracker-sub000/pkg/models"
)

const (
	reasonLowestLoad        = "lowest current load"
	reasonHighestEfficiency = "highest efficiency"
	reasonFastestCompletion = "fastest average completion"
	reasonLowestIdle        = "lowest idle time"
)

// SuggestWorker ranks the candidate workers for a requisition and returns the
// best one. Pure computation over the metrics snapshot: no side effects, and
// the same snapshot always yields the same suggestion (ties break on the
// lower worker id).
func SuggestWorker(req *models.Requisition, metrics []models.WorkerMetrics, weights config.ScoringWeights) (*models.Suggestion, error) {
	if len(metrics) == 0 {
		return nil, &apperrors.NoEligibleWorkerError{Warehouse: req.SourceWarehouse}
	}

	type candidate struct {
		metrics models.WorkerMetrics
		score   float64
		reason  string
	}

	candidates := make([]candidate, 0, len(metrics))
	for _, m := range metrics {
		score, reason := scoreWorker(m, weights)
		candidates = append(candidates, candidate{metrics: m, score: score, reason: reason})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].metrics.WorkerID < candidates[j].metrics.WorkerID
	})

	best := candidates[0]

	return &models.Suggestion{
		RequisitionID: req.ID,
		WorkerID:      best.metrics.WorkerID,
		WorkerName:    best.metrics.WorkerName,
		Score:         best.score,
		Reason:        best.reason,
	}, nil
}

// scoreWorker combines the four metric signals into a weighted score. Load,
// completion time and idle percentage count inversely: less is better. The
// returned reason names the dominant component so the suggestion is auditable.
func scoreWorker(m models.WorkerMetrics, w config.ScoringWeights) (float64, string) {
	components := []struct {
		value  float64
		reason string
	}{
		{w.Load / (1 + float64(m.OpenTaskCount)), reasonLowestLoad},
		{w.Efficiency * m.EfficiencyScore, reasonHighestEfficiency},
		{w.CompletionTime / (1 + m.AvgCompletionMinutes), reasonFastestCompletion},
		{w.Idle / (1 + m.IdlePercent), reasonLowestIdle},
	}

	total := 0.0
	dominant := components[0]
	for _, c := range components {
		total += c.value
		if c.value > dominant.value {
			dominant = c
		}
	}

	return total, dominant.reason
}
