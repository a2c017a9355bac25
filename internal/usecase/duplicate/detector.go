package duplicate

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventscope/internal/domain"
	"github.com/kailas-cloud/eventscope/internal/domain/geo"
	"github.com/kailas-cloud/eventscope/internal/domain/textsim"
	"github.com/kailas-cloud/eventscope/internal/metrics"
)

// Score weights. Title and description carry most of the signal; geography
// and timing act as tie-breakers for events that read alike.
const (
	titleWeight       = 0.4
	descriptionWeight = 0.4
	geoWeight         = 0.1
	timeWeight        = 0.1

	// geoDecayKm is the distance at which the proximity component reaches zero.
	geoDecayKm = 10.0
	// timeWindow is the start-time delta inside which events count as co-scheduled.
	timeWindow = 2 * time.Hour
)

// Config holds the decision thresholds for duplicate detection.
type Config struct {
	// CandidateThreshold is the minimum combined score for an existing event
	// to be reported as a likely duplicate.
	CandidateThreshold float64
	// AutoRejectThreshold marks a submission as a near-certain duplicate.
	AutoRejectThreshold float64
}

// Outcome classifies a scan for metrics and status decisions.
type Outcome string

const (
	OutcomeClean      Outcome = "clean"
	OutcomeCandidates Outcome = "candidates"
	OutcomeAutoReject Outcome = "auto_reject"
)

// Detector scores a submission against candidate events.
type Detector struct {
	cfg    Config
	logger *zap.Logger
}

// NewDetector creates a Detector.
func NewDetector(cfg Config, logger *zap.Logger) *Detector {
	return &Detector{cfg: cfg, logger: logger}
}

// Detect compares the submission against each candidate and returns the ones
// scoring at or above the candidate threshold, highest first. Candidates with
// missing or invalid coordinates simply contribute nothing through the
// proximity component; they are never skipped.
func (d *Detector) Detect(
	ctx context.Context, submission domain.Event, candidates []domain.Event,
) ([]domain.SimilarityResult, Outcome) {
	results := make([]domain.SimilarityResult, 0, len(candidates))

	for _, cand := range candidates {
		if ctx.Err() != nil {
			break
		}
		if cand.ID == submission.ID {
			continue
		}
		res := d.score(submission, cand)
		if res.CombinedScore > d.cfg.CandidateThreshold {
			results = append(results, res)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].CombinedScore != results[j].CombinedScore {
			return results[i].CombinedScore > results[j].CombinedScore
		}
		return results[i].CandidateID < results[j].CandidateID
	})

	outcome := OutcomeClean
	if len(results) > 0 {
		outcome = OutcomeCandidates
		if results[0].CombinedScore >= d.cfg.AutoRejectThreshold {
			outcome = OutcomeAutoReject
		}
	}
	metrics.DuplicateScansTotal.WithLabelValues(string(outcome)).Inc()

	if outcome != OutcomeClean {
		d.logger.Info("Duplicate candidates found",
			zap.String("event_id", submission.ID),
			zap.Int("candidates", len(results)),
			zap.Float64("top_score", results[0].CombinedScore),
			zap.String("outcome", string(outcome)),
		)
	}

	return results, outcome
}

func (d *Detector) score(a, b domain.Event) domain.SimilarityResult {
	titleSim := textsim.Similarity(a.Title, b.Title)
	descSim := textsim.Similarity(a.Description, b.Description)

	res := domain.SimilarityResult{
		CandidateID:           b.ID,
		TitleSimilarity:       titleSim,
		DescriptionSimilarity: descSim,
		GeoDistanceKm:         -1,
	}

	var geoComponent float64
	if a.Coordinates != nil && b.Coordinates != nil &&
		a.Coordinates.Valid() && b.Coordinates.Valid() {
		dist := geo.DistanceKm(
			a.Coordinates.Latitude, a.Coordinates.Longitude,
			b.Coordinates.Latitude, b.Coordinates.Longitude,
		)
		res.GeoDistanceKm = dist
		geoComponent = math.Max(0, 1-dist/geoDecayKm)
	}

	var timeComponent float64
	if !a.StartTime.IsZero() && !b.StartTime.IsZero() {
		delta := a.StartTime.Sub(b.StartTime)
		if delta < 0 {
			delta = -delta
		}
		res.TimeDeltaMs = delta.Milliseconds()
		if delta <= timeWindow {
			timeComponent = 1
		}
	}

	res.CombinedScore = titleWeight*titleSim +
		descriptionWeight*descSim +
		geoWeight*geoComponent +
		timeWeight*timeComponent
	return res
}
