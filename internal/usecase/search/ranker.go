package search

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventscope/internal/domain"
	"github.com/kailas-cloud/eventscope/internal/domain/geo"
	"github.com/kailas-cloud/eventscope/internal/metrics"
)

// Request is a single retrieval query.
type Request struct {
	Query       string              `json:"query"`
	Filters     domain.Filters      `json:"filters"`
	Preferences domain.Preferences  `json:"preferences"`
	Location    *domain.Coordinates `json:"location,omitempty"`
	RadiusKm    float64             `json:"radiusKm,omitempty"`
	Limit       int                 `json:"limit,omitempty"`
}

// Config bounds the ranking pipeline.
type Config struct {
	ResultCap       int
	MaxResultCap    int
	DefaultRadiusKm float64
	MaxRadiusKm     float64
	SemanticTimeout time.Duration
	SemanticTopK    int
}

// Ranker turns a candidate set into an ordered result list: hard filters,
// keyword scoring, optional semantic scoring, score fusion, preference
// re-rank. Semantic scoring is best-effort; any failure downgrades the search
// to keyword-only instead of erroring.
type Ranker struct {
	cfg      Config
	embedder domain.Embedder
	index    domain.VectorIndex
	logger   *zap.Logger
}

// NewRanker creates a Ranker. embedder and index may be nil to disable
// semantic scoring entirely.
func NewRanker(cfg Config, embedder domain.Embedder, index domain.VectorIndex, logger *zap.Logger) *Ranker {
	return &Ranker{cfg: cfg, embedder: embedder, index: index, logger: logger}
}

// Rank filters, scores and orders candidates for the request.
func (r *Ranker) Rank(ctx context.Context, req Request, candidates []domain.Event) []domain.RankedEvent {
	limit := r.effectiveLimit(req.Limit)
	radius := r.effectiveRadius(req.RadiusKm)

	ranked := r.applyFilters(req, radius, candidates)
	if len(ranked) == 0 {
		return []domain.RankedEvent{}
	}

	tokens := queryTokens(req.Query)
	for i := range ranked {
		ranked[i].KeywordScore = keywordScore(tokens, ranked[i].Event)
	}

	r.applySemantic(ctx, req.Query, ranked)

	for i := range ranked {
		base := ranked[i].KeywordScore
		if ranked[i].HasSemantic {
			base = (ranked[i].KeywordScore + ranked[i].SemanticScore) / 2
		}
		ranked[i].PreferenceScore = preferenceScore(req.Preferences, ranked[i].Event)
		ranked[i].TotalScore = base + ranked[i].PreferenceScore
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalScore != ranked[j].TotalScore {
			return ranked[i].TotalScore > ranked[j].TotalScore
		}
		di, dj := tieDistance(ranked[i]), tieDistance(ranked[j])
		if di != dj {
			return di < dj
		}
		return ranked[i].Event.StartTime.Before(ranked[j].Event.StartTime)
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func (r *Ranker) effectiveLimit(requested int) int {
	limit := requested
	if limit <= 0 {
		limit = r.cfg.ResultCap
	}
	if r.cfg.MaxResultCap > 0 && limit > r.cfg.MaxResultCap {
		limit = r.cfg.MaxResultCap
	}
	return limit
}

func (r *Ranker) effectiveRadius(requested float64) float64 {
	radius := requested
	if radius <= 0 {
		radius = r.cfg.DefaultRadiusKm
	}
	if r.cfg.MaxRadiusKm > 0 && radius > r.cfg.MaxRadiusKm {
		radius = r.cfg.MaxRadiusKm
	}
	return radius
}

// applyFilters drops candidates failing any hard constraint and records the
// distance to the request location for the survivors.
func (r *Ranker) applyFilters(req Request, radius float64, candidates []domain.Event) []domain.RankedEvent {
	f := req.Filters
	out := make([]domain.RankedEvent, 0, len(candidates))

	for _, ev := range candidates {
		if ev.Status != domain.StatusApproved {
			continue
		}
		if len(f.Categories) > 0 && !containsCategory(f.Categories, ev.Category) {
			continue
		}
		if f.StartAfter != nil && ev.StartTime.Before(*f.StartAfter) {
			continue
		}
		if f.EndBefore != nil && ev.StartTime.After(*f.EndBefore) {
			continue
		}
		if f.MaxPrice != nil && ev.Price > *f.MaxPrice {
			continue
		}

		dist := -1.0
		if req.Location != nil && req.Location.Valid() {
			if ev.Coordinates == nil || !ev.Coordinates.Valid() {
				continue
			}
			dist = geo.DistanceKm(
				req.Location.Latitude, req.Location.Longitude,
				ev.Coordinates.Latitude, ev.Coordinates.Longitude,
			)
			if dist > radius {
				continue
			}
		}

		out = append(out, domain.RankedEvent{Event: ev, DistanceKm: dist})
	}
	return out
}

// applySemantic embeds the query and scores the filtered candidates from
// nearest-neighbor distances. Never fails the search.
func (r *Ranker) applySemantic(ctx context.Context, query string, ranked []domain.RankedEvent) {
	if r.embedder == nil || r.index == nil {
		metrics.SearchDegradedTotal.WithLabelValues("disabled").Inc()
		return
	}
	if query == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.SemanticTimeout)
	defer cancel()

	emb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.degrade(ctx, "embed_error", err)
		return
	}

	topK := r.cfg.SemanticTopK
	if topK < len(ranked) {
		topK = len(ranked)
	}
	neighbors, err := r.index.Query(ctx, emb.Embedding, topK)
	if err != nil {
		r.degrade(ctx, "index_error", err)
		return
	}

	// Scores outside the filtered candidate set are discarded.
	scores := make(map[string]float64, len(neighbors))
	for _, n := range neighbors {
		s := 1 - n.Distance
		if s < 0 {
			s = 0
		}
		scores[n.ID] = s
	}
	for i := range ranked {
		if s, ok := scores[ranked[i].Event.ID]; ok {
			ranked[i].SemanticScore = s
			ranked[i].HasSemantic = true
		}
	}
}

func (r *Ranker) degrade(ctx context.Context, reason string, err error) {
	if ctx.Err() != nil {
		reason = "deadline"
	}
	metrics.SearchDegradedTotal.WithLabelValues(reason).Inc()
	r.logger.Warn("Semantic scoring unavailable, keyword-only results",
		zap.String("reason", reason),
		zap.Error(err),
	)
}

func tieDistance(re domain.RankedEvent) float64 {
	if re.DistanceKm < 0 {
		return maxTieDistance
	}
	return re.DistanceKm
}

// maxTieDistance sorts events with unknown distance after geolocated ones.
const maxTieDistance = 1 << 20

func containsCategory(set []domain.Category, c domain.Category) bool {
	for _, s := range set {
		if s == c {
			return true
		}
	}
	return false
}
