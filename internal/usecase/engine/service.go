package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/eventscope/internal/domain"
	"github.com/kailas-cloud/eventscope/internal/usecase/duplicate"
	"github.com/kailas-cloud/eventscope/internal/usecase/moderation"
	"github.com/kailas-cloud/eventscope/internal/usecase/search"
)

// candidateWindow bounds how far around the submission's start time the
// duplicate scan looks. Co-located near-duplicates further apart than this
// are treated as separate events.
const candidateWindow = 7 * 24 * time.Hour

// Service is the engine facade joining duplicate detection, moderation and
// retrieval over a shared event store.
type Service struct {
	store      EventStore
	detector   *duplicate.Detector
	moderation *moderation.Scorer
	ranker     *search.Ranker
	maintainer IndexMaintainer
	logger     *zap.Logger
}

// New creates a Service. maintainer may be nil when index maintenance is
// handled elsewhere.
func New(
	store EventStore,
	detector *duplicate.Detector,
	scorer *moderation.Scorer,
	ranker *search.Ranker,
	maintainer IndexMaintainer,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:      store,
		detector:   detector,
		moderation: scorer,
		ranker:     ranker,
		maintainer: maintainer,
		logger:     logger,
	}
}

// EvaluateSubmission scores a submitted event for duplicates and policy risk,
// then persists it with the recommended status and projected flags. Provider
// degradation never fails the call; only validation and store errors do.
func (s *Service) EvaluateSubmission(ctx context.Context, ev domain.Event) (domain.Evaluation, error) {
	if err := ev.Validate(); err != nil {
		return domain.Evaluation{}, err
	}

	candidates, err := s.duplicateCandidates(ctx, ev)
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("load duplicate candidates: %w", err)
	}

	var (
		dups    []domain.SimilarityResult
		outcome duplicate.Outcome
		verdict domain.ModerationResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dups, outcome = s.detector.Detect(gctx, ev, candidates)
		return nil
	})
	g.Go(func() error {
		verdict = s.moderation.Score(gctx, ev.Title, ev.Description)
		return nil
	})
	// Both branches are infallible; Wait only propagates ctx cancellation.
	if err := g.Wait(); err != nil {
		return domain.Evaluation{}, err
	}

	eval := domain.Evaluation{
		Duplicates:        dups,
		Moderation:        verdict,
		RecommendedStatus: recommendStatus(outcome, verdict),
	}

	ev.Status = eval.RecommendedStatus
	ev.AIFlags = eval.Flags()
	stored, err := s.store.Save(ctx, ev)
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("persist evaluation: %w", err)
	}
	eval.Event = stored

	s.logger.Info("Submission evaluated",
		zap.String("event_id", stored.ID),
		zap.Int("duplicates", len(dups)),
		zap.Float64("risk_score", verdict.RiskScore),
		zap.String("recommended_status", string(eval.RecommendedStatus)),
	)
	return eval, nil
}

// Search gathers approved candidates from the store and ranks them.
func (s *Service) Search(ctx context.Context, req search.Request) ([]domain.RankedEvent, error) {
	filter := domain.EventFilter{
		Status:     domain.StatusApproved,
		Categories: req.Filters.Categories,
		StartAfter: req.Filters.StartAfter,
		EndBefore:  req.Filters.EndBefore,
	}
	candidates, err := s.store.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load search candidates: %w", err)
	}
	return s.ranker.Rank(ctx, req, candidates), nil
}

// OnEventLifecycle keeps the vector index in sync with event CRUD. The call
// never fails: index trouble is the maintainer's to retry, not the caller's.
func (s *Service) OnEventLifecycle(ctx context.Context, ev domain.Event, action domain.LifecycleAction) error {
	if s.maintainer == nil {
		return nil
	}

	switch action {
	case domain.ActionCreated, domain.ActionApproved:
		s.maintainer.Add(ctx, ev)
	case domain.ActionUpdated:
		if ev.Status == domain.StatusApproved {
			s.maintainer.Update(ctx, ev)
		} else {
			s.maintainer.Remove(ctx, ev.ID)
		}
	case domain.ActionRejected, domain.ActionDeleted:
		s.maintainer.Remove(ctx, ev.ID)
	default:
		s.logger.Warn("Unknown lifecycle action ignored",
			zap.String("event_id", ev.ID),
			zap.String("action", string(action)),
		)
	}
	return nil
}

// LifecycleByID resolves the event and applies the lifecycle action. A
// missing event is only an error for actions that need its content; removals
// proceed on the id alone since the store row may already be gone.
func (s *Service) LifecycleByID(ctx context.Context, id string, action domain.LifecycleAction) error {
	ev, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrEventNotFound) &&
			(action == domain.ActionRejected || action == domain.ActionDeleted) {
			if s.maintainer != nil {
				s.maintainer.Remove(ctx, id)
			}
			return nil
		}
		return fmt.Errorf("load event %s: %w", id, err)
	}
	return s.OnEventLifecycle(ctx, ev, action)
}

// duplicateCandidates loads events near the submission's start time.
// Rejected events no longer block new submissions and are skipped.
func (s *Service) duplicateCandidates(ctx context.Context, ev domain.Event) ([]domain.Event, error) {
	filter := domain.EventFilter{}
	if !ev.StartTime.IsZero() {
		after := ev.StartTime.Add(-candidateWindow)
		before := ev.StartTime.Add(candidateWindow)
		filter.StartAfter = &after
		filter.EndBefore = &before
	}

	events, err := s.store.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if e.Status == domain.StatusRejected {
			continue
		}
		candidates = append(candidates, e)
	}
	return candidates, nil
}

func recommendStatus(outcome duplicate.Outcome, verdict domain.ModerationResult) domain.Status {
	switch {
	case outcome == duplicate.OutcomeAutoReject:
		return domain.StatusRejected
	case verdict.IsFlagged || outcome == duplicate.OutcomeCandidates:
		return domain.StatusPending
	default:
		return domain.StatusApproved
	}
}
