package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"character-quiz/internal/domain"
)

var ErrQuizServiceNotConfigured = errors.New("quiz service not configured")

// QuizService serves live questionnaire sessions on top of the engine, the
// classifier and a SessionStore. Writes go through versioned Replace, so a
// second choice racing the first one is rejected instead of applied twice.
type QuizService struct {
	engine     *SessionEngine
	classifier *ProfileClassifier
	store      SessionStore
	logger     *zap.Logger
	timeLimit  time.Duration
	now        func() time.Time
	newID      func() string
}

func NewQuizService(
	engine *SessionEngine,
	classifier *ProfileClassifier,
	store SessionStore,
	timeLimit time.Duration,
	logger *zap.Logger,
) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{
		engine:     engine,
		classifier: classifier,
		store:      store,
		logger:     logger,
		timeLimit:  timeLimit,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

func (s *QuizService) configured() bool {
	return s != nil && s.engine != nil && s.classifier != nil && s.store != nil
}

func (s *QuizService) Engine() *SessionEngine {
	return s.engine
}

// StartSession creates a session with its first scenario and, when a time limit is set, a deadline.
func (s *QuizService) StartSession(ctx context.Context) (domain.SessionRecord, error) {
	if !s.configured() {
		return domain.SessionRecord{}, ErrQuizServiceNotConfigured
	}
	now := s.now().UTC()
	rec := domain.SessionRecord{
		ID:        s.newID(),
		Version:   1,
		State:     s.engine.Start(),
		CreatedAt: now,
	}
	if s.timeLimit > 0 {
		rec.Deadline = now.Add(s.timeLimit)
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return domain.SessionRecord{}, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("session started",
		zap.String("session_id", rec.ID),
		zap.Int("session_length", s.engine.SessionLength()),
		zap.Duration("time_limit", s.timeLimit),
	)
	return rec, nil
}

// GetSession loads a session and turns an overdue one into a completed one.
func (s *QuizService) GetSession(ctx context.Context, id string) (domain.SessionRecord, error) {
	if !s.configured() {
		return domain.SessionRecord{}, ErrQuizServiceNotConfigured
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.SessionRecord{}, domain.ErrSessionNotFound
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.SessionRecord{}, err
	}
	return s.expireIfDue(ctx, rec)
}

func (s *QuizService) expireIfDue(ctx context.Context, rec domain.SessionRecord) (domain.SessionRecord, error) {
	if rec.State.IsComplete || rec.Deadline.IsZero() || s.now().Before(rec.Deadline) {
		return rec, nil
	}
	expired := rec
	expired.State = s.engine.Expire(rec.State)
	expired.Version = rec.Version + 1
	if err := s.store.Replace(ctx, expired, rec.Version); err != nil {
		if errors.Is(err, domain.ErrSessionConflict) {
			// Otra escritura llego primero; devolvemos lo que quedo guardado.
			return s.store.Get(ctx, rec.ID)
		}
		return domain.SessionRecord{}, fmt.Errorf("expire session %s: %w", rec.ID, err)
	}
	s.logger.Info("session expired",
		zap.String("session_id", rec.ID),
		zap.Int("questions_answered", expired.State.QuestionsAnswered),
	)
	return expired, nil
}

// SubmitChoice applies choiceIndex to the current scenario. expectedVersion 0
// means "whatever is current"; any other value must match the stored version.
func (s *QuizService) SubmitChoice(ctx context.Context, id string, expectedVersion, choiceIndex int) (domain.SessionRecord, error) {
	rec, err := s.GetSession(ctx, id)
	if err != nil {
		return domain.SessionRecord{}, err
	}
	if expectedVersion > 0 && rec.Version != expectedVersion {
		return rec, fmt.Errorf("%w: session %s is at version %d, got %d", domain.ErrSessionConflict, rec.ID, rec.Version, expectedVersion)
	}

	next, err := s.engine.ApplyChoice(rec.State, choiceIndex)
	if err != nil {
		s.logger.Warn("choice rejected", zap.String("session_id", rec.ID), zap.Int("choice_index", choiceIndex), zap.Error(err))
		return rec, err
	}

	updated := rec
	updated.State = next
	updated.Version = rec.Version + 1
	if err := s.store.Replace(ctx, updated, rec.Version); err != nil {
		return rec, fmt.Errorf("save session %s: %w", rec.ID, err)
	}

	if next.IsComplete {
		s.logger.Info("session completed",
			zap.String("session_id", rec.ID),
			zap.Int("questions_answered", next.QuestionsAnswered),
		)
	}
	return updated, nil
}

// Scores is callable at any point, including mid-session.
func (s *QuizService) Scores(ctx context.Context, id string) (domain.ScoreSet, error) {
	rec, err := s.GetSession(ctx, id)
	if err != nil {
		return domain.ScoreSet{}, err
	}
	return s.engine.GetScores(rec.State), nil
}

// Analyze classifies the adjusted scores of a finished session.
func (s *QuizService) Analyze(ctx context.Context, id string) (domain.Analysis, domain.ScoreSet, error) {
	rec, err := s.GetSession(ctx, id)
	if err != nil {
		return domain.Analysis{}, domain.ScoreSet{}, err
	}
	if !rec.State.IsComplete {
		return domain.Analysis{}, domain.ScoreSet{}, fmt.Errorf("%w: session %s answered %d of %d",
			domain.ErrSessionInProgress, rec.ID, rec.State.QuestionsAnswered, s.engine.SessionLength())
	}
	scores := s.engine.GetScores(rec.State)
	analysis := s.classifier.Analyze(scores.Adjusted)
	s.logger.Debug("session analyzed",
		zap.String("session_id", rec.ID),
		zap.String("profile", analysis.Profile.Name),
	)
	return analysis, scores, nil
}

// EndSession drops the live session.
func (s *QuizService) EndSession(ctx context.Context, id string) error {
	if !s.configured() {
		return ErrQuizServiceNotConfigured
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	s.logger.Info("session ended", zap.String("session_id", id))
	return nil
}
