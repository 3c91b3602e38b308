package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/examprep/examprep-backend/internal/config"
	"github.com/examprep/examprep-backend/internal/model"
	"github.com/examprep/examprep-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionStore is the trainer's storage boundary. The state machine speaks
// only these verbs, so the storage engine is swappable without touching the
// lifecycle logic. Implementations report missing rows as
// repository.ErrNotFound and constraint hits as repository.ErrDuplicate.
type SessionStore interface {
	CreateSession(ctx context.Context, s *model.ExamSession) error
	GetSessionByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	UpdateSession(ctx context.Context, s *model.ExamSession) error
	FindActiveByStudent(ctx context.Context, studentID int) (*model.ExamSession, error)
	AddAnswer(ctx context.Context, a *model.ExamAnswer) error
	FindAnswer(ctx context.Context, sessionID uuid.UUID, questionID int) (*model.ExamAnswer, error)
	ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]model.ExamAnswer, error)
}

// QuestionBank is the read-only question catalog boundary.
type QuestionBank interface {
	SnapshotForStudent(ctx context.Context, studentID, windowDays int) ([]model.BankQuestion, error)
	GetByIDs(ctx context.Context, ids []int) (map[int]model.Question, error)
}

// MasteryProvider supplies the student's topic-mastery profile from the
// analytics subsystem.
type MasteryProvider interface {
	ProfileForStudent(ctx context.Context, studentID int) (model.MasteryProfile, error)
}

// TrainerService is the exam trainer state machine. It owns the session
// lifecycle (active -> completed/expired), mediates answer submission and
// enforces the one-active-session-per-student and exactly-once-per-question
// invariants.
//
// Concurrency model: each session is a unit of mutual exclusion. All
// operations on one session id serialize through a keyed mutex; Start
// serializes per student. Different sessions proceed in parallel. Expiry is
// lazy: every operation that loads a session first settles the clock, so no
// background timers exist.
type TrainerService struct {
	store   SessionStore
	bank    QuestionBank
	mastery MasteryProvider

	policy       config.TrainerPolicy
	storeTimeout time.Duration

	locks *keyedMutex
	now   func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	log zerolog.Logger
}

// NewTrainerService creates a new TrainerService.
func NewTrainerService(
	store SessionStore,
	bank QuestionBank,
	mastery MasteryProvider,
	cfg *config.Config,
	log zerolog.Logger,
) *TrainerService {
	return &TrainerService{
		store:        store,
		bank:         bank,
		mastery:      mastery,
		policy:       cfg.Trainer,
		storeTimeout: cfg.StoreTimeout,
		locks:        newKeyedMutex(),
		now:          time.Now,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		log:          log.With().Str("component", "trainer").Logger(),
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Result types
// ────────────────────────────────────────────────────────────────────────────

// QuestionView is a question as presented to the student: no answer key,
// no explanation.
type QuestionView struct {
	ID           int             `json:"id"`
	Topic        string          `json:"topic"`
	Difficulty   model.Difficulty `json:"difficulty"`
	QuestionText string          `json:"question_text"`
	Options      json.RawMessage `json:"options,omitempty"`
}

// StartedSession is the response to a successful session start.
type StartedSession struct {
	Session   *model.ExamSession `json:"session"`
	Questions []QuestionView     `json:"questions"`
	Shortfall int                `json:"shortfall,omitempty"`
}

// SessionState is a session snapshot with the clock already settled.
type SessionState struct {
	Session          *model.ExamSession `json:"session"`
	RemainingSeconds float64            `json:"remaining_seconds"`
	AnsweredCount    int                `json:"answered_count"`
}

// AnswerFeedback is the immediate per-question feedback after submission.
// Instant feedback is intentional; the aggregate score stays deferred
// until finish.
type AnswerFeedback struct {
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation"`
}

// FinalResult is the aggregate outcome of a terminal session.
type FinalResult struct {
	TotalQuestions int                  `json:"total_questions"`
	CorrectAnswers int                  `json:"correct_answers"`
	Score          float64              `json:"score"`
	ReadinessLevel model.ReadinessLevel `json:"readiness_level"`
}

// ────────────────────────────────────────────────────────────────────────────
// Operations
// ────────────────────────────────────────────────────────────────────────────

// Start creates a new timed session for the student. Fails with
// ErrActiveSessionExists if one is already active — it never silently
// replaces a running session.
func (t *TrainerService) Start(ctx context.Context, studentID, durationMinutes, questionCount int) (*StartedSession, error) {
	if durationMinutes <= 0 {
		durationMinutes = t.policy.DefaultDurationMinutes
	}
	if durationMinutes > t.policy.MaxDurationMinutes {
		return nil, ErrInvalidDuration
	}
	if questionCount <= 0 {
		questionCount = t.policy.DefaultQuestionCount
	}

	unlock := t.locks.Lock(studentKey(studentID))
	defer unlock()

	now := t.now()

	// An active-but-expired leftover session is settled first so the
	// student is not locked out by a session the clock already killed.
	active, err := t.findActive(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		if !SessionExpired(active, now) {
			return nil, ErrActiveSessionExists
		}
		if _, err := t.finalize(ctx, active, model.SessionStatusExpired, now); err != nil {
			return nil, err
		}
	}

	selection, err := t.drawQuestions(ctx, studentID, questionCount)
	if err != nil {
		return nil, err
	}
	if len(selection.Questions) == 0 {
		return nil, ErrInsufficientQuestions
	}

	session := &model.ExamSession{
		ID:              uuid.New(),
		StudentID:       studentID,
		StartTime:       now,
		DurationMinutes: durationMinutes,
		Status:          model.SessionStatusActive,
		QuestionIDs:     questionIDs(selection.Questions),
		TotalQuestions:  len(selection.Questions),
	}

	sctx, cancel := t.storeCtx(ctx)
	defer cancel()
	if err := t.store.CreateSession(sctx, session); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// DB backstop for the one-active-session invariant.
			return nil, ErrActiveSessionExists
		}
		return nil, storeFail(err)
	}

	t.log.Info().
		Str("session_id", session.ID.String()).
		Int("student_id", studentID).
		Int("questions", session.TotalQuestions).
		Int("duration_min", durationMinutes).
		Msg("Exam session started")

	return &StartedSession{
		Session:   session,
		Questions: questionViews(selection.Questions),
		Shortfall: selection.Shortfall,
	}, nil
}

// GetSession returns the session snapshot. If the clock has run out while
// the session is still active, it transitions to expired and finalizes the
// score right here, under the same per-session lock as submissions.
func (t *TrainerService) GetSession(ctx context.Context, sessionID uuid.UUID) (*SessionState, error) {
	unlock := t.locks.Lock(sessionID.String())
	defer unlock()

	now := t.now()

	session, err := t.loadSettled(ctx, sessionID, now)
	if err != nil {
		return nil, err
	}

	answers, err := t.listAnswers(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &SessionState{
		Session:          session,
		RemainingSeconds: SessionRemaining(session, now).Seconds(),
		AnsweredCount:    len(answers),
	}, nil
}

// SubmitAnswer records one answer and returns immediate feedback. The
// answer's correctness is fixed at submission time; the aggregate is
// recomputed only at finalization.
func (t *TrainerService) SubmitAnswer(ctx context.Context, sessionID uuid.UUID, questionID int, answerText string) (*AnswerFeedback, error) {
	unlock := t.locks.Lock(sessionID.String())
	defer unlock()

	now := t.now()

	session, err := t.loadSettled(ctx, sessionID, now)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusActive {
		return nil, ErrSessionNotActive
	}
	if !session.HasQuestion(questionID) {
		return nil, ErrQuestionNotInSession
	}

	sctx, cancel := t.storeCtx(ctx)
	if _, err := t.store.FindAnswer(sctx, sessionID, questionID); err == nil {
		cancel()
		return nil, ErrAlreadyAnswered
	} else if !errors.Is(err, repository.ErrNotFound) {
		cancel()
		return nil, storeFail(err)
	}
	cancel()

	questions, err := t.bank.GetByIDs(ctx, []int{questionID})
	if err != nil {
		return nil, storeFail(err)
	}
	question, ok := questions[questionID]
	if !ok {
		return nil, ErrQuestionNotInSession
	}

	correct := ScoreAnswer(&question, answerText)
	answer := &model.ExamAnswer{
		SessionID:  sessionID,
		QuestionID: questionID,
		AnswerText: answerText,
		IsCorrect:  &correct,
	}

	sctx, cancel = t.storeCtx(ctx)
	defer cancel()
	if err := t.store.AddAnswer(sctx, answer); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyAnswered
		}
		return nil, storeFail(err)
	}

	return &AnswerFeedback{Correct: correct, Explanation: question.Explanation}, nil
}

// Finish completes the session and returns the aggregate result. Finishing
// an already-terminal session is an idempotent no-op returning the stored
// result. A session whose clock ran out finalizes as expired instead.
func (t *TrainerService) Finish(ctx context.Context, sessionID uuid.UUID) (*FinalResult, error) {
	unlock := t.locks.Lock(sessionID.String())
	defer unlock()

	now := t.now()

	session, err := t.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status.Terminal() {
		return resultOf(session), nil
	}

	status := model.SessionStatusCompleted
	if SessionExpired(session, now) {
		status = model.SessionStatusExpired
	}

	return t.finalize(ctx, session, status, now)
}

// GenerateQuestions previews a balanced question draw for the student
// without creating a session. Pure read: nothing is persisted.
func (t *TrainerService) GenerateQuestions(ctx context.Context, studentID, count int) ([]QuestionView, int, error) {
	if count <= 0 {
		count = t.policy.DefaultQuestionCount
	}
	selection, err := t.drawQuestions(ctx, studentID, count)
	if err != nil {
		return nil, 0, err
	}
	return questionViews(selection.Questions), selection.Shortfall, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Internals
// ────────────────────────────────────────────────────────────────────────────

// loadSettled loads a session and settles its clock: an active session past
// its deadline transitions to expired and is finalized before being
// returned. Callers must hold the session lock.
func (t *TrainerService) loadSettled(ctx context.Context, sessionID uuid.UUID, now time.Time) (*model.ExamSession, error) {
	session, err := t.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionStatusActive && SessionExpired(session, now) {
		if _, err := t.finalize(ctx, session, model.SessionStatusExpired, now); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// finalize recomputes the aggregate from stored answers and moves the
// session to a terminal state. Deterministic and idempotent given the same
// answers, so a retry after a crash between "score computed" and "status
// persisted" converges to the same result. end_time is set exactly once.
func (t *TrainerService) finalize(ctx context.Context, session *model.ExamSession, status model.SessionStatus, now time.Time) (*FinalResult, error) {
	answers, err := t.listAnswers(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	correct := 0
	for _, a := range answers {
		if a.IsCorrect != nil && *a.IsCorrect {
			correct++
		}
	}

	score, readiness := AggregateScore(t.policy, session.TotalQuestions, correct)

	session.Status = status
	session.CorrectAnswers = correct
	session.Score = score
	session.ReadinessLevel = readiness
	if session.EndTime == nil {
		end := now
		if status == model.SessionStatusExpired {
			// An expired session ended at its deadline, not at whatever
			// later moment we happened to observe it.
			end = SessionDeadline(session)
		}
		session.EndTime = &end
	}

	sctx, cancel := t.storeCtx(ctx)
	defer cancel()
	if err := t.store.UpdateSession(sctx, session); err != nil {
		return nil, storeFail(err)
	}

	t.log.Info().
		Str("session_id", session.ID.String()).
		Str("status", string(status)).
		Float64("score", score).
		Str("readiness", string(readiness)).
		Msg("Exam session finalized")

	return resultOf(session), nil
}

func (t *TrainerService) drawQuestions(ctx context.Context, studentID, count int) (Selection, error) {
	profile, err := t.mastery.ProfileForStudent(ctx, studentID)
	if err != nil {
		return Selection{}, storeFail(err)
	}

	bank, err := t.bank.SnapshotForStudent(ctx, studentID, t.policy.RecentUseWindowDays)
	if err != nil {
		return Selection{}, storeFail(err)
	}

	t.rngMu.Lock()
	defer t.rngMu.Unlock()
	return SelectQuestions(t.policy, profile, bank, count, t.rng), nil
}

func (t *TrainerService) getSession(ctx context.Context, sessionID uuid.UUID) (*model.ExamSession, error) {
	sctx, cancel := t.storeCtx(ctx)
	defer cancel()
	session, err := t.store.GetSessionByID(sctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, storeFail(err)
	}
	return session, nil
}

func (t *TrainerService) findActive(ctx context.Context, studentID int) (*model.ExamSession, error) {
	sctx, cancel := t.storeCtx(ctx)
	defer cancel()
	session, err := t.store.FindActiveByStudent(sctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, storeFail(err)
	}
	return session, nil
}

func (t *TrainerService) listAnswers(ctx context.Context, sessionID uuid.UUID) ([]model.ExamAnswer, error) {
	sctx, cancel := t.storeCtx(ctx)
	defer cancel()
	answers, err := t.store.ListAnswers(sctx, sessionID)
	if err != nil {
		return nil, storeFail(err)
	}
	return answers, nil
}

// storeCtx bounds a storage call so a stuck backend surfaces as
// ErrStoreUnavailable instead of hanging the request.
func (t *TrainerService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, t.storeTimeout)
}

func storeFail(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func resultOf(s *model.ExamSession) *FinalResult {
	return &FinalResult{
		TotalQuestions: s.TotalQuestions,
		CorrectAnswers: s.CorrectAnswers,
		Score:          s.Score,
		ReadinessLevel: s.ReadinessLevel,
	}
}

func studentKey(studentID int) string {
	return fmt.Sprintf("student:%d", studentID)
}

func questionIDs(questions []model.Question) []int {
	ids := make([]int, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}

func questionViews(questions []model.Question) []QuestionView {
	views := make([]QuestionView, len(questions))
	for i, q := range questions {
		views[i] = QuestionView{
			ID:           q.ID,
			Topic:        q.Topic,
			Difficulty:   q.Difficulty,
			QuestionText: q.QuestionText,
			Options:      q.Options,
		}
	}
	return views
}
