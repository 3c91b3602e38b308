package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/examprep/examprep-backend/internal/config"
	"github.com/examprep/examprep-backend/internal/model"
	"github.com/examprep/examprep-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ────────────────────────────────────────────────────────────────────────────
// In-memory collaborators
// ────────────────────────────────────────────────────────────────────────────

type memStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]model.ExamSession
	answers  map[uuid.UUID][]model.ExamAnswer
	nextID   int
	fail     bool
}

func newMemStore() *memStore {
	return &memStore{
		sessions: map[uuid.UUID]model.ExamSession{},
		answers:  map[uuid.UUID][]model.ExamAnswer{},
	}
}

var errBackendDown = errors.New("backend down")

func (m *memStore) CreateSession(_ context.Context, s *model.ExamSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errBackendDown
	}
	for _, existing := range m.sessions {
		if existing.StudentID == s.StudentID && existing.Status == model.SessionStatusActive {
			return repository.ErrDuplicate
		}
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *memStore) GetSessionByID(_ context.Context, id uuid.UUID) (*model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errBackendDown
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := s
	return &copied, nil
}

func (m *memStore) UpdateSession(_ context.Context, s *model.ExamSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errBackendDown
	}
	if _, ok := m.sessions[s.ID]; !ok {
		return repository.ErrNotFound
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *memStore) FindActiveByStudent(_ context.Context, studentID int) (*model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errBackendDown
	}
	for _, s := range m.sessions {
		if s.StudentID == studentID && s.Status == model.SessionStatusActive {
			copied := s
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) AddAnswer(_ context.Context, a *model.ExamAnswer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errBackendDown
	}
	for _, existing := range m.answers[a.SessionID] {
		if existing.QuestionID == a.QuestionID {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	a.ID = m.nextID
	a.AnsweredAt = time.Now()
	m.answers[a.SessionID] = append(m.answers[a.SessionID], *a)
	return nil
}

func (m *memStore) FindAnswer(_ context.Context, sessionID uuid.UUID, questionID int) (*model.ExamAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errBackendDown
	}
	for _, a := range m.answers[sessionID] {
		if a.QuestionID == questionID {
			copied := a
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) ListAnswers(_ context.Context, sessionID uuid.UUID) ([]model.ExamAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errBackendDown
	}
	return append([]model.ExamAnswer(nil), m.answers[sessionID]...), nil
}

type fakeBank struct {
	questions []model.BankQuestion
}

func (b *fakeBank) SnapshotForStudent(context.Context, int, int) ([]model.BankQuestion, error) {
	return append([]model.BankQuestion(nil), b.questions...), nil
}

func (b *fakeBank) GetByIDs(_ context.Context, ids []int) (map[int]model.Question, error) {
	out := map[int]model.Question{}
	for _, q := range b.questions {
		for _, id := range ids {
			if q.ID == id {
				out[id] = q.Question
			}
		}
	}
	return out, nil
}

type fakeMastery struct {
	profile model.MasteryProfile
}

func (f *fakeMastery) ProfileForStudent(context.Context, int) (model.MasteryProfile, error) {
	return f.profile, nil
}

func trainerBank(n int) *fakeBank {
	bank := &fakeBank{}
	for i := 1; i <= n; i++ {
		bank.questions = append(bank.questions, model.BankQuestion{
			Question: model.Question{
				ID:            i,
				Topic:         "algebra",
				QuestionText:  fmt.Sprintf("question %d", i),
				CorrectAnswer: "42",
				Explanation:   "forty-two",
			},
		})
	}
	return bank
}

func newTestTrainer(store SessionStore, bank QuestionBank) (*TrainerService, *time.Time) {
	cfg := &config.Config{
		StoreTimeout: time.Second,
		Trainer:      testPolicy(),
	}
	tr := NewTrainerService(store, bank, &fakeMastery{profile: model.MasteryProfile{}}, cfg, zerolog.Nop())
	tr.rng = rand.New(rand.NewSource(42))

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := &now
	tr.now = func() time.Time { return *clock }
	return tr, clock
}

// ────────────────────────────────────────────────────────────────────────────
// Start
// ────────────────────────────────────────────────────────────────────────────

func TestStartSession(t *testing.T) {
	tr, _ := newTestTrainer(newMemStore(), trainerBank(12))
	ctx := context.Background()

	started, err := tr.Start(ctx, 1, 60, 10)
	require.NoError(t, err)

	assert.Equal(t, model.SessionStatusActive, started.Session.Status)
	assert.Equal(t, 10, started.Session.TotalQuestions)
	assert.Len(t, started.Questions, 10)
	assert.Zero(t, started.Shortfall)
	assert.Nil(t, started.Session.EndTime)

	// A second start while the first is running is rejected.
	_, err = tr.Start(ctx, 1, 60, 10)
	assert.ErrorIs(t, err, ErrActiveSessionExists)

	// A different student is unaffected.
	_, err = tr.Start(ctx, 2, 60, 10)
	assert.NoError(t, err)
}

func TestStartSessionDefaults(t *testing.T) {
	tr, _ := newTestTrainer(newMemStore(), trainerBank(30))

	started, err := tr.Start(context.Background(), 1, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, 60, started.Session.DurationMinutes)
	assert.Equal(t, 20, started.Session.TotalQuestions)
}

func TestStartSessionDurationTooLong(t *testing.T) {
	tr, _ := newTestTrainer(newMemStore(), trainerBank(12))

	_, err := tr.Start(context.Background(), 1, 500, 10)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestStartSessionShortfall(t *testing.T) {
	// 20 requested, 12 available: the session starts with what exists and
	// reports the gap instead of duplicating questions.
	tr, _ := newTestTrainer(newMemStore(), trainerBank(12))

	started, err := tr.Start(context.Background(), 1, 60, 20)
	require.NoError(t, err)

	assert.Len(t, started.Questions, 12)
	assert.Equal(t, 8, started.Shortfall)
	assert.Equal(t, 12, started.Session.TotalQuestions)

	seen := map[int]bool{}
	for _, q := range started.Questions {
		require.False(t, seen[q.ID])
		seen[q.ID] = true
	}
}

func TestStartSessionEmptyBank(t *testing.T) {
	tr, _ := newTestTrainer(newMemStore(), &fakeBank{})

	_, err := tr.Start(context.Background(), 1, 60, 10)
	assert.ErrorIs(t, err, ErrInsufficientQuestions)
}

func TestStartSessionAfterLeftoverExpired(t *testing.T) {
	store := newMemStore()
	tr, clock := newTestTrainer(store, trainerBank(12))
	ctx := context.Background()

	first, err := tr.Start(ctx, 1, 60, 5)
	require.NoError(t, err)

	// Clock runs out; the leftover session must not block a new start.
	*clock = clock.Add(61 * time.Minute)

	second, err := tr.Start(ctx, 1, 60, 5)
	require.NoError(t, err)
	assert.NotEqual(t, first.Session.ID, second.Session.ID)

	old, err := store.GetSessionByID(ctx, first.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusExpired, old.Status)
	require.NotNil(t, old.EndTime)
	// An expired session ends at its deadline, not at observation time.
	assert.Equal(t, first.Session.StartTime.Add(60*time.Minute), *old.EndTime)
}

func TestConcurrentStartsSingleWinner(t *testing.T) {
	tr, _ := newTestTrainer(newMemStore(), trainerBank(12))
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tr.Start(ctx, 1, 60, 5)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrActiveSessionExists)
		}
	}
	assert.Equal(t, 1, winners)
}

// ────────────────────────────────────────────────────────────────────────────
// SubmitAnswer
// ────────────────────────────────────────────────────────────────────────────

func TestSubmitAnswer(t *testing.T) {
	tr, _ := newTestTrainer(newMemStore(), trainerBank(12))
	ctx := context.Background()

	started, err := tr.Start(ctx, 1, 60, 5)
	require.NoError(t, err)
	qid := started.Session.QuestionIDs[0]

	feedback, err := tr.SubmitAnswer(ctx, started.Session.ID, qid, " 42 ")
	require.NoError(t, err)
	assert.True(t, feedback.Correct)
	assert.Equal(t, "forty-two", feedback.Explanation)

	wrong, err := tr.SubmitAnswer(ctx, started.Session.ID, started.Session.QuestionIDs[1], "41")
	require.NoError(t, err)
	assert.False(t, wrong.Correct)
}

func TestSubmitAnswerExactlyOnce(t *testing.T) {
	store := newMemStore()
	tr, _ := newTestTrainer(store, trainerBank(12))
	ctx := context.Background()

	started, err := tr.Start(ctx, 1, 60, 5)
	require.NoError(t, err)
	qid := started.Session.QuestionIDs[0]

	_, err = tr.SubmitAnswer(ctx, started.Session.ID, qid, "42")
	require.NoError(t, err)

	_, err = tr.SubmitAnswer(ctx, started.Session.ID, qid, "different")
	assert.ErrorIs(t, err, ErrAlreadyAnswered)

	// The stored answer keeps its original text.
	answers, err := store.ListAnswers(ctx, started.Session.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "42", answers[0].AnswerText)
}

func TestSubmitAnswerUnknownQuestion(t *testing.T) {
	store := newMemStore()
	tr, _ := newTestTrainer(store, trainerBank(12))
	ctx := context.Background()

	started, err := tr.Start(ctx, 1, 60, 5)
	require.NoError(t, err)

	_, err = tr.SubmitAnswer(ctx, started.Session.ID, 9999, "42")
	assert.ErrorIs(t, err, ErrQuestionNotInSession)

	// Rejected submissions leave no trace.
	answers, err := store.ListAnswers(ctx, started.Session.ID)
	require.NoError(t, err)
	assert.Empty(t, answers)
}

func TestSubmitAnswerUnknownSession(t *testing.T) {
	tr, _ := newTestTrainer(newMemStore(), trainerBank(12))

	_, err := tr.SubmitAnswer(context.Background(), uuid.New(), 1, "42")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSubmitAnswerAfterExpiry(t *testing.T) {
	store := newMemStore()
	tr, clock := newTestTrainer(store, trainerBank(12))
	ctx := context.Background()

	started, err := tr.Start(ctx, 1, 1, 5)
	require.NoError(t, err)

	*clock = clock.Add(61 * time.Second)

	_, err = tr.SubmitAnswer(ctx, started.Session.ID, started.Session.QuestionIDs[0], "42")
	assert.ErrorIs(t, err, ErrSessionNotActive)

	// The rejected submission settled the clock as a side effect.
	stored, err := store.GetSessionByID(ctx, started.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusExpired, stored.Status)
}

// ────────────────────────────────────────────────────────────────────────────
// GetSession / lazy expiry
// ────────────────────────────────────────────────────────────────────────────

func TestGetSessionCountdown(t *testing.T) {
	tr, clock := newTestTrainer(newMemStore(), trainerBank(12))
	ctx := context.Background()

	started, err := tr.Start(ctx, 1, 60, 5)
	require.NoError(t, err)

	*clock = clock.Add(20 * time.Minute)

	state, err := tr.GetSession(ctx, started.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusActive, state.Session.Status)
	assert.InDelta(t, (40 * time.Minute).Seconds(), state.RemainingSeconds, 0.0001)
}

func TestGetSessionLazyExpiry(t *testing.T) {
	tr, clock := newTestTrainer(newMemStore(), trainerBank(12))
	ctx := context.Background()

	started, err := tr.Start(ctx, 1, 1, 5)
	require.NoError(t, err)

	_, err = tr.SubmitAnswer(ctx, started.Session.ID, started.Session.QuestionIDs[0], "42")
	require.NoError(t, err)

	*clock = clock.Add(61 * time.Second)

	state, err := tr.GetSession(ctx, started.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusExpired, state.Session.Status)
	assert.Zero(t, state.RemainingSeconds)
	// Answers given before expiry still count.
	assert.Equal(t, 1, state.Session.CorrectAnswers)
}

func TestGetSessionNotFound(t *testing.T) {
	tr, _ := newTestTrainer(newMemStore(), trainerBank(12))

	_, err := tr.GetSession(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// ────────────────────────────────────────────────────────────────────────────
// Finish
// ────────────────────────────────────────────────────────────────────────────

func TestFinishSession(t *testing.T) {
	tr, clock := newTestTrainer(newMemStore(), trainerBank(12))
	ctx := context.Background()

	started, err := tr.Start(ctx, 1, 60, 10)
	require.NoError(t, err)

	// Answer half correctly.
	for i, qid := range started.Session.QuestionIDs {
		answer := "42"
		if i%2 == 1 {
			answer = "wrong"
		}
		_, err := tr.SubmitAnswer(ctx, started.Session.ID, qid, answer)
		require.NoError(t, err)
	}

	*clock = clock.Add(30 * time.Minute)

	result, err := tr.Finish(ctx, started.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, result.TotalQuestions)
	assert.Equal(t, 5, result.CorrectAnswers)
	assert.InDelta(t, 50, result.Score, 0.0001)
	assert.Equal(t, model.ReadinessMedium, result.ReadinessLevel)
}

func TestFinishAllCorrect(t *testing.T) {
	tr, clock := newTestTrainer(newMemStore(), trainerBank(12))
	ctx := context.Background()

	started, err := tr.Start(ctx, 1, 60, 5)
	require.NoError(t, err)

	for _, qid := range started.Session.QuestionIDs {
		_, err := tr.SubmitAnswer(ctx, started.Session.ID, qid, "42")
		require.NoError(t, err)
	}

	*clock = clock.Add(30 * time.Second)

	result, err := tr.Finish(ctx, started.Session.ID)
	require.NoError(t, err)
	assert.InDelta(t, 100, result.Score, 0.0001)
	assert.Equal(t, model.ReadinessHigh, result.ReadinessLevel)
}

func TestFinishIdempotent(t *testing.T) {
	store := newMemStore()
	tr, clock := newTestTrainer(store, trainerBank(12))
	ctx := context.Background()

	started, err := tr.Start(ctx, 1, 60, 5)
	require.NoError(t, err)

	_, err = tr.SubmitAnswer(ctx, started.Session.ID, started.Session.QuestionIDs[0], "42")
	require.NoError(t, err)

	*clock = clock.Add(10 * time.Minute)
	first, err := tr.Finish(ctx, started.Session.ID)
	require.NoError(t, err)

	afterFirst, err := store.GetSessionByID(ctx, started.Session.ID)
	require.NoError(t, err)
	require.NotNil(t, afterFirst.EndTime)

	// A later retry returns the stored result and changes nothing.
	*clock = clock.Add(10 * time.Minute)
	second, err := tr.Finish(ctx, started.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	afterSecond, err := store.GetSessionByID(ctx, started.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, *afterFirst.EndTime, *afterSecond.EndTime)
	assert.Equal(t, model.SessionStatusCompleted, afterSecond.Status)
}

func TestFinishPastDeadlineMarksExpired(t *testing.T) {
	store := newMemStore()
	tr, clock := newTestTrainer(store, trainerBank(12))
	ctx := context.Background()

	started, err := tr.Start(ctx, 1, 1, 5)
	require.NoError(t, err)

	*clock = clock.Add(2 * time.Minute)

	_, err = tr.Finish(ctx, started.Session.ID)
	require.NoError(t, err)

	stored, err := store.GetSessionByID(ctx, started.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusExpired, stored.Status)
}

// ────────────────────────────────────────────────────────────────────────────
// Storage failures
// ────────────────────────────────────────────────────────────────────────────

func TestStoreUnavailable(t *testing.T) {
	store := newMemStore()
	tr, _ := newTestTrainer(store, trainerBank(12))
	ctx := context.Background()

	store.fail = true

	_, err := tr.Start(ctx, 1, 60, 5)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = tr.GetSession(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = tr.Finish(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

// ────────────────────────────────────────────────────────────────────────────
// GenerateQuestions
// ────────────────────────────────────────────────────────────────────────────

func TestGenerateQuestionsIsReadOnly(t *testing.T) {
	store := newMemStore()
	tr, _ := newTestTrainer(store, trainerBank(12))

	questions, shortfall, err := tr.GenerateQuestions(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Len(t, questions, 12)
	assert.Equal(t, 8, shortfall)

	// Preview never persists a session.
	assert.Empty(t, store.sessions)
}
