package service

import (
	"testing"
	"time"

	"github.com/examprep/examprep-backend/internal/model"
	"github.com/stretchr/testify/assert"
)

func clockSession(start time.Time, minutes int) *model.ExamSession {
	return &model.ExamSession{StartTime: start, DurationMinutes: minutes}
}

func TestSessionExpiredBoundary(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := clockSession(start, 60)

	assert.False(t, SessionExpired(s, start))
	assert.False(t, SessionExpired(s, start.Add(59*time.Minute+59*time.Second)))
	// Expiry is inclusive: now == deadline counts as expired.
	assert.True(t, SessionExpired(s, start.Add(60*time.Minute)))
	assert.True(t, SessionExpired(s, start.Add(61*time.Minute)))
}

func TestSessionRemaining(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := clockSession(start, 30)

	assert.Equal(t, 30*time.Minute, SessionRemaining(s, start))
	assert.Equal(t, 10*time.Minute, SessionRemaining(s, start.Add(20*time.Minute)))
	// Clamped at zero once past the deadline.
	assert.Equal(t, time.Duration(0), SessionRemaining(s, start.Add(45*time.Minute)))
}

func TestSessionDeadline(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, start.Add(90*time.Minute), SessionDeadline(clockSession(start, 90)))
}
