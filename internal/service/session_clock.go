package service

import (
	"time"

	"github.com/examprep/examprep-backend/internal/model"
)

// The session clock is stateless: expiry is a pure function of the stored
// start time and duration. No background timers exist anywhere; every
// operation that touches a session checks the clock itself, so an expired
// session leaves "active" the moment it is next observed.

// SessionDeadline returns the instant the session expires.
func SessionDeadline(s *model.ExamSession) time.Time {
	return s.StartTime.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// SessionRemaining returns the time left before expiry, clamped at zero.
func SessionRemaining(s *model.ExamSession, now time.Time) time.Duration {
	if rem := SessionDeadline(s).Sub(now); rem > 0 {
		return rem
	}
	return 0
}

// SessionExpired reports whether the session has run out of time.
// Expiry rule: now >= start_time + duration. No grace period.
func SessionExpired(s *model.ExamSession, now time.Time) bool {
	return !now.Before(SessionDeadline(s))
}
