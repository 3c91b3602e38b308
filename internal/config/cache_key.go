package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserLoginKey returns the cache key for a user's login session (single device).
func (r *CacheKeyStruct) UserLoginKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// StudentMasteryKey returns the cache key for a student's topic-mastery profile.
func (r *CacheKeyStruct) StudentMasteryKey(studentID int) string {
	return fmt.Sprintf("student:%d:mastery", studentID)
}

var CacheKey = NewCacheKeyStruct()
