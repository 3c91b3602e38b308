package model

// MasteryLevel classifies how well a student has mastered a topic,
// derived from prior lab-work analysis.
type MasteryLevel string

const (
	MasteryWeak   MasteryLevel = "weak"
	MasteryMedium MasteryLevel = "medium"
	MasteryStrong MasteryLevel = "strong"
)

// MasteryProfile maps topic name to the student's mastery level.
// Topics the student has never been analyzed on are absent and treated
// as weak by consumers.
type MasteryProfile map[string]MasteryLevel
