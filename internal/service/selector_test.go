package service

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/examprep/examprep-backend/internal/config"
	"github.com/examprep/examprep-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() config.TrainerPolicy {
	return config.TrainerPolicy{
		DefaultQuestionCount:   20,
		DefaultDurationMinutes: 60,
		MaxDurationMinutes:     240,
		WeakPercent:            50,
		MediumPercent:          30,
		StrongPercent:          20,
		RecentUseWindowDays:    30,
		HighThreshold:          80,
		MediumThreshold:        50,
	}
}

func makeBank(topic string, n, recentUses int) []model.BankQuestion {
	bank := make([]model.BankQuestion, 0, n)
	for i := 0; i < n; i++ {
		bank = append(bank, model.BankQuestion{
			Question: model.Question{
				ID:           int(topic[0])*1000 + i,
				Topic:        topic,
				QuestionText: fmt.Sprintf("%s question %d", topic, i),
			},
			RecentUses: recentUses,
		})
	}
	return bank
}

func topicCounts(questions []model.Question) map[string]int {
	counts := map[string]int{}
	for _, q := range questions {
		counts[q.Topic]++
	}
	return counts
}

func TestSelectQuestionsRatio(t *testing.T) {
	profile := model.MasteryProfile{
		"algebra":  model.MasteryWeak,
		"geometry": model.MasteryMedium,
		"calculus": model.MasteryStrong,
	}
	var bank []model.BankQuestion
	bank = append(bank, makeBank("algebra", 30, 0)...)
	bank = append(bank, makeBank("geometry", 30, 0)...)
	bank = append(bank, makeBank("calculus", 30, 0)...)

	sel := SelectQuestions(testPolicy(), profile, bank, 20, rand.New(rand.NewSource(1)))

	require.Len(t, sel.Questions, 20)
	assert.Zero(t, sel.Shortfall)

	counts := topicCounts(sel.Questions)
	assert.Equal(t, 10, counts["algebra"])
	assert.Equal(t, 6, counts["geometry"])
	assert.Equal(t, 4, counts["calculus"])
}

func TestSelectQuestionsShortfall(t *testing.T) {
	profile := model.MasteryProfile{"algebra": model.MasteryWeak}
	bank := makeBank("algebra", 12, 0)

	sel := SelectQuestions(testPolicy(), profile, bank, 20, rand.New(rand.NewSource(2)))

	assert.Len(t, sel.Questions, 12)
	assert.Equal(t, 8, sel.Shortfall)

	seen := map[int]bool{}
	for _, q := range sel.Questions {
		assert.False(t, seen[q.ID], "question %d selected twice", q.ID)
		seen[q.ID] = true
	}
}

func TestSelectQuestionsNoDuplicates(t *testing.T) {
	profile := model.MasteryProfile{
		"nets": model.MasteryWeak,
		"os":   model.MasteryStrong,
	}
	var bank []model.BankQuestion
	bank = append(bank, makeBank("nets", 8, 0)...)
	bank = append(bank, makeBank("os", 8, 0)...)

	for seed := int64(0); seed < 10; seed++ {
		sel := SelectQuestions(testPolicy(), profile, bank, 16, rand.New(rand.NewSource(seed)))
		require.Len(t, sel.Questions, 16)

		seen := map[int]bool{}
		for _, q := range sel.Questions {
			require.False(t, seen[q.ID])
			seen[q.ID] = true
		}
	}
}

func TestSelectQuestionsUnknownTopicCountsAsWeak(t *testing.T) {
	// Topic absent from the profile: everything lands in the weak bucket
	// and the full request is satisfiable.
	bank := makeBank("unknown", 10, 0)

	sel := SelectQuestions(testPolicy(), model.MasteryProfile{}, bank, 10, rand.New(rand.NewSource(3)))

	assert.Len(t, sel.Questions, 10)
	assert.Zero(t, sel.Shortfall)
}

func TestSelectQuestionsPrefersLeastRecentlyUsed(t *testing.T) {
	profile := model.MasteryProfile{"algebra": model.MasteryWeak}
	fresh := makeBank("algebra", 5, 0)
	stale := make([]model.BankQuestion, 5)
	for i := range stale {
		stale[i] = model.BankQuestion{
			Question:   model.Question{ID: 999000 + i, Topic: "algebra"},
			RecentUses: 7,
		}
	}
	bank := append(fresh, stale...)

	sel := SelectQuestions(testPolicy(), profile, bank, 5, rand.New(rand.NewSource(4)))

	require.Len(t, sel.Questions, 5)
	for _, q := range sel.Questions {
		assert.Less(t, q.ID, 999000, "recently used question %d picked over fresh ones", q.ID)
	}
}

func TestSelectQuestionsDeficitFilledFromOtherBuckets(t *testing.T) {
	// Weak bucket cannot satisfy its quota; the medium bucket covers the gap.
	profile := model.MasteryProfile{
		"algebra":  model.MasteryWeak,
		"geometry": model.MasteryMedium,
	}
	var bank []model.BankQuestion
	bank = append(bank, makeBank("algebra", 2, 0)...)
	bank = append(bank, makeBank("geometry", 20, 0)...)

	sel := SelectQuestions(testPolicy(), profile, bank, 10, rand.New(rand.NewSource(5)))

	require.Len(t, sel.Questions, 10)
	counts := topicCounts(sel.Questions)
	assert.Equal(t, 2, counts["algebra"])
	assert.Equal(t, 8, counts["geometry"])
}

func TestSelectQuestionsEmptyBank(t *testing.T) {
	sel := SelectQuestions(testPolicy(), model.MasteryProfile{}, nil, 10, rand.New(rand.NewSource(6)))
	assert.Empty(t, sel.Questions)
	assert.Equal(t, 10, sel.Shortfall)
}

func TestBucketQuotasSumToCount(t *testing.T) {
	policy := testPolicy()
	for count := 1; count <= 50; count++ {
		quotas := bucketQuotas(policy, count)
		sum := quotas[model.MasteryWeak] + quotas[model.MasteryMedium] + quotas[model.MasteryStrong]
		assert.Equal(t, count, sum, "count=%d", count)
	}
}
