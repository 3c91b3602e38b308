package service

import (
	"math"
	"math/rand"
	"sort"

	"github.com/examprep/examprep-backend/internal/config"
	"github.com/examprep/examprep-backend/internal/model"
)

// Selection is the outcome of one question draw. Shortfall is how many
// questions short of the request the bank was; callers receive it
// explicitly instead of silently padded duplicates.
type Selection struct {
	Questions []model.Question `json:"questions"`
	Shortfall int              `json:"shortfall"`
}

// SelectQuestions draws a balanced question set from a read-only bank
// snapshot according to the student's topic-mastery profile. Pure: no side
// effects beyond consuming the supplied rng.
//
// Policy: proportionally more questions come from weak topics (default
// 50/30/20 weak/medium/strong, rounded), remainder filled from weak first.
// Topics absent from the profile count as weak. Within a bucket, questions
// the student has seen least recently win; ties break randomly. Never
// returns duplicates.
func SelectQuestions(policy config.TrainerPolicy, profile model.MasteryProfile, bank []model.BankQuestion, count int, rng *rand.Rand) Selection {
	if count <= 0 || len(bank) == 0 {
		return Selection{Shortfall: count}
	}

	buckets := map[model.MasteryLevel][]model.BankQuestion{}
	for _, q := range bank {
		level, ok := profile[q.Topic]
		if !ok {
			level = model.MasteryWeak
		}
		buckets[level] = append(buckets[level], q)
	}

	// Shuffle before the stable sort so equal recent-use counts end up in
	// random relative order.
	for _, bucket := range buckets {
		rng.Shuffle(len(bucket), func(i, j int) {
			bucket[i], bucket[j] = bucket[j], bucket[i]
		})
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].RecentUses < bucket[j].RecentUses
		})
	}

	quotas := bucketQuotas(policy, count)
	order := []model.MasteryLevel{model.MasteryWeak, model.MasteryMedium, model.MasteryStrong}

	var picked []model.Question
	for _, level := range order {
		n := min(quotas[level], len(buckets[level]))
		for _, q := range buckets[level][:n] {
			picked = append(picked, q.Question)
		}
		buckets[level] = buckets[level][n:]
	}

	// Quota deficits are filled from the leftovers, weak topics first.
	for _, level := range order {
		for len(picked) < count && len(buckets[level]) > 0 {
			picked = append(picked, buckets[level][0].Question)
			buckets[level] = buckets[level][1:]
		}
	}

	// Presentation order should not expose the bucket structure.
	rng.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})

	return Selection{Questions: picked, Shortfall: count - len(picked)}
}

// bucketQuotas rounds the per-bucket targets and hands any rounding
// remainder to the weak bucket. Over-allocation from rounding up is taken
// back from strong, then medium.
func bucketQuotas(policy config.TrainerPolicy, count int) map[model.MasteryLevel]int {
	weak := int(math.Round(float64(count) * float64(policy.WeakPercent) / 100))
	medium := int(math.Round(float64(count) * float64(policy.MediumPercent) / 100))
	strong := int(math.Round(float64(count) * float64(policy.StrongPercent) / 100))

	for weak+medium+strong > count {
		if strong > 0 {
			strong--
		} else if medium > 0 {
			medium--
		} else {
			weak--
		}
	}
	weak += count - weak - medium - strong

	return map[model.MasteryLevel]int{
		model.MasteryWeak:   weak,
		model.MasteryMedium: medium,
		model.MasteryStrong: strong,
	}
}
