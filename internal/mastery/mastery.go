// Package mastery scores a learner's command of a topic from their
// progression through it.
package mastery

// Band is the coarse mastery label shown alongside the numeric score.
type Band string

const (
	BandNew        Band = "new"
	BandLearning   Band = "learning"
	BandProficient Band = "proficient"
	BandMastered   Band = "mastered"
)

// Score computes the topic mastery in [0,1] from completions. Harder
// items weigh more, so finishing the Hard tail of a topic moves the
// score further than re-treading Easy openers.
func Score(completedWeight, totalWeight float64) float64 {
	if totalWeight <= 0 {
		return 0
	}
	s := completedWeight / totalWeight
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// BandOf maps a score onto its display band.
func BandOf(score float64) Band {
	switch {
	case score <= 0:
		return BandNew
	case score < 0.5:
		return BandLearning
	case score < 1:
		return BandProficient
	default:
		return BandMastered
	}
}
