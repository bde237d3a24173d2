package mastery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	assert.Equal(t, 0.0, Score(0, 0))
	assert.Equal(t, 0.0, Score(0, 10))
	assert.Equal(t, 0.5, Score(5, 10))
	assert.Equal(t, 1.0, Score(10, 10))
	// Stale weights never push the score out of range.
	assert.Equal(t, 1.0, Score(12, 10))
}

func TestBandOf(t *testing.T) {
	assert.Equal(t, BandNew, BandOf(0))
	assert.Equal(t, BandLearning, BandOf(0.3))
	assert.Equal(t, BandProficient, BandOf(0.5))
	assert.Equal(t, BandProficient, BandOf(0.99))
	assert.Equal(t, BandMastered, BandOf(1))
}
