package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, 1, (&Profile{XP: 0}).Level())
	assert.Equal(t, 1, (&Profile{XP: 99}).Level())
	assert.Equal(t, 2, (&Profile{XP: 100}).Level())
	assert.Equal(t, 4, (&Profile{XP: 315}).Level())
}

func TestCompleted(t *testing.T) {
	p := &Profile{CompletedItems: []string{"A-Q1", "A-Q2"}}
	assert.True(t, p.HasCompleted("A-Q1"))
	assert.False(t, p.HasCompleted("A-Q3"))
	assert.Equal(t, map[string]bool{"A-Q1": true, "A-Q2": true}, p.CompletedSet())
}
