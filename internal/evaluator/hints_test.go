package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abhisek/tutord/internal/catalog"
)

func ladder() []catalog.Hint {
	return []catalog.Hint{
		{Level: 1, Text: "level one"},
		{Level: 2, Text: "level two"},
		{Level: 3, Text: "level three"},
	}
}

func TestPickHint_LadderByAttempt(t *testing.T) {
	hints := ladder()

	// Attempts 0,1,2,3 select levels 1,2,3,3.
	assert.Equal(t, "level one", PickHint(hints, 0))
	assert.Equal(t, "level two", PickHint(hints, 1))
	assert.Equal(t, "level three", PickHint(hints, 2))
	assert.Equal(t, "level three", PickHint(hints, 3))
	assert.Equal(t, "level three", PickHint(hints, 17))
}

func TestPickHint_MissingDesiredLevel(t *testing.T) {
	hints := []catalog.Hint{{Level: 1, Text: "only one"}}

	// Desired level 2 is absent; level 1 is the next candidate.
	assert.Equal(t, "only one", PickHint(hints, 1))
	assert.Equal(t, "only one", PickHint(hints, 5))
}

func TestPickHint_FirstAvailableFallback(t *testing.T) {
	hints := []catalog.Hint{{Level: 5, Text: "way out there"}}
	assert.Equal(t, "way out there", PickHint(hints, 0))
}

func TestPickHint_GenericNudge(t *testing.T) {
	assert.Equal(t, GenericNudge, PickHint(nil, 0))
}
