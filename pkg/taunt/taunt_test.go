package taunt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hmcavoy/mutiny-chess/pkg/game"
)

func TestShouldTaunt(t *testing.T) {
	t.Run("critical events always taunt", func(t *testing.T) {
		for _, trigger := range []string{TriggerCheck, TriggerBlunder, TriggerGameStart, TriggerPieceCaptured} {
			assert.True(t, ShouldTaunt(trigger, 0.99), trigger)
		}
	})

	t.Run("other events taunt on low draws only", func(t *testing.T) {
		assert.True(t, ShouldTaunt(TriggerGreatMove, 0.1))
		assert.False(t, ShouldTaunt(TriggerGreatMove, 0.3))
		assert.False(t, ShouldTaunt(TriggerWinning, 0.9))
	})
}

func TestGenerate(t *testing.T) {
	t.Run("fills piece placeholder", func(t *testing.T) {
		line := Generate(TriggerPieceCaptured, 0, game.Knight, 0)
		assert.Equal(t, "Lost your Knight? How careless.", line)
	})

	t.Run("placeholder defaults without a piece", func(t *testing.T) {
		line := Generate(TriggerPieceCaptured, 0, "", 2)
		assert.Equal(t, "Your piece won't be missed... by me.", line)
	})

	t.Run("pick wraps around the pool", func(t *testing.T) {
		assert.Equal(t, Generate(TriggerCheck, 0, "", 1), Generate(TriggerCheck, 0, "", 6))
	})

	t.Run("unknown trigger infers winning from material", func(t *testing.T) {
		line := Generate("some_random_event", 5, "", 0)
		assert.Contains(t, pools[TriggerWinning], line)
	})

	t.Run("unknown trigger infers losing from material", func(t *testing.T) {
		line := Generate("some_random_event", -5, "", 0)
		assert.Contains(t, pools[TriggerLosing], line)
	})

	t.Run("neutral unknown trigger stays silent", func(t *testing.T) {
		assert.Empty(t, Generate("some_random_event", 1, "", 0))
		assert.Empty(t, Generate("some_random_event", -3, "", 0))
	})

	t.Run("every pool line is non-empty after fill", func(t *testing.T) {
		for trigger, pool := range pools {
			for i := range pool {
				line := Generate(trigger, 0, game.Pawn, i)
				assert.NotEmpty(t, line)
				assert.False(t, strings.Contains(line, "{piece}"), "unfilled placeholder in %s", trigger)
			}
		}
	})
}

func TestIntensity(t *testing.T) {
	assert.Equal(t, 4, Intensity(0, TriggerCheck))
	assert.Equal(t, 4, Intensity(0, TriggerBlunder))
	assert.Equal(t, 3, Intensity(0, TriggerPieceCaptured))
	assert.Equal(t, 1, Intensity(0, TriggerGreatMove))
	assert.Equal(t, 2, Intensity(0, TriggerWinning))

	// Winning big sharpens the tongue, capped at 5.
	assert.Equal(t, 5, Intensity(6, TriggerCheck))
	assert.Equal(t, 3, Intensity(6, TriggerWinning))
	assert.Equal(t, 2, Intensity(6, TriggerGreatMove))
}
