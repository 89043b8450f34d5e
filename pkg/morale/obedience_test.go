package morale

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hmcavoy/mutiny-chess/pkg/game"
)

func TestObeyProbability(t *testing.T) {
	tests := []struct {
		name      string
		morale    int
		isRisky   bool
		pieceType game.PieceType
		expected  float64
	}{
		{"high morale bishop", 85, false, game.Bishop, 0.95},
		{"normal morale rook gets bias", 70, false, game.Rook, 0.90},
		{"normal morale queen loses bias", 70, false, game.Queen, 0.70},
		{"reluctant knight", 50, false, game.Knight, 0.50},
		{"demoralized pawn", 25, false, game.Pawn, 0.35},
		{"mutinous bishop", 10, false, game.Bishop, 0.10},
		{"risk multiplies before bias", 70, true, game.Rook, 0.80*0.7 + 0.10},
		{"king is steadiest", 85, false, game.King, 0.95 + 0.15},
		{"unknown type has no bias", 70, false, game.PieceType("wizard"), 0.80},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, ObeyProbability(tc.morale, tc.isRisky, tc.pieceType), 1e-9)
		})
	}
}

func TestWillObey(t *testing.T) {
	t.Run("very high morale always obeys safe orders", func(t *testing.T) {
		for _, draw := range []float64{0.0, 0.5, 0.9999} {
			assert.True(t, WillObey(95, false, game.Queen, draw))
		}
	})

	t.Run("very high morale still rolls on risky orders", func(t *testing.T) {
		// 0.95*0.7 - 0.10 = 0.565 for the queen
		assert.True(t, WillObey(95, true, game.Queen, 0.50))
		assert.False(t, WillObey(95, true, game.Queen, 0.60))
	})

	t.Run("rook at morale 70 obeys on median draw", func(t *testing.T) {
		assert.True(t, WillObey(70, false, game.Rook, 0.5))
	})

	t.Run("deterministic for fixed draw", func(t *testing.T) {
		first := WillObey(45, true, game.Knight, 0.31)
		for i := 0; i < 20; i++ {
			assert.Equal(t, first, WillObey(45, true, game.Knight, 0.31))
		}
	})

	t.Run("draw on either side of the probability decides", func(t *testing.T) {
		// Pawn at morale 60, safe: 0.80 tier + 0.05 bias. Compare against
		// the computed probability; the sum is not exactly representable.
		p := ObeyProbability(60, false, game.Pawn)
		assert.True(t, WillObey(60, false, game.Pawn, p-0.001))
		assert.False(t, WillObey(60, false, game.Pawn, p))
		assert.False(t, WillObey(60, false, game.Pawn, 0.86))
	})
}
