package morale

import "github.com/hmcavoy/mutiny-chess/pkg/game"

// typeBias nudges obedience per piece type. Rooks and kings are dutiful,
// knights and queens have minds of their own.
var typeBias = map[game.PieceType]float64{
	game.Rook:   0.10,
	game.King:   0.15,
	game.Pawn:   0.05,
	game.Bishop: 0.00,
	game.Knight: -0.05,
	game.Queen:  -0.10,
}

// ObeyProbability returns the chance a piece follows an order. Risky moves
// cut the tier probability to 70% before the type bias is added.
func ObeyProbability(morale int, isRisky bool, pieceType game.PieceType) float64 {
	var base float64
	switch {
	case morale >= 80:
		base = 0.95
	case morale >= 60:
		base = 0.80
	case morale >= 40:
		base = 0.55
	case morale >= 20:
		base = 0.30
	default:
		base = 0.10
	}
	if isRisky {
		base *= 0.7
	}
	return base + typeBias[pieceType]
}

// WillObey decides whether the piece executes the order. The draw is a
// uniform value in [0,1) supplied by the caller so outcomes are reproducible.
// High morale on a safe move obeys unconditionally.
func WillObey(morale int, isRisky bool, pieceType game.PieceType, draw float64) bool {
	if morale >= 90 && !isRisky {
		return true
	}
	return draw < ObeyProbability(morale, isRisky, pieceType)
}
