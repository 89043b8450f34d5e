package services

import (
	"fmt"

	"github.com/hmcavoy/mutiny-chess/pkg/game"
)

// fallbackLines holds canned piece dialogue per piece type. Buckets: accept,
// refuse, plus high/low morale variants used when morale is extreme.
type fallbackLines struct {
	accept     []string
	refuse     []string
	highMorale []string
	lowMorale  []string
}

var fallbackResponses = map[game.PieceType]fallbackLines{
	game.Pawn: {
		accept:     []string{"Okay, moving!", "Yes sir!", "On my way!", "For the team!", "I'll do my best!"},
		refuse:     []string{"That's too dangerous!", "I don't want to go there!", "No way!", "I'll get captured!", "Can someone else do it?"},
		highMorale: []string{"Let's go! I'm feeling great!", "Unstoppable!", "To glory!"},
		lowMorale:  []string{"Do I have to?", "Fine... whatever.", "I guess..."},
	},
	game.Knight: {
		accept:     []string{"Let's ride!", "Easy!", "Watch this!", "A worthy challenge!", "Time to shine!"},
		refuse:     []string{"That's beneath me.", "Find another way.", "Nope.", "That's a waste of my talents.", "I don't retreat!"},
		highMorale: []string{"Nobody can stop me!", "Born for this!", "Watch and learn!"},
		lowMorale:  []string{"My lance feels heavy today.", "If you insist...", "This had better work."},
	},
	game.Bishop: {
		accept:     []string{"Strategically sound.", "A calculated move.", "I concur with this approach.", "The diagonal looks promising.", "Logical."},
		refuse:     []string{"That's tactically unsound.", "I need a logical reason.", "The risk-reward ratio is poor.", "I advise against this.", "Explain your reasoning."},
		highMorale: []string{"A brilliant strategy!", "I see the whole picture!", "Masterful positioning!"},
		lowMorale:  []string{"This position is deteriorating.", "I question our strategy.", "Hmm... if you insist."},
	},
	game.Rook: {
		accept:     []string{"Yes, commander.", "Moving out.", "Consider it done.", "As ordered.", "Holding position."},
		refuse:     []string{"I cannot comply.", "That goes against protocol.", "Negative.", "Too risky, sir.", "I need backup first."},
		highMorale: []string{"Ready for anything!", "The fortress stands!", "Reporting for duty!"},
		lowMorale:  []string{"Morale is low...", "Running on fumes.", "Acknowledged... reluctantly."},
	},
	game.Queen: {
		accept:     []string{"About time you asked!", "A queen's work is never done.", "Naturally.", "I'll handle this personally.", "As I intended."},
		refuse:     []string{"Absolutely not.", "Do you know what I'm worth?!", "That's a suicide mission!", "I refuse to be sacrificed.", "Find someone expendable."},
		highMorale: []string{"I AM this army!", "Nobody can match me!", "Bow before my power!"},
		lowMorale:  []string{"I've been neglected...", "Is anyone protecting ME?", "I expected better leadership."},
	},
	game.King: {
		accept:     []string{"If I must.", "For the kingdom.", "Very well.", "I'll be careful."},
		refuse:     []string{"Are you TRYING to get me killed?!", "TOO DANGEROUS!", "I'm the KING!", "Find another way!", "PROTECT ME!"},
		highMorale: []string{"My army is strong!", "We will prevail!", "I trust my pieces!"},
		lowMorale:  []string{"We're doomed...", "Is it time to resign?", "PANIC!"},
	},
}

var fallbackAnalysisTemplates = []string{
	"Decent move. Position looks stable.",
	"Careful - your pieces need better coordination.",
	"The position is roughly equal.",
	"Consider developing your remaining pieces.",
	"Good move! Centralizing pieces is always smart.",
}

// FallbackPieceResponse picks a canned line for a piece. High morale (>=70)
// on an accepted move and low morale (<=30) on a refusal use the flavored
// buckets. Always returns a non-empty line.
func FallbackPieceResponse(pieceType game.PieceType, moraleLevel int, willMove bool, pick int) string {
	lines, ok := fallbackResponses[pieceType]
	if !ok {
		lines = fallbackResponses[game.Pawn]
	}

	var pool []string
	if willMove {
		pool = lines.accept
		if moraleLevel >= 70 && len(lines.highMorale) > 0 {
			pool = lines.highMorale
		}
	} else {
		pool = lines.refuse
		if moraleLevel <= 30 && len(lines.lowMorale) > 0 {
			pool = lines.lowMorale
		}
	}

	if pick < 0 {
		pick = -pick
	}
	return pool[pick%len(pool)]
}

// FallbackPersuasionResponse is the canned reply to a persuasion outcome.
func FallbackPersuasionResponse(pieceType game.PieceType, success bool, pick int) string {
	if success {
		return "...Fine. But you better be right about this."
	}
	lines, ok := fallbackResponses[pieceType]
	if !ok {
		lines = fallbackResponses[game.Pawn]
	}
	if pick < 0 {
		pick = -pick
	}
	return lines.refuse[pick%len(lines.refuse)]
}

// FallbackAnalysis builds commentary without the generative backend. Quality
// and evaluation jitter come from the caller's random source.
func FallbackAnalysis(moveSAN string, materialBalance int, quality int, jitter float64, pick int) *game.MoveAnalysis {
	if pick < 0 {
		pick = -pick
	}
	text := fallbackAnalysisTemplates[pick%len(fallbackAnalysisTemplates)]
	return &game.MoveAnalysis{
		MoveQuality:  quality,
		Evaluation:   float64(materialBalance)*0.5 + jitter,
		AnalysisText: fmt.Sprintf("%s (%s)", text, moveSAN),
	}
}
