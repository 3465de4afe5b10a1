package game

import "math/rand"

// NewTurnOrder returns a fresh uniform permutation of the roster's ids.
// Regenerated at the start of every round; roles carry no weight here.
func NewTurnOrder(players []Player) []string {
	order := make([]string, len(players))
	for i := range players {
		order[i] = players[i].ID
	}
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}

// NextTurn advances the rotation by one, resolving the current player by
// id rather than trusting the raw index, so a mutated roster between
// turns cannot crash the scheduler. Returns 0 on an empty order.
func NextTurn(turnOrder []string, currentTurn int) int {
	if len(turnOrder) == 0 {
		return 0
	}
	if currentTurn < 0 || currentTurn >= len(turnOrder) {
		return 0
	}
	cur := turnOrder[currentTurn]
	for i, id := range turnOrder {
		if id == cur {
			return (i + 1) % len(turnOrder)
		}
	}
	return 0
}

// AllSubmitted reports whether every player has a recorded description.
// Submission, not rotation position, decides phase completion: a literal
// "skip" counts, a stale currentTurn does not block.
func AllSubmitted(players []Player) bool {
	for i := range players {
		if players[i].TurnDescription == "" {
			return false
		}
	}
	return len(players) > 0
}
