package game

// TallyResult is the outcome of aggregating one voting phase.
type TallyResult struct {
	Counts   map[string]int
	WinnerID string
	IsTie    bool
}

// Tally aggregates the cast votes into weighted per-target totals and
// resolves the leader. Votes against a protected target are discarded
// outright; everyone else's vote carries the voter's multiplier. A tie
// at the top always yields no winner, whatever sits below it. Pure
// function over the roster, no I/O.
func Tally(players []Player) TallyResult {
	res := TallyResult{Counts: make(map[string]int)}

	protected := make(map[string]bool, len(players))
	for i := range players {
		if players[i].IsProtected {
			protected[players[i].ID] = true
		}
	}

	for i := range players {
		target := players[i].Vote
		if target == "" || protected[target] {
			continue
		}
		res.Counts[target] += players[i].VoteMultiplier
	}

	first := true
	best := 0
	for id, total := range res.Counts {
		switch {
		case first || total > best:
			best = total
			res.WinnerID = id
			res.IsTie = false
			first = false
		case total == best:
			res.IsTie = true
		}
	}
	if res.IsTie {
		res.WinnerID = ""
	}
	return res
}

// ClassifyOutcome maps the resolved winner's role onto the round outcome.
func ClassifyOutcome(winnerID string, winnerRole Role) Outcome {
	if winnerID == "" {
		return OutcomeTie
	}
	switch winnerRole {
	case RoleChameleon, RoleMimic:
		return OutcomeImposterCaught
	case RoleJester:
		return OutcomeJesterWins
	default:
		return OutcomeInnocentVoted
	}
}
