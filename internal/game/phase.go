package game

import (
	"errors"
	"time"
)

// Transition guards. A caller holding a stale snapshot gets ErrWrongPhase
// and simply re-reads; racing transitions are resolved upstream by the
// store's compare-and-set, never surfaced to players.
var (
	ErrWrongPhase       = errors.New("transition does not apply to current phase")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrNotAllReady      = errors.New("not all players are ready")
	ErrNoWords          = errors.New("category has no words")
)

// Snapshot is the transactional unit every transition operates on: the
// Room and its Players, mutated together and persisted as one write.
type Snapshot struct {
	Room    Room
	Players []Player
}

// Player returns a pointer into the roster, or nil.
func (s *Snapshot) Player(id string) *Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// resetRoundPlayerFields clears everything scoped to a single round.
func (s *Snapshot) resetRoundPlayerFields() {
	for i := range s.Players {
		p := &s.Players[i]
		p.TurnDescription = ""
		p.Vote = ""
		p.IsProtected = false
		p.VoteMultiplier = 1
		p.SpecialWord = ""
		p.AbilityUsed = false
	}
}

// clearRoundResults wipes the frozen outcome of the previous round.
func (s *Snapshot) clearRoundResults() {
	s.Room.VotesTally = nil
	s.Room.RevealedPlayerID = ""
	s.Room.RevealedRole = ""
	s.Room.RoundOutcome = OutcomeNone
}

// beginSelecting assigns fresh roles and a fresh rotation for the round
// about to start. Selecting itself carries no deadline; the host confirms
// a category at their own pace.
func (s *Snapshot) beginSelecting(round int, now time.Time) {
	s.Room.State = PhaseSelecting
	s.Room.Round = round
	s.Room.Category = ""
	s.Room.SecretWord = ""
	s.Room.CurrentTurn = 0
	s.Room.PhaseEndsAt = time.Time{}
	s.resetRoundPlayerFields()
	s.clearRoundResults()

	assigned := AssignRoles(s.Players, s.Room.Settings)
	spyTarget := SpyTargetID(assigned)
	for i := range s.Players {
		p := &s.Players[i]
		p.Role = assigned[p.ID]
		if p.Role == RoleSpy {
			p.SpecialWord = spyTarget
		}
	}
	s.Room.TurnOrder = NewTurnOrder(s.Players)
	s.Room.UpdatedAt = now
}

// StartGame moves Lobby -> Selecting for round 1. The host triggers it;
// every player must be ready and the roster at least MinPlayers strong.
func (s *Snapshot) StartGame(now time.Time) error {
	if s.Room.State != PhaseLobby {
		return ErrWrongPhase
	}
	if len(s.Players) < MinPlayers {
		return ErrNotEnoughPlayers
	}
	for i := range s.Players {
		if !s.Players[i].IsReady {
			return ErrNotAllReady
		}
	}
	s.beginSelecting(1, now)
	return nil
}

// SelectCategory moves Selecting -> Presenting: draws the secret word,
// derives the Mimic's decoy from the same list, resets the rotation and
// arms the presenting timer.
func (s *Snapshot) SelectCategory(category, secret string, words []string, now time.Time) error {
	if s.Room.State != PhaseSelecting {
		return ErrWrongPhase
	}
	if secret == "" {
		return ErrNoWords
	}
	s.Room.Category = category
	s.Room.SecretWord = secret
	s.Room.TurnOrder = NewTurnOrder(s.Players)
	s.Room.CurrentTurn = 0
	s.clearRoundResults()

	decoy := MimicDecoy(secret, words)
	for i := range s.Players {
		if s.Players[i].Role == RoleMimic {
			s.Players[i].SpecialWord = decoy
		}
	}

	s.Room.State = PhasePresenting
	s.Room.PhaseEndsAt = now.Add(time.Duration(s.Room.Settings.PresentingSeconds) * time.Second)
	s.Room.UpdatedAt = now
	return nil
}

// AdvanceAfterSubmission runs right after a description lands: either the
// roster is complete and the room drops into Discussion, or the rotation
// moves one seat and the presenting timer rearms.
func (s *Snapshot) AdvanceAfterSubmission(now time.Time) error {
	if s.Room.State != PhasePresenting {
		return ErrWrongPhase
	}
	if AllSubmitted(s.Players) {
		s.Room.State = PhaseDiscussion
		s.Room.PhaseEndsAt = now.Add(time.Duration(s.Room.Settings.DiscussionSeconds) * time.Second)
	} else {
		s.Room.CurrentTurn = NextTurn(s.Room.TurnOrder, s.Room.CurrentTurn)
		s.Room.PhaseEndsAt = now.Add(time.Duration(s.Room.Settings.PresentingSeconds) * time.Second)
	}
	s.Room.UpdatedAt = now
	return nil
}

// BeginVoting moves Discussion -> Voting, clearing any stale ballots.
func (s *Snapshot) BeginVoting(now time.Time) error {
	if s.Room.State != PhaseDiscussion {
		return ErrWrongPhase
	}
	for i := range s.Players {
		s.Players[i].Vote = ""
	}
	s.Room.State = PhaseVoting
	s.Room.PhaseEndsAt = now.Add(time.Duration(s.Room.Settings.VotingSeconds) * time.Second)
	s.Room.UpdatedAt = now
	return nil
}

// AllVoted reports whether every player has cast a ballot.
func (s *Snapshot) AllVoted() bool {
	for i := range s.Players {
		if s.Players[i].Vote == "" {
			return false
		}
	}
	return len(s.Players) > 0
}

// ResolveVotes moves Voting -> Results. The tally is computed and frozen
// here, exactly once; Results only ever displays this snapshot, which is
// what makes the countdown auto-advance safe to re-trigger.
func (s *Snapshot) ResolveVotes(now time.Time) error {
	if s.Room.State != PhaseVoting {
		return ErrWrongPhase
	}
	res := Tally(s.Players)
	s.Room.VotesTally = res.Counts
	s.Room.RevealedPlayerID = res.WinnerID
	s.Room.RevealedRole = ""
	if p := s.Player(res.WinnerID); p != nil {
		s.Room.RevealedRole = p.Role
	}
	s.Room.RoundOutcome = ClassifyOutcome(res.WinnerID, s.Room.RevealedRole)

	s.Room.State = PhaseResults
	s.Room.PhaseEndsAt = now.Add(time.Duration(s.Room.Settings.ResultsSeconds) * time.Second)
	s.Room.UpdatedAt = now
	return nil
}

// GameOver reports whether the frozen outcome terminates the game: the
// round cap is reached or the outlier was caught. A caught Mimic still
// reads as ImposterCaught in the results, but the Chameleon is at large,
// so play continues.
func (s *Snapshot) GameOver() bool {
	if s.Room.RevealedRole.IsOutlier() {
		return true
	}
	return s.Room.Round >= s.Room.Settings.MaxRounds
}

// AdvanceRound moves Results -> Selecting for the next round, or -> Ended
// when the game is over.
func (s *Snapshot) AdvanceRound(now time.Time) error {
	if s.Room.State != PhaseResults {
		return ErrWrongPhase
	}
	if s.GameOver() {
		s.Room.State = PhaseEnded
		s.Room.PhaseEndsAt = time.Time{}
		s.Room.UpdatedAt = now
		return nil
	}
	s.beginSelecting(s.Room.Round+1, now)
	return nil
}

// Reset is the only cancellation primitive: back to Lobby from any state,
// all round-scoped fields cleared, only the host left ready.
func (s *Snapshot) Reset(now time.Time) {
	s.Room.State = PhaseLobby
	s.Room.Round = 0
	s.Room.Category = ""
	s.Room.SecretWord = ""
	s.Room.TurnOrder = nil
	s.Room.CurrentTurn = 0
	s.Room.PhaseEndsAt = time.Time{}
	s.clearRoundResults()
	s.resetRoundPlayerFields()
	for i := range s.Players {
		s.Players[i].Role = ""
		s.Players[i].IsReady = s.Players[i].IsHost
	}
	s.Room.UpdatedAt = now
}

// TimerExpired reports whether the current phase deadline has passed.
// Phases without a deadline never expire.
func (s *Snapshot) TimerExpired(now time.Time) bool {
	return !s.Room.PhaseEndsAt.IsZero() && !now.Before(s.Room.PhaseEndsAt)
}
