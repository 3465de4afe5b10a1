package game

import "errors"

var (
	ErrNoAbility     = errors.New("role has no active ability")
	ErrAbilityUsed   = errors.New("ability already used this round")
	ErrInvalidTarget = errors.New("invalid ability target")
)

// abilityEffect mutates the snapshot on behalf of an actor. Effects run
// strictly before the one-shot flag flips; the whole snapshot persists as
// one write, so a failed persist retries with the flag still clear.
type abilityEffect struct {
	needsTarget bool
	apply       func(s *Snapshot, actor, target *Player) (revealed Role, err error)
}

// abilityTable maps role kind to its one-shot effect. Mimic and Jester
// are passive and deliberately absent.
var abilityTable = map[Role]abilityEffect{
	RoleGuardian: {
		needsTarget: true,
		apply: func(_ *Snapshot, _, target *Player) (Role, error) {
			target.IsProtected = true
			return "", nil
		},
	},
	RoleTrickster: {
		needsTarget: true,
		apply: func(_ *Snapshot, _, target *Player) (Role, error) {
			target.VoteMultiplier = -1
			return "", nil
		},
	},
	RoleIllusionist: {
		needsTarget: true,
		apply: func(_ *Snapshot, _, target *Player) (Role, error) {
			target.VoteMultiplier = 0
			return "", nil
		},
	},
	RoleSpy: {
		needsTarget: false,
		apply: func(_ *Snapshot, actor, _ *Player) (Role, error) {
			actor.VoteMultiplier = 2
			return "", nil
		},
	},
	RoleOracle: {
		needsTarget: true,
		apply: func(_ *Snapshot, _, target *Player) (Role, error) {
			return target.Role, nil
		},
	},
}

// HasAbility reports whether the role has an active one-shot ability.
func HasAbility(r Role) bool {
	_, ok := abilityTable[r]
	return ok
}

// UseAbility applies the actor's role ability. Abilities are live from
// Presenting through Voting; the revealed role is non-empty only for the
// Oracle and is for the actor's eyes alone.
func (s *Snapshot) UseAbility(actorID, targetID string) (Role, error) {
	switch s.Room.State {
	case PhasePresenting, PhaseDiscussion, PhaseVoting:
	default:
		return "", ErrWrongPhase
	}
	actor := s.Player(actorID)
	if actor == nil {
		return "", ErrInvalidTarget
	}
	effect, ok := abilityTable[actor.Role]
	if !ok {
		return "", ErrNoAbility
	}
	if actor.AbilityUsed {
		return "", ErrAbilityUsed
	}
	var target *Player
	if effect.needsTarget {
		if target = s.Player(targetID); target == nil {
			return "", ErrInvalidTarget
		}
	}
	revealed, err := effect.apply(s, actor, target)
	if err != nil {
		return "", err
	}
	actor.AbilityUsed = true
	return revealed, nil
}
