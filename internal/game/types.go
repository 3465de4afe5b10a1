package game

import "time"

// Phase represents one state of the round lifecycle.
type Phase string

const (
	PhaseLobby      Phase = "LOBBY"
	PhaseSelecting  Phase = "SELECTING"
	PhasePresenting Phase = "PRESENTING"
	PhaseDiscussion Phase = "DISCUSSION"
	PhaseVoting     Phase = "VOTING"
	PhaseResults    Phase = "RESULTS"
	PhaseEnded      Phase = "ENDED"
)

// Role is the closed set of per-round player roles.
type Role string

const (
	RoleRegular     Role = "REGULAR"
	RoleChameleon   Role = "CHAMELEON"
	RoleMimic       Role = "MIMIC"
	RoleOracle      Role = "ORACLE"
	RoleSpy         Role = "SPY"
	RoleJester      Role = "JESTER"
	RoleGuardian    Role = "GUARDIAN"
	RoleTrickster   Role = "TRICKSTER"
	RoleIllusionist Role = "ILLUSIONIST"
)

// IsOutlier reports whether the role does not know the secret word.
func (r Role) IsOutlier() bool { return r == RoleChameleon }

// Outcome classifies a resolved vote.
type Outcome string

const (
	OutcomeNone           Outcome = ""
	OutcomeTie            Outcome = "TIE"
	OutcomeImposterCaught Outcome = "IMPOSTER_CAUGHT"
	OutcomeJesterWins     Outcome = "JESTER_WINS"
	OutcomeInnocentVoted  Outcome = "INNOCENT_VOTED"
)

// Settings is the per-room configuration snapshot, frozen at room creation
// and embedded in the Room so a mid-game settings edit cannot skew a round.
type Settings struct {
	MaxPlayers        int  `json:"max_players"`
	MaxRounds         int  `json:"max_rounds"`
	PresentingSeconds int  `json:"presenting_seconds"`
	DiscussionSeconds int  `json:"discussion_seconds"`
	VotingSeconds     int  `json:"voting_seconds"`
	ResultsSeconds    int  `json:"results_seconds"`
	SpecialAbilities  bool `json:"special_abilities"`
}

// DefaultSettings mirrors the values the clients ship with.
func DefaultSettings() Settings {
	return Settings{
		MaxPlayers:        12,
		MaxRounds:         3,
		PresentingSeconds: 30,
		DiscussionSeconds: 90,
		VotingSeconds:     45,
		ResultsSeconds:    5,
		SpecialAbilities:  true,
	}
}

// Player is one participant, owned by a Room. Round-scoped fields are
// cleared at every round start and on reset.
type Player struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsHost  bool   `json:"is_host"`
	IsReady bool   `json:"is_ready"`

	Role            Role   `json:"role,omitempty"`
	TurnDescription string `json:"turn_description,omitempty"`
	Vote            string `json:"vote,omitempty"`
	IsProtected     bool   `json:"is_protected,omitempty"`
	VoteMultiplier  int    `json:"vote_multiplier"`
	SpecialWord     string `json:"special_word,omitempty"`
	AbilityUsed     bool   `json:"ability_used,omitempty"`

	JoinedAt time.Time `json:"joined_at"`
}

// Room is the aggregate persisted per game instance. Players are stored
// alongside it; every transition rewrites both as one unit.
type Room struct {
	ID    string `json:"id"`
	State Phase  `json:"state"`

	Round      int    `json:"round"`
	Category   string `json:"category,omitempty"`
	SecretWord string `json:"secret_word,omitempty"`

	TurnOrder   []string `json:"turn_order,omitempty"`
	CurrentTurn int      `json:"current_turn"`

	// PhaseEndsAt is written once per transition; remaining seconds are
	// derived on read so the store is not hit every tick.
	PhaseEndsAt time.Time `json:"phase_ends_at,omitempty"`

	VotesTally       map[string]int `json:"votes_tally,omitempty"`
	RevealedPlayerID string         `json:"revealed_player_id,omitempty"`
	RevealedRole     Role           `json:"revealed_role,omitempty"`
	RoundOutcome     Outcome        `json:"round_outcome,omitempty"`

	Settings  Settings  `json:"settings"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TimerSeconds returns the remaining whole seconds of the current phase,
// never negative.
func (r *Room) TimerSeconds(now time.Time) int {
	if r.PhaseEndsAt.IsZero() {
		return 0
	}
	d := r.PhaseEndsAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

// MinPlayers is the floor below which a game cannot start.
const MinPlayers = 3

// SkipDescription is the literal a player submits to pass their turn.
// It still counts as a submission for phase completion.
const SkipDescription = "skip"
