// Package gamedto holds the JSON shapes the API hands to clients, plus
// the per-viewer redaction that keeps secret data off the wire.
package gamedto

import (
	"time"

	"github.com/dannynguyen57/Chameleon-X-sub000/internal/game"
)

type PlayerView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	IsHost       bool   `json:"is_host"`
	IsReady      bool   `json:"is_ready"`
	HasSubmitted bool   `json:"has_submitted"`
	HasVoted     bool   `json:"has_voted"`
	Description  string `json:"description,omitempty"`
	Role         string `json:"role,omitempty"` // only populated once the game has ended
}

// YouView is the viewer's own secret slice of the room.
type YouView struct {
	ID          string `json:"id"`
	Role        string `json:"role,omitempty"`
	SpecialWord string `json:"special_word,omitempty"`
	Vote        string `json:"vote,omitempty"`
	HasAbility  bool   `json:"has_ability"`
	AbilityUsed bool   `json:"ability_used"`
}

type RoomView struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	Round     int    `json:"round"`
	MaxRounds int    `json:"max_rounds"`
	Category  string `json:"category,omitempty"`

	// Word is viewer-scoped: empty for the Chameleon and the Spy, the
	// decoy for the Mimic, the real secret for everyone else. Revealed
	// to all once the round resolves.
	Word string `json:"word,omitempty"`

	TurnOrder       []string `json:"turn_order,omitempty"`
	CurrentTurn     int      `json:"current_turn"`
	CurrentPlayerID string   `json:"current_player_id,omitempty"`
	TimerSeconds    int      `json:"timer_seconds"`

	VotesTally       map[string]int `json:"votes_tally,omitempty"`
	RevealedPlayerID string         `json:"revealed_player_id,omitempty"`
	RevealedRole     string         `json:"revealed_role,omitempty"`
	RoundOutcome     string         `json:"round_outcome,omitempty"`

	Players []PlayerView `json:"players"`
	You     *YouView     `json:"you,omitempty"`
}

// BuildRoomView renders one snapshot for one viewer. An empty viewerID
// yields the fully redacted spectator view.
func BuildRoomView(snap *game.Snapshot, viewerID string, now time.Time) *RoomView {
	r := &snap.Room
	ended := r.State == game.PhaseEnded
	resolved := r.State == game.PhaseResults || ended

	v := &RoomView{
		ID:           r.ID,
		State:        string(r.State),
		Round:        r.Round,
		MaxRounds:    r.Settings.MaxRounds,
		Category:     r.Category,
		TurnOrder:    r.TurnOrder,
		CurrentTurn:  r.CurrentTurn,
		TimerSeconds: r.TimerSeconds(now),

		VotesTally:       r.VotesTally,
		RevealedPlayerID: r.RevealedPlayerID,
		RevealedRole:     string(r.RevealedRole),
		RoundOutcome:     string(r.RoundOutcome),
	}
	if r.State == game.PhasePresenting && r.CurrentTurn < len(r.TurnOrder) {
		v.CurrentPlayerID = r.TurnOrder[r.CurrentTurn]
	}

	var viewer *game.Player
	for i := range snap.Players {
		p := &snap.Players[i]
		pv := PlayerView{
			ID:           p.ID,
			Name:         p.Name,
			IsHost:       p.IsHost,
			IsReady:      p.IsReady,
			HasSubmitted: p.TurnDescription != "",
			HasVoted:     p.Vote != "",
			Description:  p.TurnDescription,
		}
		if ended {
			pv.Role = string(p.Role)
		}
		v.Players = append(v.Players, pv)
		if p.ID == viewerID {
			viewer = p
		}
	}

	if viewer != nil {
		v.You = &YouView{
			ID:          viewer.ID,
			Role:        string(viewer.Role),
			SpecialWord: viewer.SpecialWord,
			Vote:        viewer.Vote,
			HasAbility:  game.HasAbility(viewer.Role),
			AbilityUsed: viewer.AbilityUsed,
		}
		v.Word = wordFor(viewer, r, resolved)
	} else if resolved {
		v.Word = r.SecretWord
	}
	return v
}

// wordFor applies the role-scoped word visibility: the Chameleon never
// sees it, the Spy knows who but not what, the Mimic is handed the decoy
// as if it were real. Once the round resolves everyone sees the truth.
func wordFor(viewer *game.Player, r *game.Room, resolved bool) string {
	if resolved {
		return r.SecretWord
	}
	switch viewer.Role {
	case game.RoleChameleon, game.RoleSpy:
		return ""
	case game.RoleMimic:
		return viewer.SpecialWord
	default:
		return r.SecretWord
	}
}
