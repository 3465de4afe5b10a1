package room

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dannynguyen57/Chameleon-X-sub000/internal/game"
	"github.com/dannynguyen57/Chameleon-X-sub000/internal/obslog"
	"github.com/dannynguyen57/Chameleon-X-sub000/internal/words"
)

// errNothingToDo is returned by sweep closures when a room has no expired
// deadline; it suppresses the write without surfacing an error.
var errNothingToDo = errf("nothing to do")

// Manager is the single orchestration surface UI action handlers talk to.
// It validates preconditions, applies the phase machinery over one
// transactional snapshot per action, persists through the Store and
// notifies clients to refetch. It keeps no in-process game state.
type Manager struct {
	store  *Store
	words  *words.Catalog
	repo   *Repository
	notify Notifier
	now    func() time.Time
}

func NewManager(rdb *redis.Client, cat *words.Catalog) *Manager {
	return &Manager{store: NewStore(rdb), words: cat, now: time.Now}
}

// Store exposes the underlying store, mainly for wiring and tests.
func (m *Manager) Store() *Store { return m.store }

// AttachRepository wires an optional postgres archive for resolved rounds.
func (m *Manager) AttachRepository(r *Repository) {
	if m != nil {
		m.repo = r
	}
}

// AttachNotifier wires the fire-and-forget change broadcast.
func (m *Manager) AttachNotifier(n Notifier) {
	if m != nil {
		m.notify = n
	}
}

func (m *Manager) roomChanged(id string) {
	if m.notify != nil {
		m.notify.RoomChanged(id)
	}
}

// CreateRoom allocates a short shareable code and seeds the room in Lobby
// with its creator as host. The settings snapshot is frozen here.
func (m *Manager) CreateRoom(ctx context.Context, hostName string, settings game.Settings) (*game.Snapshot, error) {
	hostName = strings.TrimSpace(hostName)
	if hostName == "" {
		return nil, ErrInvalidName
	}
	code, err := m.store.AllocateCode(ctx)
	if err != nil {
		return nil, err
	}
	now := m.now()
	snap := &game.Snapshot{
		Room: game.Room{
			ID:        code,
			State:     game.PhaseLobby,
			Settings:  settings,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Players: []game.Player{{
			ID:             uuid.NewString(),
			Name:           hostName,
			IsHost:         true,
			IsReady:        true,
			VoteMultiplier: 1,
			JoinedAt:       now,
		}},
	}
	if err := m.store.Create(ctx, snap); err != nil {
		return nil, err
	}
	obslog.L().Info("room_create",
		zap.String("room_id", code),
		zap.String("host_id", snap.Players[0].ID),
	)
	m.roomChanged(code)
	return snap, nil
}

// JoinRoom adds a player in Lobby. Names must be unique within the room.
func (m *Manager) JoinRoom(ctx context.Context, roomID, name string) (string, *game.Snapshot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, ErrInvalidName
	}
	playerID := uuid.NewString()
	snap, err := m.store.Mutate(ctx, roomID, func(s *game.Snapshot) error {
		if s.Room.State != game.PhaseLobby {
			return ErrGameInProgress
		}
		if len(s.Players) >= s.Room.Settings.MaxPlayers {
			return ErrRoomFull
		}
		for i := range s.Players {
			if strings.EqualFold(s.Players[i].Name, name) {
				return ErrNameTaken
			}
		}
		s.Players = append(s.Players, game.Player{
			ID:             playerID,
			Name:           name,
			VoteMultiplier: 1,
			JoinedAt:       m.now(),
		})
		s.Room.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	obslog.L().Info("room_join",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID),
	)
	m.roomChanged(roomID)
	return playerID, snap, nil
}

// LeaveRoom removes a player. The host hat passes to the longest-joined
// remaining player; an emptied room is deleted outright. Removal and
// handover land in the same transactional write, so a reader never sees
// the departed player next to the promoted host.
func (m *Manager) LeaveRoom(ctx context.Context, roomID, playerID string) error {
	empty := false
	_, err := m.store.Mutate(ctx, roomID, func(s *game.Snapshot) error {
		idx := -1
		for i := range s.Players {
			if s.Players[i].ID == playerID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrNotInRoom
		}
		wasHost := s.Players[idx].IsHost
		s.Players = append(s.Players[:idx], s.Players[idx+1:]...)
		if len(s.Players) == 0 {
			empty = true
			return nil
		}
		if wasHost {
			// roster is kept sorted by join time
			s.Players[0].IsHost = true
			s.Players[0].IsReady = true
		}
		s.Room.UpdatedAt = m.now()
		return nil
	})
	if err != nil {
		return err
	}
	if empty {
		if err := m.store.Delete(ctx, roomID); err != nil {
			return err
		}
	}
	obslog.L().Info("room_leave",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID),
		zap.Bool("room_deleted", empty),
	)
	m.roomChanged(roomID)
	return nil
}

// SetReady toggles a player's lobby readiness. Readiness touches exactly
// one roster row and no Room field, so it takes the partial-update path:
// concurrent joins and other players' toggles cannot be clobbered.
func (m *Manager) SetReady(ctx context.Context, roomID, playerID string, ready bool) error {
	snap, err := m.store.Load(ctx, roomID)
	if err != nil {
		return err
	}
	if snap.Room.State != game.PhaseLobby {
		return ErrGameInProgress
	}
	p := snap.Player(playerID)
	if p == nil {
		return ErrNotInRoom
	}
	p.IsReady = ready
	if err := m.store.SavePlayer(ctx, roomID, p); err != nil {
		return err
	}
	m.roomChanged(roomID)
	return nil
}

// StartGame is the host's Lobby -> Selecting trigger.
func (m *Manager) StartGame(ctx context.Context, roomID, hostID string) error {
	snap, err := m.store.Mutate(ctx, roomID, func(s *game.Snapshot) error {
		if err := m.requireHost(s, hostID); err != nil {
			return err
		}
		return s.StartGame(m.now())
	})
	if err != nil {
		return err
	}
	obslog.L().Info("game_start",
		zap.String("room_id", roomID),
		zap.Int("players", len(snap.Players)),
		zap.Int("round", snap.Room.Round),
	)
	m.roomChanged(roomID)
	return nil
}

// SelectCategory is the host's Selecting -> Presenting trigger: one word
// is drawn uniformly from the chosen category.
func (m *Manager) SelectCategory(ctx context.Context, roomID, hostID, category string) error {
	list, ok := m.words.PickCategory(category)
	if !ok {
		return ErrUnknownCategory
	}
	secret, ok := m.words.RandomWord(category)
	if !ok {
		return game.ErrNoWords
	}
	_, err := m.store.Mutate(ctx, roomID, func(s *game.Snapshot) error {
		if err := m.requireHost(s, hostID); err != nil {
			return err
		}
		return s.SelectCategory(category, secret, list, m.now())
	})
	if err != nil {
		return err
	}
	obslog.L().Info("category_select",
		zap.String("room_id", roomID),
		zap.String("category", category),
	)
	m.roomChanged(roomID)
	return nil
}

// SubmitDescription records the clue of the player whose turn it is, then
// either rotates the turn or drops the room into Discussion when the
// roster is complete. Out-of-rotation submissions are rejected here;
// completion itself is submission-driven, not position-driven.
func (m *Manager) SubmitDescription(ctx context.Context, roomID, playerID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		text = game.SkipDescription
	}
	var phase game.Phase
	_, err := m.store.Mutate(ctx, roomID, func(s *game.Snapshot) error {
		if s.Room.State != game.PhasePresenting {
			return game.ErrWrongPhase
		}
		p := s.Player(playerID)
		if p == nil {
			return ErrNotInRoom
		}
		if p.TurnDescription != "" {
			return ErrAlreadySubmitted
		}
		if len(s.Room.TurnOrder) == 0 || s.Room.TurnOrder[s.Room.CurrentTurn] != playerID {
			return ErrNotYourTurn
		}
		p.TurnDescription = text
		if err := s.AdvanceAfterSubmission(m.now()); err != nil {
			return err
		}
		phase = s.Room.State
		return nil
	})
	if err != nil {
		return err
	}
	obslog.L().Info("description_submit",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID),
		zap.Bool("skipped", text == game.SkipDescription),
		zap.String("phase", string(phase)),
	)
	m.roomChanged(roomID)
	return nil
}

// CastVote records one ballot. Protected targets are rejected here for
// immediate feedback and discarded again inside the tally, so a bypassed
// client still cannot make them count. When the last ballot lands the
// room resolves straight into Results.
func (m *Manager) CastVote(ctx context.Context, roomID, voterID, targetID string) error {
	resolved := false
	snap, err := m.store.Mutate(ctx, roomID, func(s *game.Snapshot) error {
		if s.Room.State != game.PhaseVoting {
			return game.ErrWrongPhase
		}
		voter := s.Player(voterID)
		if voter == nil {
			return ErrNotInRoom
		}
		if voter.Vote != "" {
			return ErrAlreadyVoted
		}
		target := s.Player(targetID)
		if target == nil {
			return game.ErrInvalidTarget
		}
		if targetID == voterID {
			return ErrSelfVote
		}
		if target.IsProtected {
			return ErrTargetProtected
		}
		voter.Vote = targetID
		s.Room.UpdatedAt = m.now()
		if s.AllVoted() {
			if err := s.ResolveVotes(m.now()); err != nil {
				return err
			}
			resolved = true
		}
		return nil
	})
	if err != nil {
		return err
	}
	obslog.L().Info("vote_cast",
		zap.String("room_id", roomID),
		zap.String("voter_id", voterID),
		zap.Bool("resolved", resolved),
	)
	if resolved {
		m.archiveRound(ctx, snap)
	}
	m.roomChanged(roomID)
	return nil
}

// UseAbility applies the caller's one-shot role ability. The returned
// role is non-empty only for the Oracle and must reach the actor alone.
func (m *Manager) UseAbility(ctx context.Context, roomID, playerID, targetID string) (game.Role, error) {
	var revealed game.Role
	_, err := m.store.Mutate(ctx, roomID, func(s *game.Snapshot) error {
		var err error
		revealed, err = s.UseAbility(playerID, targetID)
		return err
	})
	if err != nil {
		return "", err
	}
	obslog.L().Info("ability_use",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID),
		zap.Bool("revealed", revealed != ""),
	)
	m.roomChanged(roomID)
	return revealed, nil
}

// AdvancePhase is the host's explicit advance: Discussion drops into
// Voting without waiting for the timer, Results moves to the next round
// or ends the game. Other phases advance on their own triggers only.
func (m *Manager) AdvancePhase(ctx context.Context, roomID, hostID string) error {
	var state game.Phase
	_, err := m.store.Mutate(ctx, roomID, func(s *game.Snapshot) error {
		if err := m.requireHost(s, hostID); err != nil {
			return err
		}
		switch s.Room.State {
		case game.PhaseDiscussion:
			if err := s.BeginVoting(m.now()); err != nil {
				return err
			}
		case game.PhaseResults:
			if err := s.AdvanceRound(m.now()); err != nil {
				return err
			}
		default:
			return game.ErrWrongPhase
		}
		state = s.Room.State
		return nil
	})
	if err != nil {
		return err
	}
	obslog.L().Info("round_advance",
		zap.String("room_id", roomID),
		zap.String("state", string(state)),
	)
	m.roomChanged(roomID)
	return nil
}

// ResetRoom is the only cancellation primitive: back to Lobby from any
// state, host triggered.
func (m *Manager) ResetRoom(ctx context.Context, roomID, hostID string) error {
	_, err := m.store.Mutate(ctx, roomID, func(s *game.Snapshot) error {
		if err := m.requireHost(s, hostID); err != nil {
			return err
		}
		s.Reset(m.now())
		return nil
	})
	if err != nil {
		return err
	}
	obslog.L().Info("room_reset", zap.String("room_id", roomID))
	m.roomChanged(roomID)
	return nil
}

// View loads the current snapshot for rendering; redaction happens in the
// DTO layer per viewer.
func (m *Manager) View(ctx context.Context, roomID string) (*game.Snapshot, error) {
	return m.store.Load(ctx, roomID)
}

// SweepExpired walks the live rooms and fires every transition whose
// deadline has passed. It is safe to run concurrently with player
// actions and with other sweepers: each advance is phase-guarded, so the
// losing invocation is a no-op.
func (m *Manager) SweepExpired(ctx context.Context) {
	ids, err := m.store.ActiveRoomIDs(ctx)
	if err != nil {
		obslog.L().Warn("sweep_list_error", zap.Error(err))
		return
	}
	for _, id := range ids {
		resolved := false
		snap, err := m.store.Mutate(ctx, id, func(s *game.Snapshot) error {
			if !s.TimerExpired(m.now()) {
				return errNothingToDo
			}
			switch s.Room.State {
			case game.PhasePresenting:
				// deadline passed with no clue: the seat skips
				if len(s.Room.TurnOrder) > 0 && s.Room.CurrentTurn < len(s.Room.TurnOrder) {
					if p := s.Player(s.Room.TurnOrder[s.Room.CurrentTurn]); p != nil && p.TurnDescription == "" {
						p.TurnDescription = game.SkipDescription
					}
				}
				return s.AdvanceAfterSubmission(m.now())
			case game.PhaseDiscussion:
				return s.BeginVoting(m.now())
			case game.PhaseVoting:
				if err := s.ResolveVotes(m.now()); err != nil {
					return err
				}
				resolved = true
				return nil
			case game.PhaseResults:
				return s.AdvanceRound(m.now())
			default:
				return errNothingToDo
			}
		})
		if errors.Is(err, errNothingToDo) {
			continue
		}
		if err != nil {
			obslog.L().Warn("sweep_advance_error", zap.String("room_id", id), zap.Error(err))
			continue
		}
		obslog.L().Info("sweep_advance",
			zap.String("room_id", id),
			zap.String("state", string(snap.Room.State)),
		)
		if resolved {
			m.archiveRound(ctx, snap)
		}
		m.roomChanged(id)
	}
}

// RunSweeper drives SweepExpired on a coarse interval until ctx ends.
// The store holds the deadlines; this loop never writes per tick.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.SweepExpired(ctx)
		}
	}
}

func (m *Manager) requireHost(s *game.Snapshot, playerID string) error {
	p := s.Player(playerID)
	if p == nil {
		return ErrNotInRoom
	}
	if !p.IsHost {
		return ErrNotHost
	}
	return nil
}

// archiveRound persists the frozen outcome of a resolved round. Best
// effort: the game continues even when the archive is down.
func (m *Manager) archiveRound(ctx context.Context, snap *game.Snapshot) {
	if m.repo == nil || snap == nil {
		return
	}
	if err := m.repo.SaveRoundResult(ctx, snap); err != nil {
		obslog.L().Error("round_archive_error",
			zap.String("room_id", snap.Room.ID),
			zap.Int("round", snap.Room.Round),
			zap.Error(err),
		)
		return
	}
	obslog.L().Info("round_archive",
		zap.String("room_id", snap.Room.ID),
		zap.Int("round", snap.Room.Round),
		zap.String("outcome", string(snap.Room.RoundOutcome)),
	)
}
