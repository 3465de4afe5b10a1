package room

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/dannynguyen57/Chameleon-X-sub000/internal/game"
	"github.com/dannynguyen57/Chameleon-X-sub000/internal/words"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	cat, err := words.New("")
	if err != nil {
		t.Fatalf("words.New: %v", err)
	}
	return NewManager(rdb, cat)
}

// startedRoom drives a fresh room into Presenting with three players and
// returns the room id plus the player ids in roster order (host first).
func startedRoom(t *testing.T, m *Manager) (string, []string) {
	t.Helper()
	ctx := context.Background()

	snap, err := m.CreateRoom(ctx, "alice", game.DefaultSettings())
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	roomID := snap.Room.ID
	hostID := snap.Players[0].ID

	bobID, _, err := m.JoinRoom(ctx, roomID, "bob")
	if err != nil {
		t.Fatalf("JoinRoom bob: %v", err)
	}
	carolID, _, err := m.JoinRoom(ctx, roomID, "carol")
	if err != nil {
		t.Fatalf("JoinRoom carol: %v", err)
	}
	for _, id := range []string{bobID, carolID} {
		if err := m.SetReady(ctx, roomID, id, true); err != nil {
			t.Fatalf("SetReady: %v", err)
		}
	}
	if err := m.StartGame(ctx, roomID, hostID); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if err := m.SelectCategory(ctx, roomID, hostID, "Animals"); err != nil {
		t.Fatalf("SelectCategory: %v", err)
	}
	return roomID, []string{hostID, bobID, carolID}
}

func TestJoinRoom_Guards(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	settings := game.DefaultSettings()
	settings.MaxPlayers = 2
	snap, err := m.CreateRoom(ctx, "alice", settings)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	roomID := snap.Room.ID

	if _, _, err := m.JoinRoom(ctx, roomID, "Alice"); !errors.Is(err, ErrNameTaken) {
		t.Fatalf("duplicate name: %v", err)
	}
	if _, _, err := m.JoinRoom(ctx, roomID, "bob"); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if _, _, err := m.JoinRoom(ctx, roomID, "carol"); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("full room: %v", err)
	}
	if _, _, err := m.JoinRoom(ctx, "ZZZZZZ", "dave"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("missing room: %v", err)
	}
}

func TestCreateJoin_NameRequired(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.CreateRoom(ctx, "   ", game.DefaultSettings()); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("blank host name: %v", err)
	}
	snap, err := m.CreateRoom(ctx, "alice", game.DefaultSettings())
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, _, err := m.JoinRoom(ctx, snap.Room.ID, ""); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("blank join name: %v", err)
	}
}

func TestSetReady(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	snap, err := m.CreateRoom(ctx, "alice", game.DefaultSettings())
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	roomID := snap.Room.ID
	bobID, _, err := m.JoinRoom(ctx, roomID, "bob")
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	if err := m.SetReady(ctx, roomID, "ghost", true); !errors.Is(err, ErrNotInRoom) {
		t.Fatalf("unknown player: %v", err)
	}
	if err := m.SetReady(ctx, roomID, bobID, true); err != nil {
		t.Fatalf("SetReady: %v", err)
	}

	after, err := m.View(ctx, roomID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if !after.Player(bobID).IsReady {
		t.Fatalf("readiness not persisted")
	}
	// the host row is untouched by bob's toggle
	if h := after.Players[0]; !h.IsHost || h.Name != "alice" {
		t.Fatalf("host row clobbered: %+v", h)
	}
}

func TestSelectCategory_DrawsFromCatalog(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	roomID, _ := startedRoom(t, m)

	snap, err := m.View(ctx, roomID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	list, ok := m.words.PickCategory("Animals")
	if !ok {
		t.Fatalf("Animals category missing")
	}
	found := false
	for _, w := range list {
		if w == snap.Room.SecretWord {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("secret %q not drawn from the category", snap.Room.SecretWord)
	}
}

func TestLeaveRoom_HostHandover(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	snap, err := m.CreateRoom(ctx, "alice", game.DefaultSettings())
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	roomID := snap.Room.ID
	hostID := snap.Players[0].ID
	bobID, _, err := m.JoinRoom(ctx, roomID, "bob")
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	if err := m.LeaveRoom(ctx, roomID, hostID); err != nil {
		t.Fatalf("LeaveRoom host: %v", err)
	}
	after, err := m.View(ctx, roomID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if len(after.Players) != 1 || after.Players[0].ID != bobID {
		t.Fatalf("roster after handover: %+v", after.Players)
	}
	if !after.Players[0].IsHost || !after.Players[0].IsReady {
		t.Fatalf("new host not promoted: %+v", after.Players[0])
	}

	// last player out deletes the room
	if err := m.LeaveRoom(ctx, roomID, bobID); err != nil {
		t.Fatalf("LeaveRoom last: %v", err)
	}
	if _, err := m.View(ctx, roomID); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("deleted room still loads: %v", err)
	}
}

func TestStartGame_RequiresHostAndReady(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	snap, err := m.CreateRoom(ctx, "alice", game.DefaultSettings())
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	roomID := snap.Room.ID
	hostID := snap.Players[0].ID
	bobID, _, _ := m.JoinRoom(ctx, roomID, "bob")
	m.JoinRoom(ctx, roomID, "carol")

	if err := m.StartGame(ctx, roomID, bobID); !errors.Is(err, ErrNotHost) {
		t.Fatalf("non-host start: %v", err)
	}
	if err := m.StartGame(ctx, roomID, hostID); !errors.Is(err, game.ErrNotAllReady) {
		t.Fatalf("unready start: %v", err)
	}
}

func TestSubmitDescription_Rotation(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	roomID, ids := startedRoom(t, m)

	snap, err := m.View(ctx, roomID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	order := snap.Room.TurnOrder
	if len(order) != len(ids) {
		t.Fatalf("turn order length = %d", len(order))
	}

	// anyone but the current seat is rejected
	outOfTurn := order[1]
	if err := m.SubmitDescription(ctx, roomID, outOfTurn, "early"); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("out of turn: %v", err)
	}

	if err := m.SubmitDescription(ctx, roomID, order[0], "striped"); err != nil {
		t.Fatalf("submit #1: %v", err)
	}
	if err := m.SubmitDescription(ctx, roomID, order[0], "again"); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("double submit: %v", err)
	}
	// an empty clue is stored as an explicit skip
	if err := m.SubmitDescription(ctx, roomID, order[1], "   "); err != nil {
		t.Fatalf("submit #2: %v", err)
	}
	if err := m.SubmitDescription(ctx, roomID, order[2], "fast"); err != nil {
		t.Fatalf("submit #3: %v", err)
	}

	snap, err = m.View(ctx, roomID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if snap.Room.State != game.PhaseDiscussion {
		t.Fatalf("state = %s after full rotation", snap.Room.State)
	}
	if got := snap.Player(order[1]).TurnDescription; got != game.SkipDescription {
		t.Fatalf("blank clue stored as %q", got)
	}
}

func TestCastVote_GuardsAndResolve(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	roomID, ids := startedRoom(t, m)

	// fast-forward into Voting
	if _, err := m.store.Mutate(ctx, roomID, func(s *game.Snapshot) error {
		for i := range s.Players {
			s.Players[i].TurnDescription = "clue"
		}
		s.Room.State = game.PhaseDiscussion
		return s.BeginVoting(m.now())
	}); err != nil {
		t.Fatalf("force voting: %v", err)
	}

	if err := m.CastVote(ctx, roomID, ids[0], ids[0]); !errors.Is(err, ErrSelfVote) {
		t.Fatalf("self vote: %v", err)
	}
	if err := m.CastVote(ctx, roomID, ids[0], "ghost"); !errors.Is(err, game.ErrInvalidTarget) {
		t.Fatalf("unknown target: %v", err)
	}

	// protect one player and confirm votes on them bounce
	if _, err := m.store.Mutate(ctx, roomID, func(s *game.Snapshot) error {
		s.Player(ids[2]).IsProtected = true
		return nil
	}); err != nil {
		t.Fatalf("force protection: %v", err)
	}
	if err := m.CastVote(ctx, roomID, ids[0], ids[2]); !errors.Is(err, ErrTargetProtected) {
		t.Fatalf("protected target: %v", err)
	}

	if err := m.CastVote(ctx, roomID, ids[0], ids[1]); err != nil {
		t.Fatalf("vote #1: %v", err)
	}
	if err := m.CastVote(ctx, roomID, ids[0], ids[1]); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("revote: %v", err)
	}
	if err := m.CastVote(ctx, roomID, ids[1], ids[0]); err != nil {
		t.Fatalf("vote #2: %v", err)
	}
	// the final ballot resolves the round immediately
	if err := m.CastVote(ctx, roomID, ids[2], ids[1]); err != nil {
		t.Fatalf("vote #3: %v", err)
	}

	snap, err := m.View(ctx, roomID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if snap.Room.State != game.PhaseResults {
		t.Fatalf("state = %s after last ballot", snap.Room.State)
	}
	if snap.Room.RevealedPlayerID != ids[1] {
		t.Fatalf("revealed %q, want %q", snap.Room.RevealedPlayerID, ids[1])
	}
	if snap.Room.VotesTally[ids[1]] != 2 {
		t.Fatalf("tally = %v", snap.Room.VotesTally)
	}
}

func TestAdvancePhase(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	roomID, ids := startedRoom(t, m)

	// Presenting advances on submissions, not on host request
	if err := m.AdvancePhase(ctx, roomID, ids[0]); !errors.Is(err, game.ErrWrongPhase) {
		t.Fatalf("advance in presenting: %v", err)
	}

	if _, err := m.store.Mutate(ctx, roomID, func(s *game.Snapshot) error {
		s.Room.State = game.PhaseDiscussion
		return nil
	}); err != nil {
		t.Fatalf("force discussion: %v", err)
	}
	if err := m.AdvancePhase(ctx, roomID, ids[1]); !errors.Is(err, ErrNotHost) {
		t.Fatalf("non-host advance: %v", err)
	}
	if err := m.AdvancePhase(ctx, roomID, ids[0]); err != nil {
		t.Fatalf("AdvancePhase: %v", err)
	}
	snap, err := m.View(ctx, roomID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if snap.Room.State != game.PhaseVoting {
		t.Fatalf("state = %s after discussion advance", snap.Room.State)
	}
}

func TestResetRoom(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	roomID, ids := startedRoom(t, m)

	if err := m.ResetRoom(ctx, roomID, ids[2]); !errors.Is(err, ErrNotHost) {
		t.Fatalf("non-host reset: %v", err)
	}
	if err := m.ResetRoom(ctx, roomID, ids[0]); err != nil {
		t.Fatalf("ResetRoom: %v", err)
	}
	snap, err := m.View(ctx, roomID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if snap.Room.State != game.PhaseLobby || snap.Room.Round != 0 {
		t.Fatalf("state=%s round=%d after reset", snap.Room.State, snap.Room.Round)
	}
	for i := range snap.Players {
		if snap.Players[i].Role != "" {
			t.Fatalf("role survived reset")
		}
	}
}

func TestSweepExpired_WalksThePhases(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	base := time.Now()
	m.now = func() time.Time { return base }

	roomID, _ := startedRoom(t, m)
	advance := func(d time.Duration) { base = base.Add(d) }
	settings := game.DefaultSettings()

	// each presenting expiry skips exactly one seat
	for i := 0; i < 3; i++ {
		advance(time.Duration(settings.PresentingSeconds+1) * time.Second)
		m.SweepExpired(ctx)
	}
	snap, err := m.View(ctx, roomID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if snap.Room.State != game.PhaseDiscussion {
		t.Fatalf("state = %s after presenting sweeps", snap.Room.State)
	}
	for i := range snap.Players {
		if snap.Players[i].TurnDescription != game.SkipDescription {
			t.Fatalf("seat %d not skipped: %q", i, snap.Players[i].TurnDescription)
		}
	}

	advance(time.Duration(settings.DiscussionSeconds+1) * time.Second)
	m.SweepExpired(ctx)
	snap, _ = m.View(ctx, roomID)
	if snap.Room.State != game.PhaseVoting {
		t.Fatalf("state = %s after discussion sweep", snap.Room.State)
	}

	// nobody votes: the expiry resolves the round as a tie
	advance(time.Duration(settings.VotingSeconds+1) * time.Second)
	m.SweepExpired(ctx)
	snap, _ = m.View(ctx, roomID)
	if snap.Room.State != game.PhaseResults {
		t.Fatalf("state = %s after voting sweep", snap.Room.State)
	}
	if snap.Room.RoundOutcome != game.OutcomeTie {
		t.Fatalf("outcome = %s, want Tie", snap.Room.RoundOutcome)
	}

	// a tie does not end the game before the round cap
	advance(time.Duration(settings.ResultsSeconds+1) * time.Second)
	m.SweepExpired(ctx)
	snap, _ = m.View(ctx, roomID)
	if snap.Room.State != game.PhaseSelecting || snap.Room.Round != 2 {
		t.Fatalf("state=%s round=%d after results sweep", snap.Room.State, snap.Room.Round)
	}

	// a second pass with nothing expired writes nothing
	before := snap.Room.UpdatedAt
	m.SweepExpired(ctx)
	snap, _ = m.View(ctx, roomID)
	if !snap.Room.UpdatedAt.Equal(before) {
		t.Fatalf("idle sweep mutated the room")
	}
}
