package room

// Errors
var (
	ErrRoomNotFound     = errf("room not found or expired")
	ErrInvalidName      = errf("player name must not be empty")
	ErrRoomFull         = errf("room already has the maximum number of players")
	ErrNameTaken        = errf("name already taken in this room")
	ErrGameInProgress   = errf("game already started")
	ErrNotHost          = errf("only the host can do that")
	ErrNotInRoom        = errf("player is not in this room")
	ErrNotYourTurn      = errf("not this player's turn")
	ErrAlreadySubmitted = errf("description already submitted this round")
	ErrAlreadyVoted     = errf("player already voted this round")
	ErrSelfVote         = errf("players cannot vote for themselves")
	ErrTargetProtected  = errf("target is protected this round")
	ErrUnknownCategory  = errf("unknown category")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

// Notifier is the fire-and-forget change broadcast: after any persisted
// mutation, interested clients are eventually told to refetch room state.
// The payload is just the room id; nothing in here is consumed back.
type Notifier interface {
	RoomChanged(roomID string)
}
