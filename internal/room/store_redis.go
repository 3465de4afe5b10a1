package room

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dannynguyen57/Chameleon-X-sub000/internal/game"
)

const defaultRoomTTL = 24 * time.Hour

// mutateRetries bounds optimistic retries when two callers race on the
// same room. The loser re-reads the advanced state, so transition-guarded
// mutations degrade to a no-op rather than a user error.
const mutateRetries = 3

// Store persists rooms in Redis: the Room aggregate as JSON under
// room:<id>, the roster as a hash under room:<id>:players (one field per
// player, so unrelated player updates cannot clobber each other), and an
// index set of live room ids for the timer sweeper.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, ttl: defaultRoomTTL}
}

// SetTTL overrides the room expiry, mainly for tests.
func (s *Store) SetTTL(d time.Duration) {
	if d > 0 {
		s.ttl = d
	}
}

func roomKey(id string) string    { return "room:" + strings.TrimSpace(id) }
func playersKey(id string) string { return roomKey(id) + ":players" }
func indexKey() string            { return "room:index" }

// AllocateCode reserves a fresh short room code with SetNX, retrying a
// handful of times before giving up.
func (s *Store) AllocateCode(ctx context.Context) (string, error) {
	for i := 0; i < 5; i++ {
		code, err := codeGen()
		if err != nil {
			return "", err
		}
		ok, err := s.rdb.SetNX(ctx, roomKey(code), []byte("{}"), s.ttl).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to allocate room code")
}

// Create writes the initial snapshot for a freshly allocated code and
// adds the room to the sweep index.
func (s *Store) Create(ctx context.Context, snap *game.Snapshot) error {
	if err := s.writePipe(ctx, s.rdb, snap); err != nil {
		return err
	}
	return s.rdb.SAdd(ctx, indexKey(), snap.Room.ID).Err()
}

// Load reads the full snapshot. Roster order is stable: join time, then
// id, so positional role assignment is deterministic per read.
func (s *Store) Load(ctx context.Context, id string) (*game.Snapshot, error) {
	raw, err := s.rdb.Get(ctx, roomKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	snap, err := decodeSnapshot(raw, nil)
	if err != nil {
		return nil, err
	}
	fields, err := s.rdb.HGetAll(ctx, playersKey(id)).Result()
	if err != nil {
		return nil, err
	}
	snap.Players, err = decodePlayers(fields)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Mutate applies fn to the current snapshot under WATCH and persists the
// result as one transactional write: room JSON, full roster including
// removals, refreshed TTLs. Players fn dropped from the snapshot have
// their hash fields deleted in the same transaction, so a departed
// player can never resurface on a later Load. Concurrent writers trip
// the transaction and fn re-runs against the fresh state; a phase-guarded
// fn then simply reports ErrWrongPhase and nothing is double-applied.
func (s *Store) Mutate(ctx context.Context, id string, fn func(*game.Snapshot) error) (*game.Snapshot, error) {
	var out *game.Snapshot
	rk, pk := roomKey(id), playersKey(id)

	for attempt := 0; attempt < mutateRetries; attempt++ {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, rk).Bytes()
			if err == redis.Nil {
				return ErrRoomNotFound
			}
			if err != nil {
				return err
			}
			fields, err := tx.HGetAll(ctx, pk).Result()
			if err != nil {
				return err
			}
			snap, err := decodeSnapshot(raw, fields)
			if err != nil {
				return err
			}
			if err := fn(snap); err != nil {
				return err
			}

			kept := make(map[string]bool, len(snap.Players))
			for i := range snap.Players {
				kept[snap.Players[i].ID] = true
			}
			var removed []string
			for pid := range fields {
				if !kept[pid] {
					removed = append(removed, pid)
				}
			}

			pipe := tx.TxPipeline()
			if err := s.writePipe(ctx, pipe, snap); err != nil {
				return err
			}
			if len(removed) > 0 {
				pipe.HDel(ctx, pk, removed...)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
			out = snap
			return nil
		}, rk, pk)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return out, err
	}
	return nil, redis.TxFailedErr
}

// SavePlayer upserts a single roster field. This is the partial-update
// path for mutations that touch exactly one player outside a transition.
func (s *Store) SavePlayer(ctx context.Context, roomID string, p *game.Player) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, playersKey(roomID), p.ID, raw).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, playersKey(roomID), s.ttl).Err()
}

// Delete removes the room, its roster and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, roomKey(id), playersKey(id)).Err(); err != nil {
		return err
	}
	return s.rdb.SRem(ctx, indexKey(), id).Err()
}

// ActiveRoomIDs lists rooms in the sweep index, dropping ids whose keys
// already expired.
func (s *Store) ActiveRoomIDs(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, indexKey()).Result()
	if err != nil {
		return nil, err
	}
	var live []string
	for _, id := range ids {
		n, err := s.rdb.Exists(ctx, roomKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			_ = s.rdb.SRem(ctx, indexKey(), id).Err()
			continue
		}
		live = append(live, id)
	}
	return live, nil
}

type pipeliner interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

func (s *Store) writePipe(ctx context.Context, p pipeliner, snap *game.Snapshot) error {
	raw, err := json.Marshal(&snap.Room)
	if err != nil {
		return err
	}
	p.Set(ctx, roomKey(snap.Room.ID), raw, s.ttl)
	pk := playersKey(snap.Room.ID)
	for i := range snap.Players {
		pr, err := json.Marshal(&snap.Players[i])
		if err != nil {
			return err
		}
		p.HSet(ctx, pk, snap.Players[i].ID, pr)
	}
	p.Expire(ctx, pk, s.ttl)
	return nil
}

func decodeSnapshot(raw []byte, fields map[string]string) (*game.Snapshot, error) {
	var r game.Room
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	snap := &game.Snapshot{Room: r}
	if fields != nil {
		players, err := decodePlayers(fields)
		if err != nil {
			return nil, err
		}
		snap.Players = players
	}
	return snap, nil
}

func decodePlayers(fields map[string]string) ([]game.Player, error) {
	players := make([]game.Player, 0, len(fields))
	for _, v := range fields {
		var p game.Player
		if err := json.Unmarshal([]byte(v), &p); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		if !players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].JoinedAt.Before(players[j].JoinedAt)
		}
		return players[i].ID < players[j].ID
	})
	return players, nil
}

// codeGen returns a 6-char upper alnum room code.
func codeGen() (string, error) {
	const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b), nil
}
