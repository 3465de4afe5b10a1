package room

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/dannynguyen57/Chameleon-X-sub000/internal/game"
)

// Repository archives resolved rounds into postgres. Live game state
// never lives here; this is the read-model for post-game stats.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveRoundResult upserts the frozen outcome of one resolved round. The
// (room_id, round) key makes redundant invocations harmless, which is
// exactly what the at-least-once transition model needs.
func (r *Repository) SaveRoundResult(ctx context.Context, snap *game.Snapshot) error {
	if r == nil || r.db == nil || snap == nil {
		return nil
	}
	if snap.Room.RoundOutcome == game.OutcomeNone {
		return nil
	}

	tallyRaw, _ := json.Marshal(snap.Room.VotesTally)
	ballots := make(map[string]string, len(snap.Players))
	for i := range snap.Players {
		if snap.Players[i].Vote != "" {
			ballots[snap.Players[i].ID] = snap.Players[i].Vote
		}
	}
	ballotsRaw, _ := json.Marshal(ballots)

	q := `INSERT INTO round_results (
	    room_id, round, category, secret_word,
	    votes_tally, ballots,
	    revealed_player_id, revealed_role, outcome,
	    player_count, resolved_at
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
	  ) ON CONFLICT (room_id, round) DO UPDATE SET
	    category=EXCLUDED.category,
	    secret_word=EXCLUDED.secret_word,
	    votes_tally=EXCLUDED.votes_tally,
	    ballots=EXCLUDED.ballots,
	    revealed_player_id=EXCLUDED.revealed_player_id,
	    revealed_role=EXCLUDED.revealed_role,
	    outcome=EXCLUDED.outcome,
	    player_count=EXCLUDED.player_count,
	    resolved_at=EXCLUDED.resolved_at`

	_, err := r.db.ExecContext(ctx, q,
		snap.Room.ID, snap.Room.Round,
		snap.Room.Category, snap.Room.SecretWord,
		string(tallyRaw), string(ballotsRaw),
		snap.Room.RevealedPlayerID, string(snap.Room.RevealedRole), string(snap.Room.RoundOutcome),
		len(snap.Players), snap.Room.UpdatedAt,
	)
	return err
}
