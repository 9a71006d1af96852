package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PlayerStats struct {
	UserID    string
	Wins      int
	Losses    int
	Ties      int
	UpdatedAt time.Time
}

type StatsStore struct {
	db *pgxpool.Pool
}

func NewStatsStore(db *pgxpool.Pool) *StatsStore {
	return &StatsStore{db: db}
}

func (s *StatsStore) InitForUser(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO player_stats (user_id, wins, losses, ties)
		VALUES ($1, 0, 0, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

func (s *StatsStore) Get(ctx context.Context, userID string) (PlayerStats, error) {
	var st PlayerStats
	err := s.db.QueryRow(ctx, `
		SELECT user_id, wins, losses, ties, updated_at
		FROM player_stats
		WHERE user_id=$1
	`, userID).Scan(&st.UserID, &st.Wins, &st.Losses, &st.Ties, &st.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		// no row yet is not fatal; report zeroes
		return PlayerStats{UserID: userID}, nil
	}
	if err != nil {
		return PlayerStats{}, err
	}
	return st, nil
}

// RecordResult applies one finished match to both players' tallies. Tie
// bumps ties for both; otherwise the first id gets a win, the second a loss.
func (s *StatsStore) RecordResult(ctx context.Context, winnerUserID, loserUserID string, tie bool) error {
	if winnerUserID == "" || loserUserID == "" {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if tie {
		if err := bump(ctx, tx, winnerUserID, "ties"); err != nil {
			return err
		}
		if err := bump(ctx, tx, loserUserID, "ties"); err != nil {
			return err
		}
	} else {
		if err := bump(ctx, tx, winnerUserID, "wins"); err != nil {
			return err
		}
		if err := bump(ctx, tx, loserUserID, "losses"); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func bump(ctx context.Context, tx pgx.Tx, userID, column string) error {
	var stmt string
	switch column {
	case "wins":
		stmt = `INSERT INTO player_stats (user_id, wins, losses, ties) VALUES ($1, 1, 0, 0)
			ON CONFLICT (user_id) DO UPDATE SET wins = player_stats.wins + 1, updated_at = now()`
	case "losses":
		stmt = `INSERT INTO player_stats (user_id, wins, losses, ties) VALUES ($1, 0, 1, 0)
			ON CONFLICT (user_id) DO UPDATE SET losses = player_stats.losses + 1, updated_at = now()`
	case "ties":
		stmt = `INSERT INTO player_stats (user_id, wins, losses, ties) VALUES ($1, 0, 0, 1)
			ON CONFLICT (user_id) DO UPDATE SET ties = player_stats.ties + 1, updated_at = now()`
	default:
		return fmt.Errorf("unknown stats column %q", column)
	}

	_, err := tx.Exec(ctx, stmt, userID)
	return err
}
