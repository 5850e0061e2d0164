// Package sqlite persists game state in a SQLite database so an arena can be
// restarted mid-game.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"gridclaim/internal/domain"
	"gridclaim/internal/ports"
)

// Store is a ports.Store scoped to one game id inside a shared database.
// Unsigned counters are stored as their int64 bit pattern.
type Store struct {
	db   *sql.DB
	game string
}

// Open opens (or creates) the database at path. An empty game id allocates a
// fresh one.
func Open(path, game string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	if game == "" {
		game = uuid.NewString()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, game: game}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			phase TEXT NOT NULL,
			earliest_start INTEGER NOT NULL DEFAULT 0,
			rounds_played INTEGER NOT NULL DEFAULT 0,
			winner TEXT NOT NULL DEFAULT '',
			marker INTEGER NOT NULL DEFAULT 0,
			marker_set INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS participants (
			game_id TEXT NOT NULL,
			id TEXT NOT NULL,
			name TEXT NOT NULL,
			compute_used INTEGER NOT NULL,
			score INTEGER NOT NULL,
			PRIMARY KEY (game_id, id)
		);`,
		`CREATE TABLE IF NOT EXISTS claims (
			game_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			owner TEXT NOT NULL,
			claimed_round INTEGER NOT NULL,
			PRIMARY KEY (game_id, idx)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Game returns the id this store is scoped to.
func (s *Store) Game() string { return s.game }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) State(ctx context.Context) (domain.State, error) {
	var (
		phase    string
		earliest int64
		rounds   int64
		winner   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT phase, earliest_start, rounds_played, winner FROM games WHERE id = ?`, s.game,
	).Scan(&phase, &earliest, &rounds, &winner)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.State{}, ports.ErrNoGame
	}
	if err != nil {
		return domain.State{}, err
	}
	switch domain.Phase(phase) {
	case domain.PhaseForming:
		return domain.Forming(uint64(earliest)), nil
	case domain.PhaseRunning:
		return domain.Running(uint32(rounds)), nil
	case domain.PhaseFinished:
		return domain.Finished(winner), nil
	}
	return domain.State{}, fmt.Errorf("game %s: unknown phase %q", s.game, phase)
}

func (s *Store) PutState(ctx context.Context, state domain.State) error {
	return putState(ctx, s.db, s.game, state)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putState(ctx context.Context, db execer, game string, state domain.State) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO games (id, phase, earliest_start, rounds_played, winner)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			phase = excluded.phase,
			earliest_start = excluded.earliest_start,
			rounds_played = excluded.rounds_played,
			winner = excluded.winner`,
		game, string(state.Phase), int64(state.EarliestStart), int64(state.RoundsPlayed), state.Winner)
	return err
}

func (s *Store) LastAdvanced(ctx context.Context) (uint64, bool, error) {
	var marker, set int64
	err := s.db.QueryRowContext(ctx,
		`SELECT marker, marker_set FROM games WHERE id = ?`, s.game,
	).Scan(&marker, &set)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, ports.ErrNoGame
	}
	if err != nil {
		return 0, false, err
	}
	return uint64(marker), set != 0, nil
}

func (s *Store) PutLastAdvanced(ctx context.Context, unit uint64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE games SET marker = ?, marker_set = 1 WHERE id = ?`, int64(unit), s.game)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ports.ErrNoGame
	}
	return nil
}

func (s *Store) Claim(ctx context.Context, idx uint32) (domain.Claim, bool, error) {
	var c domain.Claim
	var round int64
	err := s.db.QueryRowContext(ctx,
		`SELECT owner, claimed_round FROM claims WHERE game_id = ? AND idx = ?`, s.game, int64(idx),
	).Scan(&c.Owner, &round)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Claim{}, false, nil
	}
	if err != nil {
		return domain.Claim{}, false, err
	}
	c.ClaimedRound = uint32(round)
	return c, true, nil
}

func (s *Store) Claims(ctx context.Context) (map[uint32]domain.Claim, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, owner, claimed_round FROM claims WHERE game_id = ?`, s.game)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uint32]domain.Claim)
	for rows.Next() {
		var idx, round int64
		var owner string
		if err := rows.Scan(&idx, &owner, &round); err != nil {
			return nil, err
		}
		out[uint32(idx)] = domain.Claim{Owner: owner, ClaimedRound: uint32(round)}
	}
	return out, rows.Err()
}

func (s *Store) Participants(ctx context.Context) (domain.Registry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, compute_used, score FROM participants WHERE game_id = ? ORDER BY id`, s.game)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reg domain.Registry
	for rows.Next() {
		var p domain.Participant
		var used, score int64
		if err := rows.Scan(&p.ID, &p.Name, &used, &score); err != nil {
			return nil, err
		}
		p.ComputeUsed = uint64(used)
		p.Score = uint64(score)
		reg = append(reg, p)
	}
	return reg, rows.Err()
}

func (s *Store) PutParticipants(ctx context.Context, participants domain.Registry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return replaceParticipants(ctx, tx, s.game, participants)
	})
}

func replaceParticipants(ctx context.Context, tx *sql.Tx, game string, participants domain.Registry) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM participants WHERE game_id = ?`, game); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO participants (game_id, id, name, compute_used, score) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range participants {
		if _, err := stmt.ExecContext(ctx, game, p.ID, p.Name, int64(p.ComputeUsed), int64(p.Score)); err != nil {
			return err
		}
	}
	return nil
}

// CommitRound writes state, registry and new claims in one transaction.
// Existing claims are never overwritten.
func (s *Store) CommitRound(ctx context.Context, commit ports.RoundCommit) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := putState(ctx, tx, s.game, commit.State); err != nil {
			return err
		}
		if err := replaceParticipants(ctx, tx, s.game, commit.Participants); err != nil {
			return err
		}
		for idx, c := range commit.Claims {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO claims (game_id, idx, owner, claimed_round) VALUES (?, ?, ?, ?)`,
				s.game, int64(idx), c.Owner, int64(c.ClaimedRound)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Reset(ctx context.Context, state domain.State) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := putState(ctx, tx, s.game, state); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE games SET marker = 0, marker_set = 1 WHERE id = ?`, s.game); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM claims WHERE game_id = ?`, s.game); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM participants WHERE game_id = ?`, s.game)
		return err
	})
}

func (s *Store) Drop(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM claims WHERE game_id = ?`,
			`DELETE FROM participants WHERE game_id = ?`,
			`DELETE FROM games WHERE id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, s.game); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
