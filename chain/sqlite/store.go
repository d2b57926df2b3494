// Package sqlite persists simulated chain state in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/rony4d/secret-loot-path/chain"
	"github.com/rony4d/secret-loot-path/chain/sqlite/migrations"
	"github.com/rony4d/secret-loot-path/progression"
)

// dbtx is the part of *sql.DB and *sql.Tx the store queries through.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements chain.StateStore. A Store handed out by Update queries
// through its transaction; otherwise it queries the database directly.
type Store struct {
	sqlDB *sql.DB
	q     dbtx
}

var _ chain.StateStore = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, q: sqlDB}, nil
}

func (s *Store) withTx(tx *sql.Tx) *Store {
	return &Store{sqlDB: s.sqlDB, q: tx}
}

// Update runs fn inside one SQLite transaction and commits it when fn
// succeeds. Nested calls join the enclosing transaction.
func (s *Store) Update(ctx context.Context, fn func(chain.StateStore) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, nested := s.q.(*sql.Tx); nested {
		return fn(s)
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(s.withTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close closes the SQLite handle. Closing a Store handed out by Update is a
// no-op.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	if _, inTx := s.q.(*sql.Tx); inTx {
		return nil
	}
	return s.sqlDB.Close()
}

// InsertPass stores rec and returns its autoincrement id.
func (s *Store) InsertPass(ctx context.Context, rec chain.PassRecord) (progression.PassID, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO battle_passes (name, description, total_tiers, owner, start_time, end_time, intent)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Name,
		rec.Description,
		rec.TotalTiers,
		rec.Owner.Bytes(),
		toMillis(rec.StartTime),
		toMillis(rec.EndTime),
		rec.Intent,
	)
	if err != nil {
		return 0, fmt.Errorf("insert battle pass: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("battle pass id: %w", err)
	}
	return progression.PassID(id), nil
}

// GetPass returns chain.ErrNotFound for an unknown id.
func (s *Store) GetPass(ctx context.Context, id progression.PassID) (chain.PassRecord, error) {
	var (
		rec        chain.PassRecord
		owner      []byte
		start, end int64
	)
	err := s.q.QueryRowContext(ctx,
		`SELECT id, name, description, total_tiers, owner, start_time, end_time, intent
		 FROM battle_passes WHERE id = ?`, uint64(id),
	).Scan(&rec.ID, &rec.Name, &rec.Description, &rec.TotalTiers, &owner, &start, &end, &rec.Intent)
	if errors.Is(err, sql.ErrNoRows) {
		return chain.PassRecord{}, chain.ErrNotFound
	}
	if err != nil {
		return chain.PassRecord{}, fmt.Errorf("get battle pass: %w", err)
	}
	rec.Owner = common.BytesToAddress(owner)
	rec.StartTime = fromMillis(start)
	rec.EndTime = fromMillis(end)
	return rec, nil
}

// GetProgress returns chain.ErrNotFound when the player has no row.
func (s *Store) GetProgress(ctx context.Context, pass progression.PassID, player common.Address) (chain.ProgressRecord, error) {
	var (
		root       []byte
		lastUpdate int64
	)
	rec := chain.ProgressRecord{Pass: pass, Player: player}
	err := s.q.QueryRowContext(ctx,
		`SELECT experience_root, grants, rewards_claimed, last_update
		 FROM player_progress WHERE pass_id = ? AND player = ?`, uint64(pass), player.Bytes(),
	).Scan(&root, &rec.Grants, &rec.RewardsClaimed, &lastUpdate)
	if errors.Is(err, sql.ErrNoRows) {
		return chain.ProgressRecord{}, chain.ErrNotFound
	}
	if err != nil {
		return chain.ProgressRecord{}, fmt.Errorf("get player progress: %w", err)
	}
	rec.ExperienceRoot = common.BytesToHash(root)
	rec.LastUpdate = fromMillis(lastUpdate)
	return rec, nil
}

// PutProgress upserts on (pass, player).
func (s *Store) PutProgress(ctx context.Context, rec chain.ProgressRecord) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO player_progress (pass_id, player, experience_root, grants, rewards_claimed, last_update)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(pass_id, player) DO UPDATE SET
		   experience_root = excluded.experience_root,
		   grants = excluded.grants,
		   rewards_claimed = excluded.rewards_claimed,
		   last_update = excluded.last_update`,
		uint64(rec.Pass),
		rec.Player.Bytes(),
		rec.ExperienceRoot.Bytes(),
		rec.Grants,
		rec.RewardsClaimed,
		toMillis(rec.LastUpdate),
	)
	if err != nil {
		return fmt.Errorf("put player progress: %w", err)
	}
	return nil
}

// InsertClaim maps a primary key violation to chain.ErrAlreadyExists.
func (s *Store) InsertClaim(ctx context.Context, rec chain.ClaimRecord) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO reward_claims (pass_id, player, reward_id, claimed_at) VALUES (?, ?, ?, ?)`,
		uint64(rec.Pass),
		rec.Player.Bytes(),
		uint64(rec.Reward),
		toMillis(rec.Time),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return chain.ErrAlreadyExists
		}
		return fmt.Errorf("insert reward claim: %w", err)
	}
	return nil
}

// AppendTx stores rec; its rowid is the block number.
func (s *Store) AppendTx(ctx context.Context, rec chain.TxRecord) (idx.Block, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO transactions (sender, method, input, created_at) VALUES (?, ?, ?, ?)`,
		rec.From.Bytes(),
		rec.Method,
		rec.Input,
		toMillis(rec.Time),
	)
	if err != nil {
		return 0, fmt.Errorf("append transaction: %w", err)
	}
	block, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction block: %w", err)
	}
	return idx.Block(block), nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
