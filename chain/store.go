package chain

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/secret-loot-path/progression"
)

var (
	// ErrNotFound is returned by lookups that match no record.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned by inserts that would repeat a unique key.
	ErrAlreadyExists = errors.New("record already exists")
)

// PassRecord is a battle pass as the contract stores it. Intent carries the
// sealed purchase intent for purchased passes and is empty otherwise.
type PassRecord struct {
	ID          progression.PassID
	Name        string
	Description string
	TotalTiers  uint32
	Owner       common.Address
	StartTime   time.Time
	EndTime     time.Time
	Intent      []byte
}

// ProgressRecord is a player's on-chain progress. ExperienceRoot is the ref
// of the latest sealed total a grant proof committed to.
type ProgressRecord struct {
	Pass           progression.PassID
	Player         common.Address
	ExperienceRoot common.Hash
	Grants         uint64
	RewardsClaimed uint64
	LastUpdate     time.Time
}

// ClaimRecord marks one reward as claimed by one player.
type ClaimRecord struct {
	Pass   progression.PassID
	Player common.Address
	Reward progression.RewardID
	Time   time.Time
}

// TxRecord is an executed transaction; its position is its block number.
type TxRecord struct {
	From   common.Address
	Method string
	Input  []byte
	Time   time.Time
}

// StateStore persists simulated chain state. Implementations need not be
// safe for concurrent use; Simulated serializes access.
type StateStore interface {
	// InsertPass assigns the next pass id.
	InsertPass(ctx context.Context, rec PassRecord) (progression.PassID, error)
	GetPass(ctx context.Context, id progression.PassID) (PassRecord, error)
	GetProgress(ctx context.Context, pass progression.PassID, player common.Address) (ProgressRecord, error)
	PutProgress(ctx context.Context, rec ProgressRecord) error
	// InsertClaim fails with ErrAlreadyExists for a repeated (pass, player, reward).
	InsertClaim(ctx context.Context, rec ClaimRecord) error
	// AppendTx records a transaction and returns its block number.
	AppendTx(ctx context.Context, rec TxRecord) (idx.Block, error)
	// Update runs fn against a store whose writes all take effect when fn
	// returns nil and none of them when it returns an error.
	Update(ctx context.Context, fn func(StateStore) error) error
	Close() error
}

type progressKey struct {
	pass   progression.PassID
	player common.Address
}

type claimKey struct {
	progressKey
	reward progression.RewardID
}

// MemoryStore keeps chain state in maps.
type MemoryStore struct {
	mu       sync.RWMutex
	passes   []PassRecord
	progress map[progressKey]ProgressRecord
	claims   map[claimKey]ClaimRecord
	txs      []TxRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		progress: make(map[progressKey]ProgressRecord),
		claims:   make(map[claimKey]ClaimRecord),
	}
}

// InsertPass appends rec; ids start at 1.
func (s *MemoryStore) InsertPass(ctx context.Context, rec PassRecord) (progression.PassID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = progression.PassID(len(s.passes) + 1)
	rec.Intent = common.CopyBytes(rec.Intent)
	s.passes = append(s.passes, rec)
	return rec.ID, nil
}

// GetPass returns ErrNotFound for an unknown id.
func (s *MemoryStore) GetPass(ctx context.Context, id progression.PassID) (PassRecord, error) {
	if err := ctx.Err(); err != nil {
		return PassRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id == 0 || int(id) > len(s.passes) {
		return PassRecord{}, ErrNotFound
	}
	return s.passes[id-1], nil
}

// GetProgress returns ErrNotFound when the player has no record.
func (s *MemoryStore) GetProgress(ctx context.Context, pass progression.PassID, player common.Address) (ProgressRecord, error) {
	if err := ctx.Err(); err != nil {
		return ProgressRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.progress[progressKey{pass, player}]
	if !ok {
		return ProgressRecord{}, ErrNotFound
	}
	return rec, nil
}

// PutProgress replaces the record for (rec.Pass, rec.Player).
func (s *MemoryStore) PutProgress(ctx context.Context, rec ProgressRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[progressKey{rec.Pass, rec.Player}] = rec
	return nil
}

// InsertClaim returns ErrAlreadyExists for a repeated claim.
func (s *MemoryStore) InsertClaim(ctx context.Context, rec ClaimRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := claimKey{progressKey{rec.Pass, rec.Player}, rec.Reward}
	if _, ok := s.claims[key]; ok {
		return ErrAlreadyExists
	}
	s.claims[key] = rec
	return nil
}

// AppendTx appends rec; block numbers start at 1.
func (s *MemoryStore) AppendTx(ctx context.Context, rec TxRecord) (idx.Block, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Input = common.CopyBytes(rec.Input)
	s.txs = append(s.txs, rec)
	return idx.Block(len(s.txs)), nil
}

// Update snapshots the store, runs fn and restores the snapshot if fn fails.
func (s *MemoryStore) Update(ctx context.Context, fn func(StateStore) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	passes, txs := len(s.passes), len(s.txs)
	progress := make(map[progressKey]ProgressRecord, len(s.progress))
	for k, v := range s.progress {
		progress[k] = v
	}
	claims := make(map[claimKey]ClaimRecord, len(s.claims))
	for k, v := range s.claims {
		claims[k] = v
	}
	s.mu.RUnlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.passes = s.passes[:passes]
		s.txs = s.txs[:txs]
		s.progress = progress
		s.claims = claims
		s.mu.Unlock()
		return err
	}
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
