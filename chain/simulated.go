package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/secret-loot-path/contracts/lootpath"
	lperrors "github.com/rony4d/secret-loot-path/errors"
	"github.com/rony4d/secret-loot-path/fhe"
	"github.com/rony4d/secret-loot-path/progression"
)

// ErrReverted is the cause of every rejected transaction.
var ErrReverted = errors.New("execution reverted")

// Fault lets tests fail a transaction before it executes.
type Fault func(from common.Address, call lootpath.Call) error

// Simulated executes SecretLootPath calldata in process. Each transaction
// gets its own block.
type Simulated struct {
	mu    sync.Mutex
	store StateStore
	now   func() time.Time
	log   logrus.FieldLogger
	fault Fault
}

// SimOption configures a Simulated chain.
type SimOption func(*Simulated)

// WithClock sets the clock used for block times and pass activity.
func WithClock(now func() time.Time) SimOption {
	return func(s *Simulated) { s.now = now }
}

// WithLogger sets the chain logger.
func WithLogger(log logrus.FieldLogger) SimOption {
	return func(s *Simulated) { s.log = log }
}

// NewSimulated returns a chain executing against store. It owns store and
// closes it on Close.
func NewSimulated(store StateStore, opts ...SimOption) *Simulated {
	s := &Simulated{
		store: store,
		now:   time.Now,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetFault installs f; nil removes it.
func (s *Simulated) SetFault(f Fault) {
	s.mu.Lock()
	s.fault = f
	s.mu.Unlock()
}

// Close closes the state store.
func (s *Simulated) Close() error {
	return s.store.Close()
}

func reverted(reason string) error {
	return fmt.Errorf("%w: %s", ErrReverted, reason)
}

// Execute runs a state-changing call from the given sender.
func (s *Simulated) Execute(ctx context.Context, from common.Address, input []byte) (TxRef, error) {
	if err := ctx.Err(); err != nil {
		return TxRef{}, lperrors.Wrap(lperrors.CodeCancelled, "submit transaction", err)
	}
	call, err := lootpath.Decode(input)
	if err != nil {
		return TxRef{}, lperrors.Wrap(lperrors.CodeTransactionFailure, "decode calldata", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fault != nil {
		if err := s.fault(from, call); err != nil {
			return TxRef{}, lperrors.Wrap(lperrors.CodeTransactionFailure, call.Method, err)
		}
	}

	now := s.now()
	var (
		ret   []byte
		block idx.Block
	)
	// A transaction's state writes and its block commit together.
	err = s.store.Update(ctx, func(st StateStore) error {
		var err error
		switch call.Method {
		case lootpath.MethodCreateBattlePass:
			ret, err = createBattlePass(ctx, st, from, now, call.CreateBattlePass)
		case lootpath.MethodGainExperience:
			err = gainExperience(ctx, st, from, now, call.GainExperience)
		case lootpath.MethodClaimReward:
			err = claimReward(ctx, st, from, now, call.ClaimReward)
		default:
			err = reverted(call.Method + " is a view")
		}
		if err != nil {
			return err
		}
		block, err = st.AppendTx(ctx, TxRecord{From: from, Method: call.Method, Input: input, Time: now})
		if err != nil {
			return fmt.Errorf("record transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return TxRef{}, lperrors.Wrap(lperrors.CodeTransactionFailure, call.Method, err)
	}
	ref := TxRef{
		Hash:   crypto.Keccak256Hash(bigendian.Uint64ToBytes(uint64(block)), from.Bytes(), input),
		Block:  block,
		Return: ret,
	}
	s.log.WithFields(logrus.Fields{
		"tx":     ref.Hash.Hex(),
		"block":  block,
		"method": call.Method,
		"from":   from.Hex(),
	}).Debug("Transaction executed")
	return ref, nil
}

// Call runs a view and returns its ABI-encoded result.
func (s *Simulated) Call(ctx context.Context, input []byte) ([]byte, error) {
	call, err := lootpath.Decode(input)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch call.Method {
	case lootpath.MethodGetBattlePassInfo:
		rec, err := s.store.GetPass(ctx, progression.PassID(*call.GetBattlePassInfo))
		if err != nil {
			return nil, err
		}
		now := s.now()
		return lootpath.PackBattlePassInfo(lootpath.BattlePassInfo{
			Name:        rec.Name,
			Description: rec.Description,
			TotalTiers:  uint64(rec.TotalTiers),
			IsActive:    !now.Before(rec.StartTime) && !now.After(rec.EndTime),
			Owner:       rec.Owner,
			StartTime:   rec.StartTime,
			EndTime:     rec.EndTime,
			Intent:      rec.Intent,
		})
	case lootpath.MethodGetPlayerProgress:
		args := call.GetPlayerProgress
		rec, err := s.store.GetProgress(ctx, progression.PassID(args.Pass), args.Player)
		if err != nil {
			return nil, err
		}
		return lootpath.PackPlayerProgress(lootpath.PlayerProgress{
			ExperienceRoot: rec.ExperienceRoot,
			Grants:         rec.Grants,
			RewardsClaimed: rec.RewardsClaimed,
			IsActive:       true,
			LastUpdate:     rec.LastUpdate,
		})
	default:
		return nil, reverted(call.Method + " is not a view")
	}
}

func createBattlePass(ctx context.Context, st StateStore, from common.Address, now time.Time, args *lootpath.CreateBattlePassArgs) ([]byte, error) {
	switch {
	case args.Name == "":
		return nil, reverted("empty name")
	case args.TotalTiers == 0 || args.TotalTiers > 1<<16:
		return nil, reverted("invalid tier count")
	case args.Duration <= 0:
		return nil, reverted("invalid duration")
	}
	id, err := st.InsertPass(ctx, PassRecord{
		Name:        args.Name,
		Description: args.Description,
		TotalTiers:  uint32(args.TotalTiers),
		Owner:       from,
		StartTime:   now,
		EndTime:     now.Add(args.Duration),
		Intent:      args.Intent,
	})
	if err != nil {
		return nil, err
	}
	return lootpath.PackCreatedPass(uint64(id))
}

func gainExperience(ctx context.Context, st StateStore, from common.Address, now time.Time, args *lootpath.GainExperienceArgs) error {
	pass, err := st.GetPass(ctx, progression.PassID(args.Pass))
	if err != nil {
		return err
	}
	if now.Before(pass.StartTime) || now.After(pass.EndTime) {
		return reverted("battle pass inactive")
	}

	var (
		amount fhe.Envelope
		proof  fhe.Proof
	)
	if err := amount.UnmarshalBinary(args.Experience); err != nil {
		return reverted("malformed experience envelope")
	}
	if err := proof.UnmarshalBinary(args.Proof); err != nil {
		return reverted("malformed proof")
	}
	if !fhe.VerifyProof(proof) {
		return reverted("invalid proof")
	}
	stmt, err := proof.Statement()
	if err != nil || stmt.Op != fhe.OpAdd || len(proof.PublicInputs) != 2 || proof.PublicInputs[1] != amount.Ref() {
		return reverted("proof does not cover the submitted amount")
	}

	rec, err := st.GetProgress(ctx, pass.ID, from)
	switch {
	case errors.Is(err, ErrNotFound):
		rec = ProgressRecord{Pass: pass.ID, Player: from}
	case err != nil:
		return err
	case rec.Grants > 0 && hash.Hash(rec.ExperienceRoot) != proof.PublicInputs[0]:
		return reverted("proof does not extend the recorded total")
	}
	rec.ExperienceRoot = common.Hash(stmt.Output)
	rec.Grants++
	rec.LastUpdate = now
	return st.PutProgress(ctx, rec)
}

func claimReward(ctx context.Context, st StateStore, from common.Address, now time.Time, args *lootpath.ClaimRewardArgs) error {
	pass, err := st.GetPass(ctx, progression.PassID(args.Pass))
	if err != nil {
		return err
	}
	if args.Reward == 0 {
		return reverted("invalid reward id")
	}
	err = st.InsertClaim(ctx, ClaimRecord{Pass: pass.ID, Player: from, Reward: progression.RewardID(args.Reward), Time: now})
	if errors.Is(err, ErrAlreadyExists) {
		return reverted("reward already claimed")
	}
	if err != nil {
		return err
	}

	rec, err := st.GetProgress(ctx, pass.ID, from)
	if errors.Is(err, ErrNotFound) {
		rec, err = ProgressRecord{Pass: pass.ID, Player: from}, nil
	}
	if err != nil {
		return err
	}
	rec.RewardsClaimed++
	rec.LastUpdate = now
	return st.PutProgress(ctx, rec)
}

// CreateBattlePass sends createBattlePass. The new pass id is in the
// returned TxRef; see CreatedPass.
func (s *Simulated) CreateBattlePass(ctx context.Context, from common.Address, name, description string, totalTiers uint32, duration time.Duration, intent []byte) (TxRef, error) {
	input, err := lootpath.PackCreateBattlePass(name, description, totalTiers, duration, intent)
	if err != nil {
		return TxRef{}, lperrors.Wrap(lperrors.CodeTransactionFailure, "pack createBattlePass", err)
	}
	return s.Execute(ctx, from, input)
}

// SubmitExperience sends gainExperience with the sealed amount and the add
// proof that extends the player's recorded experience root.
func (s *Simulated) SubmitExperience(ctx context.Context, from common.Address, pass progression.PassID, amount fhe.Envelope, proof fhe.Proof) (TxRef, error) {
	xp, err := amount.MarshalBinary()
	if err != nil {
		return TxRef{}, lperrors.Wrap(lperrors.CodeTransactionFailure, "encode experience", err)
	}
	pr, err := proof.MarshalBinary()
	if err != nil {
		return TxRef{}, lperrors.Wrap(lperrors.CodeTransactionFailure, "encode proof", err)
	}
	input, err := lootpath.PackGainExperience(uint64(pass), xp, pr)
	if err != nil {
		return TxRef{}, lperrors.Wrap(lperrors.CodeTransactionFailure, "pack gainExperience", err)
	}
	return s.Execute(ctx, from, input)
}

// SubmitClaim sends claimReward. A repeated claim reverts.
func (s *Simulated) SubmitClaim(ctx context.Context, from common.Address, reward progression.RewardID, pass progression.PassID) (TxRef, error) {
	input, err := lootpath.PackClaimReward(uint64(reward), uint64(pass))
	if err != nil {
		return TxRef{}, lperrors.Wrap(lperrors.CodeTransactionFailure, "pack claimReward", err)
	}
	return s.Execute(ctx, from, input)
}

// BattlePassInfo calls the getBattlePassInfo view.
func (s *Simulated) BattlePassInfo(ctx context.Context, pass progression.PassID) (lootpath.BattlePassInfo, error) {
	input, err := lootpath.PackGetBattlePassInfo(uint64(pass))
	if err != nil {
		return lootpath.BattlePassInfo{}, err
	}
	ret, err := s.Call(ctx, input)
	if err != nil {
		return lootpath.BattlePassInfo{}, viewError(err)
	}
	return lootpath.UnpackBattlePassInfo(ret)
}

// PlayerProgress calls the getPlayerProgress view. A player who never
// transacted on the pass is NOT_FOUND.
func (s *Simulated) PlayerProgress(ctx context.Context, pass progression.PassID, player common.Address) (lootpath.PlayerProgress, error) {
	input, err := lootpath.PackGetPlayerProgress(uint64(pass), player)
	if err != nil {
		return lootpath.PlayerProgress{}, err
	}
	ret, err := s.Call(ctx, input)
	if err != nil {
		return lootpath.PlayerProgress{}, viewError(err)
	}
	return lootpath.UnpackPlayerProgress(ret)
}

func viewError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return lperrors.Wrap(lperrors.CodeNotFound, "chain view", err)
	}
	return err
}

var _ Ledger = (*Simulated)(nil)
