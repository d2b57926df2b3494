package claim

import (
	"context"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rony4d/secret-loot-path/chain"
	lperrors "github.com/rony4d/secret-loot-path/errors"
	"github.com/rony4d/secret-loot-path/fhe"
	"github.com/rony4d/secret-loot-path/progression"
	"github.com/rony4d/secret-loot-path/wallet"
)

// Decrypter opens reward payloads. *fhe.Service implements it.
type Decrypter interface {
	Decrypt(ks *fhe.KeySession, env fhe.Envelope) (int64, error)
}

// Config bundles the collaborators of a session.
type Config struct {
	Service Decrypter
	Keys    *fhe.KeySession
	Ledger  *progression.Ledger
	Chain   chain.Ledger
	Wallet  wallet.Identity
	Pass    progression.PassID
	// ChainPass is the id of the same pass on the chain, if it differs.
	ChainPass progression.PassID

	// MaxBatch caps the number of rewards claimed at once. Zero means no cap.
	MaxBatch int
	Display  Display
	Log      logrus.FieldLogger
}

// Session is one claim flow. Methods are safe for concurrent use but a
// session runs at most one Claim at a time.
type Session struct {
	cfg Config
	id  uuid.UUID
	log logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	running  bool
	state    State
	selected []progression.RewardID
	revealed map[progression.RewardID]int64
	txRefs   []chain.TxRef
	claimed  int
	err      error
}

// NewSession returns a session in the Select state with an empty selection.
// Missing collaborators get defaults: the standard logger, a no-op display,
// a fresh fhe.Service and a disconnected wallet. ChainPass defaults to Pass.
// The session lives until Close.
func NewSession(cfg Config) *Session {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.Display == nil {
		cfg.Display = nopDisplay{}
	}
	if cfg.Service == nil {
		cfg.Service = fhe.NewService(fhe.WithLogger(cfg.Log))
	}
	if cfg.Wallet == nil {
		cfg.Wallet = wallet.Disconnected{}
	}
	if cfg.ChainPass == 0 {
		cfg.ChainPass = cfg.Pass
	}
	id := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		cfg:      cfg,
		id:       id,
		log:      cfg.Log.WithFields(logrus.Fields{"session": id.String(), "pass": cfg.Pass}),
		ctx:      ctx,
		cancel:   cancel,
		revealed: make(map[progression.RewardID]int64),
	}
}

// ID identifies the session in logs and snapshots.
func (s *Session) ID() uuid.UUID { return s.id }

// Select adds id to the selection. Selecting twice is a no-op.
func (s *Session) Select(id progression.RewardID) error {
	return s.edit(func() {
		if s.indexOf(id) < 0 {
			s.selected = append(s.selected, id)
		}
	})
}

// Deselect removes id from the selection, if present.
func (s *Session) Deselect(id progression.RewardID) error {
	return s.edit(func() {
		if i := s.indexOf(id); i >= 0 {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
		}
	})
}

// Toggle flips the membership of id and reports whether it is now selected.
func (s *Session) Toggle(id progression.RewardID) (bool, error) {
	var on bool
	err := s.edit(func() {
		if i := s.indexOf(id); i >= 0 {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
			return
		}
		s.selected = append(s.selected, id)
		on = true
	})
	return on, err
}

func (s *Session) edit(fn func()) error {
	s.mu.Lock()
	if s.state != Select || s.running {
		state := s.state
		s.mu.Unlock()
		return lperrors.WithMetadata(lperrors.CodeInvalidSelection, "selection is closed",
			map[string]string{"state": state.String()})
	}
	fn()
	s.mu.Unlock()
	return nil
}

func (s *Session) indexOf(id progression.RewardID) int {
	for i, v := range s.selected {
		if v == id {
			return i
		}
	}
	return -1
}

// Reveal decrypts a reward for display. It does not claim the reward and
// returns the cached value on repeated calls.
func (s *Session) Reveal(id progression.RewardID) (int64, error) {
	s.mu.Lock()
	v, ok := s.revealed[id]
	s.mu.Unlock()
	if ok {
		return v, nil
	}

	player, _ := s.cfg.Wallet.Account()
	reward, err := s.cfg.Ledger.Reward(s.cfg.Pass, player, id)
	if err != nil {
		return 0, err
	}
	if reward.Payload == nil {
		return 0, lperrors.WithMetadata(lperrors.CodeInvalidSelection, "reward already claimed",
			map[string]string{"reward": id.String(), "reason": "already_claimed"})
	}
	v, err = s.cfg.Service.Decrypt(s.cfg.Keys, *reward.Payload)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.revealed[id] = v
	s.mu.Unlock()
	s.log.WithField("reward", id).Debug("Reward revealed")
	return v, nil
}

// Claim decrypts and claims the selected rewards. It returns false with a
// nil error when the session refuses to start: nothing selected, no
// connected wallet, or a claim already under way. On failure the session
// returns to Select with the error recorded; rewards claimed before the
// failure stay claimed and leave the selection.
func (s *Session) Claim(ctx context.Context) (bool, error) {
	if s.ctx.Err() != nil {
		return false, lperrors.New(lperrors.CodeCancelled, "session closed")
	}
	player, connected := s.cfg.Wallet.Account()

	s.mu.Lock()
	if s.state != Select || s.running || len(s.selected) == 0 || !connected {
		s.mu.Unlock()
		return false, nil
	}
	s.running = true
	ids := append([]progression.RewardID(nil), s.selected...)
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	rewards, err := s.validate(player, ids)
	if err != nil {
		s.fail(err)
		return false, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	if !s.advance(Select, Decrypting) {
		return false, nil
	}

	if err := ctx.Err(); err != nil {
		return false, s.fail(lperrors.Wrap(lperrors.CodeCancelled, "claim cancelled", err))
	}
	values, err := s.decrypt(ctx, rewards)
	if err != nil {
		return false, s.fail(err)
	}
	s.mu.Lock()
	for i, r := range rewards {
		s.revealed[r.ID] = values[i]
	}
	s.mu.Unlock()

	if !s.advance(Decrypting, Claiming) {
		return false, nil
	}

	refs, done, err := s.submit(ctx, player, ids)
	if err != nil {
		s.mu.Lock()
		for i, ok := range done {
			if ok {
				if j := s.indexOf(ids[i]); j >= 0 {
					s.selected = append(s.selected[:j], s.selected[j+1:]...)
				}
			}
		}
		s.mu.Unlock()
		return false, s.fail(err)
	}

	s.mu.Lock()
	s.state = Success
	s.txRefs = refs
	s.claimed = len(refs)
	s.selected = nil
	s.err = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"player": player.Hex(), "claimed": len(refs)}).Info("Rewards claimed")
	s.cfg.Display.Render(snap)
	return true, nil
}

// validate resolves the selection against the ledger before any work is
// done.
func (s *Session) validate(player common.Address, ids []progression.RewardID) ([]progression.Reward, error) {
	if s.cfg.MaxBatch > 0 && len(ids) > s.cfg.MaxBatch {
		return nil, lperrors.WithMetadata(lperrors.CodeInvalidSelection, "too many rewards selected",
			map[string]string{"selected": strconv.Itoa(len(ids)), "max": strconv.Itoa(s.cfg.MaxBatch)})
	}
	prog, err := s.cfg.Ledger.Progress(s.cfg.Pass, player)
	if err != nil {
		return nil, err
	}
	rewards := make([]progression.Reward, len(ids))
	for i, id := range ids {
		r, err := s.cfg.Ledger.Reward(s.cfg.Pass, player, id)
		if err != nil {
			return nil, err
		}
		if r.IsClaimed {
			return nil, lperrors.WithMetadata(lperrors.CodeInvalidSelection, "reward already claimed",
				map[string]string{"reward": id.String(), "reason": "already_claimed"})
		}
		if r.Tier > prog.CurrentTier {
			return nil, lperrors.WithMetadata(lperrors.CodeInvalidSelection, "reward tier not unlocked",
				map[string]string{"reward": id.String(), "reason": "tier_locked"})
		}
		rewards[i] = r
	}
	return rewards, nil
}

// decrypt opens every payload or none.
func (s *Session) decrypt(ctx context.Context, rewards []progression.Reward) ([]int64, error) {
	values := make([]int64, len(rewards))
	g, ctx := errgroup.WithContext(ctx)
	for i, r := range rewards {
		i, r := i, r
		if r.Payload == nil {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return lperrors.Wrap(lperrors.CodeCancelled, "decrypt cancelled", err)
			}
			v, err := s.cfg.Service.Decrypt(s.cfg.Keys, *r.Payload)
			if err != nil {
				return &lperrors.Error{
					Code:     lperrors.CodeDecryptionFailure,
					Message:  "decrypt reward",
					Metadata: map[string]string{"reward": r.ID.String()},
					Cause:    err,
				}
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}

// submit sends one claim per reward. A failed claim does not stop the
// others already issued. refs follows the order of ids; done marks the
// rewards that were claimed even if the batch failed.
func (s *Session) submit(ctx context.Context, player common.Address, ids []progression.RewardID) ([]chain.TxRef, []bool, error) {
	refs := make([]chain.TxRef, len(ids))
	done := make([]bool, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return lperrors.Wrap(lperrors.CodeCancelled, "claim cancelled", err)
			}
			ref, err := s.cfg.Chain.SubmitClaim(ctx, player, id, s.cfg.ChainPass)
			if err != nil {
				if lperrors.HasCode(err, lperrors.CodeCancelled) {
					return err
				}
				return lperrors.Wrap(lperrors.CodeTransactionFailure, "submit claim "+id.String(), err)
			}
			refs[i] = ref
			if _, err := s.cfg.Ledger.RecordClaim(s.cfg.Pass, player, id); err != nil {
				return lperrors.Wrap(lperrors.CodeTransactionFailure, "record claim "+id.String(), err)
			}
			done[i] = true
			s.log.WithFields(logrus.Fields{"reward": id, "tx": ref.Hash.Hex()}).Debug("Claim submitted")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, done, err
	}
	return refs, done, nil
}

func (s *Session) advance(from, to State) bool {
	s.mu.Lock()
	if s.state != from {
		s.mu.Unlock()
		return false
	}
	s.state = to
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.WithField("state", to).Debug("Claim session advanced")
	s.cfg.Display.Render(snap)
	return true
}

// fail returns the session to Select carrying err.
func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.state = Select
	s.err = err
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.WithError(err).Warn("Claim failed")
	s.cfg.Display.Render(snap)
	return err
}

// Close cancels in-flight work. A closed session refuses further claims.
func (s *Session) Close() {
	s.cancel()
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Session:  s.id,
		State:    s.state,
		Selected: append([]progression.RewardID(nil), s.selected...),
		Revealed: make(map[progression.RewardID]int64, len(s.revealed)),
		TxRefs:   append([]chain.TxRef(nil), s.txRefs...),
		Claimed:  s.claimed,
		Err:      s.err,
	}
	for k, v := range s.revealed {
		snap.Revealed[k] = v
	}
	if s.err != nil {
		code := lperrors.CodeOf(s.err)
		snap.Message = code.UserMessage()
		snap.Retryable = code.Retryable()
	}
	return snap
}
