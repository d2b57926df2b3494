// Package purchase runs battle pass purchase sessions: confirm the wallet,
// seal the purchase intent, then ask the chain to create the pass.
package purchase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/secret-loot-path/chain"
	lperrors "github.com/rony4d/secret-loot-path/errors"
	"github.com/rony4d/secret-loot-path/fhe"
	"github.com/rony4d/secret-loot-path/lootpath"
	"github.com/rony4d/secret-loot-path/lootpath/genesis"
	"github.com/rony4d/secret-loot-path/progression"
	"github.com/rony4d/secret-loot-path/wallet"
)

// State is the step a purchase session is at. A session starts in Confirm,
// moves through Encrypting and Purchasing, and ends in Success. Any failure
// returns it to Confirm.
type State uint8

const (
	Confirm State = iota
	Encrypting
	Purchasing
	Success
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case Confirm:
		return "confirm"
	case Encrypting:
		return "encrypting"
	case Purchasing:
		return "purchasing"
	case Success:
		return "success"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Snapshot is a read-only view of a session. Intent, TxRef and Pass are set
// once the purchase has reached the step that produces them.
type Snapshot struct {
	Session uuid.UUID
	State   State
	Offer   genesis.TierOffer
	Intent  *fhe.Envelope
	TxRef   *chain.TxRef
	Pass    progression.PassID

	// Err is the failure that last sent the session back to Confirm, and
	// Message its user-facing text.
	Err       error
	Message   string
	Retryable bool
}

// Display is notified after every state change.
type Display interface {
	Render(Snapshot)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(Snapshot)

// Render calls f(s).
func (f DisplayFunc) Render(s Snapshot) { f(s) }

// Sealer seals opaque bytes. *fhe.Service implements it.
type Sealer interface {
	EncryptBytes(ks *fhe.KeySession, data []byte) (fhe.Envelope, error)
}

// Config bundles the collaborators of a session. Keys and Chain are
// required; the rest have defaults.
type Config struct {
	Service Sealer
	Keys    *fhe.KeySession
	Chain   chain.Ledger
	Wallet  wallet.Identity
	Offer   genesis.TierOffer

	// Duration of the created pass; defaults to lootpath.DefaultPassDuration.
	Duration time.Duration
	Display  Display
	Now      func() time.Time
	Log      logrus.FieldLogger
}

// Session is one purchase flow.
type Session struct {
	cfg Config
	id  uuid.UUID
	log logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
	state   State
	intent  *fhe.Envelope
	ref     *chain.TxRef
	pass    progression.PassID
	err     error
}

// NewSession returns a session in the Confirm state for cfg.Offer. Missing
// collaborators get defaults: the standard logger, time.Now, a fresh
// fhe.Service, a disconnected wallet and a no-op display. The session lives
// until Close.
func NewSession(cfg Config) *Session {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Service == nil {
		cfg.Service = fhe.NewService(fhe.WithLogger(cfg.Log), fhe.WithClock(cfg.Now))
	}
	if cfg.Wallet == nil {
		cfg.Wallet = wallet.Disconnected{}
	}
	if cfg.Duration <= 0 {
		cfg.Duration = lootpath.DefaultPassDuration
	}
	if cfg.Display == nil {
		cfg.Display = DisplayFunc(func(Snapshot) {})
	}
	id := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		cfg:    cfg,
		id:     id,
		log:    cfg.Log.WithFields(logrus.Fields{"session": id.String(), "tier": cfg.Offer.Tier}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ID identifies the session in logs and snapshots.
func (s *Session) ID() uuid.UUID { return s.id }

// PassName is the name of the battle pass a purchase creates.
func PassName(o genesis.TierOffer) string {
	return fmt.Sprintf("Tier %d - %s", o.Tier, o.Title)
}

// PassDescription is the description of the battle pass a purchase creates.
func PassDescription(o genesis.TierOffer) string {
	return fmt.Sprintf("FHE-encrypted battle pass tier with %d rewards", len(o.Rewards))
}

// Purchase buys the offer. It returns false with a nil error when the
// session is not in Confirm or a purchase is under way. A disconnected
// wallet fails with NOT_CONNECTED without leaving Confirm.
func (s *Session) Purchase(ctx context.Context) (bool, error) {
	if s.ctx.Err() != nil {
		return false, lperrors.New(lperrors.CodeCancelled, "session closed")
	}

	s.mu.Lock()
	if s.state != Confirm || s.running {
		s.mu.Unlock()
		return false, nil
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	buyer, ok := s.cfg.Wallet.Account()
	if !ok {
		return false, s.fail(lperrors.New(lperrors.CodeNotConnected, "wallet not connected"))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	s.transition(Encrypting)
	intent := Intent{
		Tier:        s.cfg.Offer.Tier,
		PriceWei:    s.cfg.Offer.PriceWei,
		TimestampMs: uint64(s.cfg.Now().UnixMilli()),
		Buyer:       buyer,
	}
	raw, err := intent.MarshalBinary()
	if err != nil {
		return false, s.fail(lperrors.Wrap(lperrors.CodeEncryptionFailure, "encode intent", err))
	}
	env, err := s.cfg.Service.EncryptBytes(s.cfg.Keys, raw)
	if err != nil {
		return false, s.fail(lperrors.Wrap(lperrors.CodeEncryptionFailure, "seal intent", err))
	}
	sealed, err := env.MarshalBinary()
	if err != nil {
		return false, s.fail(lperrors.Wrap(lperrors.CodeEncryptionFailure, "encode intent envelope", err))
	}
	s.mu.Lock()
	s.intent = &env
	s.mu.Unlock()

	s.transition(Purchasing)
	if err := ctx.Err(); err != nil {
		return false, s.fail(lperrors.Wrap(lperrors.CodeCancelled, "purchase cancelled", err))
	}
	ref, err := s.cfg.Chain.CreateBattlePass(ctx, buyer, PassName(s.cfg.Offer), PassDescription(s.cfg.Offer),
		s.cfg.Offer.Tier, s.cfg.Duration, sealed)
	if err != nil {
		if !lperrors.HasCode(err, lperrors.CodeCancelled) {
			err = lperrors.Wrap(lperrors.CodeTransactionFailure, "create battle pass", err)
		}
		return false, s.fail(err)
	}
	pass, err := chain.CreatedPass(ref)
	if err != nil {
		return false, s.fail(lperrors.Wrap(lperrors.CodeTransactionFailure, "read created pass", err))
	}

	s.mu.Lock()
	s.state = Success
	s.ref = &ref
	s.pass = pass
	s.err = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"buyer": buyer.Hex(),
		"pass":  pass,
		"tx":    ref.Hash.Hex(),
		"price": s.cfg.Offer.Price(),
	}).Info("Battle pass purchased")
	s.cfg.Display.Render(snap)
	return true, nil
}

func (s *Session) transition(to State) {
	s.mu.Lock()
	s.state = to
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.log.WithField("state", to).Debug("Purchase session advanced")
	s.cfg.Display.Render(snap)
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.state = Confirm
	s.intent = nil
	s.err = err
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.WithError(err).Warn("Purchase failed")
	s.cfg.Display.Render(snap)
	return err
}

// Close cancels an in-flight purchase. A closed session refuses to start
// another.
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
		Session: s.id,
		State:   s.state,
		Offer:   s.cfg.Offer,
		Pass:    s.pass,
		Err:     s.err,
	}
	if s.intent != nil {
		env := s.intent.Copy()
		snap.Intent = &env
	}
	if s.ref != nil {
		ref := *s.ref
		snap.TxRef = &ref
	}
	if s.err != nil {
		code := lperrors.CodeOf(s.err)
		snap.Message = code.UserMessage()
		snap.Retryable = code.Retryable()
	}
	return snap
}
