package integration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/secret-loot-path/chain"
	"github.com/rony4d/secret-loot-path/chain/sqlite"
	"github.com/rony4d/secret-loot-path/claim"
	"github.com/rony4d/secret-loot-path/fhe"
	"github.com/rony4d/secret-loot-path/lootpath"
	"github.com/rony4d/secret-loot-path/lootpath/genesis"
	"github.com/rony4d/secret-loot-path/progression"
	"github.com/rony4d/secret-loot-path/purchase"
	"github.com/rony4d/secret-loot-path/wallet"
)

// Config describes how to assemble a Runtime.
type Config struct {
	DataDir      string
	Rules        lootpath.Rules
	Season       genesis.Season
	ChainBackend string
	// ChainDB is the sqlite file; relative paths resolve against DataDir.
	ChainDB string
	// KeysDir holds the exported key session. Empty means a fresh session
	// that is never written out.
	KeysDir string
	Now     func() time.Time
	Log     logrus.FieldLogger
}

// Runtime is a wired set of components sharing one key session.
type Runtime struct {
	Rules   lootpath.Rules
	Season  genesis.Season
	Keys    *fhe.KeySession
	Service *fhe.Service
	Ledger  *progression.Ledger
	Chain   *chain.Simulated

	now func() time.Time
	log logrus.FieldLogger
}

// SeasonPass is a season opened on both the ledger and the chain.
type SeasonPass struct {
	Ledger progression.PassID
	Chain  progression.PassID
}

// New validates cfg.Rules and cfg.Season, then opens the key session, the
// ledger and the chain. With KeysDir set, keys are loaded from it or, on a
// first run, created and exported to it. A relative ChainDB resolves
// against DataDir. Close releases everything New opened.
func New(cfg Config) (*Runtime, error) {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("rules %s: %w", cfg.Rules.Name, err)
	}
	if err := cfg.Season.Validate(); err != nil {
		return nil, err
	}
	schedule, err := cfg.Rules.Schedule()
	if err != nil {
		return nil, err
	}

	keys, err := openKeys(cfg.KeysDir, cfg.Log)
	if err != nil {
		return nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		keys.Destroy()
		return nil, err
	}

	svc := fhe.NewService(fhe.WithLogger(cfg.Log), fhe.WithClock(cfg.Now))
	rt := &Runtime{
		Rules:   cfg.Rules,
		Season:  cfg.Season,
		Keys:    keys,
		Service: svc,
		Ledger: progression.NewLedger(progression.Config{
			Service:  svc,
			Keys:     keys,
			Schedule: schedule,
			Now:      cfg.Now,
			Log:      cfg.Log,
		}),
		Chain: chain.NewSimulated(store, chain.WithClock(cfg.Now), chain.WithLogger(cfg.Log)),
		now:   cfg.Now,
		log:   cfg.Log,
	}
	cfg.Log.WithFields(logrus.Fields{
		"network": cfg.Rules.Name,
		"backend": cfg.ChainBackend,
		"key":     keys.Ref().String(),
	}).Info("Runtime assembled")
	return rt, nil
}

func openKeys(dir string, log logrus.FieldLogger) (*fhe.KeySession, error) {
	if dir == "" {
		return fhe.NewKeySession()
	}
	ks, err := fhe.LoadKeySession(dir)
	if err == nil {
		return ks, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	ks, err = fhe.NewKeySession()
	if err != nil {
		return nil, err
	}
	if err := ks.Export(dir); err != nil {
		ks.Destroy()
		return nil, fmt.Errorf("export key session: %w", err)
	}
	log.WithField("dir", dir).Info("Key session created")
	return ks, nil
}

func openStore(cfg Config) (chain.StateStore, error) {
	switch cfg.ChainBackend {
	case "", BackendMemory:
		return chain.NewMemoryStore(), nil
	case BackendSQLite:
		path := cfg.ChainDB
		if path == "" {
			return nil, fmt.Errorf("sqlite backend needs a database path")
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.DataDir, path)
		}
		return sqlite.Open(path)
	}
	return nil, fmt.Errorf("unknown chain backend %q", cfg.ChainBackend)
}

// Close destroys the key session and closes the chain store.
func (rt *Runtime) Close() error {
	rt.Keys.Destroy()
	return rt.Chain.Close()
}

// OpenSeason creates the season's battle pass on the chain and then on the
// ledger, with every offer's rewards. The chain goes first: a failed chain
// call leaves no ledger pass behind. A ledger failure after that leaves an
// unused chain pass, which is no different from a chain pass whose ledger
// was lost on restart.
func (rt *Runtime) OpenSeason(ctx context.Context, owner common.Address) (SeasonPass, error) {
	tiers := uint32(len(rt.Season.Offers))
	if tiers > rt.Rules.Progression.MaxTiers {
		tiers = rt.Rules.Progression.MaxTiers
	}
	duration := rt.Rules.Season.PassDuration

	ref, err := rt.Chain.CreateBattlePass(ctx, owner, rt.Season.Name, rt.Season.Description, tiers, duration, nil)
	if err != nil {
		return SeasonPass{}, err
	}
	onChain, err := chain.CreatedPass(ref)
	if err != nil {
		return SeasonPass{}, err
	}
	pass, err := rt.Ledger.CreateBattlePass(owner, rt.Season.Name, rt.Season.Description, tiers,
		rt.now(), duration, rt.Season.RewardSpecs())
	if err != nil {
		return SeasonPass{}, err
	}
	return SeasonPass{Ledger: pass.ID, Chain: onChain}, nil
}

// GrantExperience submits the sealed amount with its proof to the chain and
// keeps the ledger grant only once the chain has accepted it. A failed
// submission leaves both sides at the previous total, so the grant can be
// retried.
func (rt *Runtime) GrantExperience(ctx context.Context, sp SeasonPass, player common.Address, amount int64) (progression.Grant, chain.TxRef, error) {
	var ref chain.TxRef
	grant, err := rt.Ledger.GrantExperienceWith(sp.Ledger, player, amount, func(g progression.Grant) error {
		var err error
		ref, err = rt.Chain.SubmitExperience(ctx, player, sp.Chain, g.Amount, g.Proof)
		return err
	})
	if err != nil {
		return progression.Grant{}, chain.TxRef{}, err
	}
	return grant, ref, nil
}

// Unlock reveals the player's total and advances their tier with it.
func (rt *Runtime) Unlock(sp SeasonPass, player common.Address) (int64, uint32, error) {
	prog, err := rt.Ledger.Progress(sp.Ledger, player)
	if err != nil {
		return 0, 0, err
	}
	total, proof, err := rt.Service.Reveal(rt.Keys, prog.TotalExperience)
	if err != nil {
		return 0, 0, err
	}
	tier, err := rt.Ledger.UnlockTier(sp.Ledger, player, total, proof)
	return total, tier, err
}

// ClaimSession starts a claim session on sp for the given identity.
func (rt *Runtime) ClaimSession(sp SeasonPass, id wallet.Identity, display claim.Display) *claim.Session {
	return claim.NewSession(claim.Config{
		Service:   rt.Service,
		Keys:      rt.Keys,
		Ledger:    rt.Ledger,
		Chain:     rt.Chain,
		Wallet:    id,
		Pass:      sp.Ledger,
		ChainPass: sp.Chain,
		MaxBatch:  rt.Rules.Claims.MaxBatch,
		Display:   display,
		Log:       rt.log,
	})
}

// PurchaseSession starts a purchase session for offer.
func (rt *Runtime) PurchaseSession(offer genesis.TierOffer, id wallet.Identity, display purchase.Display) *purchase.Session {
	return purchase.NewSession(purchase.Config{
		Service: rt.Service,
		Keys:    rt.Keys,
		Chain:   rt.Chain,
		Wallet:  id,
		Offer:   offer,
		Display: display,
		Now:     rt.now,
		Log:     rt.log,
	})
}
