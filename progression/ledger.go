package progression

import (
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	lperrors "github.com/rony4d/secret-loot-path/errors"
	"github.com/rony4d/secret-loot-path/fhe"
)

// Ledger owns every BattlePass and PlayerProgress record. Writes to one
// (pass, player) pair are serialized; different pairs proceed in parallel.
type Ledger struct {
	svc      *fhe.Service
	ks       *fhe.KeySession
	schedule TierSchedule
	now      func() time.Time
	log      logrus.FieldLogger

	locks *keyedMutex

	mu      sync.RWMutex
	nextID  PassID
	passes  map[PassID]*passRecord
	players map[playerKey]*playerRecord
}

type passRecord struct {
	mu      sync.Mutex
	pass    BattlePass
	rewards []rewardRecord
}

type rewardRecord struct {
	spec    RewardSpec
	id      RewardID
	payload fhe.Envelope
}

type playerRecord struct {
	progress PlayerProgress
	claimed  map[RewardID]bool
}

// Config bundles the ledger dependencies.
type Config struct {
	Service  *fhe.Service
	Keys     *fhe.KeySession
	Schedule TierSchedule
	Now      func() time.Time
	Log      logrus.FieldLogger
}

// NewLedger returns an empty ledger. Now defaults to time.Now, Log to the
// standard logrus logger and Service to a fresh fhe.Service sharing both.
// Keys is required; every envelope the ledger seals is bound to it.
func NewLedger(cfg Config) *Ledger {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.Service == nil {
		cfg.Service = fhe.NewService(fhe.WithLogger(cfg.Log), fhe.WithClock(cfg.Now))
	}
	return &Ledger{
		svc:      cfg.Service,
		ks:       cfg.Keys,
		schedule: cfg.Schedule,
		now:      cfg.Now,
		log:      cfg.Log,
		locks:    newKeyedMutex(),
		nextID:   1,
		passes:   make(map[PassID]*passRecord),
		players:  make(map[playerKey]*playerRecord),
	}
}

// Schedule returns the tier schedule the ledger unlocks against.
func (l *Ledger) Schedule() TierSchedule { return l.schedule }

// CreateBattlePass registers a pass running from start for duration.
func (l *Ledger) CreateBattlePass(owner common.Address, name, description string, totalTiers uint32,
	start time.Time, duration time.Duration, rewards []RewardSpec) (BattlePass, error) {
	if name == "" {
		return BattlePass{}, lperrors.New(lperrors.CodeInvalidArgument, "empty battle pass name")
	}
	if totalTiers == 0 {
		return BattlePass{}, lperrors.New(lperrors.CodeInvalidArgument, "battle pass needs at least one tier")
	}
	if duration <= 0 {
		return BattlePass{}, lperrors.New(lperrors.CodeInvalidArgument, "non-positive battle pass duration")
	}

	zero, err := l.svc.Encrypt(l.ks, 0)
	if err != nil {
		return BattlePass{}, err
	}
	rec := &passRecord{
		pass: BattlePass{
			Name:             name,
			Description:      description,
			TotalTiers:       totalTiers,
			ExperiencePoints: zero,
			Owner:            owner,
			StartTime:        start,
			EndTime:          start.Add(duration),
		},
		rewards: make([]rewardRecord, 0, len(rewards)),
	}
	for i, spec := range rewards {
		if spec.Tier > totalTiers {
			return BattlePass{}, lperrors.WithMetadata(lperrors.CodeInvalidArgument, "reward tier above total tiers",
				map[string]string{"reward": spec.Name, "tier": strconv.FormatUint(uint64(spec.Tier), 10)})
		}
		payload, err := l.svc.Encrypt(l.ks, spec.Value)
		if err != nil {
			return BattlePass{}, err
		}
		rec.rewards = append(rec.rewards, rewardRecord{spec: spec, id: RewardID(i + 1), payload: payload})
	}

	l.mu.Lock()
	rec.pass.ID = l.nextID
	l.nextID++
	l.passes[rec.pass.ID] = rec
	l.mu.Unlock()

	l.log.WithFields(logrus.Fields{
		"pass":    rec.pass.ID,
		"owner":   owner.Hex(),
		"tiers":   totalTiers,
		"rewards": len(rewards),
	}).Info("Battle pass created")
	return l.passView(rec), nil
}

// GrantExperience adds amount to the player's sealed total. The tier is not
// recomputed; see UnlockTier.
func (l *Ledger) GrantExperience(pass PassID, player common.Address, amount int64) (Grant, error) {
	return l.GrantExperienceWith(pass, player, amount, nil)
}

// GrantExperienceWith computes the grant like GrantExperience and hands it
// to anchor before storing anything. When anchor fails the player's total,
// the pass total and the activity flags stay as they were, and the error is
// returned unchanged. anchor runs while the (pass, player) pair is locked.
func (l *Ledger) GrantExperienceWith(pass PassID, player common.Address, amount int64, anchor func(Grant) error) (Grant, error) {
	if amount < 0 {
		return Grant{}, lperrors.New(lperrors.CodeInvalidArgument, "negative experience amount")
	}
	prec, err := l.pass(pass)
	if err != nil {
		return Grant{}, err
	}
	if !l.activeAt(prec, l.now()) {
		return Grant{}, lperrors.WithMetadata(lperrors.CodePassInactive, "battle pass is not running",
			map[string]string{"pass": pass.String()})
	}

	key := playerKey{pass: pass, player: player}
	unlock := l.locks.Lock(key)
	defer unlock()

	prog, claimed, err := l.progressLocked(key)
	if err != nil {
		return Grant{}, err
	}
	if prog.TotalExperience.Empty() {
		if prog.TotalExperience, err = l.svc.Encrypt(l.ks, 0); err != nil {
			return Grant{}, err
		}
	}

	amountEnv, err := l.svc.Encrypt(l.ks, amount)
	if err != nil {
		return Grant{}, err
	}
	total, err := l.svc.Operate(l.ks, fhe.Add{A: prog.TotalExperience, B: amountEnv})
	if err != nil {
		return Grant{}, err
	}
	proof, err := l.svc.GenerateProof(l.ks, fhe.OpAdd, []fhe.Envelope{prog.TotalExperience, amountEnv}, total)
	if err != nil {
		return Grant{}, err
	}

	prog.TotalExperience = total
	prog.IsActive = true
	prog.LastUpdate = l.now()
	grant := Grant{Progress: prog, Amount: amountEnv, Proof: proof}

	if anchor != nil {
		if err := anchor(grant); err != nil {
			l.log.WithError(err).WithFields(logrus.Fields{"pass": pass, "player": player.Hex()}).Warn("Experience grant not anchored")
			return Grant{}, err
		}
	}

	prec.mu.Lock()
	passTotal, err := l.svc.Operate(l.ks, fhe.Add{A: prec.pass.ExperiencePoints, B: amountEnv})
	if err == nil {
		prec.pass.ExperiencePoints = passTotal
	}
	prec.mu.Unlock()
	if err != nil {
		return Grant{}, err
	}
	l.storeLocked(key, prog, claimed)

	l.log.WithFields(logrus.Fields{"pass": pass, "player": player.Hex()}).Debug("Experience granted")
	return grant, nil
}

// UnlockTier advances the player's tier from a revealed experience value.
// The proof must be a reveal proof, signed by this ledger's key session, over
// the player's current sealed total and committing to revealed. The tier
// never decreases and never exceeds the pass's total tiers.
func (l *Ledger) UnlockTier(pass PassID, player common.Address, revealed int64, proof fhe.Proof) (uint32, error) {
	prec, err := l.pass(pass)
	if err != nil {
		return 0, err
	}
	key := playerKey{pass: pass, player: player}
	unlock := l.locks.Lock(key)
	defer unlock()

	prog, claimed, err := l.existingLocked(key)
	if err != nil {
		return 0, err
	}
	if err := l.checkReveal(prog, revealed, proof); err != nil {
		return 0, err
	}

	prec.mu.Lock()
	total := prec.pass.TotalTiers
	prec.mu.Unlock()

	tier := l.schedule.TierFor(revealed)
	if tier > total {
		tier = total
	}
	if tier > prog.CurrentTier {
		prog.CurrentTier = tier
	}
	prog.LastUpdate = l.now()
	l.storeLocked(key, prog, claimed)

	prec.mu.Lock()
	if prog.CurrentTier > prec.pass.CurrentTier {
		prec.pass.CurrentTier = prog.CurrentTier
	}
	prec.mu.Unlock()

	l.log.WithFields(logrus.Fields{"pass": pass, "player": player.Hex(), "tier": prog.CurrentTier}).Info("Tier unlocked")
	return prog.CurrentTier, nil
}

func (l *Ledger) checkReveal(prog PlayerProgress, revealed int64, proof fhe.Proof) error {
	invalid := func(reason string) error {
		return lperrors.WithMetadata(lperrors.CodeProofInvalid, "reveal proof rejected", map[string]string{"reason": reason})
	}
	if !l.svc.VerifyProof(proof) {
		return invalid("signature")
	}
	if !proof.VerificationKeyRef.Equal(l.ks.Ref()) {
		return invalid("foreign_key")
	}
	st, err := proof.Statement()
	if err != nil || st.Op != fhe.OpReveal {
		return invalid("not_a_reveal")
	}
	if len(proof.PublicInputs) != 1 || proof.PublicInputs[0] != prog.TotalExperience.Ref() {
		return invalid("stale_total")
	}
	if st.Output != fhe.RevealCommitment(revealed) {
		return invalid("value_mismatch")
	}
	return nil
}

// RecordClaim marks a reward claimed by player. Claimed rewards stay
// claimed.
func (l *Ledger) RecordClaim(pass PassID, player common.Address, id RewardID) (Reward, error) {
	prec, err := l.pass(pass)
	if err != nil {
		return Reward{}, err
	}
	rr, err := prec.reward(id)
	if err != nil {
		return Reward{}, err
	}

	key := playerKey{pass: pass, player: player}
	unlock := l.locks.Lock(key)
	defer unlock()

	prog, claimed, err := l.existingLocked(key)
	if err != nil {
		return Reward{}, err
	}
	if claimed[id] {
		return Reward{}, lperrors.WithMetadata(lperrors.CodeInvalidSelection, "reward already claimed",
			map[string]string{"reward": id.String(), "reason": "already_claimed"})
	}
	if rr.spec.Tier > prog.CurrentTier {
		return Reward{}, lperrors.WithMetadata(lperrors.CodeInvalidSelection, "reward tier not unlocked",
			map[string]string{"reward": id.String(), "reason": "tier_locked"})
	}

	next := make(map[RewardID]bool, len(claimed)+1)
	for k, v := range claimed {
		next[k] = v
	}
	next[id] = true
	prog.RewardsClaimed++
	prog.LastUpdate = l.now()
	l.storeLocked(key, prog, next)

	l.log.WithFields(logrus.Fields{"pass": pass, "player": player.Hex(), "reward": id}).Info("Reward claimed")
	return rewardView(rr, true), nil
}

// BattlePass returns a snapshot of the pass.
func (l *Ledger) BattlePass(id PassID) (BattlePass, error) {
	prec, err := l.pass(id)
	if err != nil {
		return BattlePass{}, err
	}
	return l.passView(prec), nil
}

// Progress returns a snapshot of the player's progress on pass.
func (l *Ledger) Progress(pass PassID, player common.Address) (PlayerProgress, error) {
	if _, err := l.pass(pass); err != nil {
		return PlayerProgress{}, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.players[playerKey{pass: pass, player: player}]
	if !ok {
		return PlayerProgress{}, lperrors.New(lperrors.CodeNotFound, "no progress for player")
	}
	return rec.progress, nil
}

// Rewards lists the pass rewards as seen by player, in id order.
func (l *Ledger) Rewards(pass PassID, player common.Address) ([]Reward, error) {
	prec, err := l.pass(pass)
	if err != nil {
		return nil, err
	}
	claimed := l.claimedSet(pass, player)
	out := make([]Reward, len(prec.rewards))
	for i, rr := range prec.rewards {
		out[i] = rewardView(rr, claimed[rr.id])
	}
	return out, nil
}

// Reward returns one reward as seen by player.
func (l *Ledger) Reward(pass PassID, player common.Address, id RewardID) (Reward, error) {
	prec, err := l.pass(pass)
	if err != nil {
		return Reward{}, err
	}
	rr, err := prec.reward(id)
	if err != nil {
		return Reward{}, err
	}
	return rewardView(rr, l.claimedSet(pass, player)[id]), nil
}

func (l *Ledger) pass(id PassID) (*passRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.passes[id]
	if !ok {
		return nil, lperrors.WithMetadata(lperrors.CodeNotFound, "unknown battle pass", map[string]string{"pass": id.String()})
	}
	return rec, nil
}

func (p *passRecord) reward(id RewardID) (rewardRecord, error) {
	if id == 0 || int(id) > len(p.rewards) {
		return rewardRecord{}, lperrors.WithMetadata(lperrors.CodeNotFound, "unknown reward", map[string]string{"reward": id.String()})
	}
	return p.rewards[id-1], nil
}

func (l *Ledger) activeAt(p *passRecord, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !now.Before(p.pass.StartTime) && !now.After(p.pass.EndTime)
}

func (l *Ledger) passView(p *passRecord) BattlePass {
	p.mu.Lock()
	view := p.pass
	p.mu.Unlock()
	now := l.now()
	view.IsActive = !now.Before(view.StartTime) && !now.After(view.EndTime)
	view.IsCompleted = view.CurrentTier == view.TotalTiers
	return view
}

func rewardView(rr rewardRecord, claimed bool) Reward {
	r := Reward{
		ID:        rr.id,
		Name:      rr.spec.Name,
		Kind:      rr.spec.Kind,
		Rarity:    rr.spec.Rarity,
		Tier:      rr.spec.Tier,
		IsClaimed: claimed,
	}
	if !claimed {
		payload := rr.payload.Copy()
		r.Payload = &payload
	}
	return r
}

func (l *Ledger) claimedSet(pass PassID, player common.Address) map[RewardID]bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if rec, ok := l.players[playerKey{pass: pass, player: player}]; ok {
		return rec.claimed
	}
	return nil
}

// progressLocked returns the player's record or a fresh one. The caller
// holds the key lock.
func (l *Ledger) progressLocked(key playerKey) (PlayerProgress, map[RewardID]bool, error) {
	l.mu.RLock()
	rec, ok := l.players[key]
	l.mu.RUnlock()
	if ok {
		return rec.progress, rec.claimed, nil
	}
	return PlayerProgress{Player: key.player, Pass: key.pass}, map[RewardID]bool{}, nil
}

func (l *Ledger) existingLocked(key playerKey) (PlayerProgress, map[RewardID]bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.players[key]
	if !ok {
		return PlayerProgress{}, nil, lperrors.WithMetadata(lperrors.CodeNotFound, "no progress for player",
			map[string]string{"pass": key.pass.String(), "player": key.player.Hex()})
	}
	return rec.progress, rec.claimed, nil
}

// storeLocked replaces the player's record. Claimed sets are never mutated
// after being stored, so readers may keep references to them.
func (l *Ledger) storeLocked(key playerKey, prog PlayerProgress, claimed map[RewardID]bool) {
	l.mu.Lock()
	l.players[key] = &playerRecord{progress: prog, claimed: claimed}
	l.mu.Unlock()
}
