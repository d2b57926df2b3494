package launcher

import (
	"context"
	"fmt"
	"io"

	"github.com/rony4d/secret-loot-path/claim"
	"github.com/rony4d/secret-loot-path/integration"
	"github.com/rony4d/secret-loot-path/progression"
	"github.com/rony4d/secret-loot-path/purchase"
	"github.com/rony4d/secret-loot-path/wallet"
)

// demoGrants is the experience granted to the demo player, in order.
var demoGrants = []int64{100, 150}

// runDemo walks one player through a season: grants, a tier unlock, a
// claim of every unlocked reward and the purchase of the first tier.
func runDemo(ctx context.Context, rt *integration.Runtime, w io.Writer, player wallet.Identity) error {
	addr, ok := player.Account()
	if !ok {
		return fmt.Errorf("demo wallet is not connected")
	}

	sp, err := rt.OpenSeason(ctx, addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Opened %q: ledger %s, chain %s\n", rt.Season.Name, sp.Ledger, sp.Chain)

	for _, amount := range demoGrants {
		grant, ref, err := rt.GrantExperience(ctx, sp, addr, amount)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Granted %d xp: total %s, tx %s\n", amount, grant.Progress.TotalExperience.Ref(), ref)
	}

	total, tier, err := rt.Unlock(sp, addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Revealed %d xp, unlocked tier %d\n", total, tier)

	rewards, err := rt.Ledger.Rewards(sp.Ledger, addr)
	if err != nil {
		return err
	}
	session := rt.ClaimSession(sp, player, claim.DisplayFunc(func(s claim.Snapshot) {
		fmt.Fprintf(w, "  claim %s: %s\n", s.Session, s.State)
	}))
	defer session.Close()
	var selected []progression.Reward
	for _, r := range rewards {
		if r.Tier <= tier && !r.IsClaimed && len(selected) < rt.Rules.Claims.MaxBatch {
			if err := session.Select(r.ID); err != nil {
				return err
			}
			selected = append(selected, r)
		}
	}
	if len(selected) > 0 {
		ok, err := session.Claim(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("claim session refused to start")
		}
		snap := session.Snapshot()
		for i, r := range selected {
			fmt.Fprintf(w, "Claimed %-20s %-11s value %-5d tx %s\n", r.Name, r.Kind, snap.Revealed[r.ID], snap.TxRefs[i])
		}
	} else {
		fmt.Fprintln(w, "No rewards unlocked")
	}

	offer := rt.Season.Offers[0]
	buy := rt.PurchaseSession(offer, player, purchase.DisplayFunc(func(s purchase.Snapshot) {
		fmt.Fprintf(w, "  purchase %s: %s\n", s.Session, s.State)
	}))
	defer buy.Close()
	if _, err := buy.Purchase(ctx); err != nil {
		return err
	}
	snap := buy.Snapshot()
	fmt.Fprintf(w, "Purchased %s for %s: chain %s, tx %s\n", purchase.PassName(offer), offer.Price(), snap.Pass, snap.TxRef)
	return nil
}
