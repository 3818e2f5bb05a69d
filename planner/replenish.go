package planner

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/skundu42/sdk-v2/internal/metrics"
	"github.com/skundu42/sdk-v2/internal/utils"
	"github.com/skundu42/sdk-v2/types"
)

// tokenHoldings is the balance snapshot replenish planning works from.
type tokenHoldings struct {
	unwrapped *big.Int

	demWrapper common.Address
	hasDem     bool
	demBalance *big.Int // demurraged units

	inflWrapper common.Address
	hasInfl     bool
	inflStatic  *big.Int // static units, as held on the wrapper
	inflValue   *big.Int // same balance in demurraged units
}

// PlanReplenish ensures the caller ends up with at least target atto-circles
// of avatar's token in unwrapped form, without exceeding it unnecessarily.
// Local wrapped balances are preferred over the network; when the network is
// needed, the deficit is rounded UP to the pathfinder's precision boundary
// so the delivered amount never falls short of the target. If receiver is
// non-nil a direct transfer of target to it is appended.
func (p *Planner) PlanReplenish(ctx context.Context, from, avatar common.Address, target *big.Int, receiver *common.Address) (txs []types.PlannedTransaction, err error) {
	defer func() {
		metrics.PlansTotal.WithLabelValues("replenish", outcomeLabel(err)).Inc()
		if err == nil {
			metrics.PlannedTransactions.Observe(float64(len(txs)))
		}
	}()

	holdings, err := p.queryHoldings(ctx, from, avatar)
	if err != nil {
		return nil, err
	}

	p.log.WithFields(logrus.Fields{
		"avatar":    avatar.Hex(),
		"target":    utils.FormatAtto(target),
		"unwrapped": utils.FormatAtto(holdings.unwrapped),
	}).Debug("planning replenish")

	// Already covered by the unwrapped balance alone.
	if holdings.unwrapped.Cmp(target) >= 0 {
		return p.appendReceiverTransfer(nil, from, avatar, target, receiver)
	}

	deficit := new(big.Int).Sub(target, holdings.unwrapped)

	// Covered by local wrapped balances: unwrap demurraged first (exact
	// partial unwraps), then inflationary for the remainder.
	available := new(big.Int).Add(holdings.demBalance, holdings.inflValue)
	if available.Cmp(deficit) >= 0 {
		plan, err := p.unwrapLocal(ctx, from, avatar, holdings, deficit)
		if err != nil {
			return nil, err
		}
		return p.appendReceiverTransfer(plan, from, avatar, target, receiver)
	}

	// The remainder must come through the network.
	return p.replenishViaNetwork(ctx, from, avatar, target, deficit, holdings, receiver)
}

// queryHoldings fetches the unwrapped and wrapped balances concurrently.
func (p *Planner) queryHoldings(ctx context.Context, owner, avatar common.Address) (*tokenHoldings, error) {
	h := &tokenHoldings{
		demBalance: new(big.Int),
		inflStatic: new(big.Int),
		inflValue:  new(big.Int),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		h.unwrapped, err = p.chain.TokenBalance(gctx, owner, avatar)
		if err != nil {
			return fmt.Errorf("unwrapped balance lookup failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		wrapper, exists, err := p.chain.WrapperFor(gctx, avatar, types.KindWrappedDemurraged)
		if err != nil || !exists {
			return err
		}
		h.demWrapper, h.hasDem = wrapper, true
		h.demBalance, err = p.chain.Erc20Balance(gctx, wrapper, owner)
		if err != nil {
			return fmt.Errorf("demurraged balance lookup failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		wrapper, exists, err := p.chain.WrapperFor(gctx, avatar, types.KindWrappedInflationary)
		if err != nil || !exists {
			return err
		}
		h.inflWrapper, h.hasInfl = wrapper, true
		h.inflStatic, err = p.chain.Erc20Balance(gctx, wrapper, owner)
		if err != nil {
			return fmt.Errorf("inflationary balance lookup failed: %w", err)
		}
		if h.inflStatic.Sign() > 0 {
			h.inflValue, err = p.chain.ConvertStaticToDemurrage(gctx, wrapper, h.inflStatic)
			if err != nil {
				return fmt.Errorf("inflationary conversion failed: %w", err)
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return h, nil
}

// unwrapLocal frees deficit from the caller's own wrapped balances.
func (p *Planner) unwrapLocal(ctx context.Context, owner, avatar common.Address, h *tokenHoldings, deficit *big.Int) ([]types.PlannedTransaction, error) {
	var plan []types.PlannedTransaction
	remaining := new(big.Int).Set(deficit)

	if h.hasDem && h.demBalance.Sign() > 0 && remaining.Sign() > 0 {
		fromDem := new(big.Int).Set(remaining)
		if fromDem.Cmp(h.demBalance) > 0 {
			fromDem.Set(h.demBalance)
		}
		tx, err := p.builder.Unwrap(h.demWrapper, fromDem)
		if err != nil {
			return nil, err
		}
		plan = append(plan, tx)
		remaining.Sub(remaining, fromDem)
	}

	if remaining.Sign() > 0 {
		if !h.hasInfl || h.inflStatic.Sign() == 0 {
			return nil, &types.ReplenishInsufficientTokensError{
				Avatar:    avatar,
				Target:    new(big.Int).Set(deficit),
				Available: h.demBalance,
			}
		}
		// Full-balance unwrap; the surplus is re-wrapped afterwards.
		unwrapTx, err := p.builder.Unwrap(h.inflWrapper, h.inflStatic)
		if err != nil {
			return nil, err
		}
		plan = append(plan, unwrapTx)

		leftover := new(big.Int).Sub(h.inflValue, remaining)
		if leftover.Sign() > 0 {
			rewrapTx, err := p.builder.Wrap(avatar, leftover, types.KindWrappedInflationary)
			if err != nil {
				return nil, err
			}
			plan = append(plan, rewrapTx)
		}
	}
	return plan, nil
}

// replenishViaNetwork sources the uncovered deficit through a transitive
// self-transfer delivering avatar's token to the caller.
func (p *Planner) replenishViaNetwork(ctx context.Context, from, avatar common.Address, target, deficit *big.Int, h *tokenHoldings, receiver *common.Address) ([]types.PlannedTransaction, error) {
	// Round UP, not down: after the pathfinder's own precision loss the
	// delivered amount must still cover the target.
	rounded := utils.RoundUpToPrecision(deficit, p.cfg.Planner.PrecisionFactor())

	trusted, err := p.chain.IsTrusted(ctx, from, avatar)
	if err != nil {
		return nil, fmt.Errorf("trust lookup failed: %w", err)
	}

	req := types.PathRequest{
		From:               from,
		To:                 from,
		TargetFlow:         rounded,
		ToTokens:           []common.Address{avatar},
		UseWrappedBalances: true,
	}
	// Simulate the missing trust edge instead of requiring a prior
	// on-chain trust transaction; the real edge is established and revoked
	// around the settlement call below.
	if !trusted {
		req.SimulatedTrusts = []types.TrustEdge{{Truster: from, Trustee: avatar}}
	}

	result, err := p.path.FindPath(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("pathfinder query failed: %w", err)
	}
	if len(result.Transfers) == 0 || result.MaxFlow.Sign() == 0 {
		reachable := new(big.Int).Add(h.unwrapped, new(big.Int).Add(h.demBalance, h.inflValue))
		return nil, &types.ReplenishInsufficientTokensError{
			Avatar:    avatar,
			Target:    new(big.Int).Set(target),
			Available: reachable,
		}
	}
	if result.MaxFlow.Cmp(rounded) < 0 {
		return nil, &types.ReplenishInsufficientPathFlowError{
			Avatar:  avatar,
			Deficit: rounded,
			MaxFlow: result.MaxFlow,
		}
	}

	opts := TransferOptions{
		ToTokens:           []common.Address{avatar},
		UseWrappedBalances: true,
	}
	plan, err := p.assemble(ctx, from, from, rounded, result.Transfers, opts, true)
	if err != nil {
		return nil, err
	}

	if !trusted {
		trustTx, err := p.builder.Trust(avatar, maxTrustExpiry())
		if err != nil {
			return nil, err
		}
		// Expiry zero revokes immediately after settlement.
		revokeTx, err := p.builder.Trust(avatar, new(big.Int))
		if err != nil {
			return nil, err
		}
		plan = append([]types.PlannedTransaction{trustTx}, append(plan, revokeTx)...)
	}

	return p.appendReceiverTransfer(plan, from, avatar, target, receiver)
}

// appendReceiverTransfer optionally appends the final direct transfer of the
// replenished amount.
func (p *Planner) appendReceiverTransfer(plan []types.PlannedTransaction, from, avatar common.Address, amount *big.Int, receiver *common.Address) ([]types.PlannedTransaction, error) {
	if receiver == nil {
		return plan, nil
	}
	tx, err := p.builder.Transfer(from, *receiver, avatar, amount)
	if err != nil {
		return nil, err
	}
	return append(plan, tx), nil
}
