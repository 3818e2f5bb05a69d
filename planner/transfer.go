package planner

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/skundu42/sdk-v2/internal/metrics"
	"github.com/skundu42/sdk-v2/internal/utils"
	"github.com/skundu42/sdk-v2/types"
)

// PlanTransfer plans a transfer of amount atto-circles from from to to and
// returns the ordered transaction list realizing it. The requested amount
// is truncated to the pathfinder's precision boundary first: the service
// silently ignores finer precision, and requesting unsanitized amounts
// risks under-delivery.
func (p *Planner) PlanTransfer(ctx context.Context, from, to common.Address, amount *big.Int, opts TransferOptions) (txs []types.PlannedTransaction, err error) {
	defer func() {
		metrics.PlansTotal.WithLabelValues("transfer", outcomeLabel(err)).Inc()
		if err == nil {
			metrics.PlannedTransactions.Observe(float64(len(txs)))
		}
	}()

	precision := p.cfg.Planner.PrecisionFactor()
	requested := utils.TruncateToPrecision(amount, precision)
	if requested.Sign() <= 0 {
		return nil, fmt.Errorf("transfer amount %s truncates to zero at the pathfinder's precision", amount)
	}
	target := new(big.Int).Add(requested, p.cfg.Planner.TransferFee())
	if target.Cmp(p.cfg.Planner.MaxFlow()) > 0 {
		return nil, fmt.Errorf("transfer amount %s exceeds the maximum settleable flow", utils.FormatAtto(target))
	}

	p.log.WithFields(logrus.Fields{
		"from":   from.Hex(),
		"to":     to.Hex(),
		"amount": utils.FormatAtto(target),
	}).Debug("planning transfer")

	// Pure balance conversion: transferring to oneself between a wrapper
	// and its underlying token needs no path at all.
	if from == to && len(opts.FromTokens) == 1 && len(opts.ToTokens) == 1 {
		tx, ok, err := p.tryDirectUnwrap(ctx, opts.FromTokens[0], opts.ToTokens[0], target)
		if err != nil {
			return nil, err
		}
		if ok {
			return []types.PlannedTransaction{tx}, nil
		}
	}

	excluded, err := p.defaultExclusions(ctx, to)
	if err != nil {
		return nil, err
	}
	excluded = append(excluded, opts.ExcludedFromTokens...)

	result, err := p.path.FindPath(ctx, types.PathRequest{
		From:               from,
		To:                 to,
		TargetFlow:         target,
		ToTokens:           opts.ToTokens,
		ExcludedFromTokens: excluded,
		UseWrappedBalances: opts.UseWrappedBalances,
	})
	if err != nil {
		return nil, fmt.Errorf("pathfinder query failed: %w", err)
	}
	if len(result.Transfers) == 0 {
		return nil, &types.NoPathError{From: from, To: to, Requested: target}
	}
	if result.MaxFlow.Cmp(target) < 0 {
		return nil, &types.InsufficientFlowError{From: from, To: to, Requested: target, MaxFlow: result.MaxFlow}
	}

	return p.assemble(ctx, from, to, target, result.Transfers, opts, opts.Aggregate)
}

// tryDirectUnwrap checks whether src is a deployed wrapper of dst's issuing
// avatar and, if so, emits the single unwrap call converting between them.
func (p *Planner) tryDirectUnwrap(ctx context.Context, src, dst common.Address, amount *big.Int) (types.PlannedTransaction, bool, error) {
	infos, err := p.chain.TokenInfo(ctx, []common.Address{src, dst})
	if err != nil {
		return types.PlannedTransaction{}, false, err
	}
	srcInfo, dstInfo := infos[src], infos[dst]
	if !srcInfo.IsWrapped() || srcInfo.Avatar != dstInfo.Avatar {
		return types.PlannedTransaction{}, false, nil
	}

	p.log.WithField("wrapper", src.Hex()).Debug("direct unwrap fast path")
	tx, err := p.builder.Unwrap(src, amount)
	if err != nil {
		return types.PlannedTransaction{}, false, err
	}
	return tx, true, nil
}

// defaultExclusions computes the token-exclusion list implied by the
// destination. Paying into a group must not be funded with the group's own
// token or its wrappers, which would be a circular self-payment.
func (p *Planner) defaultExclusions(ctx context.Context, to common.Address) ([]common.Address, error) {
	isGroup, err := p.chain.IsGroup(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("group lookup for %s failed: %w", to, err)
	}
	if !isGroup {
		return nil, nil
	}

	excluded := []common.Address{to}
	for _, kind := range []types.TokenKind{types.KindWrappedDemurraged, types.KindWrappedInflationary} {
		wrapper, exists, err := p.chain.WrapperFor(ctx, to, kind)
		if err != nil {
			return nil, err
		}
		if exists {
			excluded = append(excluded, wrapper)
		}
	}
	return excluded, nil
}
