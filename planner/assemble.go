package planner

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/skundu42/sdk-v2/flow"
	"github.com/skundu42/sdk-v2/internal/metrics"
	"github.com/skundu42/sdk-v2/types"
)

// assemble compiles a validated path into the final transaction list:
//
//	[approval?] [unwrap calls...] [settlement call] [re-wrap calls...]
//
// The ordering is a contract: unwraps must precede settlement (the flow
// consumes unwrapped funds) and re-wraps must follow it (leftover is only
// known once the flow has executed).
func (p *Planner) assemble(ctx context.Context, from, to common.Address, target *big.Int, steps []types.TransferStep, opts TransferOptions, aggregate bool) ([]types.PlannedTransaction, error) {
	edges := make([]types.TransferStep, len(steps))
	copy(edges, steps)

	// A receiver self-loop consolidates delivery into one token; the
	// encoder treats it as the only terminal edge.
	if aggregate && len(opts.ToTokens) == 1 && target.Sign() > 0 {
		edges = append(edges, types.TransferStep{
			From:       to,
			To:         to,
			TokenOwner: opts.ToTokens[0],
			Value:      new(big.Int).Set(target),
		})
	}

	// Token metadata and the operator-approval check are independent reads;
	// fetch them concurrently and join before the dependent steps.
	var (
		infos    map[common.Address]types.TokenInfo
		approved bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		infos, err = p.chain.TokenInfo(gctx, tokenOwners(edges))
		if err != nil {
			return fmt.Errorf("token metadata lookup failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		approved, err = p.chain.IsApprovedOperator(gctx, from, p.builder.Hub())
		if err != nil {
			// Conservative local recovery: planning proceeds assuming the
			// approval is still needed rather than aborting.
			p.log.WithError(err).Warn("approval check failed, assuming operator not approved")
			approved = false
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	consumed := consumedPerToken(edges)
	wrapped := wrappedTokens(infos)
	if len(wrapped) > 0 && !opts.UseWrappedBalances {
		return nil, &types.WrappedTokensRequiredError{Tokens: wrapped}
	}

	var unwraps, rewraps []types.PlannedTransaction
	for _, token := range wrapped {
		info := infos[token]
		strategy, err := strategyFor(info.Kind)
		if err != nil {
			return nil, err
		}
		u, r, err := strategy.Plan(ctx, p, from, info, consumed[token])
		if err != nil {
			return nil, fmt.Errorf("%s unwrap planning for %s failed: %w", strategy.Name(), token, err)
		}
		unwraps = append(unwraps, u...)
		rewraps = append(rewraps, r...)
	}

	// The encoder operates on trust-network identities only: every wrapper
	// address is rewritten to its issuing avatar.
	for i, e := range edges {
		if info, ok := infos[e.TokenOwner]; ok && info.IsWrapped() {
			edges[i].TokenOwner = info.Avatar
		}
	}

	matrix, err := flow.CreateFlowMatrix(from, to, target, edges)
	if err != nil {
		return nil, err
	}
	metrics.FlowMatrixEdges.Observe(float64(len(matrix.FlowEdges)))
	if len(opts.StreamData) > 0 {
		matrix.Streams[0].Data = opts.StreamData
	}

	settle, err := p.builder.OperateFlowMatrix(matrix)
	if err != nil {
		return nil, err
	}

	txs := make([]types.PlannedTransaction, 0, len(unwraps)+len(rewraps)+2)
	if !approved {
		approveTx, err := p.builder.ApproveOperator(p.builder.Hub())
		if err != nil {
			return nil, err
		}
		txs = append(txs, approveTx)
	}
	txs = append(txs, unwraps...)
	txs = append(txs, settle)
	txs = append(txs, rewraps...)
	return txs, nil
}

// tokenOwners returns the distinct token addresses referenced by the edges.
func tokenOwners(edges []types.TransferStep) []common.Address {
	seen := make(map[common.Address]struct{}, len(edges))
	owners := make([]common.Address, 0, len(edges))
	for _, e := range edges {
		if _, ok := seen[e.TokenOwner]; !ok {
			seen[e.TokenOwner] = struct{}{}
			owners = append(owners, e.TokenOwner)
		}
	}
	return owners
}

// consumedPerToken sums the value flowing through each token address.
func consumedPerToken(edges []types.TransferStep) map[common.Address]*big.Int {
	consumed := make(map[common.Address]*big.Int)
	for _, e := range edges {
		if total, ok := consumed[e.TokenOwner]; ok {
			total.Add(total, e.Value)
		} else {
			consumed[e.TokenOwner] = new(big.Int).Set(e.Value)
		}
	}
	return consumed
}

// wrappedTokens returns the wrapped token addresses in deterministic order.
func wrappedTokens(infos map[common.Address]types.TokenInfo) []common.Address {
	var wrapped []common.Address
	for token, info := range infos {
		if info.IsWrapped() {
			wrapped = append(wrapped, token)
		}
	}
	sort.Slice(wrapped, func(i, j int) bool {
		return wrapped[i].Cmp(wrapped[j]) < 0
	})
	return wrapped
}
