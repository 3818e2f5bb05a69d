package planner

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/skundu42/sdk-v2/types"
)

// unwrapStrategy plans the unwrap (and any re-wrap) calls freeing the value
// a path consumes from one wrapped token. The two decay variants need
// different math, so each gets its own implementation.
type unwrapStrategy interface {
	Plan(ctx context.Context, p *Planner, owner common.Address, info types.TokenInfo, consumed *big.Int) (unwraps, rewraps []types.PlannedTransaction, err error)
	Name() string
}

func strategyFor(kind types.TokenKind) (unwrapStrategy, error) {
	switch kind {
	case types.KindWrappedDemurraged:
		return &demurragedUnwrap{}, nil
	case types.KindWrappedInflationary:
		return &inflationaryUnwrap{}, nil
	default:
		return nil, fmt.Errorf("token kind %s needs no unwrap", kind)
	}
}

// demurragedUnwrap frees exactly the consumed amount: demurraged wrappers
// share the hub's decayed unit, so partial unwraps are exact.
type demurragedUnwrap struct{}

func (s *demurragedUnwrap) Plan(ctx context.Context, p *Planner, owner common.Address, info types.TokenInfo, consumed *big.Int) ([]types.PlannedTransaction, []types.PlannedTransaction, error) {
	tx, err := p.builder.Unwrap(info.Token, consumed)
	if err != nil {
		return nil, nil, err
	}
	return []types.PlannedTransaction{tx}, nil, nil
}

func (s *demurragedUnwrap) Name() string { return "demurraged" }

// inflationaryUnwrap frees the entire static balance: partial unwraps are
// not meaningful for the inflation-indexed variant. Whatever the flow does
// not consume is re-wrapped after settlement; the leftover cannot be known
// before the flow executes, so the re-wrap must follow the settlement call.
type inflationaryUnwrap struct{}

func (s *inflationaryUnwrap) Plan(ctx context.Context, p *Planner, owner common.Address, info types.TokenInfo, consumed *big.Int) ([]types.PlannedTransaction, []types.PlannedTransaction, error) {
	static, err := p.chain.Erc20Balance(ctx, info.Token, owner)
	if err != nil {
		return nil, nil, fmt.Errorf("balance lookup on wrapper %s failed: %w", info.Token, err)
	}
	if static.Sign() == 0 {
		return nil, nil, nil
	}

	unwrapTx, err := p.builder.Unwrap(info.Token, static)
	if err != nil {
		return nil, nil, err
	}

	unwrapped, err := p.chain.ConvertStaticToDemurrage(ctx, info.Token, static)
	if err != nil {
		return nil, nil, fmt.Errorf("demurrage conversion on wrapper %s failed: %w", info.Token, err)
	}

	leftover := new(big.Int).Sub(unwrapped, consumed)
	if leftover.Sign() <= 0 {
		return []types.PlannedTransaction{unwrapTx}, nil, nil
	}

	rewrapTx, err := p.builder.Wrap(info.Avatar, leftover, types.KindWrappedInflationary)
	if err != nil {
		return nil, nil, err
	}
	return []types.PlannedTransaction{unwrapTx}, []types.PlannedTransaction{rewrapTx}, nil
}

func (s *inflationaryUnwrap) Name() string { return "inflationary" }
