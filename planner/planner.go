// Package planner turns high-level transfer intents into ordered,
// contract-ready transaction lists. It queries the pathfinder and the chain,
// decides which wrap/unwrap/approve/trust calls must surround the encoded
// flow, and guarantees the ordering the settlement contract depends on.
package planner

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/skundu42/sdk-v2/calls"
	"github.com/skundu42/sdk-v2/config"
	"github.com/skundu42/sdk-v2/types"
)

// Pathfinder is the external routing oracle. Its output is untrusted and
// must pass the encoder's conservation and terminal-edge checks before use.
type Pathfinder interface {
	FindPath(ctx context.Context, req types.PathRequest) (*types.PathResult, error)
}

// ChainReader answers the planner's read-only on-chain queries. Implemented
// by clients.ChainClient; faked in tests.
type ChainReader interface {
	TokenInfo(ctx context.Context, tokens []common.Address) (map[common.Address]types.TokenInfo, error)
	WrapperFor(ctx context.Context, avatar common.Address, kind types.TokenKind) (common.Address, bool, error)
	TokenBalance(ctx context.Context, owner, avatar common.Address) (*big.Int, error)
	Erc20Balance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	ConvertStaticToDemurrage(ctx context.Context, wrapper common.Address, amount *big.Int) (*big.Int, error)
	ConvertDemurrageToStatic(ctx context.Context, wrapper common.Address, amount *big.Int) (*big.Int, error)
	IsApprovedOperator(ctx context.Context, owner, operator common.Address) (bool, error)
	IsTrusted(ctx context.Context, truster, trustee common.Address) (bool, error)
	IsGroup(ctx context.Context, addr common.Address) (bool, error)
}

// TransferOptions tune a standard transfer plan.
type TransferOptions struct {
	// FromTokens, together with a single-entry ToTokens, marks a self-transfer
	// as a pure wrapper/underlying balance conversion handled without a path.
	// The pathfinder itself does not consume it.
	FromTokens []common.Address
	// ToTokens restricts which tokens may be delivered to the receiver.
	ToTokens []common.Address
	// ExcludedFromTokens are merged with the planner's default exclusions.
	ExcludedFromTokens []common.Address
	// UseWrappedBalances opts into spending ERC20-wrapped balances. Without
	// it a path consuming wrapped tokens fails.
	UseWrappedBalances bool
	// Aggregate consolidates delivery into a single token via a receiver
	// self-loop. Requires exactly one entry in ToTokens.
	Aggregate bool
	// StreamData is an auxiliary payload forwarded to the receiver by the
	// settlement contract (e.g. an encoded account-creation call).
	StreamData []byte
}

// Planner plans multi-hop transfers. Every planning call is a pure
// computation over its own inputs and queries; concurrent calls need no
// coordination.
type Planner struct {
	cfg     *config.Config
	path    Pathfinder
	chain   ChainReader
	builder *calls.Builder
	log     *logrus.Entry
}

// NewPlanner creates a planner from its collaborators.
func NewPlanner(cfg *config.Config, path Pathfinder, chain ChainReader) *Planner {
	return &Planner{
		cfg:     cfg,
		path:    path,
		chain:   chain,
		builder: calls.NewBuilder(cfg.Contracts.HubAddress()),
		log:     logrus.WithField("component", "planner"),
	}
}

// maxTrustExpiry is the uint96 ceiling, used for open-ended trust edges.
func maxTrustExpiry() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 96)
	return max.Sub(max, big.NewInt(1))
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	if coded, ok := err.(interface{ Code() string }); ok {
		return coded.Code()
	}
	return "error"
}
