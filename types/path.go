package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TrustEdge is a directed trust relation from Truster to Trustee. Used to
// simulate not-yet-established trust when querying the pathfinder.
type TrustEdge struct {
	Truster common.Address
	Trustee common.Address
}

// PathRequest describes one pathfinder query.
type PathRequest struct {
	From               common.Address
	To                 common.Address
	TargetFlow         *big.Int
	ToTokens           []common.Address
	ExcludedFromTokens []common.Address
	UseWrappedBalances bool
	SimulatedTrusts    []TrustEdge
}

// PathResult is the pathfinder's answer: the maximum feasible flow and the
// edge set realizing it. Both are untrusted until validated by the encoder.
type PathResult struct {
	MaxFlow   *big.Int
	Transfers []TransferStep
}
