package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/skundu42/sdk-v2/internal/utils"
)

// Stable machine-readable error codes. Callers switch on these (or use the
// errors.As helpers below); the message text is for humans only.
const (
	CodeNoPathFound                 = "NO_PATH_FOUND"
	CodeInsufficientFlow            = "INSUFFICIENT_FLOW"
	CodeNoTerminalEdges             = "NO_TERMINAL_EDGES"
	CodeBalanceMismatch             = "BALANCE_MISMATCH"
	CodeTooManyVertices             = "TOO_MANY_VERTICES"
	CodeTooManyEdges                = "TOO_MANY_EDGES"
	CodeWrappedTokensRequired       = "WRAPPED_TOKENS_REQUIRED"
	CodeReplenishInsufficientTokens = "REPLENISH_INSUFFICIENT_TOKENS"
	CodeReplenishInsufficientFlow   = "REPLENISH_INSUFFICIENT_PATH_FLOW"
)

// NoPathError signals that the pathfinder returned no usable edges between
// the two parties.
type NoPathError struct {
	From      common.Address
	To        common.Address
	Requested *big.Int
}

func (e *NoPathError) Error() string {
	return fmt.Sprintf("no path found from %s to %s for %s (%s CRC)",
		e.From, e.To, e.Requested, utils.FormatAtto(e.Requested))
}

// Code returns the stable machine code for this error.
func (e *NoPathError) Code() string { return CodeNoPathFound }

// InsufficientFlowError signals that a path exists but its maximum flow is
// below the requested amount.
type InsufficientFlowError struct {
	From      common.Address
	To        common.Address
	Requested *big.Int
	MaxFlow   *big.Int
}

func (e *InsufficientFlowError) Error() string {
	return fmt.Sprintf("insufficient flow from %s to %s: requested %s (%s CRC), path carries %s (%s CRC)",
		e.From, e.To, e.Requested, utils.FormatAtto(e.Requested), e.MaxFlow, utils.FormatAtto(e.MaxFlow))
}

func (e *InsufficientFlowError) Code() string { return CodeInsufficientFlow }

// NoTerminalEdgesError signals that no edge of the candidate path delivers
// value to the receiver. This indicates a pathfinder bug or tampered input
// and is never corrected silently.
type NoTerminalEdgesError struct {
	Receiver common.Address
	Edges    int
}

func (e *NoTerminalEdgesError) Error() string {
	return fmt.Sprintf("no terminal edges: none of %d edges delivers to receiver %s", e.Edges, e.Receiver)
}

func (e *NoTerminalEdgesError) Code() string { return CodeNoTerminalEdges }

// BalanceMismatchError signals that the terminal edges of a path do not sum
// to the requested transfer value.
type BalanceMismatchError struct {
	Expected *big.Int
	Actual   *big.Int
}

func (e *BalanceMismatchError) Error() string {
	return fmt.Sprintf("terminal amount mismatch: expected %s (%s CRC), got %s (%s CRC)",
		e.Expected, utils.FormatAtto(e.Expected), e.Actual, utils.FormatAtto(e.Actual))
}

func (e *BalanceMismatchError) Code() string { return CodeBalanceMismatch }

// TooManyVerticesError signals that the vertex set does not fit the
// settlement contract's uint16 coordinate space.
type TooManyVerticesError struct {
	Vertices int
}

func (e *TooManyVerticesError) Error() string {
	return fmt.Sprintf("vertex count %d exceeds the settlement contract's uint16 index range", e.Vertices)
}

func (e *TooManyVerticesError) Code() string { return CodeTooManyVertices }

// TooManyEdgesError signals that the edge set does not fit the settlement
// contract's uint16 edge-id space.
type TooManyEdgesError struct {
	Edges int
}

func (e *TooManyEdgesError) Error() string {
	return fmt.Sprintf("edge count %d exceeds the settlement contract's uint16 id range", e.Edges)
}

func (e *TooManyEdgesError) Code() string { return CodeTooManyEdges }

// WrappedTokensRequiredError signals that the path consumes wrapped balances
// but the caller has not opted into using them.
type WrappedTokensRequiredError struct {
	Tokens []common.Address
}

func (e *WrappedTokensRequiredError) Error() string {
	return fmt.Sprintf("path consumes %d wrapped token(s) but wrapped balances were not enabled", len(e.Tokens))
}

func (e *WrappedTokensRequiredError) Code() string { return CodeWrappedTokensRequired }

// ReplenishInsufficientTokensError signals that the combined unwrapped,
// wrapped and network-reachable value cannot meet the replenish target.
type ReplenishInsufficientTokensError struct {
	Avatar    common.Address
	Target    *big.Int
	Available *big.Int
}

func (e *ReplenishInsufficientTokensError) Error() string {
	return fmt.Sprintf("cannot replenish %s token: target %s (%s CRC), only %s (%s CRC) reachable",
		e.Avatar, e.Target, utils.FormatAtto(e.Target), e.Available, utils.FormatAtto(e.Available))
}

func (e *ReplenishInsufficientTokensError) Code() string { return CodeReplenishInsufficientTokens }

// ReplenishInsufficientPathFlowError signals that the pathfinder found a
// route for the replenish deficit but it carries less flow than needed.
type ReplenishInsufficientPathFlowError struct {
	Avatar  common.Address
	Deficit *big.Int
	MaxFlow *big.Int
}

func (e *ReplenishInsufficientPathFlowError) Error() string {
	return fmt.Sprintf("replenish path for %s token carries %s (%s CRC), need %s (%s CRC)",
		e.Avatar, e.MaxFlow, utils.FormatAtto(e.MaxFlow), e.Deficit, utils.FormatAtto(e.Deficit))
}

func (e *ReplenishInsufficientPathFlowError) Code() string { return CodeReplenishInsufficientFlow }

// IsNoPath checks whether an error is a NoPathError and returns it.
func IsNoPath(err error) (*NoPathError, bool) {
	var e *NoPathError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsInsufficientFlow checks whether an error is an InsufficientFlowError and
// returns it.
func IsInsufficientFlow(err error) (*InsufficientFlowError, bool) {
	var e *InsufficientFlowError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsBalanceMismatch checks whether an error is a BalanceMismatchError and
// returns it.
func IsBalanceMismatch(err error) (*BalanceMismatchError, bool) {
	var e *BalanceMismatchError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsNoTerminalEdges checks whether an error is a NoTerminalEdgesError and
// returns it.
func IsNoTerminalEdges(err error) (*NoTerminalEdgesError, bool) {
	var e *NoTerminalEdgesError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
