package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TransferStep is a single directed edge of a transfer path: Value
// atto-circles of TokenOwner's token moving from From to To. Steps are
// produced by the pathfinder service and treated as untrusted input until
// the encoder has validated them.
type TransferStep struct {
	From       common.Address
	To         common.Address
	TokenOwner common.Address
	Value      *big.Int
}

// StreamSinkIntermediate and StreamSinkTerminal are the only stream sink
// ids used in the single-receiver design: 0 marks an intermediate hop,
// 1 marks an edge that delivers value to the receiver.
const (
	StreamSinkIntermediate uint16 = 0
	StreamSinkTerminal     uint16 = 1
)

// FlowEdge mirrors one TransferStep in the wire encoding. StreamSinkID
// tags which delivery stream (if any) consumes the edge.
type FlowEdge struct {
	StreamSinkID uint16
	Amount       *big.Int
}

// Stream groups the terminal edges of one logical sender. Data is an
// arbitrary payload forwarded to the receiver by the settlement contract,
// attached to the first stream only.
type Stream struct {
	SourceCoordinate uint16
	FlowEdgeIDs      []uint16
	Data             []byte
}

// FlowMatrix is the complete wire object submitted to the settlement
// contract. FlowVertices is strictly ascending with no duplicates;
// PackedCoordinates holds one (tokenOwner, from, to) index triple per edge,
// each index a big-endian uint16, in FlowEdges order.
type FlowMatrix struct {
	FlowVertices      []common.Address
	FlowEdges         []FlowEdge
	Streams           []Stream
	PackedCoordinates []byte
	SourceCoordinate  uint16
}

// TerminalAmount sums the amounts of all terminal edges.
func (m *FlowMatrix) TerminalAmount() *big.Int {
	total := new(big.Int)
	for _, e := range m.FlowEdges {
		if e.StreamSinkID == StreamSinkTerminal {
			total.Add(total, e.Amount)
		}
	}
	return total
}

// PlannedTransaction is one contract-ready call. The planner's output is an
// ordered sequence of these; the ordering is part of the contract with the
// caller and must be preserved at submission time.
type PlannedTransaction struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}
