// Package flow compiles a pathfinder edge set into the packed
// vertex/edge/stream structure the settlement contract executes atomically.
package flow

import (
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/skundu42/sdk-v2/types"
)

// CreateFlowMatrix encodes the given transfer steps into the wire structure
// the settlement contract consumes. The steps come from an untrusted
// pathfinder, so the encoder re-derives which edges deliver value to the
// receiver and verifies that they sum exactly to totalValue before anything
// is packed. Pure function of its inputs.
func CreateFlowMatrix(sender, receiver common.Address, totalValue *big.Int, steps []types.TransferStep) (*types.FlowMatrix, error) {
	// Stream edge ids are uint16; a larger edge set would wrap and alias
	// them.
	if len(steps) > math.MaxUint16+1 {
		return nil, &types.TooManyEdgesError{Edges: len(steps)}
	}

	vertices, lookup, err := indexVertices(steps)
	if err != nil {
		return nil, err
	}

	terminal, err := terminalEdges(steps, receiver)
	if err != nil {
		return nil, err
	}
	isTerminal := make(map[uint16]bool, len(terminal))
	for _, id := range terminal {
		isTerminal[id] = true
	}

	edges := make([]types.FlowEdge, len(steps))
	delivered := new(big.Int)
	for i, s := range steps {
		sink := types.StreamSinkIntermediate
		if isTerminal[uint16(i)] {
			sink = types.StreamSinkTerminal
			delivered.Add(delivered, s.Value)
		}
		edges[i] = types.FlowEdge{StreamSinkID: sink, Amount: new(big.Int).Set(s.Value)}
	}

	if delivered.Cmp(totalValue) != 0 {
		return nil, &types.BalanceMismatchError{
			Expected: new(big.Int).Set(totalValue),
			Actual:   delivered,
		}
	}

	srcCoord := lookup[sender]
	return &types.FlowMatrix{
		FlowVertices: vertices,
		FlowEdges:    edges,
		Streams: []types.Stream{{
			SourceCoordinate: srcCoord,
			FlowEdgeIDs:      terminal,
			Data:             []byte{},
		}},
		PackedCoordinates: packCoordinates(steps, lookup),
		SourceCoordinate:  srcCoord,
	}, nil
}
