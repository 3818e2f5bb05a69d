package flow

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/skundu42/sdk-v2/types"
)

// terminalEdges classifies each step relative to the receiver and returns
// the indices of the edges that deliver value to it.
//
// A self-loop at the receiver (from == to == receiver) is an aggregation
// edge: the receiver first collects incoming value and then self-transfers
// to consolidate it into one token, so the self-loop amount is authoritative
// and it becomes the only terminal edge. Without a self-loop, every edge
// whose destination is the receiver is terminal.
//
// If neither rule selects an edge the path cannot deliver anything and the
// classification fails; an edge is never repurposed as terminal to paper
// over a malformed path.
func terminalEdges(steps []types.TransferStep, receiver common.Address) ([]uint16, error) {
	var selfLoops, direct []uint16
	for i, s := range steps {
		switch {
		case s.From == receiver && s.To == receiver:
			selfLoops = append(selfLoops, uint16(i))
		case s.To == receiver:
			direct = append(direct, uint16(i))
		}
	}

	if len(selfLoops) > 0 {
		return selfLoops, nil
	}
	if len(direct) > 0 {
		return direct, nil
	}
	return nil, &types.NoTerminalEdgesError{Receiver: receiver, Edges: len(steps)}
}
