package flow

import (
	"bytes"
	"math"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/skundu42/sdk-v2/types"
)

// indexVertices collects every address referenced by the steps (from, to and
// tokenOwner of each edge), deduplicates them and assigns dense zero-based
// indices in ascending numeric address order. The settlement contract
// validates vertex-array sortedness, so the ordering here is part of the
// wire format, not a convenience.
func indexVertices(steps []types.TransferStep) ([]common.Address, map[common.Address]uint16, error) {
	seen := make(map[common.Address]struct{}, len(steps)*3)
	for _, s := range steps {
		seen[s.From] = struct{}{}
		seen[s.To] = struct{}{}
		seen[s.TokenOwner] = struct{}{}
	}

	vertices := make([]common.Address, 0, len(seen))
	for a := range seen {
		vertices = append(vertices, a)
	}
	sort.Slice(vertices, func(i, j int) bool {
		return bytes.Compare(vertices[i][:], vertices[j][:]) < 0
	})

	if len(vertices) > math.MaxUint16+1 {
		return nil, nil, &types.TooManyVerticesError{Vertices: len(vertices)}
	}

	lookup := make(map[common.Address]uint16, len(vertices))
	for i, a := range vertices {
		lookup[a] = uint16(i)
	}
	return vertices, lookup, nil
}
