package flow

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"

	"github.com/skundu42/sdk-v2/types"
)

// packCoordinates serializes the (tokenOwner, from, to) vertex indices of
// every step, in step order, as big-endian uint16 triples concatenated into
// one byte string. The width matches the settlement contract's coordinate
// field; indexVertices has already rejected vertex sets that would not fit.
func packCoordinates(steps []types.TransferStep, lookup map[common.Address]uint16) []byte {
	packed := make([]byte, 0, len(steps)*6)
	var buf [2]byte
	for _, s := range steps {
		for _, idx := range [3]uint16{lookup[s.TokenOwner], lookup[s.From], lookup[s.To]} {
			binary.BigEndian.PutUint16(buf[:], idx)
			packed = append(packed, buf[0], buf[1])
		}
	}
	return packed
}
