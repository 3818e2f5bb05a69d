package calls

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skundu42/sdk-v2/types"
)

var (
	hub     = common.HexToAddress("0xc12C1E50ABB450d6205Ea2C3Fa861b3B834d13e8")
	wrapper = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	avatar  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
)

func TestApproveOperatorCall(t *testing.T) {
	b := NewBuilder(hub)
	tx, err := b.ApproveOperator(hub)
	require.NoError(t, err)

	assert.Equal(t, hub, tx.To)
	// ERC1155 setApprovalForAll(address,bool)
	assert.Equal(t, []byte{0xa2, 0x2c, 0xb4, 0x65}, tx.Data[:4])
	assert.Len(t, tx.Data, 4+2*32)

	vals, err := approveArgs.Unpack(tx.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, hub, vals[0])
	assert.Equal(t, true, vals[1])
}

func TestTransferCall(t *testing.T) {
	b := NewBuilder(hub)
	from := common.HexToAddress("0x0000000000000000000000000000000000000011")
	to := common.HexToAddress("0x0000000000000000000000000000000000000022")
	tx, err := b.Transfer(from, to, avatar, big.NewInt(42))
	require.NoError(t, err)

	assert.Equal(t, hub, tx.To)
	// ERC1155 safeTransferFrom(address,address,uint256,uint256,bytes)
	assert.Equal(t, []byte{0xf2, 0x42, 0x43, 0x2a}, tx.Data[:4])

	vals, err := transferArgs.Unpack(tx.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, from, vals[0])
	assert.Equal(t, to, vals[1])
	// token id is the issuing avatar's address value
	assert.Zero(t, vals[2].(*big.Int).Cmp(new(big.Int).SetBytes(avatar.Bytes())))
	assert.Zero(t, vals[3].(*big.Int).Cmp(big.NewInt(42)))
}

func TestUnwrapTargetsWrapperContract(t *testing.T) {
	b := NewBuilder(hub)
	tx, err := b.Unwrap(wrapper, big.NewInt(1000))
	require.NoError(t, err)

	assert.Equal(t, wrapper, tx.To)
	assert.Equal(t, unwrapSelector, tx.Data[:4])
	assert.Len(t, tx.Data, 4+32)
}

func TestWrapRejectsUnwrappableKind(t *testing.T) {
	b := NewBuilder(hub)
	_, err := b.Wrap(avatar, big.NewInt(1), types.KindAvatar)
	assert.Error(t, err)
}

func TestTrustExpiryZeroEncodes(t *testing.T) {
	b := NewBuilder(hub)
	tx, err := b.Trust(avatar, new(big.Int))
	require.NoError(t, err)

	vals, err := trustArgs.Unpack(tx.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, avatar, vals[0])
	assert.Zero(t, vals[1].(*big.Int).Sign())
}

func TestOperateFlowMatrixCall(t *testing.T) {
	b := NewBuilder(hub)
	m := &types.FlowMatrix{
		FlowVertices: []common.Address{avatar, hub},
		FlowEdges: []types.FlowEdge{
			{StreamSinkID: types.StreamSinkTerminal, Amount: big.NewInt(100)},
		},
		Streams: []types.Stream{
			{SourceCoordinate: 0, FlowEdgeIDs: []uint16{0}, Data: []byte{}},
		},
		PackedCoordinates: []byte{0, 0, 0, 0, 0, 1},
		SourceCoordinate:  0,
	}

	tx, err := b.OperateFlowMatrix(m)
	require.NoError(t, err)
	assert.Equal(t, hub, tx.To)
	assert.Equal(t, operateMatrixSelector, tx.Data[:4])

	// encoding must be addressable by the hub's decoder
	vals, err := operateMatrixArgs.Unpack(tx.Data[4:])
	require.NoError(t, err)
	require.Len(t, vals, 4)
	assert.Equal(t, []common.Address{avatar, hub}, vals[0])
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 1}, vals[3])
}
