// Package calls builds contract-ready calldata for the hub and its token
// wrappers. Arguments are assumed validated by the planner; the builders
// only encode.
package calls

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/skundu42/sdk-v2/types"
)

// mustType is a helper function to create an abi.Type from a string
func mustType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(fmt.Sprintf("invalid type: %s: %v", t, err))
	}
	return typ
}

func selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

var (
	typeAddress = mustType("address", nil)
	typeUint256 = mustType("uint256", nil)
	typeUint96  = mustType("uint96", nil)
	typeUint8   = mustType("uint8", nil)
	typeBool    = mustType("bool", nil)
	typeBytes   = mustType("bytes", nil)

	typeAddressArray = mustType("address[]", nil)

	typeFlowEdgeArray = mustType("tuple[]", []abi.ArgumentMarshaling{
		{Name: "streamSinkId", Type: "uint16"},
		{Name: "amount", Type: "uint192"},
	})
	typeStreamArray = mustType("tuple[]", []abi.ArgumentMarshaling{
		{Name: "sourceCoordinate", Type: "uint16"},
		{Name: "flowEdgeIds", Type: "uint16[]"},
		{Name: "data", Type: "bytes"},
	})
)

var (
	unwrapArgs        = abi.Arguments{{Type: typeUint256}}
	wrapArgs          = abi.Arguments{{Type: typeAddress}, {Type: typeUint256}, {Type: typeUint8}}
	approveArgs       = abi.Arguments{{Type: typeAddress}, {Type: typeBool}}
	trustArgs         = abi.Arguments{{Type: typeAddress}, {Type: typeUint96}}
	transferArgs      = abi.Arguments{{Type: typeAddress}, {Type: typeAddress}, {Type: typeUint256}, {Type: typeUint256}, {Type: typeBytes}}
	operateMatrixArgs = abi.Arguments{{Type: typeAddressArray}, {Type: typeFlowEdgeArray}, {Type: typeStreamArray}, {Type: typeBytes}}

	unwrapSelector        = selector("unwrap(uint256)")
	wrapSelector          = selector("wrap(address,uint256,uint8)")
	approveSelector       = selector("setApprovalForAll(address,bool)")
	trustSelector         = selector("trust(address,uint96)")
	transferSelector      = selector("safeTransferFrom(address,address,uint256,uint256,bytes)")
	operateMatrixSelector = selector("operateFlowMatrix(address[],(uint16,uint192)[],(uint16,uint16[],bytes)[],bytes)")
)

// abiFlowEdge mirrors the hub's FlowEdge struct for tuple packing.
type abiFlowEdge struct {
	StreamSinkId uint16
	Amount       *big.Int
}

// abiStream mirrors the hub's Stream struct for tuple packing.
type abiStream struct {
	SourceCoordinate uint16
	FlowEdgeIds      []uint16
	Data             []byte
}

// Builder produces contract-ready calls against a fixed hub deployment.
type Builder struct {
	hub common.Address
}

// NewBuilder creates a call builder bound to the given hub address.
func NewBuilder(hub common.Address) *Builder {
	return &Builder{hub: hub}
}

// Hub returns the settlement contract address the builder targets.
func (b *Builder) Hub() common.Address { return b.hub }

func encode(sel []byte, args abi.Arguments, values ...interface{}) ([]byte, error) {
	packed, err := args.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack arguments: %w", err)
	}
	return append(append([]byte{}, sel...), packed...), nil
}

// Unwrap converts amount units of a wrapped token back to the native form.
// The call targets the wrapper contract itself.
func (b *Builder) Unwrap(wrapper common.Address, amount *big.Int) (types.PlannedTransaction, error) {
	data, err := encode(unwrapSelector, unwrapArgs, amount)
	if err != nil {
		return types.PlannedTransaction{}, err
	}
	return types.PlannedTransaction{To: wrapper, Data: data, Value: new(big.Int)}, nil
}

// Wrap converts amount units of the avatar's native token into the wrapper
// variant identified by kind.
func (b *Builder) Wrap(avatar common.Address, amount *big.Int, kind types.TokenKind) (types.PlannedTransaction, error) {
	var wrapType uint8
	switch kind {
	case types.KindWrappedDemurraged:
		wrapType = 0
	case types.KindWrappedInflationary:
		wrapType = 1
	default:
		return types.PlannedTransaction{}, fmt.Errorf("cannot wrap into token kind %s", kind)
	}
	data, err := encode(wrapSelector, wrapArgs, avatar, amount, wrapType)
	if err != nil {
		return types.PlannedTransaction{}, err
	}
	return types.PlannedTransaction{To: b.hub, Data: data, Value: new(big.Int)}, nil
}

// ApproveOperator grants the settlement contract operator rights over the
// caller's hub balances.
func (b *Builder) ApproveOperator(operator common.Address) (types.PlannedTransaction, error) {
	data, err := encode(approveSelector, approveArgs, operator, true)
	if err != nil {
		return types.PlannedTransaction{}, err
	}
	return types.PlannedTransaction{To: b.hub, Data: data, Value: new(big.Int)}, nil
}

// Trust establishes (or, with expiry 0, revokes) a trust edge towards
// trustee.
func (b *Builder) Trust(trustee common.Address, expiry *big.Int) (types.PlannedTransaction, error) {
	data, err := encode(trustSelector, trustArgs, trustee, expiry)
	if err != nil {
		return types.PlannedTransaction{}, err
	}
	return types.PlannedTransaction{To: b.hub, Data: data, Value: new(big.Int)}, nil
}

// Transfer moves amount units of avatar's token from from to to via the
// hub's ERC1155 transfer. The token id is the avatar address itself.
func (b *Builder) Transfer(from, to, avatar common.Address, amount *big.Int) (types.PlannedTransaction, error) {
	id := new(big.Int).SetBytes(avatar.Bytes())
	data, err := encode(transferSelector, transferArgs, from, to, id, amount, []byte{})
	if err != nil {
		return types.PlannedTransaction{}, err
	}
	return types.PlannedTransaction{To: b.hub, Data: data, Value: new(big.Int)}, nil
}

// OperateFlowMatrix encodes the settlement call executing the whole flow
// atomically.
func (b *Builder) OperateFlowMatrix(m *types.FlowMatrix) (types.PlannedTransaction, error) {
	edges := make([]abiFlowEdge, len(m.FlowEdges))
	for i, e := range m.FlowEdges {
		edges[i] = abiFlowEdge{StreamSinkId: e.StreamSinkID, Amount: e.Amount}
	}
	streams := make([]abiStream, len(m.Streams))
	for i, s := range m.Streams {
		data := s.Data
		if data == nil {
			data = []byte{}
		}
		streams[i] = abiStream{SourceCoordinate: s.SourceCoordinate, FlowEdgeIds: s.FlowEdgeIDs, Data: data}
	}

	data, err := encode(operateMatrixSelector, operateMatrixArgs, m.FlowVertices, edges, streams, m.PackedCoordinates)
	if err != nil {
		return types.PlannedTransaction{}, err
	}
	return types.PlannedTransaction{To: b.hub, Data: data, Value: new(big.Int)}, nil
}
