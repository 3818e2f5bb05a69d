package clients

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/skundu42/sdk-v2/types"
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("invalid type: %s: %v", t, err))
	}
	return typ
}

var (
	argAddress        = abi.Arguments{{Type: mustType("address")}}
	argAddressPair    = abi.Arguments{{Type: mustType("address")}, {Type: mustType("address")}}
	argAddressUint256 = abi.Arguments{{Type: mustType("address")}, {Type: mustType("uint256")}}
	argUint8Address   = abi.Arguments{{Type: mustType("uint8")}, {Type: mustType("address")}}
	argUint256        = abi.Arguments{{Type: mustType("uint256")}}
	argUint256Uint64  = abi.Arguments{{Type: mustType("uint256")}, {Type: mustType("uint64")}}
	retAddress        = abi.Arguments{{Type: mustType("address")}}
	retBool           = abi.Arguments{{Type: mustType("bool")}}
	retUint256        = abi.Arguments{{Type: mustType("uint256")}}
	retUint64         = abi.Arguments{{Type: mustType("uint64")}}
)

func methodID(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

var (
	selAvatars          = methodID("avatars(address)")
	selIsGroup          = methodID("isGroup(address)")
	selIsTrusted        = methodID("isTrusted(address,address)")
	selIsApprovedForAll = methodID("isApprovedForAll(address,address)")
	selBalanceOfID      = methodID("balanceOf(address,uint256)")
	selBalanceOf        = methodID("balanceOf(address)")
	selAvatar           = methodID("avatar()")
	selErc20Circles     = methodID("erc20Circles(uint8,address)")
	selDay              = methodID("day(uint256)")
	selInflToDemurrage  = methodID("convertInflationaryToDemurrageValue(uint256,uint64)")
	selDemurrageToInfl  = methodID("convertDemurrageToInflationaryValue(uint256,uint64)")
)

// ChainClient answers the planner's read-only queries (token metadata,
// balances, trust rows, operator approval) and performs the on-chain
// demurrage conversions. All lookups go through eth_call against the latest
// state; planned transactions may still revert if state moves afterwards.
type ChainClient struct {
	eth  *ethclient.Client
	hub  common.Address
	lift common.Address
	log  *logrus.Entry
}

// NewChainClient creates a chain client for the given hub and wrapper
// registry deployment.
func NewChainClient(rpcEndpoint string, hub, lift common.Address) (*ChainClient, error) {
	eth, err := ethclient.Dial(rpcEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}
	return &ChainClient{
		eth:  eth,
		hub:  hub,
		lift: lift,
		log:  logrus.WithField("component", "chain"),
	}, nil
}

func (c *ChainClient) call(ctx context.Context, to common.Address, sel []byte, args abi.Arguments, values ...interface{}) ([]byte, error) {
	packed, err := args.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack arguments: %w", err)
	}
	data := append(append([]byte{}, sel...), packed...)
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_call to %s failed: %w", to, err)
	}
	return out, nil
}

func (c *ChainClient) callAddress(ctx context.Context, to common.Address, sel []byte, args abi.Arguments, values ...interface{}) (common.Address, error) {
	out, err := c.call(ctx, to, sel, args, values...)
	if err != nil {
		return common.Address{}, err
	}
	vals, err := retAddress.Unpack(out)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode address result: %w", err)
	}
	return vals[0].(common.Address), nil
}

func (c *ChainClient) callBool(ctx context.Context, to common.Address, sel []byte, args abi.Arguments, values ...interface{}) (bool, error) {
	out, err := c.call(ctx, to, sel, args, values...)
	if err != nil {
		return false, err
	}
	vals, err := retBool.Unpack(out)
	if err != nil {
		return false, fmt.Errorf("failed to decode bool result: %w", err)
	}
	return vals[0].(bool), nil
}

func (c *ChainClient) callUint256(ctx context.Context, to common.Address, sel []byte, args abi.Arguments, values ...interface{}) (*big.Int, error) {
	out, err := c.call(ctx, to, sel, args, values...)
	if err != nil {
		return nil, err
	}
	vals, err := retUint256.Unpack(out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode uint256 result: %w", err)
	}
	return vals[0].(*big.Int), nil
}

// TokenInfo resolves metadata for every token address referenced by a path:
// registered avatars map to their own native token, anything else must be a
// deployed wrapper whose issuing avatar and decay variant are read from the
// wrapper registry.
func (c *ChainClient) TokenInfo(ctx context.Context, tokens []common.Address) (map[common.Address]types.TokenInfo, error) {
	infos := make(map[common.Address]types.TokenInfo, len(tokens))
	for _, token := range tokens {
		if _, done := infos[token]; done {
			continue
		}

		next, err := c.callAddress(ctx, c.hub, selAvatars, argAddress, token)
		if err != nil {
			return nil, err
		}
		if next != (common.Address{}) {
			infos[token] = types.TokenInfo{Token: token, Avatar: token, Kind: types.KindAvatar}
			continue
		}

		avatar, err := c.callAddress(ctx, token, selAvatar, abi.Arguments{})
		if err != nil {
			return nil, fmt.Errorf("token %s is neither an avatar nor a wrapper: %w", token, err)
		}

		kind, err := c.wrapperKind(ctx, token, avatar)
		if err != nil {
			return nil, err
		}
		infos[token] = types.TokenInfo{Token: token, Avatar: avatar, Kind: kind}
	}
	return infos, nil
}

func (c *ChainClient) wrapperKind(ctx context.Context, token, avatar common.Address) (types.TokenKind, error) {
	demurraged, err := c.callAddress(ctx, c.lift, selErc20Circles, argUint8Address, uint8(0), avatar)
	if err != nil {
		return 0, err
	}
	if demurraged == token {
		return types.KindWrappedDemurraged, nil
	}
	inflationary, err := c.callAddress(ctx, c.lift, selErc20Circles, argUint8Address, uint8(1), avatar)
	if err != nil {
		return 0, err
	}
	if inflationary == token {
		return types.KindWrappedInflationary, nil
	}
	return 0, fmt.Errorf("token %s claims avatar %s but is not a registered wrapper", token, avatar)
}

// WrapperFor returns the deployed wrapper of the given kind for an avatar's
// token, if one exists.
func (c *ChainClient) WrapperFor(ctx context.Context, avatar common.Address, kind types.TokenKind) (common.Address, bool, error) {
	var variant uint8
	switch kind {
	case types.KindWrappedDemurraged:
		variant = 0
	case types.KindWrappedInflationary:
		variant = 1
	default:
		return common.Address{}, false, fmt.Errorf("kind %s has no wrapper deployment", kind)
	}
	wrapper, err := c.callAddress(ctx, c.lift, selErc20Circles, argUint8Address, variant, avatar)
	if err != nil {
		return common.Address{}, false, err
	}
	return wrapper, wrapper != (common.Address{}), nil
}

// TokenBalance returns owner's unwrapped hub balance of avatar's token.
func (c *ChainClient) TokenBalance(ctx context.Context, owner, avatar common.Address) (*big.Int, error) {
	id := new(big.Int).SetBytes(avatar.Bytes())
	return c.callUint256(ctx, c.hub, selBalanceOfID, argAddressUint256, owner, id)
}

// Erc20Balance returns owner's balance on a wrapper contract, in the
// wrapper's own unit (demurraged for demurrage wrappers, static for
// inflationary ones).
func (c *ChainClient) Erc20Balance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return c.callUint256(ctx, token, selBalanceOf, argAddress, owner)
}

// IsApprovedOperator reports whether owner has approved operator on the hub.
func (c *ChainClient) IsApprovedOperator(ctx context.Context, owner, operator common.Address) (bool, error) {
	return c.callBool(ctx, c.hub, selIsApprovedForAll, argAddressPair, owner, operator)
}

// IsTrusted reports whether truster currently trusts trustee.
func (c *ChainClient) IsTrusted(ctx context.Context, truster, trustee common.Address) (bool, error) {
	return c.callBool(ctx, c.hub, selIsTrusted, argAddressPair, truster, trustee)
}

// IsGroup reports whether the address is a registered group avatar.
func (c *ChainClient) IsGroup(ctx context.Context, addr common.Address) (bool, error) {
	return c.callBool(ctx, c.hub, selIsGroup, argAddress, addr)
}

// currentDay resolves the wrapper's demurrage day for the latest block.
func (c *ChainClient) currentDay(ctx context.Context, wrapper common.Address) (uint64, error) {
	header, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch latest header: %w", err)
	}
	out, err := c.call(ctx, wrapper, selDay, argUint256, new(big.Int).SetUint64(header.Time))
	if err != nil {
		return 0, err
	}
	vals, err := retUint64.Unpack(out)
	if err != nil {
		return 0, fmt.Errorf("failed to decode day result: %w", err)
	}
	return vals[0].(uint64), nil
}

// ConvertStaticToDemurrage converts an inflationary (static) amount into
// today's demurraged units using the wrapper's on-chain conversion.
func (c *ChainClient) ConvertStaticToDemurrage(ctx context.Context, wrapper common.Address, amount *big.Int) (*big.Int, error) {
	day, err := c.currentDay(ctx, wrapper)
	if err != nil {
		return nil, err
	}
	return c.callUint256(ctx, wrapper, selInflToDemurrage, argUint256Uint64, amount, day)
}

// ConvertDemurrageToStatic converts today's demurraged units into the
// inflationary (static) representation.
func (c *ChainClient) ConvertDemurrageToStatic(ctx context.Context, wrapper common.Address, amount *big.Int) (*big.Int, error) {
	day, err := c.currentDay(ctx, wrapper)
	if err != nil {
		return nil, err
	}
	return c.callUint256(ctx, wrapper, selDemurrageToInfl, argUint256Uint64, amount, day)
}
