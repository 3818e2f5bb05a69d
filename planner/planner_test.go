package planner

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skundu42/sdk-v2/calls"
	"github.com/skundu42/sdk-v2/config"
	"github.com/skundu42/sdk-v2/types"
)

var (
	sender   = common.HexToAddress("0x0000000000000000000000000000000000000011")
	receiver = common.HexToAddress("0x0000000000000000000000000000000000000022")
	hop      = common.HexToAddress("0x0000000000000000000000000000000000000033")
	avatarD  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	avatarI  = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	wrapDem  = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	wrapInfl = common.HexToAddress("0x00000000000000000000000000000000000000e1")
)

// oneUnit is the pathfinder's precision boundary under the default config.
var oneUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil)

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), oneUnit)
}

type fakePathfinder struct {
	result *types.PathResult
	err    error
	calls  int
	last   types.PathRequest
}

func (f *fakePathfinder) FindPath(ctx context.Context, req types.PathRequest) (*types.PathResult, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type balanceKey struct {
	owner common.Address
	token common.Address
}

type fakeChain struct {
	infos       map[common.Address]types.TokenInfo
	wrappers    map[types.TokenKind]map[common.Address]common.Address
	hubBalances map[balanceKey]*big.Int
	erc20       map[balanceKey]*big.Int
	// static -> demurraged conversion as a rational factor
	convNum, convDen int64

	approved    bool
	approvedErr error
	trusted     map[balanceKey]bool
	groups      map[common.Address]bool
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		infos:       map[common.Address]types.TokenInfo{},
		wrappers:    map[types.TokenKind]map[common.Address]common.Address{},
		hubBalances: map[balanceKey]*big.Int{},
		erc20:       map[balanceKey]*big.Int{},
		convNum:     1,
		convDen:     1,
		trusted:     map[balanceKey]bool{},
		groups:      map[common.Address]bool{},
	}
}

func (f *fakeChain) addAvatar(a common.Address) {
	f.infos[a] = types.TokenInfo{Token: a, Avatar: a, Kind: types.KindAvatar}
}

func (f *fakeChain) addWrapper(token, avatar common.Address, kind types.TokenKind) {
	f.infos[token] = types.TokenInfo{Token: token, Avatar: avatar, Kind: kind}
	if f.wrappers[kind] == nil {
		f.wrappers[kind] = map[common.Address]common.Address{}
	}
	f.wrappers[kind][avatar] = token
}

func (f *fakeChain) TokenInfo(ctx context.Context, tokens []common.Address) (map[common.Address]types.TokenInfo, error) {
	out := map[common.Address]types.TokenInfo{}
	for _, t := range tokens {
		info, ok := f.infos[t]
		if !ok {
			return nil, errors.New("unknown token " + t.Hex())
		}
		out[t] = info
	}
	return out, nil
}

func (f *fakeChain) WrapperFor(ctx context.Context, avatar common.Address, kind types.TokenKind) (common.Address, bool, error) {
	w, ok := f.wrappers[kind][avatar]
	return w, ok, nil
}

func (f *fakeChain) TokenBalance(ctx context.Context, owner, avatar common.Address) (*big.Int, error) {
	if b, ok := f.hubBalances[balanceKey{owner, avatar}]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (f *fakeChain) Erc20Balance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	if b, ok := f.erc20[balanceKey{owner, token}]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (f *fakeChain) ConvertStaticToDemurrage(ctx context.Context, wrapper common.Address, amount *big.Int) (*big.Int, error) {
	out := new(big.Int).Mul(amount, big.NewInt(f.convNum))
	return out.Div(out, big.NewInt(f.convDen)), nil
}

func (f *fakeChain) ConvertDemurrageToStatic(ctx context.Context, wrapper common.Address, amount *big.Int) (*big.Int, error) {
	out := new(big.Int).Mul(amount, big.NewInt(f.convDen))
	return out.Div(out, big.NewInt(f.convNum)), nil
}

func (f *fakeChain) IsApprovedOperator(ctx context.Context, owner, operator common.Address) (bool, error) {
	if f.approvedErr != nil {
		return false, f.approvedErr
	}
	return f.approved, nil
}

func (f *fakeChain) IsTrusted(ctx context.Context, truster, trustee common.Address) (bool, error) {
	return f.trusted[balanceKey{truster, trustee}], nil
}

func (f *fakeChain) IsGroup(ctx context.Context, addr common.Address) (bool, error) {
	return f.groups[addr], nil
}

func newTestPlanner(path *fakePathfinder, chain *fakeChain) *Planner {
	return NewPlanner(config.DefaultConfig(), path, chain)
}

// expected call prefixes, derived from the same builder the planner uses
func callKind(t *testing.T, tx types.PlannedTransaction) string {
	t.Helper()
	b := calls.NewBuilder(config.DefaultConfig().Contracts.HubAddress())
	ref := map[string]types.PlannedTransaction{}
	var err error
	ref["approve"], err = b.ApproveOperator(b.Hub())
	require.NoError(t, err)
	ref["unwrap"], err = b.Unwrap(tx.To, big.NewInt(1))
	require.NoError(t, err)
	ref["wrap"], err = b.Wrap(avatarI, big.NewInt(1), types.KindWrappedInflationary)
	require.NoError(t, err)
	ref["trust"], err = b.Trust(avatarI, big.NewInt(1))
	require.NoError(t, err)
	ref["transfer"], err = b.Transfer(sender, receiver, avatarI, big.NewInt(1))
	require.NoError(t, err)

	for kind, r := range ref {
		if len(tx.Data) >= 4 && string(tx.Data[:4]) == string(r.Data[:4]) {
			return kind
		}
	}
	return "settle"
}

func planKinds(t *testing.T, txs []types.PlannedTransaction) []string {
	t.Helper()
	kinds := make([]string, len(txs))
	for i, tx := range txs {
		kinds[i] = callKind(t, tx)
	}
	return kinds
}

func TestPlanTransferSimplePath(t *testing.T) {
	chain := newFakeChain()
	chain.addAvatar(sender)
	chain.approved = true

	path := &fakePathfinder{result: &types.PathResult{
		MaxFlow: units(5),
		Transfers: []types.TransferStep{
			{From: sender, To: receiver, TokenOwner: sender, Value: units(5)},
		},
	}}

	p := newTestPlanner(path, chain)
	txs, err := p.PlanTransfer(context.Background(), sender, receiver, units(5), TransferOptions{})
	require.NoError(t, err)

	require.Len(t, txs, 1)
	assert.Equal(t, []string{"settle"}, planKinds(t, txs))
	assert.Equal(t, config.DefaultConfig().Contracts.HubAddress(), txs[0].To)
}

func TestPlanTransferTruncatesRequestedAmount(t *testing.T) {
	chain := newFakeChain()
	chain.addAvatar(sender)
	chain.approved = true

	path := &fakePathfinder{result: &types.PathResult{
		MaxFlow: units(5),
		Transfers: []types.TransferStep{
			{From: sender, To: receiver, TokenOwner: sender, Value: units(5)},
		},
	}}

	p := newTestPlanner(path, chain)
	ragged := new(big.Int).Add(units(5), big.NewInt(999_999_999_999))
	_, err := p.PlanTransfer(context.Background(), sender, receiver, ragged, TransferOptions{})
	require.NoError(t, err)

	assert.Zero(t, path.last.TargetFlow.Cmp(units(5)), "sub-precision digits must be truncated before pathfinding")
}

func TestPlanTransferRejectsAmountBeyondFlowCapacity(t *testing.T) {
	chain := newFakeChain()
	path := &fakePathfinder{result: &types.PathResult{MaxFlow: new(big.Int)}}

	p := newTestPlanner(path, chain)
	huge := new(big.Int).Lsh(big.NewInt(1), 200)
	_, err := p.PlanTransfer(context.Background(), sender, receiver, huge, TransferOptions{})
	require.Error(t, err)
	assert.Zero(t, path.calls, "unsettleable amounts must fail before pathfinding")
}

func TestPlanTransferNoPath(t *testing.T) {
	chain := newFakeChain()
	path := &fakePathfinder{result: &types.PathResult{MaxFlow: new(big.Int)}}

	p := newTestPlanner(path, chain)
	_, err := p.PlanTransfer(context.Background(), sender, receiver, units(5), TransferOptions{})
	_, ok := types.IsNoPath(err)
	assert.True(t, ok)
}

func TestPlanTransferInsufficientFlow(t *testing.T) {
	chain := newFakeChain()
	path := &fakePathfinder{result: &types.PathResult{
		MaxFlow: units(3),
		Transfers: []types.TransferStep{
			{From: sender, To: receiver, TokenOwner: sender, Value: units(3)},
		},
	}}

	p := newTestPlanner(path, chain)
	_, err := p.PlanTransfer(context.Background(), sender, receiver, units(5), TransferOptions{})
	e, ok := types.IsInsufficientFlow(err)
	require.True(t, ok)
	assert.Zero(t, e.MaxFlow.Cmp(units(3)))
	assert.Zero(t, e.Requested.Cmp(units(5)))
}

func TestPlanTransferDirectUnwrapFastPath(t *testing.T) {
	chain := newFakeChain()
	chain.addAvatar(avatarD)
	chain.addWrapper(wrapDem, avatarD, types.KindWrappedDemurraged)

	path := &fakePathfinder{}
	p := newTestPlanner(path, chain)

	txs, err := p.PlanTransfer(context.Background(), sender, sender, units(2), TransferOptions{
		FromTokens: []common.Address{wrapDem},
		ToTokens:   []common.Address{avatarD},
	})
	require.NoError(t, err)

	require.Len(t, txs, 1)
	assert.Equal(t, wrapDem, txs[0].To)
	assert.Equal(t, "unwrap", callKind(t, txs[0]))
	assert.Zero(t, path.calls, "fast path must skip pathfinding")
}

func TestPlanTransferWrappedRequiresOptIn(t *testing.T) {
	chain := newFakeChain()
	chain.addWrapper(wrapDem, avatarD, types.KindWrappedDemurraged)
	chain.approved = true

	path := &fakePathfinder{result: &types.PathResult{
		MaxFlow: units(5),
		Transfers: []types.TransferStep{
			{From: sender, To: receiver, TokenOwner: wrapDem, Value: units(5)},
		},
	}}

	p := newTestPlanner(path, chain)
	_, err := p.PlanTransfer(context.Background(), sender, receiver, units(5), TransferOptions{})
	var e *types.WrappedTokensRequiredError
	require.ErrorAs(t, err, &e)
	assert.Equal(t, []common.Address{wrapDem}, e.Tokens)
}

func TestPlanTransferOrdering(t *testing.T) {
	chain := newFakeChain()
	chain.addWrapper(wrapDem, avatarD, types.KindWrappedDemurraged)
	chain.addWrapper(wrapInfl, avatarI, types.KindWrappedInflationary)
	chain.approved = false
	// 30 static units unwrap to 60 demurraged units
	chain.erc20[balanceKey{sender, wrapInfl}] = units(30)
	chain.convNum, chain.convDen = 2, 1

	path := &fakePathfinder{result: &types.PathResult{
		MaxFlow: units(100),
		Transfers: []types.TransferStep{
			{From: sender, To: receiver, TokenOwner: wrapDem, Value: units(60)},
			{From: sender, To: receiver, TokenOwner: wrapInfl, Value: units(40)},
		},
	}}

	p := newTestPlanner(path, chain)
	txs, err := p.PlanTransfer(context.Background(), sender, receiver, units(100), TransferOptions{
		UseWrappedBalances: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"approve", "unwrap", "unwrap", "settle", "wrap"}, planKinds(t, txs))

	// demurraged wrapper frees exactly the consumed amount
	assert.Equal(t, wrapDem, txs[1].To)
	// inflationary wrapper unwraps its full static balance
	assert.Equal(t, wrapInfl, txs[2].To)
}

func TestPlanTransferApprovalCheckFailureIsConservative(t *testing.T) {
	chain := newFakeChain()
	chain.addAvatar(sender)
	chain.approvedErr = errors.New("rpc timeout")

	path := &fakePathfinder{result: &types.PathResult{
		MaxFlow: units(5),
		Transfers: []types.TransferStep{
			{From: sender, To: receiver, TokenOwner: sender, Value: units(5)},
		},
	}}

	p := newTestPlanner(path, chain)
	txs, err := p.PlanTransfer(context.Background(), sender, receiver, units(5), TransferOptions{})
	require.NoError(t, err)

	// failing approval check degrades to "approval needed", never an abort
	assert.Equal(t, []string{"approve", "settle"}, planKinds(t, txs))
}

func TestPlanTransferGroupExclusions(t *testing.T) {
	group := common.HexToAddress("0x00000000000000000000000000000000000000f1")
	groupWrap := common.HexToAddress("0x00000000000000000000000000000000000000f2")

	chain := newFakeChain()
	chain.addAvatar(sender)
	chain.addWrapper(groupWrap, group, types.KindWrappedDemurraged)
	chain.groups[group] = true
	chain.approved = true

	path := &fakePathfinder{result: &types.PathResult{
		MaxFlow: units(5),
		Transfers: []types.TransferStep{
			{From: sender, To: group, TokenOwner: sender, Value: units(5)},
		},
	}}

	p := newTestPlanner(path, chain)
	_, err := p.PlanTransfer(context.Background(), sender, group, units(5), TransferOptions{})
	require.NoError(t, err)

	assert.Contains(t, path.last.ExcludedFromTokens, group)
	assert.Contains(t, path.last.ExcludedFromTokens, groupWrap)
}

func TestPlanTransferAggregateAddsSelfLoop(t *testing.T) {
	chain := newFakeChain()
	chain.addAvatar(sender)
	chain.addAvatar(avatarD)
	chain.approved = true

	path := &fakePathfinder{result: &types.PathResult{
		MaxFlow: units(5),
		Transfers: []types.TransferStep{
			{From: sender, To: receiver, TokenOwner: sender, Value: units(5)},
		},
	}}

	p := newTestPlanner(path, chain)
	txs, err := p.PlanTransfer(context.Background(), sender, receiver, units(5), TransferOptions{
		ToTokens:  []common.Address{avatarD},
		Aggregate: true,
	})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	// the self-loop keeps conservation intact, so encoding must succeed
	assert.Equal(t, "settle", callKind(t, txs[0]))
}
