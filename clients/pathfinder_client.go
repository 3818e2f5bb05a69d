// Package clients provides the SDK's outbound connectors: the pathfinder
// JSON-RPC client and the read-only chain client the planner queries.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/skundu42/sdk-v2/internal/metrics"
	"github.com/skundu42/sdk-v2/types"
)

// PathfinderClient queries the external pathfinding service over JSON-RPC.
type PathfinderClient struct {
	url        string
	httpClient *http.Client
	log        *logrus.Entry
}

// NewPathfinderClient creates a new pathfinder client.
func NewPathfinderClient(url string, timeout time.Duration) *PathfinderClient {
	return &PathfinderClient{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: logrus.WithField("component", "pathfinder"),
	}
}

type jsonRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jsonRPCResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *jsonRPCError   `json:"error"`
}

type computeTransferParams struct {
	From               string           `json:"from"`
	To                 string           `json:"to"`
	TargetFlow         string           `json:"targetFlow"`
	ToTokens           []string         `json:"toTokens,omitempty"`
	ExcludedFromTokens []string         `json:"excludedFromTokens,omitempty"`
	WithWrap           bool             `json:"withWrap"`
	SimulatedTrusts    []simulatedTrust `json:"simulatedTrusts,omitempty"`
}

type simulatedTrust struct {
	Truster string `json:"truster"`
	Trustee string `json:"trustee"`
}

type computeTransferResult struct {
	MaxFlow   string `json:"maxFlow"`
	Transfers []struct {
		From       string `json:"from"`
		To         string `json:"to"`
		TokenOwner string `json:"tokenOwner"`
		Value      string `json:"value"`
	} `json:"transfers"`
}

// FindPath asks the pathfinder for an edge set delivering req.TargetFlow
// from req.From to req.To. The returned edges are untrusted; the encoder
// validates them before use.
func (c *PathfinderClient) FindPath(ctx context.Context, req types.PathRequest) (*types.PathResult, error) {
	params := computeTransferParams{
		From:       req.From.Hex(),
		To:         req.To.Hex(),
		TargetFlow: req.TargetFlow.String(),
		WithWrap:   req.UseWrappedBalances,
	}
	for _, t := range req.ToTokens {
		params.ToTokens = append(params.ToTokens, t.Hex())
	}
	for _, t := range req.ExcludedFromTokens {
		params.ExcludedFromTokens = append(params.ExcludedFromTokens, t.Hex())
	}
	for _, t := range req.SimulatedTrusts {
		params.SimulatedTrusts = append(params.SimulatedTrusts, simulatedTrust{
			Truster: t.Truster.Hex(),
			Trustee: t.Trustee.Hex(),
		})
	}

	payload, err := json.Marshal(jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  "compute_transfer",
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.PathfinderRequestsFailed.Inc()
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	metrics.PathfinderRequestDuration.Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		metrics.PathfinderRequestsFailed.Inc()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pathfinder API error (status %d): %s", resp.StatusCode, string(body))
	}

	var rpcResp jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		metrics.PathfinderRequestsFailed.Inc()
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if rpcResp.Error != nil {
		metrics.PathfinderRequestsFailed.Inc()
		return nil, fmt.Errorf("pathfinder error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	var result computeTransferResult
	if err := json.Unmarshal(rpcResp.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}

	maxFlow, ok := new(big.Int).SetString(result.MaxFlow, 10)
	if !ok {
		return nil, fmt.Errorf("invalid maxFlow in response: %q", result.MaxFlow)
	}

	transfers := make([]types.TransferStep, 0, len(result.Transfers))
	for i, t := range result.Transfers {
		value, ok := new(big.Int).SetString(t.Value, 10)
		if !ok {
			return nil, fmt.Errorf("invalid value in transfer %d: %q", i, t.Value)
		}
		transfers = append(transfers, types.TransferStep{
			From:       common.HexToAddress(t.From),
			To:         common.HexToAddress(t.To),
			TokenOwner: common.HexToAddress(t.TokenOwner),
			Value:      value,
		})
	}

	c.log.WithFields(logrus.Fields{
		"from":    req.From.Hex(),
		"to":      req.To.Hex(),
		"maxFlow": maxFlow.String(),
		"edges":   len(transfers),
	}).Debug("pathfinder returned path")

	return &types.PathResult{MaxFlow: maxFlow, Transfers: transfers}, nil
}
