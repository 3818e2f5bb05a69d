// flowpack encodes a JSON-described transfer path into the settlement
// contract's flow-matrix wire format. Useful for inspecting what the SDK
// would submit for a given pathfinder response.
//
// Usage:
//
//	flowpack -input path.json [-calldata]
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/skundu42/sdk-v2/calls"
	"github.com/skundu42/sdk-v2/config"
	"github.com/skundu42/sdk-v2/flow"
	"github.com/skundu42/sdk-v2/types"
)

type inputFile struct {
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Value     string `json:"value"`
	Transfers []struct {
		From       string `json:"from"`
		To         string `json:"to"`
		TokenOwner string `json:"tokenOwner"`
		Value      string `json:"value"`
	} `json:"transfers"`
}

func main() {
	inputPath := flag.String("input", "", "JSON file describing the path to encode")
	configPath := flag.String("config", "", "optional YAML config (defaults to the Gnosis Chain deployment)")
	printCalldata := flag.Bool("calldata", false, "also print the full settlement calldata")
	flag.Parse()

	log := logrus.New()
	if *inputPath == "" {
		log.Fatal("missing -input")
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	data, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("failed to read input: %v", err)
	}
	var in inputFile
	if err := json.Unmarshal(data, &in); err != nil {
		log.Fatalf("failed to parse input: %v", err)
	}

	value, ok := new(big.Int).SetString(in.Value, 10)
	if !ok {
		log.Fatalf("invalid value: %q", in.Value)
	}
	steps := make([]types.TransferStep, 0, len(in.Transfers))
	for i, t := range in.Transfers {
		v, ok := new(big.Int).SetString(t.Value, 10)
		if !ok {
			log.Fatalf("invalid value in transfer %d: %q", i, t.Value)
		}
		steps = append(steps, types.TransferStep{
			From:       common.HexToAddress(t.From),
			To:         common.HexToAddress(t.To),
			TokenOwner: common.HexToAddress(t.TokenOwner),
			Value:      v,
		})
	}

	matrix, err := flow.CreateFlowMatrix(
		common.HexToAddress(in.Sender),
		common.HexToAddress(in.Receiver),
		value,
		steps,
	)
	if err != nil {
		log.Fatalf("encoding failed: %v", err)
	}

	fmt.Printf("vertices (%d):\n", len(matrix.FlowVertices))
	for i, v := range matrix.FlowVertices {
		fmt.Printf("  %3d  %s\n", i, v.Hex())
	}
	fmt.Printf("edges (%d):\n", len(matrix.FlowEdges))
	for i, e := range matrix.FlowEdges {
		fmt.Printf("  %3d  sink=%d amount=%s\n", i, e.StreamSinkID, e.Amount)
	}
	fmt.Printf("stream: source=%d terminal=%v\n", matrix.Streams[0].SourceCoordinate, matrix.Streams[0].FlowEdgeIDs)
	fmt.Printf("packed coordinates: 0x%s\n", hex.EncodeToString(matrix.PackedCoordinates))

	if *printCalldata {
		builder := calls.NewBuilder(cfg.Contracts.HubAddress())
		tx, err := builder.OperateFlowMatrix(matrix)
		if err != nil {
			log.Fatalf("calldata encoding failed: %v", err)
		}
		fmt.Printf("settlement call to %s:\n0x%s\n", tx.To.Hex(), hex.EncodeToString(tx.Data))
	}
}
