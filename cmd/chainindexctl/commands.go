// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/centure/chainindex/blockchain"
	"github.com/centure/chainindex/internal/indexdb"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/wire"
)

// indexState is the block index and active chain loaded from the store.
type indexState struct {
	store *indexdb.Store
	bi    *blockchain.BlockIndex
	chain *blockchain.Chain
}

// openIndex opens the store described by the configuration and loads the
// block index from it.  The caller must close the store.
func openIndex(ctx context.Context, cfg *config) (*indexState, error) {
	store, err := indexdb.Open(cfg.dbPath(), cfg.params)
	if err != nil {
		return nil, err
	}
	bi, chain, err := indexdb.LoadBlockIndex(ctx, store, cfg.params)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &indexState{store: store, bi: bi, chain: chain}, nil
}

// lookupBlock returns the node of the block with the passed hash, which may be
// either its block hash or its legacy hash.
func (s *indexState) lookupBlock(hashStr string) (*blockchain.BlockNode, error) {
	hash, err := chainhash.NewHashFromStr(hashStr)
	if err != nil {
		return nil, fmt.Errorf("invalid block hash %q: %w", hashStr, err)
	}
	if node := s.bi.LookupNode(hash); node != nil {
		return node, nil
	}
	if node := s.bi.LookupNodeByScheme(hash, blockchain.HashSchemeLegacy); node != nil {
		return node, nil
	}
	return nil, fmt.Errorf("%w: %v", blockchain.ErrUnknownBlock, hash)
}

// runWithIndex finishes the configuration, loads the block index and runs the
// passed function with it.  Modified nodes and the active chain are written
// back to the store when the function succeeds.
func runWithIndex(fn func(ctx context.Context, s *indexState) error) error {
	if err := cfg.finish(); err != nil {
		return err
	}
	ctx := shutdownListener()

	s, err := openIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.store.Close()

	if err := fn(ctx, s); err != nil {
		return err
	}
	return indexdb.FlushBlockIndex(s.store, s.bi, s.chain)
}

// generateCmd defines the generate command.
type generateCmd struct {
	Count        uint32 `short:"c" long:"count" description:"Number of blocks to add to the active chain" default:"100"`
	ForkEvery    uint32 `long:"forkevery" description:"Add a side branch every N blocks (0 disables)"`
	ForkLength   uint32 `long:"forklength" description:"Number of headers in each side branch" default:"2"`
	WitnessEvery uint32 `long:"witnessevery" description:"Co-sign every Nth block with a witness (0 disables)"`
	Seed         int64  `long:"seed" description:"Seed for the generated nonces and merkle roots"`
}

// Execute runs the generate command.
func (c *generateCmd) Execute(args []string) error {
	return runWithIndex(func(ctx context.Context, s *indexState) error {
		return c.run(ctx, s, os.Stdout)
	})
}

func (c *generateCmd) run(ctx context.Context, s *indexState, w io.Writer) error {
	opts := generateOptions{
		count:        c.Count,
		forkEvery:    c.ForkEvery,
		forkLength:   c.ForkLength,
		witnessEvery: c.WitnessEvery,
		seed:         c.Seed,
	}
	added, err := generateHeaders(ctx, s.bi, s.chain, opts)
	if err != nil {
		return err
	}
	tip := s.chain.Tip()
	fmt.Fprintf(w, "added %d blocks, tip %v (height %d)\n", added, tip.Hash(),
		tip.Height())
	return nil
}

// infoCmd defines the info command.
type infoCmd struct{}

// Execute runs the info command.
func (c *infoCmd) Execute(args []string) error {
	return runWithIndex(func(ctx context.Context, s *indexState) error {
		return c.run(s, os.Stdout)
	})
}

func (c *infoCmd) run(s *indexState, w io.Writer) error {
	params := s.bi.Params()
	tip := s.chain.Tip()
	workSum := tip.WorkSum()
	mtp := tip.CalcPastMedianTime(params)

	fmt.Fprintf(w, "network:      %s\n", params.Name)
	fmt.Fprintf(w, "blocks:       %d\n", s.bi.Count())
	fmt.Fprintf(w, "chain tips:   %d\n", len(s.bi.ChainTips()))
	fmt.Fprintf(w, "tip:          %v (height %d)\n", tip.Hash(), tip.Height())
	fmt.Fprintf(w, "legacy hash:  %v\n", tip.LegacyHash())
	fmt.Fprintf(w, "chain work:   %x\n", workSum.ToBig())
	fmt.Fprintf(w, "median time:  %v\n", time.Unix(mtp, 0).UTC())
	fmt.Fprintf(w, "status:       %v\n", tip.Status().Validity)
	if best := s.bi.BestHeader(); best != nil {
		fmt.Fprintf(w, "best header:  %v (height %d)\n", best.Hash(),
			best.Height())
	}
	if invalid := s.bi.BestInvalid(); invalid != nil {
		fmt.Fprintf(w, "best invalid: %v (height %d)\n", invalid.Hash(),
			invalid.Height())
	}
	return nil
}

// locatorCmd defines the locator command.
type locatorCmd struct {
	Legacy bool  `long:"legacy" description:"Use legacy block hashes"`
	Floor  int64 `long:"floor" description:"Lowest height included in the locator"`
	Wire   bool  `long:"wire" description:"Print the getheaders message that carries the locator"`
	Args   struct {
		Block string `positional-arg-name:"block" description:"Block to build the locator for (default: chain tip)"`
	} `positional-args:"yes"`
}

// Execute runs the locator command.
func (c *locatorCmd) Execute(args []string) error {
	return runWithIndex(func(ctx context.Context, s *indexState) error {
		return c.run(s, os.Stdout)
	})
}

func (c *locatorCmd) run(s *indexState, w io.Writer) error {
	node := s.chain.Tip()
	if c.Args.Block != "" {
		var err error
		node, err = s.lookupBlock(c.Args.Block)
		if err != nil {
			return err
		}
	}
	scheme := blockchain.HashSchemeWitness
	if c.Legacy {
		scheme = blockchain.HashSchemeLegacy
	}

	var locator blockchain.BlockLocator
	switch {
	case c.Floor < 0 || c.Floor > node.Height():
		return fmt.Errorf("locator floor %d is outside of [0, %d]", c.Floor,
			node.Height())

	case c.Floor > 0:
		// The partial chain covers the branch of the node from the floor up.
		partial := blockchain.NewPartialChain(c.Floor)
		partial.SetTip(node)
		locator = partial.BlockLocator(nil, scheme)

	default:
		locator = s.chain.BlockLocator(node, scheme)
	}

	if !c.Wire {
		for _, hash := range locator {
			fmt.Fprintln(w, hash)
		}
		return nil
	}

	msg, err := locator.NewMsgGetHeaders(nil)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	err = wire.WriteMessage(&buf, msg, wire.ProtocolVersion, s.bi.Params().Net)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, hex.EncodeToString(buf.Bytes()))
	return nil
}

// forkCmd defines the fork command.
type forkCmd struct {
	Args struct {
		First  string `positional-arg-name:"block1" required:"yes"`
		Second string `positional-arg-name:"block2" required:"yes"`
	} `positional-args:"yes"`
}

// Execute runs the fork command.
func (c *forkCmd) Execute(args []string) error {
	return runWithIndex(func(ctx context.Context, s *indexState) error {
		return c.run(s, os.Stdout)
	})
}

func (c *forkCmd) run(s *indexState, w io.Writer) error {
	first, err := s.lookupBlock(c.Args.First)
	if err != nil {
		return err
	}
	second, err := s.lookupBlock(c.Args.Second)
	if err != nil {
		return err
	}

	params := s.bi.Params()
	fork := blockchain.LastCommonAncestor(first, second)
	equivTime := blockchain.BlockProofEquivalentTime(first, second,
		s.chain.Tip(), params)
	fmt.Fprintf(w, "fork:            %v (height %d)\n", fork.Hash(),
		fork.Height())
	fmt.Fprintf(w, "active fork:     %v\n", s.chain.FindFork(first).Hash())
	fmt.Fprintf(w, "equivalent time: %d seconds\n", equivTime)
	return nil
}

// verifyCmd defines the verify command.
type verifyCmd struct{}

// Execute runs the verify command.
func (c *verifyCmd) Execute(args []string) error {
	return runWithIndex(func(ctx context.Context, s *indexState) error {
		return c.run(ctx, s, os.Stdout)
	})
}

func (c *verifyCmd) run(ctx context.Context, s *indexState, w io.Writer) error {
	if err := s.bi.VerifyIntegrity(ctx); err != nil {
		return err
	}

	// Every block of the active chain must be in the index.
	for height := int64(0); height <= s.chain.Height(); height++ {
		node := s.chain.NodeByHeight(height)
		hash := node.Hash()
		if s.bi.LookupNode(&hash) != node {
			return fmt.Errorf("%w: active chain block %v at height %d is "+
				"not indexed", blockchain.ErrUnknownBlock, hash, height)
		}
	}
	fmt.Fprintf(w, "verified %d blocks\n", s.bi.Count())
	return nil
}
