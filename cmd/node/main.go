// Copyright 2026 The simple-pow-chain Authors
// This file is part of simple-pow-chain.
//
// simple-pow-chain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// simple-pow-chain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with simple-pow-chain. If not, see <http://www.gnu.org/licenses/>.
//
// This file is derived from cmd/kcn/main.go.

package main

import (
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/doocho/simple-pow-chain/log"
	"github.com/doocho/simple-pow-chain/networks/p2p"
	"github.com/doocho/simple-pow-chain/params"
)

var logger = log.NewModuleLogger(log.ModuleCLI)

var (
	listenFlag = cli.StringFlag{
		Name:  "listen",
		Usage: "address this node binds and advertises to peers",
		Value: "127.0.0.1:9000",
	}
	seedFlag = cli.StringFlag{
		Name:  "seed",
		Usage: "address of a seed registry to fetch an initial peer list from",
	}
	peerFlag = cli.StringFlag{
		Name:  "peer",
		Usage: "address of a single peer to dial directly",
	}
	difficultyFlag = cli.IntFlag{
		Name:  "difficulty",
		Usage: "number of leading hex zeros a block hash must have",
		Value: params.DefaultDifficulty,
	}
	minerFlag = cli.StringFlag{
		Name:  "miner",
		Usage: "address credited with the coinbase reward of mined blocks",
	}
	mineFlag = cli.BoolFlag{
		Name:  "mine",
		Usage: "mine blocks in the background",
	}
	genesisFlag = cli.BoolFlag{
		Name:  "genesis",
		Usage: "create a fresh genesis block if no peer supplies a chain at startup",
	}
)

var app = cli.NewApp()

func init() {
	app.Name = "node"
	app.Usage = "run a proof-of-work chain node"
	app.Flags = []cli.Flag{listenFlag, seedFlag, peerFlag, difficultyFlag, minerFlag, mineFlag, genesisFlag}
	app.Action = runNode
}

func runNode(ctx *cli.Context) error {
	cfg := params.NodeConfig{
		ListenAddr:   ctx.String(listenFlag.Name),
		SeedAddr:     ctx.String(seedFlag.Name),
		PeerAddr:     ctx.String(peerFlag.Name),
		Difficulty:   ctx.Int(difficultyFlag.Name),
		MinerAddress: ctx.String(minerFlag.Name),
		Mine:         ctx.Bool(mineFlag.Name),
		Genesis:      ctx.Bool(genesisFlag.Name),
	}
	if cfg.Mine && cfg.MinerAddress == "" {
		return cli.NewExitError("--mine requires --miner to be set", 1)
	}

	n := p2p.New(cfg)
	logger.Info("starting node", "listen", cfg.ListenAddr, "seed", cfg.SeedAddr, "peer", cfg.PeerAddr, "mine", cfg.Mine)
	return n.Run()
}

func main() {
	if err := app.Run(os.Args); err != nil {
		logger.Fatal("node exited", "err", err)
	}
}
