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
	"github.com/doocho/simple-pow-chain/networks/seed"
)

var logger = log.NewModuleLogger(log.ModuleCLI)

var listenFlag = cli.StringFlag{
	Name:  "listen",
	Usage: "address the seed registry binds",
	Value: "127.0.0.1:9100",
}

var app = cli.NewApp()

func init() {
	app.Name = "seed"
	app.Usage = "run a stateless peer rendezvous registry"
	app.Flags = []cli.Flag{listenFlag}
	app.Action = runSeed
}

func runSeed(ctx *cli.Context) error {
	addr := ctx.String(listenFlag.Name)
	s := seed.NewServer()
	logger.Info("starting seed registry", "listen", addr)
	if err := s.Run(addr); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	return nil
}

func main() {
	if err := app.Run(os.Args); err != nil {
		logger.Fatal("seed registry exited", "err", err)
	}
}
