// Copyright (c) 2025 BVK Chaitanya

package main

import (
	"context"
	"log"
	"os"

	"github.com/visvasity/cli"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/subcmds"

	// Connector packages register themselves with the registry.
	_ "github.com/LoveBloodAndDiamonds/cex-copytrader-client/binance"
)

func main() {
	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Status),
		new(subcmds.Setup),
	}
	if err := cli.Run(context.Background(), cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
