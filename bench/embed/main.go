package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/mirseo/updrm/bench/common"
)

func main() {
	app := cli.NewApp()
	app.Name = "updrm-bench-embed"
	app.Usage = "Benchmark tool for payload embedding"
	app.Version = "1.0.0"
	app.Flags = common.Flags()
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	setup, err := common.NewSetup(c)
	if err != nil {
		return err
	}

	// Pre-generate payloads (NOT timed)
	fmt.Printf("Pre-generating %d payloads of %d bytes each...\n", setup.Iterations, setup.PayloadSize)
	payloads := common.PreGeneratePayloads(setup.Iterations, setup.PayloadSize)

	fmt.Printf("Starting benchmark with %d concurrent embedder(s)...\n", setup.Concurrent)
	fmt.Println("---")

	stats := common.NewStats()
	setup.Run(stats, func(i int) (int, error) {
		if _, err := setup.Engine.Embed(setup.Host, payloads[i]); err != nil {
			return 0, err
		}
		return len(payloads[i]), nil
	})

	return common.PrintResults(os.Stdout, common.NewResult("Embed", stats), setup.Output)
}
