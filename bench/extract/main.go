package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/mirseo/updrm/bench/common"
)

func main() {
	app := cli.NewApp()
	app.Name = "updrm-bench-extract"
	app.Usage = "Benchmark tool for payload extraction"
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

	// Embed once (NOT timed)
	payload := common.PreGeneratePayloads(1, setup.PayloadSize)[0]
	host, err := setup.Engine.Embed(setup.Host, payload)
	if err != nil {
		return fmt.Errorf("failed to prepare host: %w", err)
	}

	fmt.Printf("Starting benchmark with %d concurrent extractor(s)...\n", setup.Concurrent)
	fmt.Println("---")

	stats := common.NewStats()
	setup.Run(stats, func(int) (int, error) {
		got, err := setup.Engine.Extract(host)
		if err != nil {
			return 0, err
		}
		if !bytes.Equal(got, payload) {
			return 0, fmt.Errorf("extracted payload differs")
		}
		return len(got), nil
	})

	return common.PrintResults(os.Stdout, common.NewResult("Extract", stats), setup.Output)
}
