package common

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urfave/cli"

	"github.com/mirseo/updrm/engine"
)

// Flags returns the flags shared by the benchmark tools.
func Flags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "file, f",
			Usage: "host `FILE` to benchmark against (default: generated)",
		},
		cli.StringFlag{
			Name:  "kind, k",
			Usage: "generated host kind: png, pdf",
			Value: "png",
		},
		cli.IntFlag{
			Name:  "side",
			Usage: "side in pixels of a generated PNG host",
			Value: 512,
		},
		cli.IntFlag{
			Name:  "pages",
			Usage: "page count of a generated PDF host",
			Value: 4,
		},
		cli.IntFlag{
			Name:  "iterations, n",
			Usage: "Total number of operations",
			Value: 1000,
		},
		cli.IntFlag{
			Name:  "payload-size, ps",
			Usage: "Size of each payload in bytes",
			Value: 256,
		},
		cli.IntFlag{
			Name:  "concurrent, c",
			Usage: "Number of concurrent goroutines",
			Value: 1,
		},
		cli.StringFlag{
			Name:  "config",
			Usage: "load engine configuration from `FILE`",
		},
		cli.StringFlag{
			Name:  "output, o",
			Usage: "Output format: text, json",
			Value: "text",
		},
	}
}

// Setup holds the parsed shared flags.
type Setup struct {
	Engine      *engine.Engine
	Host        []byte
	Iterations  int
	PayloadSize int
	Concurrent  int
	Output      string
}

// NewSetup validates the shared flags, loads the host and builds a quiet
// engine.
func NewSetup(c *cli.Context) (*Setup, error) {
	s := &Setup{
		Iterations:  c.Int("iterations"),
		PayloadSize: c.Int("payload-size"),
		Concurrent:  c.Int("concurrent"),
		Output:      c.String("output"),
	}
	if s.Iterations <= 0 {
		return nil, fmt.Errorf("iterations must be > 0")
	}
	if s.PayloadSize <= 0 {
		return nil, fmt.Errorf("payload-size must be > 0")
	}
	if s.Concurrent <= 0 {
		s.Concurrent = 1
	}

	config, err := engine.NewConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	s.Engine, err = engine.New(config)
	if err != nil {
		return nil, err
	}
	s.Engine.Logger().Silent(true)

	s.Host, err = LoadHost(c.String("file"), c.String("kind"), c.Int("side"), c.Int("pages"))
	if err != nil {
		return nil, fmt.Errorf("failed to load host: %w", err)
	}
	info, err := s.Engine.Inspect(s.Host)
	if err != nil {
		return nil, err
	}
	if s.PayloadSize > info.MaxPayload {
		return nil, fmt.Errorf("payload-size %d exceeds host capacity of %d bytes", s.PayloadSize, info.MaxPayload)
	}
	fmt.Printf("Host: %s, %d bits capacity, %d bytes max payload\n",
		info.Format, info.CapacityBits, info.MaxPayload)
	return s, nil
}

// Run calls op for every index in [0, iterations) across the configured
// number of workers, recording latencies and printing progress.
func (s *Setup) Run(stats *Stats, op func(i int) (int, error)) {
	var (
		wg   sync.WaitGroup
		done int64
	)

	progressTicker := time.NewTicker(2 * time.Second)
	defer progressTicker.Stop()
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-progressTicker.C:
				count := atomic.LoadInt64(&done)
				pct := float64(count) / float64(s.Iterations) * 100
				fmt.Printf("Progress: %d/%d (%.1f%%)\n", count, s.Iterations, pct)
			case <-stop:
				return
			}
		}
	}()

	stats.Start()
	for w := 0; w < s.Concurrent; w++ {
		start, end := Split(s.Iterations, s.Concurrent, w)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				t := time.Now()
				n, err := op(i)
				latency := time.Since(t)
				if err != nil {
					stats.RecordError()
					continue
				}
				stats.RecordLatency(latency)
				stats.RecordOperation(n)
				atomic.AddInt64(&done, 1)
			}
		}(start, end)
	}
	wg.Wait()
	stats.Stop()
	close(stop)
}
