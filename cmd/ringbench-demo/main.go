// Command ringbench-demo is a thin usage example of the ringbench worker
// library, not a command-line surface for the tool (flag parsing, device
// enumeration, and result formatting are out of scope for this module and
// are expected to live in a separate CLI that imports it).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/blockbench/ringbench"
	"github.com/blockbench/ringbench/internal/logging"
)

func main() {
	var (
		devicePath = flag.String("device", "", "path to a block device or regular file to benchmark")
		blockSize  = flag.Int64("block-size", 4096, "I/O size in bytes")
		queueDepth = flag.Int("queue-depth", 128, "maximum outstanding I/Os")
		duration   = flag.Duration("duration", 10*time.Second, "how long to run the steady state")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *devicePath == "" {
		log.Fatal("-device is required")
	}

	if *verbose {
		logging.SetDefault(logging.NewLogger(&logging.Config{Level: logging.LevelDebug}))
	}

	cfg := ringbench.NewConfig(*devicePath,
		ringbench.WithBlockSize(*blockSize),
		ringbench.WithQueueDepth(*queueDepth),
		ringbench.WithDuration(*duration),
		ringbench.WithPattern(ringbench.SequentialRead),
	)

	w, err := ringbench.NewWorker(cfg)
	if err != nil {
		log.Fatalf("new worker: %v", err)
	}

	res, err := w.Run(context.Background())
	if err != nil {
		log.Fatalf("run: %v", err)
	}

	fmt.Printf("exit_reason=%s ops=%d bytes_read=%d bytes_written=%d errors=%d p99=%s\n",
		res.ExitReason, res.Snapshot.OpsCompleted, res.Snapshot.BytesRead,
		res.Snapshot.BytesWritten, res.Snapshot.Errors, res.Snapshot.Latency.P99)
}
