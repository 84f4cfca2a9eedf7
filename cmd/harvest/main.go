package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ChainHarvest/internal/archive"
	"ChainHarvest/internal/config"
	"ChainHarvest/internal/engine/histogram"
	"ChainHarvest/internal/engine/rank"
	"ChainHarvest/internal/model"
	"ChainHarvest/internal/probe"
	"ChainHarvest/internal/report"
	"ChainHarvest/internal/source"
	"ChainHarvest/internal/stats"
)

func main() {
	count := flag.Uint64("count", 10, "Number of checkpoints to process")
	concurrent := flag.Int("concurrent", 5, "Number of concurrent checkpoint fetchers")
	follow := flag.Bool("follow", false, "Follow the chain in real time instead of a fixed range")
	suppress := flag.Float64("suppress", 0.5, "Bottom percentage of total events to suppress")
	fullNodeURL := flag.String("full-node-url", "", "URL of the fullnode RPC endpoint (overrides config)")
	checkpointsNodeURL := flag.String("checkpoints-node-url", "", "URL of the checkpoint store (overrides config)")
	configPath := flag.String("config", "", "Optional YAML config file")
	noColor := flag.Bool("no-color", false, "Disable ANSI colors in the report")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *fullNodeURL != "" {
		cfg.Nodes.FullNodeURL = *fullNodeURL
	}
	if *checkpointsNodeURL != "" {
		cfg.Nodes.CheckpointsNodeURL = *checkpointsNodeURL
	}

	ctx := context.Background()
	client := source.NewClient(cfg.Nodes.FullNodeURL)

	version, err := client.APIVersion(ctx)
	if err != nil {
		log.Fatalf("Failed to reach fullnode: %v", err)
	}
	fmt.Printf("Fullnode version: %s\n", version)

	latest, err := client.LatestCheckpointSequenceNumber(ctx)
	if err != nil {
		log.Fatalf("Failed to get latest checkpoint: %v", err)
	}

	var start, limit uint64
	if *follow {
		start = latest
		fmt.Printf("Following the latest checkpoint (%d) ...\n", latest)
	} else {
		// Clamped to 0; stores with a shorter retention horizon surface the
		// real minimum as a fetch error at runtime.
		if latest > *count {
			start = latest - *count
		}
		limit = latest - start + 1
		fmt.Printf("Get events from checkpoints %d ... %d\n", start, latest)
	}

	worker, batches, err := source.NewEventExtractWorker(source.WorkerConfig{
		Start:          start,
		Limit:          limit,
		Filter:         func(*model.Event) bool { return true },
		CheckpointsURL: cfg.Nodes.CheckpointsNodeURL,
		Concurrency:    *concurrent,
		CacheDir:       cfg.Source.CacheDir,
	})
	if err != nil {
		log.Fatalf("Failed to create event source: %v", err)
	}

	// In follow mode the stream only ends when the user interrupts; the
	// worker closes the channel and the report still renders.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutdown signal received, finalizing...")
		worker.Stop()
	}()

	var sinks []model.Sink
	if cfg.NATS.Enabled {
		pub, err := probe.NewPublisher(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			log.Fatalf("Failed to connect relay publisher: %v", err)
		}
		sinks = append(sinks, pub)
	}
	if cfg.ClickHouse.Enabled {
		sink, err := archive.NewClickHouseSink(cfg.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to open event archive: %v", err)
		}
		sinks = append(sinks, sink)
	}

	snap := histogram.Run(batches, sinks...)
	for _, sink := range sinks {
		if err := sink.Close(); err != nil {
			log.Printf("Failed to close sink: %v", err)
		}
	}

	srcErr := worker.Wait()
	if srcErr != nil {
		log.Printf("Event source failed: %v", srcErr)
		log.Printf("Rendering partial results for %d checkpoints.", snap.Checkpoints)
	}

	renderReport(snap, *suppress, !*noColor)

	if srcErr != nil {
		os.Exit(1)
	}
}

func renderReport(snap *histogram.Snapshot, suppressPct float64, color bool) {
	entries, cutoff := rank.Finalize(snap, suppressPct)

	rep := &report.Report{
		Entries:  entries,
		Cutoff:   cutoff,
		Packages: rank.Packages(snap),
	}
	if summary, err := stats.Summarize(snap.Packages); err == nil {
		rep.Summary = &summary
	}

	renderer := &report.Renderer{Color: color}
	if err := renderer.Render(os.Stdout, rep); err != nil {
		log.Fatalf("Failed to render report: %v", err)
	}
}
