package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

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
	mode := flag.String("mode", "sub", "Operating mode: 'pub' to extract and publish, 'sub' to subscribe and aggregate.")
	configPath := flag.String("config", "", "Optional YAML config file")
	concurrent := flag.Int("concurrent", 5, "Number of concurrent checkpoint fetchers (pub mode)")
	suppress := flag.Float64("suppress", 0.5, "Bottom percentage of total events to suppress (sub mode)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	switch *mode {
	case "pub":
		runPublisher(cfg, *concurrent)
	case "sub":
		runSubscriber(cfg, *suppress)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runPublisher follows the chain from the latest checkpoint and relays every
// extracted batch to NATS until interrupted.
func runPublisher(cfg *config.Config, concurrent int) {
	log.Println("Starting harvest-relay in PUBLISH mode...")

	client := source.NewClient(cfg.Nodes.FullNodeURL)
	latest, err := client.LatestCheckpointSequenceNumber(context.Background())
	if err != nil {
		log.Fatalf("Failed to get latest checkpoint: %v", err)
	}

	pub, err := probe.NewPublisher(cfg.NATS.URL, cfg.NATS.Subject)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	worker, batches, err := source.NewEventExtractWorker(source.WorkerConfig{
		Start:          latest,
		Limit:          0, // follow indefinitely
		CheckpointsURL: cfg.Nodes.CheckpointsNodeURL,
		Concurrency:    concurrent,
		CacheDir:       cfg.Source.CacheDir,
	})
	if err != nil {
		log.Fatalf("Failed to create event source: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutdown signal received, stopping source...")
		worker.Stop()
	}()

	published := 0
	for batch := range batches {
		if err := pub.Write(&batch); err != nil {
			log.Printf("Failed to publish checkpoint %d: %v", batch.Summary.SequenceNumber, err)
			continue
		}
		published++
		if published%100 == 0 {
			log.Printf("%d checkpoints published...", published)
		}
	}

	if err := worker.Wait(); err != nil {
		log.Fatalf("Event source failed: %v", err)
	}
	log.Printf("Done. %d checkpoints published.", published)
}

// runSubscriber aggregates relayed batches live and renders the report when
// interrupted.
func runSubscriber(cfg *config.Config, suppressPct float64) {
	log.Println("Starting harvest-relay in SUBSCRIBE mode...")

	sub, err := probe.NewSubscriber(cfg.NATS.URL, cfg.NATS.Subject)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	// The NATS handler and the aggregator meet on a channel so the
	// aggregate maps stay owned by a single goroutine. The guard keeps a
	// handler invocation racing shutdown from sending on a closed channel.
	batches := make(chan model.EventBatch, 64)
	var mu sync.Mutex
	stopped := false
	if err := sub.Start(func(batch model.EventBatch) {
		mu.Lock()
		defer mu.Unlock()
		if !stopped {
			batches <- batch
		}
	}); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	done := make(chan *histogram.Snapshot)
	go func() {
		done <- histogram.Run(batches)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutdown signal received, finalizing...")
	if err := sub.Close(); err != nil {
		log.Printf("Failed to close subscriber: %v", err)
	}
	mu.Lock()
	stopped = true
	close(batches)
	mu.Unlock()
	snap := <-done

	entries, cutoff := rank.Finalize(snap, suppressPct)
	rep := &report.Report{
		Entries:  entries,
		Cutoff:   cutoff,
		Packages: rank.Packages(snap),
	}
	if summary, err := stats.Summarize(snap.Packages); err == nil {
		rep.Summary = &summary
	}
	renderer := &report.Renderer{}
	if err := renderer.Render(os.Stdout, rep); err != nil {
		log.Fatalf("Failed to render report: %v", err)
	}
}
