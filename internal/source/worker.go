package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"ChainHarvest/internal/model"
)

// ErrCheckpointUnavailable marks a checkpoint the store does not serve. On a
// bounded run this usually means the start fell below the store's retention
// horizon.
var ErrCheckpointUnavailable = errors.New("checkpoint not available")

const (
	defaultConcurrency  = 5
	defaultPollInterval = time.Second
	fetchAttempts       = 5
	fetchBackoff        = 500 * time.Millisecond
)

// WorkerConfig configures an EventExtractWorker.
type WorkerConfig struct {
	// Start is the first checkpoint sequence number to fetch.
	Start uint64
	// Limit is the number of checkpoints to process. Zero means follow the
	// chain indefinitely, polling for checkpoints as they appear.
	Limit uint64
	// Filter drops events before batching. Nil keeps everything.
	Filter func(*model.Event) bool
	// CheckpointsURL is the base URL of the checkpoint store.
	CheckpointsURL string
	// Concurrency is the number of parallel fetchers.
	Concurrency int
	// Resume, when set, overrides Start if it points past it.
	Resume *ResumeState
	// CacheDir, when set, caches raw blobs and resume state on disk.
	CacheDir string
	// Decoder parses raw blobs. Nil selects the JSON decoder.
	Decoder Decoder
	// PollInterval is the follow-mode wait between probes for a checkpoint
	// the store has not published yet.
	PollInterval time.Duration
}

// Worker fetches checkpoints concurrently, extracts their events, and
// delivers batches strictly in checkpoint order on its output channel. The
// channel closes when the range is exhausted, the worker is stopped, or a
// fetch fails; Wait reports which.
type Worker struct {
	cfg    WorkerConfig
	out    chan model.EventBatch
	cache  *Cache
	hc     *http.Client
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// NewEventExtractWorker validates the config, starts the fetch pipeline and
// returns the worker handle plus the receive end of the batch channel. The
// caller must drain the channel and then join Wait to observe producer-side
// failure: a closed channel with a non-nil Wait error still leaves every
// delivered batch valid for aggregation.
func NewEventExtractWorker(cfg WorkerConfig) (*Worker, <-chan model.EventBatch, error) {
	if cfg.CheckpointsURL == "" {
		return nil, nil, errors.New("event source: checkpoints URL is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Decoder == nil {
		cfg.Decoder = JSONDecoder{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	w := &Worker{
		cfg:  cfg,
		out:  make(chan model.EventBatch, cfg.Concurrency),
		hc:   &http.Client{Timeout: 30 * time.Second},
		done: make(chan struct{}),
	}

	if cfg.CacheDir != "" {
		cache, err := NewCache(cfg.CacheDir)
		if err != nil {
			return nil, nil, fmt.Errorf("event source: %w", err)
		}
		w.cache = cache
	}
	if cfg.Resume != nil && cfg.Resume.NextCheckpoint > w.cfg.Start {
		if w.cfg.Limit > 0 {
			skipped := cfg.Resume.NextCheckpoint - w.cfg.Start
			if skipped >= w.cfg.Limit {
				return nil, nil, fmt.Errorf("event source: resume state %d is past the requested range", cfg.Resume.NextCheckpoint)
			}
			w.cfg.Limit -= skipped
		}
		w.cfg.Start = cfg.Resume.NextCheckpoint
		log.Printf("Resuming from checkpoint %d", w.cfg.Start)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	go w.run(ctx)

	return w, w.out, nil
}

// Wait blocks until the worker has closed its channel and returns the first
// producer-side error, if any.
func (w *Worker) Wait() error {
	<-w.done
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Stop cancels the worker. Already-fetched batches still drain to the
// channel before it closes.
func (w *Worker) Stop() {
	w.cancel()
}

func (w *Worker) fail(err error) {
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
	w.cancel()
}

type fetchResult struct {
	seq   uint64
	batch model.EventBatch
	err   error
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	defer close(w.out)

	end := uint64(math.MaxUint64)
	if w.cfg.Limit > 0 {
		end = w.cfg.Start + w.cfg.Limit
	}

	seqs := make(chan uint64)
	results := make(chan fetchResult, w.cfg.Concurrency)

	go func() {
		defer close(seqs)
		for seq := w.cfg.Start; seq < end; seq++ {
			select {
			case seqs <- seq:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(w.cfg.Concurrency)
	for i := 0; i < w.cfg.Concurrency; i++ {
		go func() {
			defer wg.Done()
			for seq := range seqs {
				batch, err := w.fetchCheckpoint(ctx, seq)
				select {
				case results <- fetchResult{seq: seq, batch: batch, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// Fetchers finish out of order; hold completed checkpoints until the
	// next expected sequence number arrives so delivery stays in order.
	pending := make(map[uint64]model.EventBatch)
	expect := w.cfg.Start
	failed := false
	for res := range results {
		if failed {
			continue
		}
		if res.err != nil {
			if !errors.Is(res.err, context.Canceled) {
				w.fail(fmt.Errorf("checkpoint %d: %w", res.seq, res.err))
			}
			failed = true
			continue
		}
		pending[res.seq] = res.batch
		for {
			batch, ok := pending[expect]
			if !ok {
				break
			}
			delete(pending, expect)
			select {
			case w.out <- batch:
			case <-ctx.Done():
				failed = true
			}
			if failed {
				break
			}
			expect++
			w.saveResume(expect)
		}
	}
}

func (w *Worker) saveResume(next uint64) {
	if w.cache == nil {
		return
	}
	if err := w.cache.SaveResume(ResumeState{NextCheckpoint: next}); err != nil {
		log.Printf("Failed to save resume state: %v", err)
	}
}

// fetchCheckpoint loads one checkpoint blob (cache first), decodes it and
// applies the event filter, preserving emission order.
func (w *Worker) fetchCheckpoint(ctx context.Context, seq uint64) (model.EventBatch, error) {
	blob, err := w.loadBlob(ctx, seq)
	if err != nil {
		return model.EventBatch{}, err
	}

	summary, events, err := w.cfg.Decoder.Decode(blob)
	if err != nil {
		return model.EventBatch{}, err
	}

	if w.cfg.Filter != nil {
		kept := events[:0]
		for i := range events {
			if w.cfg.Filter(&events[i]) {
				kept = append(kept, events[i])
			}
		}
		events = kept
	}
	return model.EventBatch{Summary: summary, Events: events}, nil
}

func (w *Worker) loadBlob(ctx context.Context, seq uint64) ([]byte, error) {
	if w.cache != nil {
		if blob, ok := w.cache.Get(seq); ok {
			return blob, nil
		}
	}

	url := fmt.Sprintf("%s/%d.chk", strings.TrimRight(w.cfg.CheckpointsURL, "/"), seq)
	attempt := 0
	for {
		blob, err := w.getOnce(ctx, url)
		switch {
		case err == nil:
			if w.cache != nil {
				if cerr := w.cache.Put(seq, blob); cerr != nil {
					log.Printf("%v", cerr)
				}
			}
			return blob, nil
		case errors.Is(err, ErrCheckpointUnavailable):
			if w.cfg.Limit > 0 {
				return nil, fmt.Errorf("store does not serve checkpoint %d (below retention horizon or not yet published): %w", seq, err)
			}
			// Follow mode: the checkpoint has not been published yet.
			select {
			case <-time.After(w.cfg.PollInterval):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		default:
			attempt++
			if attempt >= fetchAttempts {
				return nil, err
			}
			select {
			case <-time.After(fetchBackoff << attempt):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
}

func (w *Worker) getOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := w.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checkpoint fetch failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		blob, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("checkpoint body unreadable: %w", err)
		}
		return blob, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrCheckpointUnavailable
	default:
		return nil, fmt.Errorf("checkpoint fetch failed: status %s", resp.Status)
	}
}
