// Package loadtest provides load testing utilities for the sync engine.
//
// This package simulates many concurrent watchers pushing canvas
// snapshots through independent engines into a shared in-memory Sheets
// stub, to validate that the pipeline sustains dozens of workers with
// bounded per-pass latency and no interleaved writes.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"sheetsync/internal/canvas"
	"sheetsync/internal/composio"
	"sheetsync/internal/engine"
	"sheetsync/internal/handle"
	"sheetsync/internal/sheet"
)

// StubSheets is an in-memory stand-in for the Google Sheets service. It
// satisfies engine.SheetService, counts calls per operation and can
// simulate remote round-trip latency.
type StubSheets struct {
	mu      sync.Mutex
	latency time.Duration
	nextID  int
	tabs    map[string]map[string]bool
	rows    map[string]int
	calls   map[string]int
}

// NewStubSheets creates a stub where every call sleeps for latency
// before completing. Zero latency makes calls immediate.
func NewStubSheets(latency time.Duration) *StubSheets {
	return &StubSheets{
		latency: latency,
		tabs:    make(map[string]map[string]bool),
		rows:    make(map[string]int),
		calls:   make(map[string]int),
	}
}

// delay simulates one remote round trip. It runs outside the state
// lock so concurrent workers overlap their waits, the way independent
// HTTP calls would.
func (s *StubSheets) delay(ctx context.Context) error {
	if s.latency <= 0 {
		return nil
	}
	select {
	case <-time.After(s.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *StubSheets) Create(ctx context.Context, title, tab string, columns int) (string, error) {
	if err := s.delay(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["create"]++
	s.nextID++
	id := fmt.Sprintf("load-sheet-%d", s.nextID)
	s.tabs[id] = map[string]bool{tab: true}
	s.rows[id] = 0
	return id, nil
}

func (s *StubSheets) EnsureTab(ctx context.Context, spreadsheetID, tab string) error {
	if err := s.delay(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["ensure_tab"]++
	tabs, ok := s.tabs[spreadsheetID]
	if !ok {
		return fmt.Errorf("spreadsheet %s: %w", spreadsheetID, sheet.ErrNotFound)
	}
	tabs[tab] = true
	return nil
}

func (s *StubSheets) Clear(ctx context.Context, spreadsheetID, rng string) error {
	if err := s.delay(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["clear"]++
	if _, ok := s.tabs[spreadsheetID]; !ok {
		return fmt.Errorf("spreadsheet %s: %w", spreadsheetID, sheet.ErrNotFound)
	}
	s.rows[spreadsheetID] = 0
	return nil
}

func (s *StubSheets) Append(ctx context.Context, spreadsheetID, rng string, values [][]string) error {
	if err := s.delay(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["append"]++
	if _, ok := s.tabs[spreadsheetID]; !ok {
		return fmt.Errorf("spreadsheet %s: %w", spreadsheetID, sheet.ErrNotFound)
	}
	s.rows[spreadsheetID] += len(values)
	return nil
}

func (s *StubSheets) URL(spreadsheetID string) string {
	return "https://docs.google.com/spreadsheets/d/" + spreadsheetID
}

// CallCount returns how many times the named operation ran. Operations
// are "create", "ensure_tab", "clear" and "append".
func (s *StubSheets) CallCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// SheetCount returns the number of spreadsheets created so far.
func (s *StubSheets) SheetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tabs)
}

// TotalRows returns the rows currently held across all spreadsheets,
// header rows included.
func (s *StubSheets) TotalRows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.rows {
		total += n
	}
	return total
}

// stubConnector reports a single active Google Sheets connection so
// load runs never take the needs-auth path.
type stubConnector struct{}

func (stubConnector) ConnectedAccounts(ctx context.Context) ([]composio.ConnectedAccount, error) {
	return []composio.ConnectedAccount{
		{ID: "ca_loadtest", Status: "ACTIVE", ToolkitSlug: "googlesheets"},
	}, nil
}

func (stubConnector) InitiateConnection(ctx context.Context, authConfigID string) (string, error) {
	return "https://backend.composio.dev/s/loadtest", nil
}

// LatencyStats captures performance metrics from load runs. Each
// sample is one full sync pass: auth check, spreadsheet resolution,
// clear and append.
type LatencyStats struct {
	Min        time.Duration
	Max        time.Duration
	Mean       time.Duration
	P50        time.Duration // Median
	P95        time.Duration
	P99        time.Duration
	TotalSyncs int
	Errors     int
	Durations  []time.Duration
}

// Config controls harness construction. Zero values take defaults.
type Config struct {
	// Items is the number of canvas items in each worker's snapshot.
	// Default 50.
	Items int

	// CallLatency is the simulated round-trip time of one Sheets call.
	// Default 0 (immediate).
	CallLatency time.Duration

	// Seed drives snapshot generation. Each worker derives its own
	// snapshot from Seed plus its worker id. Default 42.
	Seed int64

	// Logger receives engine and worker chatter. Defaults to a
	// discard logger.
	Logger *log.Logger
}

// Harness owns the shared stub service for one load run.
type Harness struct {
	// Sheets is the stub all workers write to. Exposed so callers can
	// assert call counts after a run.
	Sheets *StubSheets

	items  int
	seed   int64
	logger *log.Logger
}

// NewHarness builds a harness with a fresh stub service.
func NewHarness(config Config) *Harness {
	if config.Items <= 0 {
		config.Items = 50
	}
	if config.Seed == 0 {
		config.Seed = 42
	}
	if config.Logger == nil {
		config.Logger = log.New(io.Discard, "", 0)
	}
	return &Harness{
		Sheets: NewStubSheets(config.CallLatency),
		items:  config.Items,
		seed:   config.Seed,
		logger: config.Logger,
	}
}

// RunConcurrentSyncs simulates numWorkers independent daemons syncing
// in parallel.
//
// Each worker owns a full engine stack (memory handle store, auth
// gate, resource locator) wired to the shared stub, and performs
// syncsPerWorker passes, recording latency for each. One item is
// renamed before every pass so the change detector never skips the
// write path; mutation happens between passes, never during one.
// Returns aggregated latency statistics.
func (h *Harness) RunConcurrentSyncs(ctx context.Context, numWorkers, syncsPerWorker int) (*LatencyStats, error) {
	var wg sync.WaitGroup
	var allDurations []time.Duration
	var errorCount int

	// Channels to collect results
	resultsChan := make(chan []time.Duration, numWorkers)
	errorsChan := make(chan error, numWorkers)

	// Launch concurrent workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			eng := h.newWorkerEngine(workerID)
			snap := GenerateSnapshot(h.items, h.seed+int64(workerID))
			durations := make([]time.Duration, 0, syncsPerWorker)

			for j := 0; j < syncsPerWorker; j++ {
				snap.Items[j%len(snap.Items)].Name = fmt.Sprintf("Item %d pass %d", j%len(snap.Items), j)

				start := time.Now()
				result := eng.Sync(ctx, snap)
				durations = append(durations, time.Since(start))

				if result.Status != engine.StatusOK {
					errorsChan <- fmt.Errorf("worker %d sync %d ended %s: %v", workerID, j, result.Status, result.Err)
					return
				}
			}

			resultsChan <- durations
		}(i)
	}

	// Wait for all workers to complete
	wg.Wait()
	close(resultsChan)
	close(errorsChan)

	// Collect errors
	for err := range errorsChan {
		errorCount++
		h.logger.Printf("Error: %v", err)
	}

	// Collect all durations
	for durations := range resultsChan {
		allDurations = append(allDurations, durations...)
	}

	if len(allDurations) == 0 {
		return nil, fmt.Errorf("no successful syncs completed")
	}

	// Compute statistics
	stats := computeLatencyStats(allDurations)
	stats.Errors = errorCount

	return stats, nil
}

// newWorkerEngine assembles an isolated engine wired to the shared
// stub. Every worker creates its own spreadsheet on the first pass and
// reuses it afterwards, the way separate installations would.
func (h *Harness) newWorkerEngine(workerID int) *engine.Engine {
	store := handle.NewMemoryStore()
	gate := engine.NewAuthGate(stubConnector{}, "googlesheets", "ac_loadtest", h.logger)
	title := fmt.Sprintf("Load Test Canvas %d", workerID)
	locator := engine.NewResourceLocator(store, h.Sheets, title, "Canvas Items", h.logger)
	return engine.New(engine.Config{
		Gate:    gate,
		Locator: locator,
		Sheets:  h.Sheets,
		Tab:     "Canvas Items",
		Logger:  h.logger,
	})
}

// GenerateSnapshot creates a canvas snapshot with the specified number
// of items.
//
// The snapshot is populated with:
//   - Item kinds cycled across project, entity, note, chart
//   - Payload shapes matching what each kind renders (checklists for
//     projects, tag lists for entities, metric lists for charts)
//   - Stable "load-%05d" ids
//
// The same seed always produces the same snapshot.
func GenerateSnapshot(numItems int, seed int64) *canvas.Snapshot {
	// Use deterministic random for reproducibility
	rng := rand.New(rand.NewSource(seed))
	kinds := []canvas.ItemType{canvas.TypeProject, canvas.TypeEntity, canvas.TypeNote, canvas.TypeChart}

	snap := &canvas.Snapshot{
		GlobalTitle:       "Load Test Board",
		GlobalDescription: fmt.Sprintf("Synthetic canvas with %d items", numItems),
		Items:             make([]canvas.Item, numItems),
	}

	for i := 0; i < numItems; i++ {
		kind := kinds[i%len(kinds)]
		item := canvas.Item{
			ID:       fmt.Sprintf("load-%05d", i),
			Type:     kind,
			Name:     fmt.Sprintf("Item %d: %s", i, kind),
			Subtitle: fmt.Sprintf("batch-%d", i/25),
		}

		switch kind {
		case canvas.TypeProject:
			item.Data = map[string]any{
				"field1": fmt.Sprintf("milestone-%d", rng.Intn(10)),
				"field2": []any{
					map[string]any{"text": "design", "done": rng.Intn(2) == 0},
					map[string]any{"text": "build", "done": false},
					map[string]any{"text": "ship", "done": false},
				},
			}
		case canvas.TypeEntity:
			item.Data = map[string]any{
				"field1": fmt.Sprintf("owner-%d", rng.Intn(20)),
				"field2": []string{"synthetic", fmt.Sprintf("tier-%d", rng.Intn(3))},
			}
		case canvas.TypeNote:
			item.Data = map[string]any{
				"field1": fmt.Sprintf("Note body %d for load testing", rng.Intn(1000)),
			}
		case canvas.TypeChart:
			item.Data = map[string]any{
				"field1": []any{
					map[string]any{"label": "count", "value": rng.Intn(10000)},
					map[string]any{"label": "errors", "value": rng.Intn(100)},
				},
			}
		}

		snap.Items[i] = item
	}

	return snap
}

// computeLatencyStats calculates statistics from a slice of durations.
func computeLatencyStats(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return &LatencyStats{}
	}

	// Sort durations for percentile calculation
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	// Calculate mean
	var sum time.Duration
	for _, d := range durations {
		sum += d
	}
	mean := sum / time.Duration(len(durations))

	// Calculate percentiles
	p50 := sorted[len(sorted)*50/100]
	p95 := sorted[len(sorted)*95/100]
	p99 := sorted[len(sorted)*99/100]

	return &LatencyStats{
		Min:        sorted[0],
		Max:        sorted[len(sorted)-1],
		Mean:       mean,
		P50:        p50,
		P95:        p95,
		P99:        p99,
		TotalSyncs: len(durations),
		Durations:  sorted,
	}
}

// Report formats the statistics for terminal output.
func (s *LatencyStats) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Latency Statistics:\n")
	fmt.Fprintf(&b, "  Total Syncs:  %d\n", s.TotalSyncs)
	fmt.Fprintf(&b, "  Errors:       %d\n", s.Errors)
	fmt.Fprintf(&b, "  Min:          %v\n", s.Min)
	fmt.Fprintf(&b, "  P50 (Median): %v\n", s.P50)
	fmt.Fprintf(&b, "  Mean:         %v\n", s.Mean)
	fmt.Fprintf(&b, "  P95:          %v\n", s.P95)
	fmt.Fprintf(&b, "  P99:          %v\n", s.P99)
	fmt.Fprintf(&b, "  Max:          %v\n", s.Max)
	return b.String()
}
