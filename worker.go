// Periodic background worker driving GC and Save (§5: "a separate
// periodic worker drives gc() and save() at configured intervals").
//
// The lifecycle — a context.CancelFunc stored on the struct, plain
// `go func()` loops selecting on ctx.Done(), Close calling cancel() —
// mirrors edirooss-zmux-server's processmgr.ProcessManager
// (internal/infrastructure/processmgr/process_manager.go): Start
// derives a cancelable context and spawns a raw goroutine per
// supervised unit, Stop calls p.cancel(). This worker adds a
// sync.WaitGroup so Close can block until both loops have actually
// exited, rather than returning the instant cancel() is called.
package alexdb

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Worker periodically calls Store.GC and Store.Save.
type Worker struct {
	store *Store

	gcInterval   time.Duration
	saveInterval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WorkerConfig configures a Worker's tick intervals.
type WorkerConfig struct {
	GCInterval   time.Duration
	SaveInterval time.Duration
}

// DefaultWorkerConfig matches spec scenario 6's cadence of a save
// trigger checked far more often than it actually fires.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		GCInterval:   30 * time.Second,
		SaveInterval: 10 * time.Second,
	}
}

// NewWorker builds a Worker bound to store. Call Start to begin
// ticking and Close to stop.
func NewWorker(store *Store, cfg WorkerConfig) *Worker {
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = DefaultWorkerConfig().GCInterval
	}
	if cfg.SaveInterval <= 0 {
		cfg.SaveInterval = DefaultWorkerConfig().SaveInterval
	}
	return &Worker{store: store, gcInterval: cfg.GCInterval, saveInterval: cfg.SaveInterval}
}

// Start launches the GC and Save loops. It is safe to call Close
// without ever calling Start.
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(2)

	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.gcInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.store.GC()
			}
		}
	}()

	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.saveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.store.Save(); err != nil {
					w.store.logger.Warn("periodic save failed", zap.Error(err))
				}
			}
		}
	}()
}

// Close stops the worker's loops and waits for both to exit.
func (w *Worker) Close() error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	w.wg.Wait()
	return nil
}
