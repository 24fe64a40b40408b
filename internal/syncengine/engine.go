// Package syncengine drains the offline mutation queue against the remote
// store whenever connectivity returns. Drains are serialized: one pass runs
// at a time, and a trigger that lands mid-pass schedules one follow-up pass
// instead of a concurrent one.
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/jacksonmacedok2-maker/Venda-flow/internal/netstatus"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/queue"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/remote"
	"github.com/jacksonmacedok2-maker/Venda-flow/pkg/logger"
	"github.com/jacksonmacedok2-maker/Venda-flow/pkg/telemetry"
)

// ReplayFunc applies one queued mutation against the remote store.
type ReplayFunc func(ctx context.Context, item queue.Item) error

// ErrNoReplayer is the dead-letter reason for kinds nothing registered for.
var ErrNoReplayer = errors.New("no replayer registered")

// Report summarizes one completed drain pass.
type Report struct {
	Replayed     int       `json:"replayed"`
	Remaining    int       `json:"remaining"`
	DeadLettered int       `json:"dead_lettered"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Status is the engine's externally visible state.
type Status struct {
	Syncing    bool   `json:"syncing"`
	LastReport Report `json:"last_report"`
}

// Config bounds retry behavior.
type Config struct {
	// MaxAttempts retires an item to the dead-letter list once its attempt
	// count reaches it. Zero means retry forever.
	MaxAttempts int
}

// Engine owns the drain loop.
type Engine struct {
	queue   *queue.Queue
	monitor *netstatus.Monitor
	cfg     Config
	log     *logger.Logger

	replayed     *telemetry.Counter
	deadLettered *telemetry.Counter
	queueDepth   *telemetry.Gauge

	mu        sync.Mutex
	replayers map[queue.Kind]ReplayFunc
	syncing   bool
	rerun     bool
	last      Report
}

// New builds an engine and subscribes it to connectivity changes: the
// offline-to-online transition kicks off a drain.
func New(q *queue.Queue, monitor *netstatus.Monitor, cfg Config, log *logger.Logger) (*Engine, error) {
	replayed, err := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "sync.items.replayed",
		Description: "Queued mutations confirmed by the remote store",
		Unit:        "{item}",
	})
	if err != nil {
		return nil, err
	}
	deadLettered, err := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "sync.items.dead_lettered",
		Description: "Queued mutations retired after rejection or retry exhaustion",
		Unit:        "{item}",
	})
	if err != nil {
		return nil, err
	}
	queueDepth, err := telemetry.NewGauge(telemetry.MetricOpts{
		Name:        "sync.queue.depth",
		Description: "Mutations still waiting for replay",
		Unit:        "{item}",
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		queue:        q,
		monitor:      monitor,
		cfg:          cfg,
		log:          log,
		replayed:     replayed,
		deadLettered: deadLettered,
		queueDepth:   queueDepth,
		replayers:    make(map[queue.Kind]ReplayFunc),
	}
	monitor.Subscribe(func(online bool) {
		if !online {
			return
		}
		go func() {
			if err := e.DrainNow(context.Background()); err != nil {
				e.log.Error("drain after reconnect failed", zap.Error(err))
			}
		}()
	})
	return e, nil
}

// Register installs the replayer for a mutation kind. Later registrations
// for the same kind replace earlier ones.
func (e *Engine) Register(kind queue.Kind, fn ReplayFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.replayers[kind] = fn
}

// Status returns whether a drain is running and the last pass's report.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{Syncing: e.syncing, LastReport: e.last}
}

// Start kicks off a drain for mutations left over from a previous run when
// the process comes up already online. The monitor's subscribers only fire
// on transitions, so without this a queue persisted before a restart would
// sit until connectivity flapped. Call it after replayers are registered.
func (e *Engine) Start(ctx context.Context) {
	if !e.monitor.Online() {
		return
	}
	go func() {
		if err := e.DrainNow(ctx); err != nil {
			e.log.Error("startup drain failed", zap.Error(err))
		}
	}()
}

// DrainNow runs a drain pass, or schedules a follow-up pass when one is
// already running. Items enqueued mid-pass stay in the log (the pass
// compacts by id rather than overwriting) and drain on the next pass.
func (e *Engine) DrainNow(ctx context.Context) error {
	e.mu.Lock()
	if e.syncing {
		e.rerun = true
		e.mu.Unlock()
		return nil
	}
	e.syncing = true
	e.mu.Unlock()

	for {
		report, err := e.drainOnce(ctx)

		e.mu.Lock()
		if err == nil {
			e.last = report
		}
		again := e.rerun && err == nil
		e.rerun = false
		if !again {
			e.syncing = false
		}
		e.mu.Unlock()

		if !again {
			return err
		}
	}
}

// drainOnce replays the queue front to back. Transient failures keep the
// item (with its attempt count bumped) so relative order of survivors is
// preserved; rejections and exhausted items move to the dead-letter list.
func (e *Engine) drainOnce(ctx context.Context) (Report, error) {
	if !e.monitor.Online() {
		n, err := e.queue.Len(ctx)
		if err != nil {
			return Report{}, err
		}
		return Report{Remaining: n, FinishedAt: time.Now().UTC()}, nil
	}

	items, err := e.queue.Items(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load queue: %w", err)
	}
	if len(items) == 0 {
		return Report{FinishedAt: time.Now().UTC()}, nil
	}

	e.log.Info("drain pass started", zap.Int("queued", len(items)))

	// Processed ids leave the log; survivors go back with bumped attempt
	// counts. Anything not in either set (items enqueued while this pass
	// ran, or the tail skipped on cancellation) is left untouched.
	var report Report
	processed := make([]string, 0, len(items))
	survivors := make([]queue.Item, 0, len(items))

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}

		e.mu.Lock()
		replay, ok := e.replayers[item.Kind]
		e.mu.Unlock()
		if !ok {
			if dlErr := e.retire(ctx, item, ErrNoReplayer.Error()); dlErr != nil {
				return Report{}, dlErr
			}
			processed = append(processed, item.ID)
			report.DeadLettered++
			continue
		}

		err := replay(ctx, item)
		switch {
		case err == nil:
			processed = append(processed, item.ID)
			report.Replayed++
			e.replayed.Inc(ctx, attribute.String("kind", string(item.Kind)))

		case !remote.IsRetryable(err):
			e.log.Warn("mutation rejected, retiring",
				zap.String("item_id", item.ID),
				zap.String("kind", string(item.Kind)),
				zap.Error(err))
			if dlErr := e.retire(ctx, item, err.Error()); dlErr != nil {
				return Report{}, dlErr
			}
			processed = append(processed, item.ID)
			report.DeadLettered++

		default:
			item.Attempts++
			if e.cfg.MaxAttempts > 0 && item.Attempts >= e.cfg.MaxAttempts {
				e.log.Warn("mutation exhausted retries, retiring",
					zap.String("item_id", item.ID),
					zap.String("kind", string(item.Kind)),
					zap.Int("attempts", item.Attempts),
					zap.Error(err))
				if dlErr := e.retire(ctx, item, fmt.Sprintf("gave up after %d attempts: %v", item.Attempts, err)); dlErr != nil {
					return Report{}, dlErr
				}
				processed = append(processed, item.ID)
				report.DeadLettered++
			} else {
				survivors = append(survivors, item)
			}
		}
	}

	remaining, err := e.queue.Compact(ctx, processed, survivors)
	if err != nil {
		return Report{}, fmt.Errorf("compact queue: %w", err)
	}

	report.Remaining = remaining
	report.FinishedAt = time.Now().UTC()
	e.queueDepth.Record(ctx, int64(report.Remaining))

	e.log.Info("drain pass finished",
		zap.Int("replayed", report.Replayed),
		zap.Int("remaining", report.Remaining),
		zap.Int("dead_lettered", report.DeadLettered))
	return report, nil
}

func (e *Engine) retire(ctx context.Context, item queue.Item, reason string) error {
	if err := e.queue.AddDeadLetter(ctx, item, reason); err != nil {
		return fmt.Errorf("retire item %s: %w", item.ID, err)
	}
	e.deadLettered.Inc(ctx, attribute.String("kind", string(item.Kind)))
	return nil
}
