// Package worker runs recompute commands taken from the message queue and
// publishes the ones the ledger produces.
package worker

import (
	"context"
	"errors"
	"fmt"

	"moneybook/internal/amqp"
	"moneybook/internal/core"
	"moneybook/internal/log"
	"moneybook/internal/services"
)

// RecomputeWorker refreshes budget and goal caches on request.
type RecomputeWorker struct {
	recompute *services.Recomputer
	log       *log.Logger
}

func NewRecomputeWorker(recompute *services.Recomputer, logger *log.Logger) *RecomputeWorker {
	if logger == nil {
		logger = log.Default()
	}
	return &RecomputeWorker{
		recompute: recompute,
		log:       logger.WithComponent(log.ComponentWorker),
	}
}

// permanentError marks failures that redelivery cannot fix, such as a
// command for a budget that has since been deleted.
type permanentError struct{ err error }

func (e permanentError) Error() string   { return e.err.Error() }
func (e permanentError) Unwrap() error   { return e.err }
func (e permanentError) Permanent() bool { return true }

// HandleRecomputeMessage processes a single recompute message from AMQP
func (w *RecomputeWorker) HandleRecomputeMessage(ctx context.Context, msg *amqp.RecomputeMessage) error {
	logger := log.FromContext(ctx)
	logger.InfoContext(ctx, "Processing recompute message",
		"target", msg.Target,
		"id", msg.ID)

	cmd := services.Command{Target: services.Target(msg.Target), ID: msg.ID}
	if err := w.recompute.Run(ctx, cmd); err != nil {
		if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrValidation) {
			return permanentError{err}
		}
		return err
	}
	return nil
}

// RecomputeAll refreshes every budget and goal. It is the backup path for
// commands lost while the worker was down, and runs once at startup.
func (w *RecomputeWorker) RecomputeAll(ctx context.Context) error {
	cmds, err := w.recompute.All(ctx)
	if err != nil {
		return fmt.Errorf("list recompute targets: %w", err)
	}
	if len(cmds) == 0 {
		w.log.InfoContext(ctx, "No budgets or goals to recompute")
		return nil
	}

	failed := 0
	for _, cmd := range cmds {
		if err := w.recompute.Run(ctx, cmd); err != nil {
			w.log.LogError(ctx, "Failed to recompute", err, log.NewFields().WithOperation(log.OpRecompute))
			failed++
		}
	}

	w.log.InfoContext(ctx, "Recompute sweep completed",
		"total", len(cmds),
		"errors", failed)
	return nil
}

// Publisher is the queue side of a QueueDispatcher.
type Publisher interface {
	PublishRecompute(ctx context.Context, target string, id int64) (string, error)
}

// QueueDispatcher sends recompute commands to the worker through AMQP
// instead of running them in the writing process.
type QueueDispatcher struct {
	pub Publisher
}

func NewQueueDispatcher(pub Publisher) *QueueDispatcher {
	return &QueueDispatcher{pub: pub}
}

// Dispatch publishes every command and reports all failures together.
func (d *QueueDispatcher) Dispatch(ctx context.Context, cmds ...services.Command) error {
	var errs []error
	for _, cmd := range cmds {
		if _, err := d.pub.PublishRecompute(ctx, string(cmd.Target), cmd.ID); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", cmd, err))
		}
	}
	return errors.Join(errs...)
}

var _ services.Dispatcher = (*QueueDispatcher)(nil)
