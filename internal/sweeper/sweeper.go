// Package sweeper runs the periodic maintenance loop: retention cleanup and
// stale-agent recovery. The store itself has no internal timers; this is
// the sweep loop callers are expected to run, packaged as a daemon.
package sweeper

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/corvid-labs/waggle/internal/config"
	"github.com/corvid-labs/waggle/internal/memory"
	"github.com/corvid-labs/waggle/internal/messaging"
	"github.com/corvid-labs/waggle/internal/notify"
	"github.com/corvid-labs/waggle/internal/task"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Opts holds parameters for running the sweeper.
type Opts struct {
	DB     *gorm.DB
	Sweep  config.SweepConfig
	Notify *notify.Fanout // optional
	Out    io.Writer      // optional progress output
}

// Run executes the maintenance loop until ctx is cancelled. Each fire of the
// configured cron schedule runs one sweep.
func Run(ctx context.Context, opts Opts) error {
	if opts.DB == nil {
		return fmt.Errorf("sweeper: db is required")
	}
	sched, err := cronParser.Parse(opts.Sweep.Schedule)
	if err != nil {
		return fmt.Errorf("sweeper: parse schedule %q: %w", opts.Sweep.Schedule, err)
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	fmt.Fprintf(opts.Out, "Sweeper starting (schedule %q)...\n", opts.Sweep.Schedule)
	for {
		next := sched.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			fmt.Fprintf(opts.Out, "Sweeper stopped.\n")
			return nil
		case <-timer.C:
		}
		if err := Sweep(opts.DB, opts.Sweep, opts.Notify, opts.Out); err != nil {
			log.Printf("sweeper: sweep error: %v", err)
		}
	}
}

// Sweep performs one maintenance pass: expired messages, retention cleanup,
// and stale-agent recovery.
func Sweep(db *gorm.DB, cfg config.SweepConfig, notifier *notify.Fanout, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	expired, err := messaging.CleanupExpired(db)
	if err != nil {
		return fmt.Errorf("sweeper: expired messages: %w", err)
	}

	oldMsgs, err := messaging.CleanupOld(db, cfg.MessageRetentionD)
	if err != nil {
		return fmt.Errorf("sweeper: old messages: %w", err)
	}

	oldTasks, err := task.CleanupOld(db, cfg.TaskRetentionD)
	if err != nil {
		return fmt.Errorf("sweeper: old tasks: %w", err)
	}

	oldMemory, err := memory.CleanupOld(db, cfg.MemoryRetentionD)
	if err != nil {
		return fmt.Errorf("sweeper: old memory: %w", err)
	}

	recovered, err := RecoverStaleAgents(db, time.Duration(cfg.StaleAfterS)*time.Second, notifier)
	if err != nil {
		return fmt.Errorf("sweeper: stale agents: %w", err)
	}

	if expired+oldMsgs+oldTasks+oldMemory > 0 || recovered > 0 {
		fmt.Fprintf(out, "Sweep: %d expired msgs, %d old msgs, %d old tasks, %d old memory entries, %d stale agents\n",
			expired, oldMsgs, oldTasks, oldMemory, recovered)
	}
	return nil
}
