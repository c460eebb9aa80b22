package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/tiptop/backend/internal/logger"
	"go.uber.org/zap"
)

// LedgerRepairer creates ledgers for accounts that signed up without one.
// *repository.LedgerRepository satisfies it.
type LedgerRepairer interface {
	RepairMissing(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron     *cron.Cron
	repairer LedgerRepairer
	spec     string
	sweepers []sweeper
}

type sweeper struct {
	spec  string
	name  string
	sweep func() int
}

func NewScheduler(repairer LedgerRepairer, repairSpec string) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		repairer: repairer,
		spec:     repairSpec,
	}
}

// AddSweep registers a cleanup function that reports how many entries it
// removed. It must be called before Start.
func (s *Scheduler) AddSweep(spec, name string, sweep func() int) {
	s.sweepers = append(s.sweepers, sweeper{spec: spec, name: name, sweep: sweep})
}

// Start schedules every job and runs one ledger repair right away.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RepairLedgers(ctx) }); err != nil {
		return fmt.Errorf("invalid ledger repair schedule %q: %w", s.spec, err)
	}

	for _, sw := range s.sweepers {
		if _, err := s.cron.AddFunc(sw.spec, func() {
			if n := sw.sweep(); n > 0 {
				logger.Log.Debug("[CRON] Sweep finished", zap.String("job", sw.name), zap.Int("removed", n))
			}
		}); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", sw.name, sw.spec, err)
		}
	}

	s.RepairLedgers(ctx)
	s.cron.Start()
	logger.Log.Info("Scheduler started", zap.String("ledger_repair", s.spec), zap.Int("sweepers", len(s.sweepers)))
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Log.Info("Scheduler stopped")
}

// RepairLedgers runs one repair pass and returns how many ledgers it created.
func (s *Scheduler) RepairLedgers(ctx context.Context) int64 {
	n, err := s.repairer.RepairMissing(ctx)
	if err != nil {
		logger.Log.Error("[CRON] Ledger repair failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		logger.Log.Warn("[CRON] Created missing ledgers", zap.Int64("count", n))
	}
	return n
}
