package worker

import (
	"time"
)

// ArchiveWorker periodically moves ledger entries older than the retention
// window into the archive table. Entries are moved, never deleted, so the
// ledger stays complete while the hot table stays small.
func (wk *Worker) ArchiveWorker() {
	interval := wk.Config.Ledger.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-wk.Ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -wk.Config.Ledger.RetentionDays)

			moved, err := wk.DB.Transaction().ArchiveOlderThan(cutoff)
			if err != nil {
				wk.Logger.Error("ledger archive sweep", "error", err)
				continue
			}

			if moved > 0 {
				wk.Logger.Info("ledger archive sweep", "moved", moved, "cutoff", cutoff)
			}
		}
	}
}
