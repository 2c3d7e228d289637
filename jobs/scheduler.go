package jobs

import (
	"log"

	"lms/config"
	"lms/database"
	courseModels "lms/models/course"
	"lms/services/progress"

	"github.com/robfig/cron/v3"
)

// InitializeRecalcScheduler sets up the nightly reconciliation sweep. The
// synchronous trigger path keeps enrollments consistent on its own; the sweep
// is a safety net that re-aggregates active enrollments in case a trigger was
// lost to a transient failure.
func InitializeRecalcScheduler() {
	log.Println("[RECALC-SCHEDULER] Initializing recalculation scheduler...")

	c := cron.New()

	spec := "0 3 * * *"
	if config.AppConfig != nil && config.AppConfig.RecalcCronSpec != "" {
		spec = config.AppConfig.RecalcCronSpec
	}

	if _, err := c.AddFunc(spec, ReconcileActiveEnrollments); err != nil {
		log.Printf("[RECALC-SCHEDULER] Invalid cron spec %q: %v", spec, err)
		return
	}

	c.Start()
	log.Printf("[RECALC-SCHEDULER] Recalculation scheduler started with spec %q", spec)
}

// ReconcileActiveEnrollments re-runs the aggregator over every live,
// non-retired enrollment that is not yet completed.
func ReconcileActiveEnrollments() {
	db := database.Database.Db
	if db == nil {
		return
	}

	var ids []uint
	if err := db.Model(&courseModels.Enrollment{}).
		Where("is_deleted = ? AND is_retired = ? AND status <> ?", false, false, courseModels.EnrollmentCompleted).
		Pluck("id", &ids).Error; err != nil {
		log.Printf("[RECALC-SCHEDULER] Error listing enrollments: %v", err)
		return
	}

	if len(ids) == 0 {
		return
	}

	log.Printf("[RECALC-SCHEDULER] Reconciling %d enrollments...", len(ids))
	results := progress.RecalculateBatch(db, ids)

	failed := 0
	for _, err := range results {
		if err != nil {
			failed++
		}
	}
	log.Printf("[RECALC-SCHEDULER] Reconciliation done: %d processed, %d failed", len(results), failed)
}
