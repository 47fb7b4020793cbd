package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"parishly/config"
	appointmentRepo "parishly/database/repository/appointment"
	ledgerRepo "parishly/database/repository/ledger"
	"parishly/services/appointment"
	"parishly/services/reschedule"
	"parishly/utils"

	"github.com/hibiken/asynq"
)

const (
	TypeExpirePending = "sweep:expire_pending"
	TypeReleaseHolds  = "sweep:release_holds"
	TypePurgeCounters = "sweep:purge_counters"
)

// counterRetentionDays is how long spent counters are kept after their
// occurrence date before garbage collection.
const counterRetentionDays = 60

// InitSweepWorker runs the background sweeps: expiring stale pending
// appointments, compensating abandoned reschedule holds, and garbage
// collecting old capacity counters.
func InitSweepWorker(
	appointmentSvc *appointment.Service,
	rescheduleSvc *reschedule.Orchestrator,
	appointments appointmentRepo.Repository,
	ledger ledgerRepo.Ledger,
) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeExpirePending, func(ctx context.Context, _ *asynq.Task) error {
		_, err := appointmentSvc.ExpirePending(ctx)
		return err
	})
	mux.HandleFunc(TypeReleaseHolds, func(ctx context.Context, _ *asynq.Task) error {
		_, err := rescheduleSvc.ReleaseStaleHolds(ctx)
		return err
	})
	mux.HandleFunc(TypePurgeCounters, func(ctx context.Context, _ *asynq.Task) error {
		cutoff := utils.FormatDate(time.Now().UTC().AddDate(0, 0, -counterRetentionDays))
		// Never drop a counter a live appointment still points at.
		active, err := appointments.HasActiveBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		if active {
			log.Printf("[SweepWorker] skipping counter purge: active appointments before %s", cutoff)
			return nil
		}
		purged, err := ledger.PurgeBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		if purged > 0 {
			log.Printf("[SweepWorker] purged %d spent capacity counters", purged)
		}
		return nil
	})

	interval := fmt.Sprintf("@every %dm", config.AppConfig.SweepIntervalMinutes)
	scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{Location: time.UTC})
	for _, taskType := range []string{TypeExpirePending, TypeReleaseHolds, TypePurgeCounters} {
		if _, err := scheduler.Register(interval, asynq.NewTask(taskType, nil)); err != nil {
			log.Fatalf("[SweepWorker] failed to register %s: %v", taskType, err)
		}
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			log.Fatalf("[SweepWorker] scheduler stopped: %v", err)
		}
	}()

	// Start the worker with retry logic.
	go func() {
		log.Println("[SweepWorker] starting sweep worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[SweepWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[SweepWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}
