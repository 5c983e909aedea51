package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"garagehub/config"
	"garagehub/models"
	"garagehub/services/reminder"
)

const TypeReminderSweep = "reminder:sweep"

func redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSweepQueueDB,
	}
}

// InitReminderWorker runs the async worker in the background. It consumes
// the hourly sweep tasks; the sweep itself carries its own hour lock, so a
// duplicate task is harmless.
func InitReminderWorker(sweeper *reminder.Sweeper, logger *zap.Logger) {
	srv := asynq.NewServer(
		redisOpts(),
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReminderSweep, handleSweepTask(sweeper, logger))

	go func() {
		logger.Info("starting reminder worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				logger.Error("reminder worker failed to start",
					zap.Int("attempt", attempts), zap.Error(err))

				if attempts == maxAttempts {
					log.Fatal("reminder worker: max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

// InitReminderScheduler enqueues a sweep task every hour.
func InitReminderScheduler(logger *zap.Logger) {
	scheduler := asynq.NewScheduler(redisOpts(), &asynq.SchedulerOpts{
		Location: time.UTC,
	})

	task := asynq.NewTask(TypeReminderSweep, nil)
	if _, err := scheduler.Register("@every 1h", task); err != nil {
		log.Fatalf("failed to register reminder sweep schedule: %v", err)
	}

	go func() {
		logger.Info("starting reminder scheduler")
		if err := scheduler.Run(); err != nil {
			log.Fatalf("reminder scheduler stopped: %v", err)
		}
	}()
}

func handleSweepTask(sweeper *reminder.Sweeper, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		now := time.Now().UTC()
		if len(task.Payload()) > 0 {
			var p models.ReminderPayload
			if err := json.Unmarshal(task.Payload(), &p); err == nil && p.FiredAt != "" {
				if fired, err := time.Parse(time.RFC3339, p.FiredAt); err == nil {
					now = fired
				}
			}
		}

		report, err := sweeper.RunSweep(ctx, now)
		if err != nil {
			logger.Error("reminder sweep failed", zap.Error(err))
			return err
		}
		logger.Info("reminder sweep task done",
			zap.Int("selected", report.Selected),
			zap.Int("sent", report.Sent))
		return nil
	}
}
