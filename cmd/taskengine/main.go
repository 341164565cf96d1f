package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tarbeev/taskengine/internal/bot"
	"github.com/tarbeev/taskengine/internal/config"
	"github.com/tarbeev/taskengine/internal/repository"
	"github.com/tarbeev/taskengine/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	tagRepo := repository.NewTagRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	taskSvc := service.NewTaskService(taskRepo, tagRepo)
	subtaskSvc := service.NewSubtaskService(taskRepo)
	recurSvc := service.NewRecurrenceService(taskRepo)
	lifecycleSvc := service.NewLifecycleService(taskRepo)
	tagSvc := service.NewTagService(tagRepo)
	summarySvc := service.NewSummaryService(taskSvc)

	telegramBot, err := bot.New(cfg.TelegramToken, userRepo, taskSvc, subtaskSvc, recurSvc, lifecycleSvc, tagSvc, summarySvc, &cfg)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	scheduler := service.NewSchedulerService(time.Local)

	if _, err := scheduler.ScheduleInterval(cfg.PurgeInterval, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		cutoff := time.Now().Add(-cfg.TrashRetention())
		purged, err := lifecycleSvc.PurgeExpired(jobCtx, cutoff)
		if err != nil {
			log.Printf("purge trash: %v", err)
			return
		}
		if purged > 0 {
			log.Printf("[info] purged %d expired tasks", purged)
		}
	}); err != nil {
		log.Fatalf("schedule purge: %v", err)
	}

	if _, err := scheduler.ScheduleDaily(cfg.SummaryTime, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := telegramBot.SendDailySummaries(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("daily summaries: %v", err)
		}
	}); err != nil {
		log.Fatalf("schedule summaries: %v", err)
	}

	scheduler.Start()
	defer scheduler.Stop()

	log.Println("Task engine bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
