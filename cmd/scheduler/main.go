package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"qotw-bot/internal/adapters/discord"
	"qotw-bot/internal/app"
	"qotw-bot/internal/infra/config"
	"qotw-bot/internal/infra/log"
	"qotw-bot/internal/infra/metrics"
	"qotw-bot/internal/usecase/reminder"
	"qotw-bot/internal/usecase/submissions"
)

func main() {
	runNow := flag.Bool("run-now", false, "выполнить напоминание один раз и выйти")
	flag.Parse()

	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv, "scheduler")
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: не удалось поднять инфраструктуру")
	}
	defer infra.Close()

	// Джобе нужен только REST, поэтому websocket-сессия не открывается.
	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: не удалось создать клиент Discord")
	}
	gateway := discord.NewGateway(session)
	dispatcher := app.NewDispatcher(cfg, gateway, logger)
	job := reminder.NewJob(infra.Guilds, submissions.NewStore(gateway, infra.Guilds), dispatcher, infra.Guard, logger)

	if *runNow {
		job.Execute(ctx)
		dispatcher.Wait()
		return
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(cfg.QOTW.ReminderCron, func() { job.Execute(ctx) }); err != nil {
		logger.Fatal().Err(err).Str("cron", cfg.QOTW.ReminderCron).Msg("scheduler: некорректное расписание")
	}
	metrics.StartServer(ctx, logger, cfg.HTTPAddr)
	c.Start()
	logger.Info().Str("cron", cfg.QOTW.ReminderCron).Msg("scheduler: запущен")

	<-ctx.Done()
	<-c.Stop().Done()
	dispatcher.Wait()
	logger.Info().Msg("scheduler: остановлен")
}
