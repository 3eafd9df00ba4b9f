package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"qotw-bot/internal/adapters/bot"
	"qotw-bot/internal/adapters/discord"
	"qotw-bot/internal/app"
	"qotw-bot/internal/infra/config"
	httpinfra "qotw-bot/internal/infra/http"
	"qotw-bot/internal/infra/log"
	"qotw-bot/internal/infra/metrics"
	"qotw-bot/internal/usecase/points"
	"qotw-bot/internal/usecase/questions"
	"qotw-bot/internal/usecase/submissions"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv, "bot-gateway")
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось поднять инфраструктуру")
	}
	defer infra.Close()

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать сессию Discord")
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	gateway := discord.NewGateway(session)
	dispatcher := app.NewDispatcher(cfg, gateway, logger)
	questionService := questions.NewService(infra.Questions, logger)
	ledger := points.NewLedger(infra.Accounts, logger)
	manager := submissions.NewManager(submissions.Deps{
		Store:     submissions.NewStore(gateway, infra.Guilds),
		Gateway:   gateway,
		Questions: questionService,
		Ledger:    ledger,
		Notifier:  dispatcher,
		Mirror:    discord.NewMirror(gateway, cfg.Discord.WebhookName),
		Guard:     infra.Guard,
		Queue:     infra.Queue,
		Guilds:    infra.Guilds,
		GuardTTL:  cfg.QOTW.GuardTTL,
	}, logger)

	h := bot.NewHandler(session, logger, questionService, manager, ledger, gateway, infra.Guilds)
	session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		h.HandleInteraction(ctx, i)
	})

	if err := session.Open(); err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключиться к Discord")
	}
	defer session.Close()

	if cfg.Discord.ApplicationID != "" {
		for _, guild := range infra.Guilds.Guilds() {
			start := time.Now()
			_, err := session.ApplicationCommandBulkOverwrite(cfg.Discord.ApplicationID, guild.GuildID, bot.ApplicationCommands())
			metrics.ObserveNetworkRequest("discord", "commands_register", guild.GuildID, start, err)
			if err != nil {
				logger.Error().Err(err).Str("guild_id", guild.GuildID).Msg("не удалось зарегистрировать команды")
			}
		}
	}

	populator := submissions.NewPopulator(infra.Queue, manager.Populate, cfg.QOTW.PopulateWorkers, logger)
	srv := httpinfra.NewServer(logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return populator.Run(gctx) })
	g.Go(func() error { return srv.Start(cfg.HTTPAddr) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	logger.Info().Int("guilds", len(infra.Guilds.Guilds())).Msg("бот-гейтвей запущен")
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("бот-гейтвей остановлен с ошибкой")
	}
	manager.Wait()
	dispatcher.Wait()
	logger.Info().Msg("остановка бота")
}
