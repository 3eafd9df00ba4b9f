package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"qotw-bot/internal/app"
	"qotw-bot/internal/domain"
	"qotw-bot/internal/infra/config"
	httpinfra "qotw-bot/internal/infra/http"
	"qotw-bot/internal/infra/log"
	"qotw-bot/internal/infra/metrics"
	"qotw-bot/internal/usecase/points"
	"qotw-bot/internal/usecase/questions"
)

type leaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Points int64  `json:"points"`
}

type currentQuestion struct {
	GuildID        string     `json:"guild_id"`
	QuestionNumber int        `json:"question_number"`
	Text           string     `json:"text"`
	ActivatedAt    *time.Time `json:"activated_at,omitempty"`
}

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv, "api")
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось поднять инфраструктуру")
	}
	defer infra.Close()
	if cfg.APIToken == "" {
		logger.Warn().Msg("api: API_TOKEN не задан, эндпоинты открыты")
	}

	ledger := points.NewLedger(infra.Accounts, logger)
	questionService := questions.NewService(infra.Questions, logger)

	srv := httpinfra.NewServer(logger)
	srv.Router.Group(func(protected chi.Router) {
		protected.Use(httpinfra.TokenAuthMiddleware(cfg.APIToken))

		protected.Get("/api/v1/qotw/leaderboard", func(w http.ResponseWriter, r *http.Request) {
			limit := 10
			if raw := r.URL.Query().Get("limit"); raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil || n <= 0 {
					httpinfra.WriteError(w, http.StatusBadRequest, "limit must be a positive number")
					return
				}
				limit = n
			}
			top, err := ledger.Leaderboard(r.Context(), limit)
			if err != nil {
				logger.Error().Err(err).Msg("api: не удалось получить лидеров")
				httpinfra.WriteError(w, http.StatusInternalServerError, "internal error")
				return
			}
			out := make([]leaderboardEntry, 0, len(top))
			for i, acc := range top {
				out = append(out, leaderboardEntry{Rank: i + 1, UserID: acc.UserID, Points: acc.Points})
			}
			httpinfra.WriteJSON(w, http.StatusOK, out)
		})

		protected.Get("/api/v1/qotw/guilds/{guildID}/current", func(w http.ResponseWriter, r *http.Request) {
			guildID := chi.URLParam(r, "guildID")
			q, err := questionService.Current(r.Context(), guildID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				httpinfra.WriteError(w, http.StatusNotFound, "no active question")
				return
			case err != nil:
				logger.Error().Err(err).Str("guild_id", guildID).Msg("api: не удалось получить текущий вопрос")
				httpinfra.WriteError(w, http.StatusInternalServerError, "internal error")
				return
			}
			httpinfra.WriteJSON(w, http.StatusOK, currentQuestion{
				GuildID:        q.GuildID,
				QuestionNumber: q.QuestionNumber,
				Text:           q.Text,
				ActivatedAt:    q.ActivatedAt,
			})
		})
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("api: ошибка остановки")
		}
	}()

	if err := srv.Start(cfg.HTTPAddr); err != nil {
		logger.Fatal().Err(err).Msg("api: HTTP сервер остановлен")
	}
}
