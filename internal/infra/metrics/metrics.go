package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	QuestionsEnqueued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qotw_questions_enqueued_total",
		Help: "Вопросы, добавленные в очередь",
	})
	QuestionsActivated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qotw_questions_activated_total",
		Help: "Активации вопросов по результату",
	}, []string{"result"})

	SubmissionTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qotw_submission_transitions_total",
		Help: "Переходы сессий ответа",
	}, []string{"transition"})
	SubmissionsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qotw_submissions_rejected_total",
		Help: "Отклонённые команды по причине",
	}, []string{"reason"})

	PopulateTasks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qotw_populate_tasks_total",
		Help: "Задачи наполнения тредов по результату",
	}, []string{"result"})
	PopulateLag = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "qotw_populate_lag_seconds",
		Help:    "Задержка между открытием сессии и наполнением треда",
		Buckets: prometheus.DefBuckets,
	})

	PointsAwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qotw_points_awarded_total",
		Help: "Начисленные баллы",
	})

	MirrorFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qotw_mirror_failures_total",
		Help: "Ошибки копирования принятых ответов в витрину",
	})

	NotificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qotw_notifications_total",
		Help: "Доставка уведомлений по типу и статусу",
	}, []string{"kind", "sink", "status"})

	ReminderRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qotw_reminder_guilds_total",
		Help: "Результаты проверки сообществ джобой напоминаний",
	}, []string{"result"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		QuestionsEnqueued,
		QuestionsActivated,
		SubmissionTransitions,
		SubmissionsRejected,
		PopulateTasks,
		PopulateLag,
		PointsAwarded,
		MirrorFailures,
		NotificationsSent,
		ReminderRuns,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveTransition учитывает переход сессии.
func ObserveTransition(transition string) {
	SubmissionTransitions.WithLabelValues(transition).Inc()
}

// ObserveRejection учитывает отказ в команде.
func ObserveRejection(reason string) {
	SubmissionsRejected.WithLabelValues(reason).Inc()
}

// ObserveNotification учитывает попытку доставки уведомления.
func ObserveNotification(kind, sink string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	NotificationsSent.WithLabelValues(kind, sink, status).Inc()
}
