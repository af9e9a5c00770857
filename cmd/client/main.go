package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"socialvibe/internal/adapters/gateway"
	"socialvibe/internal/adapters/pushws"
	"socialvibe/internal/app"
	"socialvibe/internal/domain"
	"socialvibe/internal/infra/config"
	httpinfra "socialvibe/internal/infra/http"
	logpkg "socialvibe/internal/infra/log"
	"socialvibe/internal/infra/metrics"
	"socialvibe/internal/infra/storage"
)

func main() {
	cfg := config.Load()
	logger := logpkg.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state, closeState, err := storage.Open(ctx, storage.Options{
		Backend:     cfg.State.Backend,
		Path:        cfg.State.Path,
		RedisAddr:   cfg.State.RedisAddr,
		RedisPrefix: cfg.State.RedisPrefix,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("client: не удалось открыть локальное состояние")
	}
	defer closeState()

	gw, err := gateway.New(cfg.Backend.URL, cfg.Backend.APIPrefix,
		gateway.WithTimeout(cfg.Backend.HTTPTimeout),
		gateway.WithLogger(logpkg.Component(logger, "gateway")))
	if err != nil {
		logger.Fatal().Err(err).Msg("client: некорректный адрес бэкенда")
	}
	var cookies []*http.Cookie
	if ok, err := state.Load(ctx, domain.NamespaceCookies, &cookies); err == nil && ok {
		gw.SetCookies(cookies)
	}

	client := app.New(gw, state, cfg.FeedPageSize, logger)
	current, err := client.Start(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			logger.Fatal().Msg("client: нет действующей сессии, выполните `feedctl login`")
		}
		logger.Fatal().Err(err).Msg("client: проверка сессии не удалась")
	}
	logger.Info().Str("user_id", current.UserID).Str("role", current.Role.String()).Msg("client: сессия подтверждена")

	push := pushws.New(gw.BaseURL(), pushws.Config{
		Reconnect:      cfg.Push.Reconnect,
		InitialBackoff: cfg.Push.InitialBackoff,
		MaxBackoff:     cfg.Push.MaxBackoff,
		MaxElapsed:     cfg.Push.MaxElapsed,
		Buffer:         cfg.Push.Buffer,
		Jar:            gw.Jar(),
	}, logger)

	server := httpinfra.NewServer(logpkg.Component(logger, "http"))
	server.Router.Group(func(r chi.Router) {
		r.Use(httpinfra.TokenMiddleware(cfg.HTTPToken))
		mountState(r, client, push)
	})

	go func() {
		if err := server.Start(cfg.HTTPAddr); err != nil {
			logger.Error().Err(err).Msg("client: HTTP сервер остановлен")
			stop()
		}
	}()

	go func() {
		err := client.RunPush(ctx, push)
		switch {
		case pushws.IsChannelFailure(err):
			logger.Warn().Err(err).Msg("client: push-канал закрыт, уведомления не приходят до перезапуска")
		case err != nil:
			logger.Error().Err(err).Msg("client: push-канал не запущен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("client: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	if err := state.Save(shutdownCtx, domain.NamespaceCookies, gw.Cookies()); err != nil {
		logger.Warn().Err(err).Msg("client: cookie сессии не сохранены")
	}
}

// mountState публикует состояние хранилищ для слоя представления.
func mountState(r chi.Router, client *app.Client, push *pushws.Channel) {
	r.Get("/api/v1/session", func(w http.ResponseWriter, r *http.Request) {
		httpinfra.WriteJSON(w, http.StatusOK, client.Session.GetUser())
	})

	r.Get("/api/v1/profile", func(w http.ResponseWriter, r *http.Request) {
		profile, err := client.Profile(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		httpinfra.WriteJSON(w, http.StatusOK, profile)
	})

	r.Get("/api/v1/relationships", func(w http.ResponseWriter, r *http.Request) {
		httpinfra.WriteJSON(w, http.StatusOK, map[string]any{
			"following":         client.Relationships.GetFollowing(),
			"followers":         client.Relationships.GetFollower(),
			"following_fetched": client.Relationships.FollowingFetched(),
			"followers_fetched": client.Relationships.FollowerFetched(),
		})
	})

	r.Get("/api/v1/posts", func(w http.ResponseWriter, r *http.Request) {
		httpinfra.WriteJSON(w, http.StatusOK, map[string]any{
			"posts":   client.OwnPosts.GetPosts(),
			"fetched": client.OwnPosts.Fetched(),
		})
	})

	r.Get("/api/v1/feed", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("next") != "" {
			if _, err := client.Feed.NextPage(r.Context()); err != nil {
				writeDomainError(w, err)
				return
			}
		}
		httpinfra.WriteJSON(w, http.StatusOK, map[string]any{
			"posts":    client.Feed.Posts(),
			"has_more": client.Feed.HasMore(),
		})
	})

	r.Get("/api/v1/notifications", func(w http.ResponseWriter, r *http.Request) {
		httpinfra.WriteJSON(w, http.StatusOK, client.Notifications.GetPosts())
	})

	r.Post("/api/v1/notifications/{authorID}/dismiss", func(w http.ResponseWriter, r *http.Request) {
		client.Notifications.FilterPost(chi.URLParam(r, "authorID"))
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/api/v1/celebrities/{id}", func(w http.ResponseWriter, r *http.Request) {
		page, err := client.OpenCelebrity(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		httpinfra.WriteJSON(w, http.StatusOK, page)
	})

	r.Get("/api/v1/push", func(w http.ResponseWriter, r *http.Request) {
		httpinfra.WriteJSON(w, http.StatusOK, map[string]string{"state": push.State().String()})
	})
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbiddenRole), errors.Is(err, domain.ErrUnknownRole):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrMissingID):
		status = http.StatusBadRequest
	}
	httpinfra.WriteError(w, status, err.Error())
}
