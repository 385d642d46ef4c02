package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/avatar-interview/backend/internal/config"
	"github.com/zhouzirui/avatar-interview/backend/internal/handler"
	avatarModel "github.com/zhouzirui/avatar-interview/backend/internal/model/avatar"
	avatarService "github.com/zhouzirui/avatar-interview/backend/internal/service/avatar"
	"github.com/zhouzirui/avatar-interview/backend/internal/service/interview"
	"github.com/zhouzirui/avatar-interview/backend/internal/service/notify"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	avatars := avatarModel.NewMemoryStore(avatarModel.Seed())

	sessions := interview.NewService(
		interview.WithRetention(cfg.Session.Retention),
		interview.WithSubscriberBuffer(cfg.Session.EventBuffer),
	)
	defer sessions.Close()
	log.Printf("session retention window: %s", sessions.RetentionWindow())

	// 令牌签发是可选的，未配置时会话照常创建但不返回 accessToken
	var tokens avatarService.TokenIssuer
	if cfg.Avatar.Enabled() {
		tokens = avatarService.NewClient(avatarService.Config{
			APIKey:  cfg.Avatar.APIKey,
			BaseURL: cfg.Avatar.BaseURL,
			Timeout: cfg.Avatar.Timeout,
		}, nil)
		log.Println("avatar token issuer initialized")
	} else {
		log.Println("HEYGEN_API_KEY 未配置，跳过访问令牌签发")
	}

	notifier := notify.NewClient(notify.Config{
		StartedURL: cfg.Notify.StartedURL,
		EndedURL:   cfg.Notify.EndedURL,
		UserAgent:  cfg.Notify.UserAgent,
		Timeout:    cfg.Notify.Timeout,
		MaxRetries: cfg.Notify.MaxRetries,
	}, nil)
	if cfg.Notify.StartedURL == "" && cfg.Notify.EndedURL == "" {
		log.Println("n8n webhook 未配置，自动通知将被跳过")
	}

	router := handler.NewRouter(handler.Deps{
		Sessions:       sessions,
		Avatars:        avatars,
		Tokens:         tokens,
		Notifier:       notifier,
		AllowedOrigins: cfg.Server.AllowedOrigins,

		// 默认关闭：开启后调用方可让服务端向任意地址发起 POST
		AllowWebhookOverride: cfg.Notify.AllowURLOverride,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("avatar interview backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Printf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
