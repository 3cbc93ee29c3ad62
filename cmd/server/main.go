package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"bridge/internal/auth"
	"bridge/internal/clock"
	"bridge/internal/config"
	"bridge/internal/engine"
	"bridge/internal/gateway"
	"bridge/internal/httpapi"
	"bridge/internal/llm"
	"bridge/internal/notify"
	"bridge/internal/scheduler"
	"bridge/internal/service"
	"bridge/internal/store"
	"bridge/internal/workspace"
)

func main() {
	config.LoadFiles(config.Files...)
	cfg := config.FromEnv()

	host := flag.String("host", cfg.Host, "server listen host, e.g. 0.0.0.0")
	port := flag.Int("port", cfg.Port, "server listen port, e.g. 8080")
	flag.Parse()
	cfg.Host = strings.TrimSpace(*host)
	cfg.Port = *port

	st, err := store.NewByEngine(store.Options{
		Engine:     cfg.StoreEngine,
		Path:       cfg.DataFile,
		RedisAddr:  cfg.RedisAddr,
		QuotaBytes: cfg.StoreQuotaBytes,
	})
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}
	if closer, ok := st.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Printf("store close failed: %v", err)
			}
		}()
	}

	notifier := initNotifier(cfg)
	if n, ok := notifier.(*notify.NATSNotifier); ok {
		defer n.Close()
	}
	clk := clock.System{}

	var gen gateway.Generator
	if client := initLLMClient(cfg); client != nil {
		gen = client
		log.Printf("generation enabled")
	} else {
		log.Printf("generation disabled, every call will use its fallback")
	}
	gw := gateway.New(gen, gateway.Config{TextTimeout: cfg.TextTimeout, ImageTimeout: cfg.ImageTimeout})

	ws := workspace.New(st, notifier)
	eng := engine.New(ws, gw, clk)
	svc := service.New(ws, gw, clk)
	svc.SetRefresher(eng)

	authSvc, err := auth.NewService(st, sessionSecret(cfg), cfg.SessionTTL, clk)
	if err != nil {
		log.Fatalf("init auth failed: %v", err)
	}

	sched, err := scheduler.New(eng, notify.NewReminder(ws, notifier), scheduler.Config{
		RefreshSpec:  cfg.RefreshSpec,
		ReminderSpec: cfg.ReminderSpec,
	})
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	sched.Start()

	handler := httpapi.NewHandler(svc, authSvc, gw)
	router := httpapi.NewRouter(handler)

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sched.Stop(shutdownCtx)
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown failed: %v", err)
		}
	}()

	log.Printf("the bridge backend listening on %s store=%s", server.Addr, cfg.StoreEngine)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
}

func initLLMClient(cfg config.Config) *llm.Client {
	if cfg.GeminiAPIKey == "" {
		log.Printf("llm key missing: BRIDGE_GEMINI_API_KEY is empty")
		return nil
	}
	llmCfg := llm.Config{
		BaseURL:    cfg.GeminiBaseURL,
		APIKey:     cfg.GeminiAPIKey,
		TextModel:  cfg.TextModel,
		ImageModel: cfg.ImageModel,
	}
	log.Printf("llm init config: base=%s text_model=%s image_model=%s key_meta={%s}",
		llmCfg.BaseURL, llmCfg.TextModel, llmCfg.ImageModel, config.SafeKeyMeta(llmCfg.APIKey))

	client, err := llm.NewClient(llmCfg)
	if err != nil {
		log.Printf("init llm client failed: %v", err)
		return nil
	}
	return client
}

func initNotifier(cfg config.Config) notify.Notifier {
	if cfg.NATSURL == "" {
		return notify.LogNotifier{}
	}
	n, err := notify.NewNATSNotifier(notify.NATSConfig{URL: cfg.NATSURL, Subject: cfg.NATSSubject})
	if err != nil {
		log.Printf("nats notifier unavailable, falling back to log: url=%s err=%v", cfg.NATSURL, err)
		return notify.LogNotifier{}
	}
	log.Printf("nats notifier enabled: subject=%s", cfg.NATSSubject)
	return n
}

// sessionSecret falls back to a per-process secret, which invalidates every
// session on restart.
func sessionSecret(cfg config.Config) string {
	if strings.TrimSpace(cfg.JWTSecret) != "" {
		return cfg.JWTSecret
	}
	log.Printf("BRIDGE_JWT_SECRET is empty, using an ephemeral session secret")
	return uuid.NewString()
}
