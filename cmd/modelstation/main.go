package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"modelstation/internal/bus"
	"modelstation/internal/config"
	"modelstation/internal/httpapi"
	"modelstation/internal/installer"
	"modelstation/internal/mapping"
	"modelstation/internal/modeldownload"
	"modelstation/internal/notify"
	"modelstation/internal/reconciler"
	"modelstation/internal/supervisor"
)

func main() {
	logger := log.New(os.Stdout, "modelstation ", log.LstdFlags|log.LUTC)

	cfgStore := config.NewStore()

	mapStore := &mapping.Store{
		Root:           env("SHARED_MODELS_ROOT", "/workspace/shared_models"),
		Hidden:         envBool("MAKE_MAPPING_FILES_HIDDEN"),
		AllowSeedWrite: envBool("LOCAL_DEBUG"),
	}

	b := bus.New(logger)
	b.StartHeartbeat()

	sup := supervisor.New(logger, b)
	sup.StartReaper()

	inst := installer.New(logger, b, cfgStore)

	notifier, err := notify.New(logger)
	if err != nil {
		logger.Printf("telegram notifier disabled: %v", err)
	} else if notifier != nil {
		inst.Notifier = notifier
	}

	rec := reconciler.New(mapStore, b, logger, envBool("DISABLE_PULLBACK_MODELS"))

	var downloader modeldownload.Downloader // left unwired: catalog access is out of scope

	srv := httpapi.New(cfgStore, mapStore, sup, inst, rec, b, downloader, logger)

	ctx, cancelReconcile := context.WithCancel(context.Background())
	srv.StartReconcilerTicker(ctx)

	httpSrv := &http.Server{
		Addr:              env("LISTEN_ADDR", ":8188"),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	logger.Printf("shutting down...")
	cancelReconcile()
	sup.StopSupervisor()
	b.Stop()
	_ = httpSrv.Close()
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes"
}
