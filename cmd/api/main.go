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

	"phaengine/adapters/api"
	"phaengine/adapters/filewatch"
	"phaengine/app"
	"phaengine/internal/config"
	"phaengine/internal/container"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	c, err := container.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer c.Shutdown(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ws, err := c.Workspace(ctx, os.Getenv("WORKSPACE_NAME"))
	if err != nil {
		log.Fatalf("Failed to load workspace: %v", err)
	}
	reader := app.NewReaderService(ws, c.Display())

	if path := cfg.Paths.WorkspaceFile; path != "" {
		w, err := filewatch.New(path, cfg.Server.ReloadDebounce, func(p string) error {
			next, err := c.OpenFile(p)
			if err != nil {
				return err
			}
			reader.Swap(next)
			return nil
		}, c.Log)
		if err != nil {
			log.Fatalf("Failed to watch %s: %v", path, err)
		}
		go w.Run(ctx)
	}

	server := api.NewServer(reader, api.NewMetrics(), c.Log)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Log.Info("serving workspace %s on %s", ws.Name(), srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.Log.Error("shutdown: %v", err)
	}
	c.Log.Info("server stopped")
}
