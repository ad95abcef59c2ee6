package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hiring-pipeline/internal/api"
	"hiring-pipeline/internal/common/camunda"
	"hiring-pipeline/internal/common/config"
	ucs "hiring-pipeline/internal/workers/pipeline/update-candidate-stage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the candidate API and the stage worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		return serve(ctx, a)
	},
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg

	if w := startStageWorker(a); w != nil {
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.HTTP.ShutdownTimeout))
			defer cancel()
			w.Stop(stopCtx)
		}()
	}

	handler := api.NewRouter(api.NewAPI(a.svc, a.log), api.RouterOptions{SwaggerEnabled: cfg.HTTP.SwaggerEnabled})
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      handler,
		ReadTimeout:  config.GetDuration(cfg.HTTP.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.HTTP.WriteTimeout),
		IdleTimeout:  config.GetDuration(cfg.HTTP.IdleTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		a.zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr), zap.String("storage", cfg.Pipeline.Storage))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.zapLog.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.HTTP.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.zapLog.Error("HTTP server shutdown failed", zap.Error(err))
		return err
	}
	a.zapLog.Info("HTTP server stopped")
	return nil
}

func startStageWorker(a *app) *camunda.CamundaWorker {
	cfg := a.cfg
	if a.zeebe == nil || !cfg.Camunda.Enabled || !config.IsWorkerEnabled(cfg, ucs.TaskType) {
		return nil
	}

	wc := config.GetWorkerConfig(cfg, ucs.TaskType)
	if wc.MaxJobsActive == 0 {
		wc.MaxJobsActive = cfg.Camunda.MaxJobsActive
	}
	timeout := config.GetDuration(wc.Timeout)
	if timeout == 0 {
		timeout = config.GetDuration(cfg.Camunda.Timeout)
	}

	handler := ucs.NewHandler(ucs.LoadConfig(cfg), a.svc, a.obs, a.log)
	w := camunda.NewWorker(a.zeebe.GetClient(), camunda.WorkerOptions{
		TaskType:      ucs.TaskType,
		MaxJobsActive: wc.MaxJobsActive,
		Timeout:       timeout,
	}, handler, a.log)
	w.Start()
	return w
}
