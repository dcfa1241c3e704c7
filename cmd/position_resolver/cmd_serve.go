package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"position_resolver/internal/infrastructure/restapi"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the positions API over HTTP",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	app, err := newApplication(rootFlags.configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := restapi.NewPositionHandler(app.resolver, app.logger)
	router := restapi.SetupRouter(handler, app.zapLogger)

	srv := &http.Server{
		Addr:         ":" + app.cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(app.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(app.cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(app.cfg.Server.IdleTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		app.zapLogger.Info(fmt.Sprintf("Server starting on port %s", app.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	app.zapLogger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		app.zapLogger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	app.zapLogger.Info("Server exiting")
	return nil
}
