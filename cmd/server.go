package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"college-records/internal/api/router"
	"college-records/internal/config"
	"college-records/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	port          string
	migrateOnBoot bool
)

// serverCmd represents the serve command
var serverCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the HTTP API",
	Long: `Start the HTTP API for attendance, marks, enrollment repair and the
administrative reconciliation jobs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startServer()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVarP(&port, "port", "p", "", "Port for the server to listen on (overrides server.port)")
	serverCmd.Flags().BoolVar(&migrateOnBoot, "migrate", false, "Apply pending migrations before serving")
}

func startServer() error {
	cfg := config.Get()
	if port != "" {
		cfg.Server.Port = port
	}

	a, err := newApp(context.Background(), cfg, migrateOnBoot)
	if err != nil {
		logger.Error("Failed to initialize application: %v", err)
		return err
	}
	defer a.Close()

	r := router.NewRouter(a.services)

	srv := &http.Server{
		Addr:           cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:        r,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("Failed to start server: %v", err)
			return err
		}
	case <-quit:
	}

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown: %v", err)
		return err
	}

	logger.Info("Server exited")
	return nil
}
