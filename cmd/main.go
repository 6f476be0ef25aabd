package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"panorama/internal/auth"
	"panorama/internal/configuration"
	"panorama/internal/export"
	"panorama/internal/report"
	"panorama/internal/runlog"
	"panorama/internal/score"
	"panorama/internal/score/rule"
	"panorama/internal/server"
	"panorama/internal/store/fixture"
	"panorama/internal/store/mysql"
	"panorama/internal/store/postgres"
)

// prepareLogger installs a JSON slog logger on stdout as the default logger.
// Unknown levels fall back to info.
func prepareLogger(level string) {
	var logLevel slog.Level

	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)
}

// openSource connects the configured report source. The returned function
// releases it.
func openSource(ctx context.Context, config configuration.DatabaseConfig) (report.Source, func(), error) {
	switch config.Driver {
	case configuration.DriverPostgres:
		store, err := postgres.New(ctx, config.URL)
		if err != nil {
			return nil, nil, err
		}
		if config.EnsureSchema {
			if err := store.EnsureSchema(ctx); err != nil {
				store.Close()
				return nil, nil, err
			}
		}
		return store, store.Close, nil
	case configuration.DriverMySQL:
		store, err := mysql.New(ctx, config.URL)
		if err != nil {
			return nil, nil, err
		}
		if config.EnsureSchema {
			if err := store.EnsureSchema(ctx); err != nil {
				store.Close()
				return nil, nil, err
			}
		}
		return store, store.Close, nil
	case configuration.DriverFixture:
		store, err := fixture.LoadFromFile(config.Fixture)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported driver '%s'", config.Driver)
}

// Any failure while loading the configuration, the rules or the report source
// terminates the process with code 1.
func main() {
	configPath := flag.String("config", "/etc/panorama/config.yaml", "configuration file")
	issueFor := flag.String("issue-token", "", "print an access token for the tenant and exit")
	flag.Parse()
	config, err := configuration.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Unable to load configuration", "error", err)
		os.Exit(1)
	}
	prepareLogger(config.Logger.Level)

	authManager := auth.NewManager(config.Auth.Secret, config.Auth.TokenTTL)
	if *issueFor != "" {
		token, err := authManager.Issue(*issueFor, "cli")
		if err != nil {
			slog.Error("Unable to issue token", "error", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	appCtx, appCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer appCancel()

	rules, err := rule.LoadFromFile(config.Report.Rules, rule.NewEnv)
	if err != nil {
		slog.Error("Unable to load rules", "error", err)
		os.Exit(1)
	}

	source, closeSource, err := openSource(appCtx, config.Database)
	if err != nil {
		slog.Error("Unable to open report source", "driver", config.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer closeSource()

	runs := runlog.NewRepository(config.RunLog.Length, config.RunLog.TTL)
	go runs.Serve()

	var sink export.Sink = export.Discard{}
	if config.Export.File != "" {
		sink = export.NewJSONLSink(config.Export.File, config.Export.Size, config.Export.Amount)
	}

	reports := report.NewService(source, score.Options{
		Threshold: config.Report.Threshold,
		Limit:     config.Report.Limit,
	}, rules)

	srv := server.NewServer(
		config.Server.Address,
		config.Server.ReadTimeout,
		config.Server.WriteTimeout,
		server.NewApiV1Router(reports, runs, sink, authManager),
	)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			appCancel()
		}
	}()
	slog.Info("Server listening " + config.Server.Address)
	<-appCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second*10)
	defer shutdownCancel()

	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		slog.Error("Server shutdown", "error", err)
	}
	slog.Info("Server stopped")

	runs.Stop()
	sink.Close()
}
