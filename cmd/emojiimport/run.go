package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/emojiimport/internal/config"
	"github.com/JonMunkholm/emojiimport/internal/core"
	"github.com/JonMunkholm/emojiimport/internal/fetch"
	"github.com/JonMunkholm/emojiimport/internal/logging"
	"github.com/JonMunkholm/emojiimport/internal/metrics"
	"github.com/JonMunkholm/emojiimport/internal/storage"
	"github.com/JonMunkholm/emojiimport/internal/store"
)

// metricsPushTimeout bounds the final Pushgateway request.
const metricsPushTimeout = 10 * time.Second

// errFailures is returned with --fail-on-error when candidates failed.
var errFailures = errors.New("some emoji failed to import")

// sourceCmd builds the subcommand for one registered source.
func sourceCmd(def core.SourceDefinition, flags *runFlags) *cobra.Command {
	info := def.Info

	use := info.Key
	args := cobra.NoArgs
	switch {
	case info.Param != "" && info.ParamRequired:
		use += " <" + info.Param + ">"
		args = cobra.ExactArgs(1)
	case info.Param != "":
		use += " [" + info.Param + "]"
		args = cobra.MaximumNArgs(1)
	}

	return &cobra.Command{
		Use:     use,
		Short:   info.Label,
		Long:    info.Usage,
		GroupID: info.Group,
		Args:    args,
		RunE: func(cmd *cobra.Command, args []string) error {
			selector := ""
			if len(args) > 0 {
				selector = args[0]
			}
			return runImport(cmd, info.Key, selector, flags)
		},
	}
}

// runImport wires the deployment stack and runs one import.
func runImport(cmd *cobra.Command, sourceKey, selector string, flags *runFlags) error {
	runCfg, err := core.NewRunConfig(flags.options())
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrConfig, err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())
	slog.Debug("sources registered",
		"count", core.SourceCount(),
		"groups", len(core.SourceGroups()),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feedClient := fetch.New(fetch.Options{
		Timeout:   cfg.Fetch.FeedTimeout,
		MaxBytes:  cfg.Fetch.MaxBytes,
		UserAgent: cfg.Fetch.UserAgent,
	})
	imageClient := fetch.New(fetch.Options{
		Timeout:   cfg.Fetch.Timeout,
		MaxBytes:  cfg.Fetch.MaxBytes,
		UserAgent: cfg.Fetch.UserAgent,
	})

	// Build the source first so missing credentials fail before connecting.
	src, err := core.NewSource(sourceKey, core.SourceDeps{
		HTTP: feedClient,
		Credentials: core.Credentials{
			TwitchClientID:    cfg.Credentials.TwitchClientID,
			TwitchAccessToken: cfg.Credentials.TwitchAccessToken,
			SlackToken:        cfg.Credentials.SlackToken,
			DiscordBotToken:   cfg.Credentials.DiscordBotToken,
		},
	})
	if err != nil {
		return err
	}

	pool, err := connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	var storeOpts []store.Option
	if cfg.Storage.Enabled() {
		objects, err := storage.NewS3Client(storage.S3Config{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			Bucket:          cfg.Storage.Bucket,
			ForcePathStyle:  cfg.Storage.PathStyle,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", core.ErrConfig, err)
		}
		storeOpts = append(storeOpts, store.WithObjectStore(objects, cfg.Storage.Prefix))
	}
	registry := store.NewPostgres(pool, storeOpts...)

	if cfg.Database.AutoMigrate && !runCfg.DryRun() {
		if err := registry.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	recorder := metrics.NewRecorder(sourceKey)
	importer := core.NewImporter(registry, imageClient, runCfg,
		core.WithObserver(recorder.Observe),
		core.WithItemTimeout(cfg.Fetch.Timeout),
	)

	report, runErr := importer.Run(ctx, sourceKey, src, selector)
	finishedAt := time.Now()

	if report != nil && (runErr == nil || len(report.Results) > 0) {
		printReport(cmd.OutOrStdout(), report)
	}

	recorder.ObserveRun(report, runErr == nil, finishedAt)
	if count, err := registry.Count(context.WithoutCancel(ctx)); err != nil {
		slog.Warn("failed to count registry", "error", err)
	} else {
		recorder.SetRegistrySize(count)
	}
	if cfg.Metrics.Enabled() {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsPushTimeout)
		defer cancel()
		if err := recorder.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			slog.Warn("failed to push metrics", "error", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	if flags.failOnError && report.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", errFailures, report.Failed, report.Candidates)
	}
	return nil
}

// connect opens and verifies the registry connection pool.
func connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse database URL: %v", core.ErrConfig, err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
