package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/portsense/portsense/internal/ai"
	"github.com/portsense/portsense/internal/alerting"
	"github.com/portsense/portsense/internal/api"
	"github.com/portsense/portsense/internal/hub"
	"github.com/portsense/portsense/internal/metrics"
	"github.com/portsense/portsense/internal/monitor"
	"github.com/portsense/portsense/internal/notifier"
	"github.com/portsense/portsense/internal/storage"
	"github.com/portsense/portsense/internal/tracking"
	"github.com/portsense/portsense/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "portsense",
	Short: "PortSense - container tracking and alerting server",
	Long: `PortSense monitors shipping containers through an external tracking
provider, raises alerts on delays and anomalies, and delivers them over
email, SMS, and webhooks.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("portsense %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
		if cfg.Tracking.BaseURL == "" {
			return fmt.Errorf("a config file with tracking.base_url is required (use --config)")
		}
	}

	if httpAddr != "" {
		cfg.Server.Address = httpAddr
	}
	cfg.Verbose = verbose

	log := newLogger(cfg.Verbose)

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Storage
	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Info().Str("path", cfg.Database.Path).Msg("database initialized")

	// Rule engine with optional operator overrides
	engine := alerting.NewEngine(alerting.DefaultRules(), log)

	done := make(chan struct{})
	defer close(done)

	if cfg.Rules.OverridesFile != "" {
		watcher := alerting.NewOverrideWatcher(cfg.Rules.OverridesFile, engine, log)
		if err := watcher.Watch(done); err != nil {
			return fmt.Errorf("rule overrides: %w", err)
		}
	}

	// Message enrichment
	var generator ai.TextGenerator = ai.Disabled{}
	if cfg.AI.Enabled {
		g, err := ai.NewOpenAIGenerator(ai.OpenAIConfig{
			APIKey:  cfg.AI.APIKey,
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
		})
		if err != nil {
			return fmt.Errorf("ai generator: %w", err)
		}
		generator = g
	}

	alertService := alerting.NewService(engine, store, generator, log)

	// Tracking provider
	provider, err := tracking.NewClient(tracking.ClientConfig{
		BaseURL:   cfg.Tracking.BaseURL,
		APIKey:    cfg.Tracking.APIKey,
		Timeout:   mustDuration(cfg.Tracking.Timeout),
		RateLimit: rate.Limit(cfg.Tracking.RateLimit),
		Burst:     cfg.Tracking.Burst,
	})
	if err != nil {
		return fmt.Errorf("tracking client: %w", err)
	}

	// Notification channels
	channels, err := buildChannels(cfg)
	if err != nil {
		return err
	}
	dispatcher := notifier.NewDispatcherWithRateLimit(notifier.RateLimitConfig{
		MaxPerWindow: cfg.Notifications.MaxPerMinute,
		Window:       time.Minute,
		Enabled:      true,
	}, log, channels...)

	// Broadcast hub and monitoring cycle
	eventHub := hub.New(log)
	defer eventHub.Close()

	runner := monitor.NewRunner(store, provider, alertService, dispatcher, eventHub, log)
	sweeper := notifier.NewProcessor(store, dispatcher, log)

	// HTTP API
	apiServer, err := api.New(&api.Config{
		Address: cfg.Server.Address,
		Verbose: cfg.Verbose,
	}, store, engine, runner, eventHub, log)
	if err != nil {
		return fmt.Errorf("api server: %w", err)
	}
	apiServer.SetPinger(store.DB())

	metricsServer := metrics.NewServer(cfg.Server.MetricsAddress, log)

	// Signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	log.Info().Str("version", config.Version).Msg("starting portsense")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return apiServer.Run(gctx)
	})

	g.Go(func() error {
		go func() {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsServer.Shutdown(shutdownCtx)
		}()
		return metricsServer.Start()
	})

	// Monitoring cycle ticker
	g.Go(func() error {
		interval := mustDuration(cfg.Monitor.Interval)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if _, err := runner.RunCycle(gctx); err != nil && err != monitor.ErrCycleRunning {
					log.Error().Err(err).Msg("scheduled cycle failed")
				}
			}
		}
	})

	// Notification retry sweep
	g.Go(func() error {
		ticker := time.NewTicker(mustDuration(cfg.Monitor.SweepInterval))
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if _, err := sweeper.ProcessPending(gctx); err != nil && gctx.Err() == nil {
					log.Error().Err(err).Msg("retry sweep failed")
				}
			}
		}
	})

	// Daily history retention purge
	g.Go(func() error {
		retention := time.Duration(cfg.Monitor.RetentionDays) * 24 * time.Hour
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				removed, err := store.History().DeleteBefore(gctx, time.Now().Add(-retention))
				if err != nil {
					log.Error().Err(err).Msg("history purge failed")
					continue
				}
				log.Info().Int64("removed", removed).Msg("history purge complete")
			}
		}
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// buildChannels assembles the enabled notification channels from config.
func buildChannels(cfg *Config) ([]notifier.Channel, error) {
	var channels []notifier.Channel

	if cfg.Notifications.Email.Enabled {
		email, err := notifier.NewEmailChannel(notifier.EmailConfig{
			Host:     cfg.Notifications.Email.Host,
			Port:     cfg.Notifications.Email.Port,
			Username: cfg.Notifications.Email.Username,
			Password: cfg.Notifications.Email.Password,
			From:     cfg.Notifications.Email.From,
			AppURL:   cfg.Notifications.Email.AppURL,
		})
		if err != nil {
			return nil, fmt.Errorf("email channel: %w", err)
		}
		channels = append(channels, email)
	}

	if cfg.Notifications.SMS.Enabled {
		sms, err := notifier.NewSMSChannel(notifier.SMSConfig{
			AccountSID: cfg.Notifications.SMS.AccountSID,
			AuthToken:  cfg.Notifications.SMS.AuthToken,
			FromNumber: cfg.Notifications.SMS.FromNumber,
		})
		if err != nil {
			return nil, fmt.Errorf("sms channel: %w", err)
		}
		channels = append(channels, sms)
	}

	// Webhook delivery is always available; the per-user URL decides
	// whether it fires.
	channels = append(channels, notifier.NewWebhookChannel())

	return channels, nil
}
