package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/resolvd/resolvd/internal/config"
	"github.com/resolvd/resolvd/internal/control"
	"github.com/resolvd/resolvd/internal/decision"
	"github.com/resolvd/resolvd/internal/events"
	"github.com/resolvd/resolvd/internal/notify"
	"github.com/resolvd/resolvd/internal/provider"
	"github.com/resolvd/resolvd/internal/router"
	"github.com/resolvd/resolvd/internal/sink"
	"github.com/resolvd/resolvd/internal/store"
	"github.com/resolvd/resolvd/internal/strategy"
)

var (
	runVerbose bool
	runDryRun  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the auto-resolution daemon",
	RunE:  runDaemon,
}

func init() {
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Enable debug logging")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Decline every notification instead of resolving it")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.Normalize()
	if runDryRun {
		cfg.Resolver.DryRun = true
	}

	level := slog.LevelInfo
	if runVerbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	printHeader("Resolvd Daemon")
	if cfg.Sink.BaseURL == "" {
		return fmt.Errorf("sink.baseUrl is not configured")
	}

	st, err := store.New(cfg.Store.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	sweeper := store.NewSweeper(st, cfg.Store.SweepInterval())

	var llm provider.LLMProvider
	if cfg.Provider.APIKey != "" {
		llm = provider.NewOpenAIProvider(cfg.Provider.APIKey, cfg.Provider.APIBase, cfg.Provider.Model)
	}
	script := strategy.NewScriptMatcher(cfg.Resolver.Scripts, cfg.Resolver.AcceptedSenders, cfg.Resolver.MinScore)
	rules := strategy.NewRuleTable(cfg.Resolver.Rules, cfg.Resolver.AcceptedSenders)
	fallback := strategy.NewCloudFallback(llm, cfg.Provider.Model, cfg.Resolver.AcceptedSenders)
	chain := strategy.ForMode(cfg.Resolver.Mode, script, rules, fallback)

	snk := sink.NewClient(cfg.Sink.BaseURL, cfg.Sink.AuthToken,
		time.Duration(cfg.Sink.TimeoutSeconds)*time.Second)

	rt := router.New(router.Options{
		Chain:           chain,
		Sink:            snk,
		Store:           st,
		AcceptedSenders: cfg.Resolver.AcceptedSenders,
		DryRun:          cfg.Resolver.DryRun,
		Verbose:         runVerbose,
	})
	// The recorder runs first so the lifecycle mirror exists before the
	// router records its response against it.
	handlers := []events.Handler{store.NewRecorder(st), rt}

	var gate *decision.Gate
	if cfg.Decision.Enabled {
		ratifier := decision.NewRatifier(st)
		var notifier decision.Notifier
		if cfg.Notify.SlackBotToken != "" {
			sn, err := notify.NewSlackNotifier(cfg.Notify.SlackBotToken, cfg.Notify.SlackChannel, cfg.Notify.SlackAPIBase)
			if err != nil {
				return fmt.Errorf("slack notifier: %w", err)
			}
			notifier = sn
		}
		domain := cfg.Decision.Domain
		if domain == "" {
			domain = "notifications"
		}
		gate = decision.NewGate(decision.GateOptions{
			Strategy:        decision.NewKeywordClassifier(domain, cfg.Decision.Categories),
			Sink:            snk,
			Store:           st,
			Ratifier:        ratifier,
			Notifier:        notifier,
			TrustMode:       cfg.Decision.TrustMode,
			TrustLevels:     cfg.Decision.TrustLevels,
			DefaultTrust:    cfg.Decision.DefaultTrust,
			AcceptedSenders: cfg.Resolver.AcceptedSenders,
			DryRun:          cfg.Resolver.DryRun,
			RatifyTimeout:   cfg.Decision.RatifyTimeout(),
		})
		handlers = append(handlers, gate)
	}

	consumer := events.NewKafkaConsumer(
		strings.Join(cfg.Transport.Brokers, ","),
		cfg.Transport.GroupID,
		[]string{cfg.Transport.Topic},
	)
	loop := events.NewLoop(consumer, cfg.Transport.Workers, handlers...)
	ctrl := control.NewServer(cfg.Control.Addr, cfg.Control.AuthToken, rt, gate, st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		sig := <-sigChan
		slog.Info("Shutting down", "signal", sig.String())
		cancel()
	}()

	go sweeper.Run(ctx)
	go func() {
		if err := ctrl.Run(ctx); err != nil {
			slog.Error("Control API failed", "error", err)
		}
	}()

	slog.Info("Daemon started",
		"mode", cfg.Resolver.Mode, "dry_run", cfg.Resolver.DryRun,
		"trust_gate", cfg.Decision.Enabled, "topic", cfg.Transport.Topic)

	err = loop.Run(ctx)
	_ = consumer.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
