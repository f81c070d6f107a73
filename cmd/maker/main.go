package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/makerbot/config"
	"github.com/alejandrodnm/makerbot/internal/adapters/binance"
	"github.com/alejandrodnm/makerbot/internal/adapters/dryrun"
	"github.com/alejandrodnm/makerbot/internal/adapters/notify"
	"github.com/alejandrodnm/makerbot/internal/adapters/onchain"
	"github.com/alejandrodnm/makerbot/internal/adapters/polymarket"
	"github.com/alejandrodnm/makerbot/internal/adapters/storage"
	"github.com/alejandrodnm/makerbot/internal/maker"
	"github.com/alejandrodnm/makerbot/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	live := flag.Bool("live", false, "trade with real money (default: dry-run)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	// Dry-run por defecto: solo el flag -live habilita dinero real, y aun
	// así el YAML o DRY_RUN=true pueden forzar dry-run.
	if !*live {
		cfg.Safety.DryRun = true
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	slog.Info("makerbot starting",
		"config", *configPath,
		"symbol", cfg.Market.Symbol,
		"duration", cfg.Market.DurationClass,
		"spread_bps", cfg.Quoting.SpreadBPS,
		"requote_interval", cfg.RequoteInterval(),
		"dry_run", cfg.Safety.DryRun,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	gamma := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)

	feed := binance.NewFeed(binance.Config{
		URL:    cfg.API.BinanceWS,
		Symbol: cfg.Market.Symbol,
	})

	var executor ports.OrderExecutor
	if cfg.Safety.DryRun {
		executor = dryrun.NewExecutor(cfg.Safety.InitialCapital, 0)
	} else {
		executor = buildLiveExecutor(ctx, cfg)
		if executor == nil {
			return // buildLiveExecutor ya logueó; aborted by user
		}
	}

	notifier := notify.NewConsole(cfg.Safety.DryRun)

	engine := maker.New(feed, gamma, executor, store, notifier, maker.Config{
		Keyword:              cfg.Market.Keyword,
		DurationClass:        cfg.Market.DurationClass,
		SpreadBPS:            cfg.Quoting.SpreadBPS,
		MinEdgeBPS:           cfg.Quoting.MinEdgeBPS,
		PositionSize:         cfg.Quoting.PositionSize,
		RequoteInterval:      cfg.RequoteInterval(),
		PriceChangeThreshold: cfg.Quoting.PriceChangeThreshold,
		MaxDailyLoss:         cfg.Safety.MaxDailyLoss,
		MaxDailyTrades:       cfg.Safety.MaxDailyTrades,
		DryRun:               cfg.Safety.DryRun,
	})

	if err := engine.Run(ctx); err != nil {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("makerbot stopped cleanly")
}

// buildLiveExecutor autentica contra el CLOB, verifica los approvals
// on-chain y comprueba el balance antes de permitir trading real.
// Devuelve nil si el usuario abortó durante la ventana de confirmación.
func buildLiveExecutor(ctx context.Context, cfg *config.Config) ports.OrderExecutor {
	slog.Info("=== LIVE TRADING MODE (REAL MONEY) ===",
		"position_size", cfg.Quoting.PositionSize,
		"max_daily_loss", cfg.Safety.MaxDailyLoss,
		"max_daily_trades", cfg.Safety.MaxDailyTrades,
	)

	fmt.Printf("\n⚠️  LIVE TRADING MODE — REAL MONEY WILL BE SPENT\n")
	fmt.Printf("   Position size: %.0f shares/side | Max daily loss: $%.2f\n",
		cfg.Quoting.PositionSize, cfg.Safety.MaxDailyLoss)
	fmt.Printf("   Press Ctrl+C within 5 seconds to abort...\n\n")

	abortTimer := time.NewTimer(5 * time.Second)
	select {
	case <-abortTimer.C:
	case <-ctx.Done():
		slog.Info("live trading aborted by user")
		return nil
	}

	authClient, err := polymarket.NewAuthClient(cfg.API.CLOBBase, cfg.API.GammaBase, cfg.PrivateKey)
	if err != nil {
		slog.Error("failed to create auth client", "err", err)
		os.Exit(1)
	}

	if err := authClient.EnsureCreds(ctx); err != nil {
		slog.Error("failed to derive API credentials — check POLY_PRIVATE_KEY", "err", err)
		os.Exit(1)
	}
	slog.Info("live: authenticated with Polymarket CLOB", "address", authClient.Address())

	allowances, err := onchain.NewAllowanceClient(cfg.API.PolygonRPC, cfg.PrivateKey)
	if err != nil {
		slog.Error("failed to create allowance client", "err", err)
		os.Exit(1)
	}

	slog.Info("live: checking on-chain approvals...")
	if err := allowances.EnsureApprovals(ctx); err != nil {
		slog.Error("failed to ensure on-chain approvals", "err", err)
		os.Exit(1)
	}
	slog.Info("live: all approvals verified")

	trading := polymarket.NewTradingClient(authClient)

	balance, err := trading.GetBalance(ctx)
	if err != nil {
		slog.Error("failed to get CLOB balance", "err", err)
		os.Exit(1)
	}
	slog.Info("live: CLOB balance", "usdc", fmt.Sprintf("$%.2f", balance))

	if balance < cfg.Quoting.PositionSize {
		slog.Error("insufficient CLOB balance",
			"balance", fmt.Sprintf("$%.2f", balance),
			"required", fmt.Sprintf("$%.2f", cfg.Quoting.PositionSize))
		os.Exit(1)
	}

	return trading
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
