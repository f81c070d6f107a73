package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Market  MarketConfig  `yaml:"market"`
	Quoting QuotingConfig `yaml:"quoting"`
	Safety  SafetyConfig  `yaml:"safety"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`

	// PrivateKey viene solo del .env, nunca del YAML.
	PrivateKey string `yaml:"-"`
}

// MarketConfig identifica el mercado objetivo.
type MarketConfig struct {
	Symbol        string `yaml:"symbol"`         // par de Binance, ej. BTCUSDT
	Keyword       string `yaml:"keyword"`        // término a buscar en la question, ej. "btc"
	DurationClass string `yaml:"duration_class"` // "5m" | "15m" | "1h"
}

// QuotingConfig controla el ciclo de cancel/replace.
type QuotingConfig struct {
	SpreadBPS            int     `yaml:"spread_bps"`
	RequoteSeconds       int     `yaml:"requote_seconds"`
	PriceChangeThreshold float64 `yaml:"price_change_threshold"` // fracción, ej. 0.001 = 0.1%
	MinEdgeBPS           int     `yaml:"min_edge_bps"`           // zona de peligro de fees alrededor de 0.50
	PositionSize         float64 `yaml:"position_size"`          // shares por lado
}

// SafetyConfig son los límites que detienen el bot deliberadamente.
type SafetyConfig struct {
	InitialCapital float64 `yaml:"initial_capital"`
	MaxDailyLoss   float64 `yaml:"max_daily_loss"`
	MaxDailyTrades int     `yaml:"max_daily_trades"`
	DryRun         bool    `yaml:"dry_run"`
}

// APIConfig contiene los endpoints externos.
type APIConfig struct {
	CLOBBase   string `yaml:"clob_base"`
	GammaBase  string `yaml:"gamma_base"`
	BinanceWS  string `yaml:"binance_ws"`
	PolygonRPC string `yaml:"polygon_rpc"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// RequoteInterval devuelve el intervalo de cancel/replace como time.Duration.
func (c *Config) RequoteInterval() time.Duration {
	return time.Duration(c.Quoting.RequoteSeconds) * time.Second
}

// Validate comprueba los invariantes de configuración. Cualquier error aquí es
// fatal antes de tocar la red.
func (c *Config) Validate() error {
	if c.Quoting.SpreadBPS < 10 {
		return fmt.Errorf("config: spread_bps too low (%d, minimum 10 = 0.1%%)", c.Quoting.SpreadBPS)
	}
	if c.Quoting.RequoteSeconds < 1 {
		return fmt.Errorf("config: requote_seconds too low (%d, minimum 1)", c.Quoting.RequoteSeconds)
	}
	if c.Quoting.PriceChangeThreshold <= 0 {
		return fmt.Errorf("config: price_change_threshold must be positive, got %g", c.Quoting.PriceChangeThreshold)
	}
	if c.Quoting.PositionSize <= 0 {
		return fmt.Errorf("config: position_size must be positive, got %g", c.Quoting.PositionSize)
	}
	if c.Quoting.PositionSize > c.Safety.InitialCapital {
		return fmt.Errorf("config: position_size (%g) cannot exceed initial_capital (%g)",
			c.Quoting.PositionSize, c.Safety.InitialCapital)
	}
	if !c.Safety.DryRun && c.PrivateKey == "" {
		return fmt.Errorf("config: POLY_PRIVATE_KEY required when dry_run is false")
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POLY_PRIVATE_KEY"); v != "" {
		cfg.PrivateKey = v
	}
	if v := os.Getenv("POLYGON_RPC_URL"); v != "" {
		cfg.API.PolygonRPC = v
	}
	if v := os.Getenv("BINANCE_WS_URL"); v != "" {
		cfg.API.BinanceWS = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Safety.DryRun = b
		}
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Market.Symbol == "" {
		cfg.Market.Symbol = "BTCUSDT"
	}
	if cfg.Market.Keyword == "" {
		cfg.Market.Keyword = "btc"
	}
	if cfg.Market.DurationClass == "" {
		cfg.Market.DurationClass = "15m"
	}
	if cfg.Quoting.SpreadBPS <= 0 {
		cfg.Quoting.SpreadBPS = 50
	}
	if cfg.Quoting.RequoteSeconds <= 0 {
		cfg.Quoting.RequoteSeconds = 2
	}
	if cfg.Quoting.PriceChangeThreshold <= 0 {
		cfg.Quoting.PriceChangeThreshold = 0.001
	}
	if cfg.Quoting.MinEdgeBPS <= 0 {
		cfg.Quoting.MinEdgeBPS = 200
	}
	if cfg.Quoting.PositionSize <= 0 {
		cfg.Quoting.PositionSize = 20
	}
	if cfg.Safety.InitialCapital <= 0 {
		cfg.Safety.InitialCapital = 100
	}
	if cfg.Safety.MaxDailyLoss <= 0 {
		cfg.Safety.MaxDailyLoss = 20
	}
	if cfg.Safety.MaxDailyTrades <= 0 {
		cfg.Safety.MaxDailyTrades = 500
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.BinanceWS == "" {
		cfg.API.BinanceWS = "wss://stream.binance.com:9443/ws"
	}
	if cfg.API.PolygonRPC == "" {
		cfg.API.PolygonRPC = "https://polygon-bor-rpc.publicnode.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "makerbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
