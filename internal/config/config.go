package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aue-natural/pricewatch/internal/loader"
	"github.com/aue-natural/pricewatch/internal/scoring"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig           `yaml:"store" mapstructure:"store"`
	Warehouse loader.Config         `yaml:"warehouse" mapstructure:"warehouse"`
	Jina      JinaConfig            `yaml:"jina" mapstructure:"jina"`
	Matcher   scoring.MatcherConfig `yaml:"matcher" mapstructure:"matcher"`
	Engine    EngineConfig          `yaml:"engine" mapstructure:"engine"`
	Dedup     DedupConfig           `yaml:"dedup" mapstructure:"dedup"`
	Output    OutputConfig          `yaml:"output" mapstructure:"output"`
	Server    ServerConfig          `yaml:"server" mapstructure:"server"`
	Log       LogConfig             `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the local SQLite store (embedding cache + runs).
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// JinaConfig holds Jina embeddings API settings.
type JinaConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	Model     string  `yaml:"model" mapstructure:"model"`
	Dimension int     `yaml:"dimension" mapstructure:"dimension"`
	RPS       float64 `yaml:"rps" mapstructure:"rps"`
	Burst     int     `yaml:"burst" mapstructure:"burst"`
}

// EngineConfig configures the matching passes.
type EngineConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// DedupConfig configures the deduplication state manager.
type DedupConfig struct {
	StateDir string `yaml:"state_dir" mapstructure:"state_dir"`
}

// OutputConfig configures where run outputs land.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PRICEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "data/pricewatch.db")
	v.SetDefault("warehouse.schema", "aue")
	v.SetDefault("jina.base_url", "https://api.jina.ai/v1/embeddings")
	v.SetDefault("jina.model", "jina-embeddings-v3")
	v.SetDefault("jina.dimension", 1024)
	v.SetDefault("jina.rps", 5)
	v.SetDefault("jina.burst", 5)
	v.SetDefault("engine.workers", 4)
	v.SetDefault("dedup.state_dir", "data/state")
	v.SetDefault("output.dir", "data/processed")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	m := scoring.DefaultMatcherConfig()
	v.SetDefault("matcher.lexical_weight", m.LexicalWeight)
	v.SetDefault("matcher.semantic_weight", m.SemanticWeight)
	v.SetDefault("matcher.fuzz_blend_weight", m.FuzzBlendWeight)
	v.SetDefault("matcher.jaccard_blend_weight", m.JaccardBlendWeight)
	v.SetDefault("matcher.min_similarity", m.MinSimilarity)
	v.SetDefault("matcher.recovery_min_similarity", m.RecoveryMinSimilarity)
	v.SetDefault("matcher.high_tier_cut", m.HighTierCut)
	v.SetDefault("matcher.medium_tier_cut", m.MediumTierCut)
	v.SetDefault("matcher.low_tier_cut", m.LowTierCut)
	v.SetDefault("matcher.brand_match_bonus", m.BrandMatchBonus)
	v.SetDefault("matcher.brand_mismatch_penalty", m.BrandMismatchPenalty)
	v.SetDefault("matcher.size_exact_band", m.SizeExactBand)
	v.SetDefault("matcher.size_tolerance_band", m.SizeToleranceBand)
	v.SetDefault("matcher.size_exact_bonus", m.SizeExactBonus)
	v.SetDefault("matcher.size_close_bonus", m.SizeCloseBonus)
	v.SetDefault("matcher.size_mismatch_penalty", m.SizeMismatchPenalty)
	v.SetDefault("matcher.subcategory_match_bonus", m.SubcategoryMatchBonus)
	v.SetDefault("matcher.subcategory_mismatch_penalty", m.SubcategoryMismatchPenalty)
	v.SetDefault("matcher.recovery_brand_match_bonus", m.RecoveryBrandMatchBonus)
	v.SetDefault("matcher.recovery_brand_mismatch_penalty", m.RecoveryBrandMismatchPenalty)
	v.SetDefault("matcher.recovery_lexical_floor", m.RecoveryLexicalFloor)
	v.SetDefault("matcher.recovery_same_brand_lexical_cut", m.RecoverySameBrandLexicalCut)
	v.SetDefault("matcher.recovery_same_brand_bonus", m.RecoverySameBrandBonus)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := scoring.ValidateConfig(cfg.Matcher); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
