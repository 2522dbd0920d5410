// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Engine    EngineConfig    `mapstructure:"engine"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode)
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Addr returns the host:port address.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ArtifactsConfig locates and sizes the artifact cache.
type ArtifactsConfig struct {
	Dir           string  `mapstructure:"dir"`
	CacheCapacity int     `mapstructure:"cache_capacity"`
	LaplaceAlpha  float64 `mapstructure:"laplace_alpha"`
	HybridAlpha   float64 `mapstructure:"hybrid_alpha"`
}

// EngineConfig carries the scoring, clustering and locking tunables.
type EngineConfig struct {
	WeightPreference float64       `mapstructure:"weight_preference"`
	WeightHealth     float64       `mapstructure:"weight_health"`
	WeightContext    float64       `mapstructure:"weight_context"`
	WeightGlobal     float64       `mapstructure:"weight_global"`
	CalorieLambda    float64       `mapstructure:"calorie_lambda"`
	CalorieSoftClip  float64       `mapstructure:"calorie_soft_clip"`
	PurposeDelta     float64       `mapstructure:"purpose_delta"`
	FatRatioCap      float64       `mapstructure:"fat_ratio_cap"`
	ProteinFloorG    float64       `mapstructure:"protein_floor_g"`
	KeywordFilter    bool          `mapstructure:"keyword_filter"`
	BlockedKeywords  []string      `mapstructure:"blocked_keywords"`
	ClusterK         int           `mapstructure:"cluster_k"`
	ClusterSeed      int64         `mapstructure:"cluster_seed"`
	StabilityWeightP float64       `mapstructure:"stability_weight_preference"`
	StabilityWeightH float64       `mapstructure:"stability_weight_health"`
	StabilityWeightE float64       `mapstructure:"stability_weight_exploration"`
	ExplorationMix   float64       `mapstructure:"exploration_mix"`
	RecentDays       int           `mapstructure:"recent_days"`
	LockTTL          time.Duration `mapstructure:"lock_ttl"`
	LockWait         time.Duration `mapstructure:"lock_wait"`
}

// Load reads configuration from config files and environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/moodplate")

	v.SetEnvPrefix("MOODPLATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No file is fine: defaults plus environment cover everything.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "moodplate-engine")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "moodplate")
	v.SetDefault("database.username", "moodplate")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("artifacts.dir", "./artifacts")
	v.SetDefault("artifacts.cache_capacity", 4)
	v.SetDefault("artifacts.laplace_alpha", 1.0)
	v.SetDefault("artifacts.hybrid_alpha", 0.5)

	v.SetDefault("engine.weight_preference", 1.0)
	v.SetDefault("engine.weight_health", 1.0)
	v.SetDefault("engine.weight_context", 0.3)
	v.SetDefault("engine.weight_global", 0.2)
	v.SetDefault("engine.calorie_lambda", 0.5)
	v.SetDefault("engine.calorie_soft_clip", 1.0)
	v.SetDefault("engine.purpose_delta", 0.15)
	v.SetDefault("engine.fat_ratio_cap", 0.65)
	v.SetDefault("engine.protein_floor_g", 3.0)
	v.SetDefault("engine.keyword_filter", true)
	v.SetDefault("engine.blocked_keywords", []string{"oil", "sauce", "dressing", "syrup", "mayonnaise"})
	v.SetDefault("engine.cluster_k", 5)
	v.SetDefault("engine.cluster_seed", 42)
	v.SetDefault("engine.stability_weight_preference", 0.5)
	v.SetDefault("engine.stability_weight_health", 0.6)
	v.SetDefault("engine.stability_weight_exploration", 0.3)
	v.SetDefault("engine.exploration_mix", 0.6)
	v.SetDefault("engine.recent_days", 7)
	v.SetDefault("engine.lock_ttl", "30s")
	v.SetDefault("engine.lock_wait", "2s")
}

// Validate checks configuration invariants at startup.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Artifacts.Dir == "" {
		return fmt.Errorf("artifacts.dir is required")
	}
	if c.Artifacts.HybridAlpha < 0 || c.Artifacts.HybridAlpha > 1 {
		return fmt.Errorf("artifacts.hybrid_alpha %v out of [0,1]", c.Artifacts.HybridAlpha)
	}
	if c.Engine.ClusterK <= 0 {
		return fmt.Errorf("engine.cluster_k must be positive")
	}
	if c.Engine.FatRatioCap <= 0 || c.Engine.FatRatioCap > 1 {
		return fmt.Errorf("engine.fat_ratio_cap %v out of (0,1]", c.Engine.FatRatioCap)
	}
	if c.Engine.LockWait <= 0 {
		return fmt.Errorf("engine.lock_wait must be positive")
	}
	return nil
}
