package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Game     GameConfig     `mapstructure:"game"`
	Security SecurityConfig `mapstructure:"security"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`
	AdminKey string `mapstructure:"admin_key"`
	Metrics  bool   `mapstructure:"metrics"`
}

type DatabaseConfig struct {
	Mode        string        `mapstructure:"mode"` // sqlite | mysql | postgres
	SQLitePath  string        `mapstructure:"sqlite_path"`
	MySQLDSN    string        `mapstructure:"mysql_dsn"`
	PostgresDSN string        `mapstructure:"postgres_dsn"`
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxLife     time.Duration `mapstructure:"max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

type SecurityConfig struct {
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

type CatalogConfig struct {
	// Path to a YAML catalog; empty uses the built-in one.
	Path string `mapstructure:"path"`
}

// PoolConfig describes one regenerating energy pool.
type PoolConfig struct {
	Max   int           `mapstructure:"max"`
	Regen time.Duration `mapstructure:"regen"`
}

// CurveConfig describes xpToNext(level) = floor(base * level^exponent).
type CurveConfig struct {
	Base     float64 `mapstructure:"base"`
	Exponent float64 `mapstructure:"exponent"`
}

type StudyConfig struct {
	Cooldown       time.Duration `mapstructure:"cooldown"`
	SubjectXPMin   int           `mapstructure:"subject_xp_min"`
	SubjectXPMax   int           `mapstructure:"subject_xp_max"`
	SubjectsMin    int           `mapstructure:"subjects_min"`
	SubjectsMax    int           `mapstructure:"subjects_max"`
	CharacterXPMin int           `mapstructure:"character_xp_min"`
	CharacterXPMax int           `mapstructure:"character_xp_max"`
	CashChance     float64       `mapstructure:"cash_chance"`
	CashMin        int           `mapstructure:"cash_min"`
	CashMax        int           `mapstructure:"cash_max"`
	ClicksPerGrade int           `mapstructure:"clicks_per_grade"`
	ItemDropChance float64       `mapstructure:"item_drop_chance"`
}

type GradeConfig struct {
	BaseMin    int     `mapstructure:"base_min"`
	BaseMax    int     `mapstructure:"base_max"`
	LevelBonus float64 `mapstructure:"level_bonus"`
}

type MarketConfig struct {
	FeePercent   int `mapstructure:"fee_percent"`
	ListingDays  int `mapstructure:"listing_days"`
	HistoryLimit int `mapstructure:"history_limit"`
}

// TierReward is the flat reward for one percentile tier.
type TierReward struct {
	Cash int64 `mapstructure:"cash" json:"cash"`
	XP   int64 `mapstructure:"xp" json:"xp"`
}

type EventConfig struct {
	Duration      time.Duration         `mapstructure:"duration"`
	RotateEvery   time.Duration         `mapstructure:"rotate_every"`
	FinalizeEvery time.Duration         `mapstructure:"finalize_every"`
	Tiers         map[string]TierReward `mapstructure:"tiers"`
}

type GameConfig struct {
	StudyEnergy    PoolConfig   `mapstructure:"study_energy"`
	OlympiadEnergy PoolConfig   `mapstructure:"olympiad_energy"`
	CharacterCurve CurveConfig  `mapstructure:"character_curve"`
	SubjectCurve   CurveConfig  `mapstructure:"subject_curve"`
	Study          StudyConfig  `mapstructure:"study"`
	Grade          GradeConfig  `mapstructure:"grade"`
	Market         MarketConfig `mapstructure:"market"`
	Event          EventConfig  `mapstructure:"event"`

	// CooldownDisabled starts the server with study cooldowns bypassed.
	CooldownDisabled bool `mapstructure:"cooldown_disabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.metrics", true)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/scholarquest.db")
	v.SetDefault("database.max_open", 50)
	v.SetDefault("database.max_idle", 10)
	v.SetDefault("database.max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)

	v.SetDefault("game.study_energy.max", 100)
	v.SetDefault("game.study_energy.regen", "3m")
	v.SetDefault("game.olympiad_energy.max", 50)
	v.SetDefault("game.olympiad_energy.regen", "10m")
	v.SetDefault("game.character_curve.base", 100)
	v.SetDefault("game.character_curve.exponent", 1.5)
	v.SetDefault("game.subject_curve.base", 50)
	v.SetDefault("game.subject_curve.exponent", 1.8)

	v.SetDefault("game.study.cooldown", "3s")
	v.SetDefault("game.study.subject_xp_min", 10)
	v.SetDefault("game.study.subject_xp_max", 25)
	v.SetDefault("game.study.subjects_min", 1)
	v.SetDefault("game.study.subjects_max", 3)
	v.SetDefault("game.study.character_xp_min", 3)
	v.SetDefault("game.study.character_xp_max", 8)
	v.SetDefault("game.study.cash_chance", 0.15)
	v.SetDefault("game.study.cash_min", 1)
	v.SetDefault("game.study.cash_max", 5)
	v.SetDefault("game.study.clicks_per_grade", 10)
	v.SetDefault("game.study.item_drop_chance", 0.02)

	v.SetDefault("game.grade.base_min", 30)
	v.SetDefault("game.grade.base_max", 85)
	v.SetDefault("game.grade.level_bonus", 0.3)

	v.SetDefault("game.market.fee_percent", 5)
	v.SetDefault("game.market.listing_days", 7)
	v.SetDefault("game.market.history_limit", 50)

	v.SetDefault("game.event.duration", "1h")
	v.SetDefault("game.event.rotate_every", "1m")
	v.SetDefault("game.event.finalize_every", "1m")
	v.SetDefault("game.event.tiers", map[string]any{
		"top10":         map[string]any{"cash": 5000, "xp": 1000},
		"top25":         map[string]any{"cash": 2500, "xp": 500},
		"top50":         map[string]any{"cash": 1000, "xp": 250},
		"participation": map[string]any{"cash": 100, "xp": 50},
	})
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading a file.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Defaults are static; a decode failure here is a programming error.
	if err := v.Unmarshal(cfg); err != nil {
		panic(err)
	}
	return cfg
}
