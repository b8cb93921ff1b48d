package config

import "time"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"harvester"`
	Password string `env:"PASSWORD" envDefault:"harvester"`
	Name     string `env:"NAME"     envDefault:"harvester"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// CacheConfig contains cache TTL configuration for Redis-backed reads.
type CacheConfig struct {
	// ResumeInfoTTL is the TTL for cached resume info per job.
	ResumeInfoTTL time.Duration `env:"CACHE_RESUME_INFO_TTL" envDefault:"30s"`
	// StatisticsTTL is the TTL for cached aggregate statistics.
	StatisticsTTL time.Duration `env:"CACHE_STATISTICS_TTL" envDefault:"15s"`
}
