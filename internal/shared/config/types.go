package config

import "fmt"

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MeteringConfig holds the knobs of the usage metering subsystem.
type MeteringConfig struct {
	// Timezone is the business timezone used for cycle boundary math.
	Timezone string `mapstructure:"timezone"`
	// SweepHour is the hour of day (business timezone) at which the
	// anniversary reset sweep runs.
	SweepHour int `mapstructure:"sweep_hour"`
	// SweepConcurrency bounds the parallel fan-out of the sweep.
	SweepConcurrency int `mapstructure:"sweep_concurrency"`
	// CacheTTLMinutes is the base TTL of cached usage summaries.
	CacheTTLMinutes int `mapstructure:"cache_ttl_minutes"`
}
