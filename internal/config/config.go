// Package config handles loading and validating the application
// configuration from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	CityAPI  CityAPIConfig  `yaml:"city_api"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Triggers TriggersConfig `yaml:"triggers"`
	Channels ChannelsConfig `yaml:"channels"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// CityAPIConfig defines settings for the upstream city open-data API.
type CityAPIConfig struct {
	BaseURL   string          `yaml:"base_url"`
	APIKey    string          `yaml:"api_key"`
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig defines city API rate limiting settings.
type RateLimitConfig struct {
	PerSecond  float64 `yaml:"per_second"`
	Burst      int     `yaml:"burst"`
	DailyLimit int64   `yaml:"daily_limit"`
}

// ScheduleConfig defines the periodic evaluation tasks.
type ScheduleConfig struct {
	Realtime         TaskConfig      `yaml:"realtime"`
	Cultural         TaskConfig      `yaml:"cultural"`
	Retention        RetentionConfig `yaml:"retention"`
	Workers          int             `yaml:"workers"`
	SoftDeadline     time.Duration   `yaml:"soft_deadline"`
	DefaultLatitude  float64         `yaml:"default_latitude"`
	DefaultLongitude float64         `yaml:"default_longitude"`
	CulturalPageSize int             `yaml:"cultural_page_size"`
}

// RetentionConfig controls expiry of old undelivered notifications.
type RetentionConfig struct {
	Enabled  *bool         `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	MaxAge   time.Duration `yaml:"max_age"`
}

// TaskConfig enables one periodic task and sets its tick interval.
type TaskConfig struct {
	Enabled  *bool         `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// TriggersConfig holds per-strategy thresholds and enable flags.
type TriggersConfig struct {
	Temperature TemperatureConfig `yaml:"temperature"`
	AirQuality  AirQualityConfig  `yaml:"air_quality"`
	BikeShare   BikeShareConfig   `yaml:"bike_share"`
	Congestion  CongestionConfig  `yaml:"congestion"`
	Culture     CultureConfig     `yaml:"culture"`
	Emergency   EmergencyConfig   `yaml:"emergency"`
}

// TemperatureConfig defines weather trigger thresholds.
type TemperatureConfig struct {
	Enabled     *bool   `yaml:"enabled"`
	HighC       float64 `yaml:"high_c"`
	LowC        float64 `yaml:"low_c"`
	HeavyRainMm float64 `yaml:"heavy_rain_mm"`
}

// AirQualityConfig defines air quality severity cutoffs.
type AirQualityConfig struct {
	Enabled *bool `yaml:"enabled"`
	PM10Bad int   `yaml:"pm10_bad"`
	PM25Bad int   `yaml:"pm25_bad"`
}

// BikeShareConfig defines the bike shortage trigger.
type BikeShareConfig struct {
	Enabled  *bool   `yaml:"enabled"`
	MinBikes int     `yaml:"min_bikes"`
	RadiusKm float64 `yaml:"radius_km"`
}

// CongestionConfig defines the crowding trigger. Levels run 1 (relaxed)
// to 4 (crowded); the trigger fires at or above the threshold.
type CongestionConfig struct {
	Enabled  *bool   `yaml:"enabled"`
	Level    int     `yaml:"level"`
	RadiusKm float64 `yaml:"radius_km"`
}

// CultureConfig defines the cultural event proximity trigger.
type CultureConfig struct {
	Enabled   *bool         `yaml:"enabled"`
	RadiusKm  float64       `yaml:"radius_km"`
	Lookahead time.Duration `yaml:"lookahead"`
}

// EmergencyConfig defines the emergency alert trigger.
type EmergencyConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// ChannelsConfig defines delivery channel settings. Channels are opt-in.
type ChannelsConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	Cooldown time.Duration `yaml:"cooldown"`
	Push     PushConfig    `yaml:"push"`
	Webhook  WebhookConfig `yaml:"webhook"`
	Email    EmailConfig   `yaml:"email"`
	SMS      SMSConfig     `yaml:"sms"`
}

// PushConfig defines the push provider endpoint.
type PushConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// WebhookConfig defines per-user webhook delivery settings.
type WebhookConfig struct {
	Enabled bool              `yaml:"enabled"`
	Headers map[string]string `yaml:"headers"`
}

// EmailConfig defines SMTP delivery settings.
type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// SMSConfig defines the SMS provider endpoint.
type SMSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	From     string `yaml:"from"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment
// variable substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyCityAPIDefaults(&cfg.CityAPI)
	applyScheduleDefaults(&cfg.Schedule)
	applyTriggerDefaults(&cfg.Triggers)
	applyChannelDefaults(&cfg.Channels)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyCityAPIDefaults(c *CityAPIConfig) {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RateLimit.PerSecond == 0 {
		c.RateLimit.PerSecond = 5.0
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}
	if c.RateLimit.DailyLimit == 0 {
		c.RateLimit.DailyLimit = 10000
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	enableByDefault(&s.Realtime.Enabled)
	enableByDefault(&s.Cultural.Enabled)
	enableByDefault(&s.Retention.Enabled)
	if s.Realtime.Interval == 0 {
		s.Realtime.Interval = 5 * time.Minute
	}
	if s.Cultural.Interval == 0 {
		s.Cultural.Interval = 30 * time.Minute
	}
	if s.Retention.Interval == 0 {
		s.Retention.Interval = 6 * time.Hour
	}
	if s.Retention.MaxAge == 0 {
		s.Retention.MaxAge = 30 * 24 * time.Hour
	}
	if s.Workers == 0 {
		s.Workers = 8
	}
	if s.SoftDeadline == 0 {
		s.SoftDeadline = 4 * time.Minute
	}
	// City-hall coordinate, used when a user has no known location.
	if s.DefaultLatitude == 0 && s.DefaultLongitude == 0 {
		s.DefaultLatitude = 37.5663
		s.DefaultLongitude = 126.9779
	}
	if s.CulturalPageSize == 0 {
		s.CulturalPageSize = 100
	}
}

func applyTriggerDefaults(t *TriggersConfig) {
	enableByDefault(&t.Temperature.Enabled)
	enableByDefault(&t.AirQuality.Enabled)
	enableByDefault(&t.BikeShare.Enabled)
	enableByDefault(&t.Congestion.Enabled)
	enableByDefault(&t.Culture.Enabled)
	enableByDefault(&t.Emergency.Enabled)

	if t.Temperature.HighC == 0 {
		t.Temperature.HighC = 33
	}
	if t.Temperature.LowC == 0 {
		t.Temperature.LowC = -12
	}
	if t.Temperature.HeavyRainMm == 0 {
		t.Temperature.HeavyRainMm = 20
	}
	if t.AirQuality.PM10Bad == 0 {
		t.AirQuality.PM10Bad = 150
	}
	if t.AirQuality.PM25Bad == 0 {
		t.AirQuality.PM25Bad = 75
	}
	if t.BikeShare.MinBikes == 0 {
		t.BikeShare.MinBikes = 2
	}
	if t.BikeShare.RadiusKm == 0 {
		t.BikeShare.RadiusKm = 0.5
	}
	if t.Congestion.Level == 0 {
		t.Congestion.Level = 4
	}
	if t.Congestion.RadiusKm == 0 {
		t.Congestion.RadiusKm = 1
	}
	if t.Culture.RadiusKm == 0 {
		t.Culture.RadiusKm = 2
	}
	if t.Culture.Lookahead == 0 {
		t.Culture.Lookahead = 72 * time.Hour
	}
}

func applyChannelDefaults(c *ChannelsConfig) {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Cooldown == 0 {
		c.Cooldown = 30 * time.Minute
	}
	if c.Email.Port == 0 {
		c.Email.Port = 587
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

// enableByDefault treats an absent enabled flag as true, so only an
// explicit `enabled: false` disables a task or trigger.
func enableByDefault(b **bool) {
	if *b == nil {
		v := true
		*b = &v
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if cfg.Database.Name == "" {
		errs = append(errs, fmt.Errorf("database.name is required"))
	}
	if cfg.Database.User == "" {
		errs = append(errs, fmt.Errorf("database.user is required"))
	}
	if cfg.CityAPI.BaseURL == "" {
		errs = append(errs, fmt.Errorf("city_api.base_url is required"))
	}
	if cfg.Schedule.Workers < 1 {
		errs = append(errs, fmt.Errorf("schedule.workers must be at least 1"))
	}
	if lat := cfg.Schedule.DefaultLatitude; lat < -90 || lat > 90 {
		errs = append(errs, fmt.Errorf("schedule.default_latitude out of range: %v", lat))
	}
	if lng := cfg.Schedule.DefaultLongitude; lng < -180 || lng > 180 {
		errs = append(errs, fmt.Errorf("schedule.default_longitude out of range: %v", lng))
	}
	if cfg.Channels.Push.Enabled && cfg.Channels.Push.Endpoint == "" {
		errs = append(errs, fmt.Errorf("channels.push.endpoint is required when push is enabled"))
	}
	if cfg.Channels.Email.Enabled && cfg.Channels.Email.Host == "" {
		errs = append(errs, fmt.Errorf("channels.email.host is required when email is enabled"))
	}
	if cfg.Channels.SMS.Enabled && cfg.Channels.SMS.Endpoint == "" {
		errs = append(errs, fmt.Errorf("channels.sms.endpoint is required when sms is enabled"))
	}

	return errors.Join(errs...)
}
