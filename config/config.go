package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendTables = "tables"
	BackendMySQL  = "mysql"
)

const DefaultKey = "kanbanState"

// Config is the full configuration shared by every binary.
type Config struct {
	Storage Storage `yaml:"storage"`
	Events  Events  `yaml:"events"`
	Server  Server  `yaml:"server"`
	Debug   bool    `yaml:"debug"`
}

type Storage struct {
	Backend string `yaml:"backend"`
	DataDir string `yaml:"dataDir"`
	Key     string `yaml:"key"`
	// Redis is used by the redis backend, the read cache, the deduper and
	// the event channel.
	Redis    string        `yaml:"redis"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
	// Tables is an Azure storage connection string.
	Tables string `yaml:"tables"`
	Table  string `yaml:"table"`
	MySQL  string `yaml:"mysql"`
}

// Events selects where board events are published.
type Events struct {
	Channel string `yaml:"channel"`
	Queue   string `yaml:"queue"`
	Workers int    `yaml:"workers"`
	Buffer  int    `yaml:"buffer"`
}

type Server struct {
	Addr       string        `yaml:"addr"`
	DeduperTTL time.Duration `yaml:"deduperTTL"`
	Pprof      bool          `yaml:"pprof"`
}

// Default returns the configuration used when no file or env is present.
func Default() Config {
	return Config{
		Storage: Storage{
			Backend: BackendFile,
			DataDir: ".kanban",
			Key:     DefaultKey,
			Table:   "board",
		},
		Events: Events{Workers: 2, Buffer: 64},
		Server: Server{Addr: ":8080", DeduperTTL: 24 * time.Hour},
	}
}

// Load reads the YAML file at path (a missing file is not an error) and
// applies environment overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	envString("KANBAN_STORAGE", &c.Storage.Backend)
	envString("KANBAN_DATA_DIR", &c.Storage.DataDir)
	envString("KANBAN_STORAGE_KEY", &c.Storage.Key)
	envString("REDIS_CONNECTION_STRING", &c.Storage.Redis)
	envString("STORAGE_CONNECTION_STRING", &c.Storage.Tables)
	envString("BOARD_TABLE", &c.Storage.Table)
	envString("MYSQL_DSN", &c.Storage.MySQL)
	envString("EVENTS_CHANNEL", &c.Events.Channel)
	envString("EVENTS_QUEUE", &c.Events.Queue)
	envString("LISTEN_ADDR", &c.Server.Addr)
	if v, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok && v != "" {
		c.Server.Addr = ":" + v
	}

	if err := envDur("CACHE_TTL", &c.Storage.CacheTTL); err != nil {
		return err
	}
	if err := envDur("DEDUPER_TTL", &c.Server.DeduperTTL); err != nil {
		return err
	}
	if err := envInt("NOTIFY_WORKERS", &c.Events.Workers); err != nil {
		return err
	}
	if err := envInt("NOTIFY_BUFFER", &c.Events.Buffer); err != nil {
		return err
	}
	if err := envBool("PPROF", &c.Server.Pprof); err != nil {
		return err
	}
	return envBool("DEBUG", &c.Debug)
}

// Validate rejects settings that cannot work together.
func (c Config) Validate() error {
	s := c.Storage
	if strings.TrimSpace(s.Key) == "" {
		return errors.New("storage key must not be empty")
	}
	switch s.Backend {
	case BackendMemory:
	case BackendFile:
		if s.DataDir == "" {
			return errors.New("file storage requires a data dir")
		}
	case BackendRedis:
		if s.Redis == "" {
			return errors.New("redis storage requires REDIS_CONNECTION_STRING")
		}
	case BackendTables:
		if s.Tables == "" || s.Table == "" {
			return errors.New("tables storage requires STORAGE_CONNECTION_STRING and BOARD_TABLE")
		}
	case BackendMySQL:
		if s.MySQL == "" {
			return errors.New("mysql storage requires MYSQL_DSN")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", s.Backend)
	}
	if s.CacheTTL < 0 {
		return errors.New("cache ttl must not be negative")
	}
	if c.Events.Channel != "" && s.Redis == "" {
		return errors.New("events channel requires REDIS_CONNECTION_STRING")
	}
	if c.Events.Queue != "" && s.Tables == "" {
		return errors.New("events queue requires STORAGE_CONNECTION_STRING")
	}
	if c.Events.Workers <= 0 || c.Events.Buffer <= 0 {
		return errors.New("notify workers and buffer must be greater than zero")
	}
	if c.Server.DeduperTTL <= 0 {
		return errors.New("deduper ttl must be greater than zero")
	}
	return nil
}

// RedisOptions accepts a redis:// URL or an Azure style
// "host:port,password=...,ssl=true" connection string.
func RedisOptions(conn string) (*redis.Options, error) {
	if conn == "" {
		return nil, errors.New("empty redis connection string")
	}
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts, nil
	}
	parts := strings.Split(conn, ",")
	if strings.Contains(parts[0], "://") || parts[0] == "" {
		return nil, fmt.Errorf("invalid redis connection string %q", parts[0])
	}
	opts := &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(kv[1], "true") {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts, nil
}

func envString(name string, dst *string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = n
	return nil
}

func envDur(name string, dst *time.Duration) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = d
	return nil
}

func envBool(name string, dst *bool) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = b
	return nil
}
