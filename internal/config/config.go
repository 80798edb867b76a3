package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config agrupa toda la configuración del servicio. Se carga desde
// config.yaml y luego se pisa con variables de entorno FEEDCORE_*.
type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda "dev".
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Postgres struct {
		DSN      string `yaml:"dsn"`
		MaxConns int    `yaml:"max_conns"`
	} `yaml:"postgres"`

	Cache struct {
		// redis | memory
		Kind string `yaml:"kind"`
	} `yaml:"cache"`

	Queue struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"queue"`

	Log struct {
		// debug | info | warn | error
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load lee el YAML, aplica defaults y overrides de entorno.
// El archivo es opcional: si no existe arrancamos con defaults,
// útil en dev y en los contenedores que configuran todo por env.
func Load(path string) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, err
	}

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Postgres.MaxConns == 0 {
		c.Postgres.MaxConns = 8
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "redis"
	}
	if c.Queue.Concurrency == 0 {
		c.Queue.Concurrency = 5
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate: chequeos mínimos antes de arrancar.
func (c *Config) Validate() error {
	switch c.Cache.Kind {
	case "redis", "memory":
	default:
		return fmt.Errorf("config: cache.kind %q (want redis|memory)", c.Cache.Kind)
	}
	if c.Queue.Concurrency < 1 {
		return fmt.Errorf("config: queue.concurrency %d (want >= 1)", c.Queue.Concurrency)
	}
	switch c.App.Env {
	case "dev", "staging", "prod":
	default:
		return fmt.Errorf("config: app.env %q (want dev|staging|prod)", c.App.Env)
	}
	return nil
}

func (c *Config) IsProd() bool { return c.App.Env == "prod" }

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("FEEDCORE_APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("FEEDCORE_SERVER_ADDR"); ok {
		c.Server.Addr = v
	}

	// REDIS
	if v, ok := getEnvStr("FEEDCORE_REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v, ok := getEnvStr("FEEDCORE_REDIS_PASSWORD"); ok {
		c.Redis.Password = v
	}
	if v, ok := getEnvInt("FEEDCORE_REDIS_DB"); ok {
		c.Redis.DB = v
	}

	// POSTGRES
	if v, ok := getEnvStr("FEEDCORE_POSTGRES_DSN"); ok {
		c.Postgres.DSN = v
	}
	if v, ok := getEnvInt("FEEDCORE_POSTGRES_MAX_CONNS"); ok {
		c.Postgres.MaxConns = v
	}

	// CACHE
	if v, ok := getEnvStr("FEEDCORE_CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}

	// QUEUE
	if v, ok := getEnvInt("FEEDCORE_QUEUE_CONCURRENCY"); ok {
		c.Queue.Concurrency = v
	}

	// LOG
	if v, ok := getEnvStr("FEEDCORE_LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
}
