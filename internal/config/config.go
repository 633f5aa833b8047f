package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/annel0/skygrid/internal/logging"
	"gopkg.in/yaml.v3"
)

// Абсолютный потолок воксельного пространства колонки
const DefaultCeiling = 256

// Config корневая структура конфигурации генератора.
type Config struct {
	Grid      GridConfig      `yaml:"grid"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Queue     QueueConfig     `yaml:"queue"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	warnings []string
}

// GridConfig — параметры решётки
type GridConfig struct {
	Seed         int64 `yaml:"seed"`
	Dist         int   `yaml:"dist"`           // Шаг решётки (>= 1)
	RNGSpacing   bool  `yaml:"rng_spacing"`    // Случайный шаг для каждого чанка
	Height       int   `yaml:"height"`         // Максимальная высота генерации
	Ceiling      int   `yaml:"ceiling"`        // Высота колонки
	Populate     bool  `yaml:"populate"`       // Декорации биома хоста
	PerChunkSeed bool  `yaml:"per_chunk_seed"` // Сид из (seed, x, z) вместо общего потока
}

// CatalogConfig — где лежат JSON-каталоги миров
type CatalogConfig struct {
	Dir    string   `yaml:"dir"`
	Realms []string `yaml:"realms"`
}

// QueueConfig — бэкенд очереди отложенной финализации
type QueueConfig struct {
	Backend    string `yaml:"backend"` // memory | badger | redis | nats
	BadgerPath string `yaml:"badger_path"`
	RedisAddr  string `yaml:"redis_addr"`
	RedisDB    int    `yaml:"redis_db"`
	NATSURL    string `yaml:"nats_url"`
	Subject    string `yaml:"subject"`
	BufferSize int    `yaml:"buffer_size"`
}

type ServerConfig struct {
	RESTPort    int    `yaml:"rest_port"`
	AdminSecret string `yaml:"admin_secret"` // base64, включает JWT на изменяющих маршрутах
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Grid: GridConfig{
			Dist:    4,
			Height:  128,
			Ceiling: DefaultCeiling,
		},
		Catalog: CatalogConfig{
			Dir:    "config",
			Realms: []string{"overworld", "nether"},
		},
		Queue: QueueConfig{
			Backend:    "memory",
			BadgerPath: "data/postgen",
			Subject:    "skygrid.postgen",
			BufferSize: 1024,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "skygrid",
		},
	}
}

// Validate приводит значения к допустимым границам
func (c *Config) Validate() error {
	if c.Grid.Dist < 1 {
		c.Grid.Dist = 1
	}
	if c.Grid.Ceiling <= 1 {
		c.Grid.Ceiling = DefaultCeiling
	}
	if c.Grid.Height < 1 {
		c.Grid.Height = 1
	}
	// Якорный блок ставится на высоте Height, он должен поместиться в колонку
	if c.Grid.Height > c.Grid.Ceiling-1 {
		c.warnf("grid.height %d не помещается под потолок %d, используется %d",
			c.Grid.Height, c.Grid.Ceiling, c.Grid.Ceiling-1)
		c.Grid.Height = c.Grid.Ceiling - 1
	}
	if len(c.Catalog.Realms) == 0 {
		return fmt.Errorf("catalog.realms: список миров пуст")
	}
	switch c.Queue.Backend {
	case "", "memory", "badger", "redis", "nats":
	default:
		return fmt.Errorf("queue.backend: неизвестный бэкенд %q", c.Queue.Backend)
	}
	if c.Queue.BufferSize <= 0 {
		c.Queue.BufferSize = 1024
	}
	return nil
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "SKYGRID_REST_PORT", 8088)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

func (c *Config) warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	c.warnings = append(c.warnings, msg)
	logging.Warn("Конфигурация: %s", msg)
}

// Warnings возвращает поправки, внесённые Validate
func (c *Config) Warnings() []string {
	return c.warnings
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV SKYGRID_CONFIG; если и он пуст —
// возвращает конфигурацию по умолчанию.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("SKYGRID_CONFIG")
		if path == "" {
			return cfg, cfg.Validate()
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
