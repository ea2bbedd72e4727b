package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	CacheTTLs CacheTTLConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LLMConfig selects and configures the model backend used by the call
// adapter. Source is "ollama" or "openai".
type LLMConfig struct {
	Source      string
	Model       string
	ServerURL   string
	APIKey      string
	Timeout     time.Duration
	Temperature float64
}

// PipelineConfig bounds the content-generation fan-out.
type PipelineConfig struct {
	WorkerPoolSize int
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type LoggerConfig struct {
	Level string
	Env   string
}

type CacheTTLConfig struct {
	CourseResult string
}

const defaultWorkerPoolSize = 5

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if os.Getenv("ENV") == "test" {
		viper.AddConfigPath("../../config")
		viper.AddConfigPath("../../")
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()

	viper.SetDefault("pipeline.worker_pool_size", defaultWorkerPoolSize)
	viper.SetDefault("llm.timeout", 60)
	viper.SetDefault("llm.temperature", 0.1)
	viper.SetDefault("cache_ttls.course_result", "1h")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port:         viper.GetInt("server.port"),
			ReadTimeout:  viper.GetDuration("server.read_timeout") * time.Second,
			WriteTimeout: viper.GetDuration("server.write_timeout") * time.Second,
		},
		LLM: LLMConfig{
			Source:      viper.GetString("llm.source"),
			Model:       viper.GetString("llm.model"),
			ServerURL:   viper.GetString("llm.server_url"),
			APIKey:      viper.GetString("llm.api_key"),
			Timeout:     viper.GetDuration("llm.timeout") * time.Second,
			Temperature: viper.GetFloat64("llm.temperature"),
		},
		Pipeline: PipelineConfig{
			WorkerPoolSize: viper.GetInt("pipeline.worker_pool_size"),
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Logger: LoggerConfig{
			Level: viper.GetString("logger.level"),
			Env:   viper.GetString("logger.env"),
		},
		CacheTTLs: CacheTTLConfig{
			CourseResult: viper.GetString("cache_ttls.course_result"),
		},
	}

	// Override with environment variables if set
	if llmServer := os.Getenv("LLM_SERVER_URL"); llmServer != "" {
		config.LLM.ServerURL = llmServer
	}
	if llmSource := os.Getenv("LLM_SOURCE"); llmSource != "" {
		config.LLM.Source = llmSource
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if redisAddress := os.Getenv("REDIS_ADDRESS"); redisAddress != "" {
		config.Redis.Address = redisAddress
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.Redis.Password = redisPassword
	}

	if config.Pipeline.WorkerPoolSize < 1 {
		config.Pipeline.WorkerPoolSize = defaultWorkerPoolSize
	}

	return config, nil
}

// ParseTTLStringOrDefault parses a duration string like "1h" or "30m",
// falling back to the given default when empty or malformed.
func (c *Config) ParseTTLStringOrDefault(ttl string, def time.Duration) time.Duration {
	if ttl == "" {
		return def
	}
	d, err := time.ParseDuration(ttl)
	if err != nil {
		return def
	}
	return d
}
