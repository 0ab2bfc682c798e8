package config

import "time"

// ConfigLogger настройки логирования
type ConfigLogger struct {
	Level  string `mapstructure:"level"`  // trace, debug, info, warn, error
	Format string `mapstructure:"format"` // console или json
}

// ConfigClient настройки HTTP клиента удаленного сервиса заметок
type ConfigClient struct {
	BaseURL        string  `mapstructure:"base_url"`
	HTTPTimeout    int     `mapstructure:"http_timeout"` // секунды
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	PageSize       int     `mapstructure:"page_size"`
	DebugHTTP      bool    `mapstructure:"debug_http"`
	TokenFile      string  `mapstructure:"token_file"`
}

// Timeout возвращает таймаут HTTP запроса
func (c *ConfigClient) Timeout() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

// ConfigSession настройки Session Store и потока событий
type ConfigSession struct {
	WatchEvents              bool `mapstructure:"watch_events"`
	ReconnectInitialInterval int  `mapstructure:"reconnect_initial_interval"` // миллисекунды
	ReconnectMaxInterval     int  `mapstructure:"reconnect_max_interval"`     // миллисекунды
}

// ReconnectInitial возвращает начальный интервал переподключения
func (c *ConfigSession) ReconnectInitial() time.Duration {
	return time.Duration(c.ReconnectInitialInterval) * time.Millisecond
}

// ReconnectMax возвращает максимальный интервал переподключения
func (c *ConfigSession) ReconnectMax() time.Duration {
	return time.Duration(c.ReconnectMaxInterval) * time.Millisecond
}

// ConfigDevServer настройки локального dev-сервера
type ConfigDevServer struct {
	Port                    int     `mapstructure:"port"`
	HTTPReadHeaderTimeout   int     `mapstructure:"http_read_header_timeout"`
	HTTPIdleTimeout         int     `mapstructure:"http_idle_timeout"`
	CORSAllowedOrigins      string  `mapstructure:"cors_allowed_origins"`
	CORSMaxAge              int     `mapstructure:"cors_max_age"`
	RateLimitRPS            float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst          int     `mapstructure:"rate_limit_burst"`
	GracefulShutdownTimeout int     `mapstructure:"graceful_shutdown_timeout"`
	BcryptCost              int     `mapstructure:"bcrypt_cost"`
	Latency                 int     `mapstructure:"latency"` // миллисекунды, искусственная задержка
}

// Config основная структура конфигурации
type Config struct {
	Logger    *ConfigLogger    `mapstructure:"logger"`
	Client    *ConfigClient    `mapstructure:"client"`
	Session   *ConfigSession   `mapstructure:"session"`
	DevServer *ConfigDevServer `mapstructure:"devserver"`
}

// Default возвращает конфигурацию по умолчанию (используется без config.yml)
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults заполняет отсутствующие секции и нулевые значения
func (c *Config) applyDefaults() {
	if c.Logger == nil {
		c.Logger = &ConfigLogger{}
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "console"
	}

	if c.Client == nil {
		c.Client = &ConfigClient{}
	}
	if c.Client.BaseURL == "" {
		c.Client.BaseURL = "http://localhost:8080"
	}
	if c.Client.HTTPTimeout <= 0 {
		c.Client.HTTPTimeout = 15
	}
	if c.Client.RateLimitRPS <= 0 {
		c.Client.RateLimitRPS = 20
	}
	if c.Client.RateLimitBurst <= 0 {
		c.Client.RateLimitBurst = 40
	}
	if c.Client.PageSize <= 0 {
		c.Client.PageSize = 20
	}

	if c.Session == nil {
		c.Session = &ConfigSession{}
	}
	if c.Session.ReconnectInitialInterval <= 0 {
		c.Session.ReconnectInitialInterval = 500
	}
	if c.Session.ReconnectMaxInterval <= 0 {
		c.Session.ReconnectMaxInterval = 30000
	}

	if c.DevServer == nil {
		c.DevServer = &ConfigDevServer{}
	}
	if c.DevServer.Port <= 0 {
		c.DevServer.Port = 8080
	}
	if c.DevServer.HTTPReadHeaderTimeout <= 0 {
		c.DevServer.HTTPReadHeaderTimeout = 5
	}
	if c.DevServer.HTTPIdleTimeout <= 0 {
		c.DevServer.HTTPIdleTimeout = 120
	}
	if c.DevServer.CORSAllowedOrigins == "" {
		c.DevServer.CORSAllowedOrigins = "*"
	}
	if c.DevServer.CORSMaxAge <= 0 {
		c.DevServer.CORSMaxAge = 300
	}
	if c.DevServer.RateLimitRPS <= 0 {
		c.DevServer.RateLimitRPS = 100
	}
	if c.DevServer.RateLimitBurst <= 0 {
		c.DevServer.RateLimitBurst = 200
	}
	if c.DevServer.GracefulShutdownTimeout <= 0 {
		c.DevServer.GracefulShutdownTimeout = 10
	}
	if c.DevServer.BcryptCost <= 0 {
		c.DevServer.BcryptCost = 10
	}
}
