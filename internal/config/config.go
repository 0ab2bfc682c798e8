package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envPattern ${VAR} или ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvWithDefaults расширяет переменные окружения с поддержкой дефолтных значений
// Формат: ${VAR:-default}
func expandEnvWithDefaults(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		matches := envPattern.FindStringSubmatch(match)
		if len(matches) < 2 {
			return match
		}

		defaultValue := ""
		if len(matches) > 2 {
			defaultValue = matches[2]
		}

		// Пустая переменная окружения считается неустановленной
		if value := os.Getenv(matches[1]); value != "" {
			return value
		}
		return defaultValue
	})
}

// typed приводит раскрытую строку к bool, int или float64, если она так выглядит
func typed(s string) any {
	if s == "true" || s == "false" {
		return s == "true"
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && strings.Contains(s, ".") {
		return f
	}
	return s
}

// InitConfig читает конфигурационный файл и возвращает экземпляр конфигурации
// Использует generic для работы с произвольным типом конфигурации
func InitConfig[C any](configFile string) (*C, error) {
	v := viper.New()
	ext := strings.TrimLeft(filepath.Ext(configFile), ".")

	v.SetConfigFile(configFile)
	v.SetConfigType(ext)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("v.ReadInConfig: %w", err)
	}

	// Заменяем переменные окружения формата ${VAR:-default} на их значения
	for _, k := range v.AllKeys() {
		value := v.GetString(k)
		if value == "" || !strings.Contains(value, "${") {
			continue
		}
		v.Set(k, typed(expandEnvWithDefaults(value)))
	}

	cfg := new(C)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("v.Unmarshal: %w", err)
	}

	return cfg, nil
}

// Load читает конфигурацию приложения и подставляет значения по умолчанию.
// Пустой путь означает конфигурацию по умолчанию без файла.
func Load(configFile string) (*Config, error) {
	if configFile == "" {
		return Default(), nil
	}

	cfg, err := InitConfig[Config](configFile)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}
