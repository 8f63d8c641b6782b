package config

import (
	"encoding/json"
	"flag"
	"os"
	"strings"
)

type Config struct {
	Port     string `json:"port"`
	MongoURL string `json:"mongoUrl"` // пусто = in-memory хранилище
	DBName   string `json:"dbName"`

	LogLevel  string `json:"logLevel"`  // debug|info|warn|error
	LogFormat string `json:"logFormat"` // json|console
}

func def() Config {
	return Config{
		Port:      "8080",
		MongoURL:  "",
		DBName:    "billbook",
		LogLevel:  "info",
		LogFormat: "json",
	}
}

func loadJSON(path string) (Config, error) {
	c := def()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, err
	}
	return c, nil
}

func getenv(k, fallback string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

// LoadWithPath читает JSON по указанному пути, потом применяет ENV и флаги.
func LoadWithPath(jsonPath string) Config {
	cfg := def()

	// JSON (если файл существует)
	if st, err := os.Stat(jsonPath); err == nil && !st.IsDir() {
		if c2, err := loadJSON(jsonPath); err == nil {
			cfg = c2
		}
	}

	// ENV overrides
	cfg.Port = getenv("BILLBOOK_PORT", cfg.Port)
	cfg.MongoURL = getenv("BILLBOOK_MONGO_URL", cfg.MongoURL)
	cfg.DBName = getenv("BILLBOOK_DB_NAME", cfg.DBName)
	cfg.LogLevel = getenv("BILLBOOK_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenv("BILLBOOK_LOG_FORMAT", cfg.LogFormat)

	// Flags overrides
	configPath := flag.String("config", jsonPath, "Path to config JSON")
	port := flag.String("port", cfg.Port, "HTTP port")
	mongo := flag.String("mongo", cfg.MongoURL, "Mongo connection string (empty = in-memory)")
	dbName := flag.String("db", cfg.DBName, "Mongo database name")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug/info/warn/error)")
	logFormat := flag.String("log-format", cfg.LogFormat, "Log format (json/console)")

	flag.Parse()

	// Если через флаг передали другой конфиг — перечитаем
	if *configPath != jsonPath {
		return LoadWithPath(*configPath)
	}

	cfg.Port = strings.TrimSpace(*port)
	cfg.MongoURL = strings.TrimSpace(*mongo)
	cfg.DBName = strings.TrimSpace(*dbName)
	cfg.LogLevel = strings.TrimSpace(*logLevel)
	cfg.LogFormat = strings.TrimSpace(*logFormat)

	return cfg
}
