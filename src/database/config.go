package database

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	LogLevel  string `envconfig:"LOG_LEVEL" default:"debug"` // Expected to hold values like "debug", "info", "warn", "error"
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"` // Expected to hold values like "json" or "text"
	// TradingDBPath overrides database file discovery entirely when set.
	TradingDBPath string `envconfig:"TRADING_DB_PATH"`
	// MigrationTargetEmail names the user that receives orphan rows.
	// When empty, the reassignment step of a migration run is skipped.
	MigrationTargetEmail string `envconfig:"MIGRATION_TARGET_EMAIL"`
	GormLogLevel         int    `envconfig:"GORM_LOG_LEVEL" default:"2"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
