package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Database DatabaseConfig `mapstructure:"database"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

// GameConfig carries the match rules every room starts with.
type GameConfig struct {
	TickIntervalMS  int `mapstructure:"tick_interval_ms"`
	Rounds          int `mapstructure:"rounds"`
	MatchesPerRound int `mapstructure:"matches_per_round"`
}

// TickInterval returns the simulation cadence as a duration.
func (g GameConfig) TickInterval() time.Duration {
	return time.Duration(g.TickIntervalMS) * time.Millisecond
}

type DatabaseConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Driver selects the persistence implementation: "gorm" (default) or
	// "sql" for the plain database/sql path.
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.http_address", ":8080")
	viper.SetDefault("server.rpc_address", ":8081")
	viper.SetDefault("server.metrics_address", ":9100")
	viper.SetDefault("game.tick_interval_ms", 15)
	viper.SetDefault("game.rounds", 3)
	viper.SetDefault("game.matches_per_round", 5)
	viper.SetDefault("database.driver", "gorm")

	viper.AutomaticEnv()

	if err = viper.ReadInConfig(); err != nil {
		// Defaults and environment variables are enough to run.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}
