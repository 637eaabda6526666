package cmd

import (
	"github.com/nethalo/pg-rebuild-table/internal/pgconn"
	"github.com/spf13/viper"
)

// connectionConfigFromFlags builds a pgconn.ConnectionConfig from the
// persistent flags every subcommand shares, applying the same
// default-host/default-user fallbacks and password-prompt behavior the
// teacher's commands used for MySQL.
func connectionConfigFromFlags() pgconn.ConnectionConfig {
	cfg := pgconn.ConnectionConfig{
		Host:     viper.GetString("host"),
		Port:     viper.GetInt("port"),
		User:     viper.GetString("user"),
		Password: viper.GetString("password"),
		Database: viper.GetString("database"),
		Socket:   viper.GetString("socket"),
		TLSMode:  viper.GetString("tls"),
	}

	if cfg.Host == "" && cfg.Socket == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.User == "" {
		cfg.User = "rebuild_table"
	}
	if cfg.Password == "" {
		cfg.Password = pgconn.PromptPassword()
	}
	return cfg
}
