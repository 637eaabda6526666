package cmd

import (
	"fmt"
	"os"

	"github.com/nethalo/pg-rebuild-table/internal/retry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pg-rebuild-table",
	Short: "Online table rebuild for Postgres",
	Long: `pg-rebuild-table rewrites a Postgres table online: build a shadow
copy, capture concurrent writes via trigger-fed delta replay, bulk-copy
existing rows, then swap the shadow into place under a brief exclusive
lock.

Use it to change column order, widen a column's type, or simply
defragment a bloated table, all without a long-held lock on the table.`,
}

// Execute is called by main.main(). It adds all child commands to the root
// command and sets flags appropriately.
//
// PreconditionFailed ("no PK, or is partition parent") and ConfigInvalid
// ("set_column_order length mismatch") are not process failures (spec
// section 7: "log warning/error, return without DDL") — they are logged
// and exit 0 rather than falling through to the generic fatal path.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	switch retry.KindOf(err) {
	case retry.PreconditionFailed:
		fmt.Fprintln(os.Stderr, "warning:", err)
		return
	case retry.ConfigInvalid:
		fmt.Fprintln(os.Stderr, "error:", err)
		return
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pg-rebuild-table/config.yaml)")
	rootCmd.PersistentFlags().StringP("host", "H", "", "Postgres host")
	rootCmd.PersistentFlags().IntP("port", "P", 5432, "Postgres port")
	rootCmd.PersistentFlags().StringP("user", "u", "", "Postgres user")
	rootCmd.PersistentFlags().StringP("password", "p", "", "Postgres password (will prompt if flag present without value)")
	rootCmd.PersistentFlags().Lookup("password").NoOptDefVal = ""
	rootCmd.PersistentFlags().StringP("database", "d", "", "Target database")
	rootCmd.PersistentFlags().StringP("socket", "S", "", "Unix socket directory")
	rootCmd.PersistentFlags().String("tls", "", "TLS/sslmode: disable, allow, prefer, require, verify-ca, verify-full")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "Output format: text, plain, json, markdown")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Show additional debug info")

	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))
	viper.BindPFlag("password", rootCmd.PersistentFlags().Lookup("password"))
	viper.BindPFlag("database", rootCmd.PersistentFlags().Lookup("database"))
	viper.BindPFlag("socket", rootCmd.PersistentFlags().Lookup("socket"))
	viper.BindPFlag("tls", rootCmd.PersistentFlags().Lookup("tls"))
	viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		viper.AddConfigPath(home + "/.pg-rebuild-table")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PG_REBUILD_TABLE")
	viper.AutomaticEnv()

	// Silently ignore missing config file — it's optional
	if err := viper.ReadInConfig(); err == nil {
		if !rootCmd.PersistentFlags().Changed("host") && viper.IsSet("connections.default.host") {
			viper.Set("host", viper.GetString("connections.default.host"))
		}
		if !rootCmd.PersistentFlags().Changed("port") && viper.IsSet("connections.default.port") {
			viper.Set("port", viper.GetInt("connections.default.port"))
		}
		if !rootCmd.PersistentFlags().Changed("user") && viper.IsSet("connections.default.user") {
			viper.Set("user", viper.GetString("connections.default.user"))
		}
		if !rootCmd.PersistentFlags().Changed("database") && viper.IsSet("connections.default.database") {
			viper.Set("database", viper.GetString("connections.default.database"))
		}
		if !rootCmd.PersistentFlags().Changed("format") && viper.IsSet("defaults.format") {
			viper.Set("format", viper.GetString("defaults.format"))
		}
	}
}
