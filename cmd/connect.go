package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/nethalo/pg-rebuild-table/internal/output"
	"github.com/nethalo/pg-rebuild-table/internal/pgconn"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var connectCmd = &cobra.Command{
	Use:          "connect",
	Short:        "Test the connection to Postgres",
	SilenceUsage: true,
	Long:         `Connect to a Postgres instance and confirm the connection is usable before running a rebuild.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		connCfg := connectionConfigFromFlags()

		pool, err := pgconn.Connect(context.Background(), connCfg)
		if err != nil {
			return fmt.Errorf("connection failed: %w", err)
		}
		defer pool.Close()

		format := viper.GetString("format")
		renderer := output.NewRenderer(format, os.Stdout)
		renderer.RenderConnection(connCfg)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
}
