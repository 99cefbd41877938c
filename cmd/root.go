// Package cmd implements the command-line interface for tenderwatch.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/tenderwatch/cmd/collect"
	"github.com/jonesrussell/tenderwatch/cmd/schedule"
	"github.com/jonesrussell/tenderwatch/cmd/scrape"
	cmdsources "github.com/jonesrussell/tenderwatch/cmd/sources"
	"github.com/jonesrussell/tenderwatch/internal/config"
)

// version is set at build time.
var version = "1.0.0"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "tenderwatch",
		Short: "Aggregate public-procurement tenders from PLACSP and regional feeds",
		Long: `tenderwatch collects tender announcements from the PLACSP monthly
syndication archive and from regional RSS/Atom feeds, filters them by date
and CPV classification code, and writes one normalized CSV per run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to viper.
	_ = godotenv.Load()

	if err := initConfig(); err != nil {
		return fmt.Errorf("initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tenderwatch version %s\n", version)
		},
	})

	rootCmd.AddCommand(collect.Command())
	rootCmd.AddCommand(cmdsources.Command())
	rootCmd.AddCommand(schedule.Command())
	rootCmd.AddCommand(scrape.Command())
}

// initConfig prepares the global viper instance: defaults, config file, and
// environment variables.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.SetEnvPrefix("TENDERWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	// The config file is optional: defaults plus environment variables are
	// enough to run the archive collector.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if debug {
		viper.Set("log.level", "debug")
	}

	return nil
}
