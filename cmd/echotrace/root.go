package echotrace

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Mymoliy/echotrace/internal/echotrace/conf"
)

var (
	configFile string
	logLevel   string
)

func init() {
	cobra.OnInitialize(initLog)
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default echotrace.yaml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
}

var rootCmd = &cobra.Command{
	Use:   "echotrace",
	Short: "Group chat analytics over a message archive and contact roster",
	Long: `echotrace answers questions about group chats recorded in a SQLite
message archive and contact roster: who talks most, when, and about what.
Run "echotrace server" to expose the analytics as a REST and MCP API.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initLog() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// loadConfig loads the configuration and applies command line overrides.
func loadConfig() (*conf.Config, error) {
	cfg, err := conf.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}
	return cfg, nil
}
