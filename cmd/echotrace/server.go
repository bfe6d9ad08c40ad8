package echotrace

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Mymoliy/echotrace/internal/echotrace/database"
	"github.com/Mymoliy/echotrace/internal/echotrace/http"
	"github.com/Mymoliy/echotrace/pkg/util"
)

var serverAddr string

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().StringVar(&serverAddr, "addr", "", "listen address (overrides config)")
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the analytics REST and MCP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serverAddr != "" {
			cfg.HTTPAddr = serverAddr
		}

		db, err := database.New(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		svc := http.NewService(cfg, db)
		if err := svc.Start(); err != nil {
			return err
		}
		log.Info().Msgf("Serving analytics at %s", util.ComposeLANURL(cfg.HTTPAddr))

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info().Msg("Shutting down")
		return svc.Stop()
	},
}
