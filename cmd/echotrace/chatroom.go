package echotrace

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mymoliy/echotrace/internal/echotrace/database"
	"github.com/Mymoliy/echotrace/internal/errors"
	"github.com/Mymoliy/echotrace/pkg/util"
)

var rankTime string

func init() {
	rootCmd.AddCommand(roomsCmd)
	rootCmd.AddCommand(rankCmd)
	rankCmd.Flags().StringVar(&rankTime, "time", "", "time range, e.g. 2024, 2024-01 or 2024-01-01~2024-01-31 (default full history)")
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List group chats as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := database.New(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		return printJSON(db.Engine().ListGroupChats(cmd.Context()))
	},
}

var rankCmd = &cobra.Command{
	Use:   "rank <room>",
	Short: "Rank chat room members by message count as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		start, end := time.Unix(0, 0), time.Now()
		if rankTime != "" {
			var ok bool
			start, end, ok = util.TimeRangeOf(rankTime)
			if !ok {
				return errors.InvalidArg("time")
			}
		}

		db, err := database.New(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		return printJSON(db.Engine().RankMembersByMessageCount(cmd.Context(), args[0], start, end))
	},
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
