package cmd

import (
	"encoding/json"

	"ltiprovider/core"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score <command>",
	Short: "score changed events",
}

var publishScoreCmd = &cobra.Command{
	Use:   "publish <user_id> <course_id> <usage_id> <points_earned> <points_possible>",
	Short: "enqueue a score changed event for the dispatcher",
	Args:  cobra.ExactArgs(5),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		userID, err := cast.ToInt64E(args[0])
		if err != nil {
			cmd.PrintErrln("invalid user id:", err)
			return
		}

		earned, err := decimal.NewFromString(args[3])
		if err != nil {
			cmd.PrintErrln("invalid points earned:", err)
			return
		}

		possible, err := decimal.NewFromString(args[4])
		if err != nil {
			cmd.PrintErrln("invalid points possible:", err)
			return
		}

		event := &core.ScoreEvent{
			PointsPossible: decimal.NewNullDecimal(possible),
			PointsEarned:   decimal.NewNullDecimal(earned),
			UserID:         &userID,
			CourseID:       args[1],
			UsageID:        args[2],
		}
		event.TraceID, _ = cmd.Flags().GetString("trace")

		raw, _ := json.Marshal(event)
		event.Raw = types.JSONText(raw)

		database := provideDatabase()
		defer database.Close()

		if err := provideScoreEventStore(database).Publish(ctx, event); err != nil {
			cmd.PrintErrln("publish score event failed:", err)
			return
		}

		cmd.Println("trace:", event.TraceID)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.AddCommand(publishScoreCmd)

	publishScoreCmd.Flags().String("trace", "", "trace id, events with the same trace are enqueued once")
}
