package cmd

import (
	"time"

	"ltiprovider/core"
	"ltiprovider/service/session"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "token <user_id> [username]",
	Short: "issue a session token for crafting launches",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		user := &core.User{ID: cast.ToInt64(args[0])}
		if len(args) > 1 {
			user.Username = args[1]
		}

		if user.ID <= 0 {
			cmd.PrintErrln("invalid user id:", args[0])
			return
		}

		ttl, _ := cmd.Flags().GetDuration("ttl")
		token, err := session.Issue(cfg.Session, user, ttl)
		if err != nil {
			cmd.PrintErrln("issue token failed:", err)
			return
		}

		cmd.Println(token)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.Flags().Duration("ttl", time.Hour, "token ttl")
}
