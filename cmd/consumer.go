package cmd

import (
	"strings"

	"ltiprovider/core"
	"ltiprovider/service/signature"

	"github.com/fox-one/pkg/uuid"
	"github.com/spf13/cobra"
)

var consumerCmd = &cobra.Command{
	Use:     "consumer <command>",
	Aliases: []string{"c"},
	Short:   "manage lti consumers",
}

var addConsumerCmd = &cobra.Command{
	Use:   "add",
	Short: "register a consumer, key and secret are generated when omitted",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database := provideDatabase()
		defer database.Close()

		name, _ := cmd.Flags().GetString("name")
		key, _ := cmd.Flags().GetString("key")
		secret, _ := cmd.Flags().GetString("secret")

		if key == "" {
			key = newCredential()
		}

		if secret == "" {
			secret = newCredential()
		}

		if !signature.CheckClientKey(key) {
			cmd.PrintErrln("invalid key:", key)
			return
		}

		consumer := &core.Consumer{
			Name:   name,
			Key:    key,
			Secret: secret,
		}

		if err := provideConsumerStore(database).Create(ctx, consumer); err != nil {
			cmd.PrintErrln("create consumer failed:", err)
			return
		}

		cmd.Println("key:", consumer.Key)
		cmd.Println("secret:", consumer.Secret)
	},
}

var listConsumerCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "list registered consumers",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		database := provideDatabase()
		defer database.Close()

		consumers, err := provideConsumerStore(database).List(ctx)
		if err != nil {
			cmd.PrintErrln("list consumers failed:", err)
			return
		}

		for _, c := range consumers {
			cmd.Printf("%d\t%s\t%s\n", c.ID, c.Key, c.Name)
		}
	},
}

// newCredential 32 hex chars, the longest key the validator accepts
func newCredential() string {
	return strings.ReplaceAll(uuid.New(), "-", "")
}

func init() {
	rootCmd.AddCommand(consumerCmd)
	consumerCmd.AddCommand(addConsumerCmd, listConsumerCmd)

	addConsumerCmd.Flags().String("name", "", "consumer name")
	addConsumerCmd.Flags().String("key", "", "oauth consumer key")
	addConsumerCmd.Flags().String("secret", "", "oauth consumer secret")
}
