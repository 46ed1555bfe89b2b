package cmd

import (
	"github.com/spf13/cobra"

	"github.com/neoromantic/telegram-sync-cli/internal/domain/message"
	"github.com/neoromantic/telegram-sync-cli/internal/store"
)

var searchFilter message.SearchFilter

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "Query cached messages",
}

var messagesSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over cached messages (spec §4.1)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cacheStore, err := openCacheStore()
		if err != nil {
			return err
		}
		defer cacheStore.Close()
		messages, err := store.NewMessageStore(cacheStore)
		if err != nil {
			return err
		}
		searchFilter.Query = args[0]
		results, err := messages.Search(cmd.Context(), searchFilter)
		if err != nil {
			return err
		}
		printResult(results)
		return nil
	},
}

func init() {
	messagesSearchCmd.Flags().StringVar(&searchFilter.ChatID, "chat-id", "", "restrict to one chat id")
	messagesSearchCmd.Flags().StringVar(&searchFilter.ChatUsername, "chat-username", "", "restrict to one chat username")
	messagesSearchCmd.Flags().StringVar(&searchFilter.SenderID, "sender-id", "", "restrict to one sender id")
	messagesSearchCmd.Flags().StringVar(&searchFilter.SenderUsername, "sender-username", "", "restrict to one sender username")
	messagesSearchCmd.Flags().BoolVar(&searchFilter.IncludeDeleted, "include-deleted", false, "include tombstoned messages")
	messagesSearchCmd.Flags().IntVar(&searchFilter.Limit, "limit", 50, "max results")
	messagesSearchCmd.Flags().IntVar(&searchFilter.Offset, "offset", 0, "result offset")

	rootCmd.AddCommand(messagesCmd)
	messagesCmd.AddCommand(messagesSearchCmd)
}
