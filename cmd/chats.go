package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/neoromantic/telegram-sync-cli/internal/apperror"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/chat"
	"github.com/neoromantic/telegram-sync-cli/internal/store"
)

var (
	chatListLimit  int
	chatListOffset int
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "Query cached dialogs",
}

var chatsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached chats (cache-first, spec §2)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cacheStore, err := openCacheStore()
		if err != nil {
			return err
		}
		defer cacheStore.Close()
		chats, err := store.NewChatStore(cacheStore)
		if err != nil {
			return err
		}
		list, err := chats.List(cmd.Context(), chat.Filter{Limit: chatListLimit, Offset: chatListOffset})
		if err != nil {
			return err
		}
		printResult(list)
		return nil
	},
}

var chatsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search cached chats by title substring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cacheStore, err := openCacheStore()
		if err != nil {
			return err
		}
		defer cacheStore.Close()
		chats, err := store.NewChatStore(cacheStore)
		if err != nil {
			return err
		}
		all, err := chats.List(cmd.Context(), chat.Filter{Limit: 1000})
		if err != nil {
			return err
		}
		needle := strings.ToLower(args[0])
		var matched []chat.Chat
		for _, c := range all {
			if strings.Contains(strings.ToLower(c.Title), needle) {
				matched = append(matched, c)
			}
		}
		printResult(matched)
		return nil
	},
}

var chatsGetCmd = &cobra.Command{
	Use:   "get <id-or-@username>",
	Short: "Fetch one cached chat by id or username",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cacheStore, err := openCacheStore()
		if err != nil {
			return err
		}
		defer cacheStore.Close()
		chats, err := store.NewChatStore(cacheStore)
		if err != nil {
			return err
		}

		arg := args[0]
		var c *chat.Chat
		if strings.HasPrefix(arg, "@") || !isNumeric(arg) {
			c, err = chats.GetByUsername(cmd.Context(), arg)
		} else {
			c, err = chats.Get(cmd.Context(), arg)
		}
		if err != nil {
			return err
		}
		if c == nil {
			return apperror.New(apperror.CodeGeneral, "chat not found")
		}
		printResult(c)
		return nil
	},
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func init() {
	chatsListCmd.Flags().IntVar(&chatListLimit, "limit", 50, "max results")
	chatsListCmd.Flags().IntVar(&chatListOffset, "offset", 0, "result offset")
	rootCmd.AddCommand(chatsCmd)
	chatsCmd.AddCommand(chatsListCmd, chatsSearchCmd, chatsGetCmd)
}
