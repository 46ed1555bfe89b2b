package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/neoromantic/telegram-sync-cli/internal/apperror"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/user"
	"github.com/neoromantic/telegram-sync-cli/internal/store"
)

var (
	contactListLimit  int
	contactListOffset int
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Query cached users",
}

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached users",
	RunE: func(cmd *cobra.Command, args []string) error {
		cacheStore, err := openCacheStore()
		if err != nil {
			return err
		}
		defer cacheStore.Close()
		users, err := store.NewUserStore(cacheStore)
		if err != nil {
			return err
		}
		list, err := users.List(cmd.Context(), user.Filter{Limit: contactListLimit, Offset: contactListOffset})
		if err != nil {
			return err
		}
		printResult(list)
		return nil
	},
}

var contactsSearchCmd = &cobra.Command{
	Use:   "search <username-or-phone>",
	Short: "Search cached users by username or phone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cacheStore, err := openCacheStore()
		if err != nil {
			return err
		}
		defer cacheStore.Close()
		users, err := store.NewUserStore(cacheStore)
		if err != nil {
			return err
		}

		query := args[0]
		var u *user.User
		if strings.HasPrefix(query, "@") || !isNumeric(query) {
			u, err = users.GetByUsername(cmd.Context(), query)
		} else {
			u, err = users.GetByPhone(cmd.Context(), query)
		}
		if err != nil {
			return err
		}
		if u == nil {
			printResult([]user.User{})
			return nil
		}
		printResult([]user.User{*u})
		return nil
	},
}

var contactsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch one cached user by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cacheStore, err := openCacheStore()
		if err != nil {
			return err
		}
		defer cacheStore.Close()
		users, err := store.NewUserStore(cacheStore)
		if err != nil {
			return err
		}
		u, err := users.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if u == nil {
			return apperror.New(apperror.CodeGeneral, "user not found")
		}
		printResult(u)
		return nil
	},
}

func init() {
	contactsListCmd.Flags().IntVar(&contactListLimit, "limit", 100, "max results")
	contactsListCmd.Flags().IntVar(&contactListOffset, "offset", 0, "result offset")
	rootCmd.AddCommand(contactsCmd)
	contactsCmd.AddCommand(contactsListCmd, contactsSearchCmd, contactsGetCmd)
}
