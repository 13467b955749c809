package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/gocollab/internal/storage"
)

func init() {
	userAddCmd.Flags().String("name", "", "display name")
	userAddCmd.Flags().String("email", "", "email address")
	_ = userAddCmd.MarkFlagRequired("name")
	_ = userAddCmd.MarkFlagRequired("email")

	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage the users allowed to log in",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a user to the persisted user list",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")

		ctx := cmd.Context()
		store, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer store.Close()

		err = storage.NewMessageLog(store).AddUser(ctx, storage.User{Name: name, Email: email})
		switch {
		case errors.Is(err, storage.ErrUserExists):
			fmt.Fprintf(cmd.OutOrStdout(), "a user with email %s already exists, nothing added\n", email)
			return nil
		case err != nil:
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s <%s>\n", name, email)
		return nil
	},
}
