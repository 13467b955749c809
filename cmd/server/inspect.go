package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/gocollab/internal/document"
	"github.com/Tyrowin/gocollab/internal/protocol"
	"github.com/Tyrowin/gocollab/internal/server"
	"github.com/Tyrowin/gocollab/internal/storage"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the persisted messages, users and document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return inspect(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

type inspectReport struct {
	Messages []protocol.ChatMessage `json:"messages"`
	Users    []storage.User         `json:"users"`
	Document document.State         `json:"document"`
}

func inspect(ctx context.Context, cfg server.Config, out io.Writer) error {
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	messages := storage.NewMessageLog(store)
	history, err := messages.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	users, err := messages.Users(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	doc, err := storage.NewDocumentStore(store, cfg.WelcomeText).Read(ctx)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(inspectReport{Messages: history, Users: users, Document: doc})
}
