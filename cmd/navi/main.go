package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/malonaz/navi/chat"
	"github.com/malonaz/navi/cli/tui"
	"github.com/malonaz/navi/internal/api"
	"github.com/malonaz/navi/internal/configuration"
	"github.com/malonaz/navi/internal/history"
	"github.com/malonaz/navi/session"
	"github.com/malonaz/navi/store"
)

const configFilepath = "~/.config/navi/config.json"

var rootCmd = &cobra.Command{
	Use:     "navi",
	Short:   "A terminal client for the navi assistant",
	Version: "1.0",
	Args:    cobra.ExactArgs(0),
}

func main() {
	config, err := configuration.Parse(configFilepath)
	if err != nil {
		panic(err)
	}

	// Create store
	store, err := store.New(config.StateDatabase)
	if err != nil {
		panic(err)
	}
	// Ensure store is closed when the program exits normally
	defer store.Close()

	client, err := api.New(config.APIEndpoint(), config.Timeout())
	if err != nil {
		panic(err)
	}
	sessions, err := session.New(client, store)
	if err != nil {
		panic(err)
	}
	chats := chat.NewStore(client)
	inputHistory, err := history.New(store)
	if err != nil {
		panic(err)
	}

	opts := &tui.Options{
		Config:   config,
		Chats:    chats,
		Sessions: sessions,
		Shared:   client,
		Jar:      client.Jar(),
		History:  inputHistory,
	}
	open := func(ctx context.Context, path string) error {
		return tui.Run(ctx, opts, path)
	}
	promptHistoryFile := filepath.Join(filepath.Dir(config.StateDatabase), "prompt_history")

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return open(cmd.Context(), "/")
	}
	rootCmd.AddCommand(tui.NewOpenCmd(opts))
	rootCmd.AddCommand(session.NewLoginCmd(sessions))
	rootCmd.AddCommand(session.NewLogoutCmd(sessions))
	rootCmd.AddCommand(session.NewWhoAmICmd(sessions))
	rootCmd.AddCommand(session.NewAssistantNameCmd(sessions))
	rootCmd.AddCommand(session.NewProfileCmd(sessions))
	rootCmd.AddCommand(chat.NewCmd(config, chats, sessions))
	rootCmd.AddCommand(chat.NewChatCmd(config, chats, sessions, client.Jar(), promptHistoryFile, open))
	rootCmd.AddCommand(chat.NewSharedCmd(client, sessions, open))
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		store.Close()
		os.Exit(1)
	}
}
