package chat

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.design/x/clipboard"

	"github.com/malonaz/navi/internal/cli"
	"github.com/malonaz/navi/internal/configuration"
)

// Identity provides the id of the session user.
type Identity interface {
	UserID() string
}

// NewCmd instantiates and returns the chats command.
func NewCmd(config *configuration.Config, store *Store, identity Identity) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "Manage chats",
		Long:  "List, create, rename, delete and share chats",
	}
	cmd.AddCommand(
		newListCmd(store),
		newCreateCmd(store),
		newRenameCmd(store),
		newDeleteCmd(store),
		newShareCmd(config, store, identity),
	)
	return cmd
}

func newListCmd(store *Store) *cobra.Command {
	var opts struct {
		Limit int
	}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List chats, most recent first",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			chats, err := store.ListChats(cmd.Context())
			if err != nil {
				return err
			}
			cli.Title("NAVI CHATS")
			if len(chats) == 0 {
				cli.Info("No chats yet.")
				return nil
			}
			for i, chat := range chats {
				if opts.Limit > 0 && i >= opts.Limit {
					break
				}
				fmt.Printf("%s  %s\n", chat.ID, chat.Title)
				cli.Info("    last activity: %s", chat.Timestamp)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "Maximum number of chats to list")
	return cmd
}

func newCreateCmd(store *Store) *cobra.Command {
	return &cobra.Command{
		Use:   "create <title>",
		Short: "Create a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chat, err := store.CreateChat(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cli.Success("Created chat %s (%s)", chat.ID, chat.Title)
			return nil
		},
	}
}

func newRenameCmd(store *Store) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <chat-id> <title>",
		Short: "Rename a chat",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store.RenameChat(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			cli.Success("Renamed chat %s", args[0])
			return nil
		},
	}
}

func newDeleteCmd(store *Store) *cobra.Command {
	var opts struct {
		Yes bool
	}
	cmd := &cobra.Command{
		Use:   "delete <chat-id>",
		Short: "Delete a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Yes && !cli.QueryUser(fmt.Sprintf("Delete chat %s? This cannot be undone.", args[0])) {
				return nil
			}
			if err := store.DeleteChat(cmd.Context(), args[0]); err != nil {
				return err
			}
			cli.Success("Deleted chat %s", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newShareCmd(config *configuration.Config, store *Store, identity Identity) *cobra.Command {
	var opts struct {
		Copy bool
	}
	cmd := &cobra.Command{
		Use:   "share <chat-id>",
		Short: "Print the public link of a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := store.ListChats(cmd.Context()); err != nil {
				return err
			}
			chat, ok := store.Chat(args[0])
			if !ok {
				return errors.Errorf("chat %s not found", args[0])
			}
			link, err := ShareURL(config.WebBaseURL, chat, identity.UserID())
			if err != nil {
				return err
			}
			fmt.Println(link)
			if opts.Copy {
				if err := clipboard.Init(); err != nil {
					return errors.Wrap(err, "initializing clipboard")
				}
				clipboard.Write(clipboard.FmtText, []byte(link))
				cli.Success("Share link copied to clipboard!")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.Copy, "copy", "c", false, "Copy the link to the clipboard")
	return cmd
}
