package chat

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/malonaz/navi/internal/cli"
	"github.com/malonaz/navi/internal/configuration"
	"github.com/malonaz/navi/internal/realtime"
)

// AssistantNamer provides the name the user gave the assistant.
type AssistantNamer interface {
	AssistantName(defaultName string) string
}

// OpenFunc opens the full-screen application on a route.
type OpenFunc func(ctx context.Context, path string) error

// NewSharedCmd instantiates and returns the shared command, which prints a shared chat.
func NewSharedCmd(client SharedClient, identity Identity, open OpenFunc) *cobra.Command {
	var opts struct {
		Plain bool
	}
	cmd := &cobra.Command{
		Use:   "shared <chat-id> <user-id>",
		Short: "View a shared chat",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Plain {
				return open(cmd.Context(), "/shared/"+args[0]+"/"+args[1])
			}
			shared, err := ResolveShared(cmd.Context(), client, identity.UserID(), args[0], args[1])
			if err != nil {
				cli.Error(SharedErrorMessage(err))
				return err
			}
			if shared.Redirect != "" {
				cli.Info("You own this chat. Open it with: navi chat %s", args[0])
				return nil
			}
			cli.Title("SHARED CHAT: %s", shared.Chat.Title)
			for _, message := range shared.Messages {
				printMessage(message, "Assistant")
			}
			cli.Separator()
			cli.Info("This is a shared chat. You can view the conversation but cannot send messages.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.Plain, "plain", false, "Print the chat instead of opening the full-screen view")
	return cmd
}

// NewChatCmd instantiates and returns the chat command. With --plain, it runs a
// line-mode conversation in the terminal.
func NewChatCmd(config *configuration.Config, store *Store, assistant AssistantNamer, jar http.CookieJar, historyFile string, open OpenFunc) *cobra.Command {
	var opts struct {
		Plain bool
	}
	cmd := &cobra.Command{
		Use:   "chat <chat-id>",
		Short: "Back and forth chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Plain {
				return open(cmd.Context(), "/chat/"+args[0])
			}
			name := assistant.AssistantName(config.UI.DefaultAssistantName)
			return runPlain(cmd.Context(), config, store, name, jar, historyFile, args[0])
		},
	}
	cmd.Flags().BoolVar(&opts.Plain, "plain", false, "Chat line by line instead of opening the full-screen view")
	return cmd
}

func runPlain(ctx context.Context, config *configuration.Config, store *Store, assistantName string, jar http.CookieJar, historyFile, chatID string) error {
	if _, err := store.ListChats(ctx); err != nil {
		return err
	}
	if _, ok := store.Chat(chatID); !ok {
		return errors.Errorf("chat %s not found", chatID)
	}
	store.SelectChatID(chatID)
	messages, err := store.FetchMessages(ctx, chatID)
	if err != nil {
		return err
	}

	active, _ := store.Chat(chatID)
	cli.Title("NAVI CHAT [%s](%s)", active.Title, chatID)
	for _, message := range messages {
		printMessage(message, assistantName)
	}

	dialCtx, cancel := context.WithTimeout(ctx, config.Timeout())
	channel, err := realtime.Dial(dialCtx, config.SocketEndpoint(), jar)
	cancel()
	if err != nil {
		return errors.Wrap(err, "connecting to the assistant")
	}
	defer channel.Close()

	prompt, err := cli.NewPrompt(historyFile)
	if err != nil {
		return err
	}
	defer prompt.Close()

	for {
		text, err := prompt.Read()
		if errors.Is(err, cli.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "reading prompt")
		}
		if text == "" {
			continue
		}

		if _, _, err := store.SendMessage(text); err != nil {
			return err
		}
		sendCtx, cancel := context.WithTimeout(ctx, config.Timeout())
		err = channel.SendMessage(sendCtx, chatID, text)
		cancel()
		if err != nil {
			return errors.Wrap(err, "sending message")
		}
		if err := awaitReply(ctx, channel, store, assistantName); err != nil {
			return err
		}
	}
}

// awaitReply prints the next reply of the active chat. Ctrl+C stops waiting.
func awaitReply(ctx context.Context, channel *realtime.Channel, store *Store, assistantName string) error {
	interruptSignalChannel := make(chan os.Signal, 1)
	signal.Notify(interruptSignalChannel, os.Interrupt)
	defer signal.Stop(interruptSignalChannel)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-interruptSignalChannel:
			cli.Info("#Interrupted")
			return nil
		case event, ok := <-channel.Events():
			if !ok {
				if err := channel.Err(); err != nil {
					return err
				}
				return realtime.ErrClosed
			}
			if event.Name != realtime.EventAIResponse {
				continue
			}
			response, err := realtime.DecodeAIResponse(event)
			if err != nil {
				return err
			}
			reply := Reply{ChatID: response.Chat, ID: response.ID, Content: response.Content}
			if message, ok := store.ReceiveReply(reply); ok {
				printMessage(message, assistantName)
				return nil
			}
		}
	}
}

func printMessage(message Message, assistantName string) {
	if message.Sender == SenderUser {
		cli.User("You", message.Text)
		return
	}
	cli.Assistant(assistantName, message.Text)
}
