package session

import (
	"github.com/spf13/cobra"

	"github.com/malonaz/navi/internal/api"
	"github.com/malonaz/navi/internal/cli"
)

// NewLoginCmd instantiates and returns the login command.
func NewLoginCmd(sessions *Store) *cobra.Command {
	var opts struct {
		Email    string
		Password string
	}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to navi",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if opts.Email == "" {
				if opts.Email, err = cli.AskInput("Email", ""); err != nil {
					return err
				}
			}
			if opts.Password == "" {
				if opts.Password, err = cli.AskPassword("Password"); err != nil {
					return err
				}
			}
			user, err := sessions.Login(cmd.Context(), opts.Email, opts.Password)
			if err != nil {
				cli.Error(sessions.Error())
				return err
			}
			cli.Success("Login successful! Welcome back, %s!", user.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Email, "email", "e", "", "Email address")
	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

// NewLogoutCmd instantiates and returns the logout command.
func NewLogoutCmd(sessions *Store) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out of navi",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			if err := sessions.Logout(cmd.Context()); err != nil {
				cli.Info("The server could not be notified: %v", err)
			}
			cli.Success("Logged out.")
		},
	}
}

// NewWhoAmICmd instantiates and returns the whoami command.
func NewWhoAmICmd(sessions *Store) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the logged in user",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := sessions.FetchCurrentUser(cmd.Context())
			if err != nil {
				cli.Error("Not logged in. Run 'navi login'.")
				return err
			}
			cli.Title("NAVI USER")
			cli.Info("id:        %s", user.ID)
			cli.Info("name:      %s", user.Name)
			cli.Info("email:     %s", user.Email)
			cli.Info("assistant: %s", sessions.AssistantName(DefaultAssistantName))
			return nil
		},
	}
}

// NewAssistantNameCmd instantiates and returns the assistant-name command.
func NewAssistantNameCmd(sessions *Store) *cobra.Command {
	return &cobra.Command{
		Use:   "assistant-name <name>",
		Short: "Name your assistant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := sessions.SetAssistantName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cli.Success("Your assistant is now called %s.", user.AssistantName)
			return nil
		},
	}
}

// NewProfileCmd instantiates and returns the profile command, which updates the name
// and email of the logged in user.
func NewProfileCmd(sessions *Store) *cobra.Command {
	var opts struct {
		Name  string
		Email string
	}
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update your name or email",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := sessions.UpdateUser(cmd.Context(), &api.UserPatch{Name: opts.Name, Email: opts.Email})
			if err != nil {
				if text := sessions.Error(); text != "" {
					cli.Error(text)
				}
				return err
			}
			cli.Success("Profile updated: %s <%s>", user.Name, user.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Name, "name", "n", "", "New display name")
	cmd.Flags().StringVarP(&opts.Email, "email", "e", "", "New email address")
	return cmd
}
