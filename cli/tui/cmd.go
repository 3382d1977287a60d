package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Run runs the application until the user quits, starting on the route at path.
func Run(ctx context.Context, opts *Options, path string) error {
	route, err := ParseRoute(path)
	if err != nil {
		return err
	}
	m, err := New(ctx, opts, route)
	if err != nil {
		return err
	}
	defer m.Close()

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "running navi")
	}
	return nil
}

// NewOpenCmd instantiates and returns the open command, which starts the application on
// a given route.
func NewOpenCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:     "open <path>",
		Short:   "Open navi on a route (/, /chat/<id>, /shared/<chatId>/<userId>, /login)",
		Example: "  navi open /chat/6650c0ffee\n  navi open /shared/6650c0ffee/64aa00beef",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), opts, args[0])
		},
	}
}
