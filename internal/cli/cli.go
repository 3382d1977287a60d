package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/buger/goterm"
	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/pkg/errors"
)

var (
	userColor      = color.New(color.FgGreen, color.Bold)
	assistantColor = color.New(color.FgCyan)
	infoColor      = color.New(color.FgHiBlack)
	titleColor     = color.New(color.FgMagenta, color.Bold)
	separatorColor = color.New(color.FgHiBlack)
	errorColor     = color.New(color.FgRed)
	successColor   = color.New(color.FgGreen)
	promptColor    = color.New(color.FgHiBlue)

	// ErrInterrupt is returned by prompts when the user presses Ctrl+C.
	ErrInterrupt = errors.New("interrupted")
)

func width() int {
	if w := goterm.Width(); w > 0 {
		return w
	}
	return 80
}

// Separator printed to cli.
func Separator() {
	separatorColor.Println(strings.Repeat("-", width()))
}

// Title printed to cli.
func Title(text string, args ...any) {
	w := width()
	title := "      " + fmt.Sprintf(text, args...) + "      "
	leftWidth := (w - len(title)) / 2
	if leftWidth < 0 {
		leftWidth = 0
	}
	rightWidth := w - len(title) - leftWidth
	if rightWidth < 0 {
		rightWidth = 0
	}
	titleColor.Println(strings.Repeat("-", leftWidth) + title + strings.Repeat("-", rightWidth))
}

// User message printed to cli.
func User(name, text string) {
	userColor.Printf("%s: ", name)
	fmt.Println(text)
}

// Assistant message printed to cli.
func Assistant(name, text string) {
	assistantColor.Printf("%s: ", name)
	assistantColor.Println(text)
}

// Info printed to cli.
func Info(text string, args ...any) {
	infoColor.Printf(text+"\n", args...)
}

// Success printed to cli.
func Success(text string, args ...any) {
	successColor.Printf(text+"\n", args...)
}

// Error printed to cli.
func Error(text string, args ...any) {
	errorColor.Printf(text+"\n", args...)
}

// AskInput prompts for a line of text.
func AskInput(message, defaultValue string) (string, error) {
	answer := ""
	prompt := &survey.Input{Message: message, Default: defaultValue}
	if err := survey.AskOne(prompt, &answer, survey.WithValidator(survey.Required)); err != nil {
		return "", errors.Wrap(err, "prompting")
	}
	return strings.TrimSpace(answer), nil
}

// AskPassword prompts for a secret.
func AskPassword(message string) (string, error) {
	answer := ""
	prompt := &survey.Password{Message: message}
	if err := survey.AskOne(prompt, &answer, survey.WithValidator(survey.Required)); err != nil {
		return "", errors.Wrap(err, "prompting")
	}
	return answer, nil
}

// QueryUser a yes/no question.
func QueryUser(question string) bool {
	confirm := false
	survey.AskOne(&survey.Confirm{Message: question}, &confirm)
	return confirm
}

// Prompt reads lines from the terminal, with a persistent history.
type Prompt struct {
	instance *readline.Instance
}

// NewPrompt creates a prompt keeping its history in historyFile.
func NewPrompt(historyFile string) (*Prompt, error) {
	instance, err := readline.NewEx(&readline.Config{
		Prompt:            promptColor.Sprint("> "),
		InterruptPrompt:   "^C",
		HistoryFile:       historyFile,
		HistorySearchFold: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating readline instance")
	}
	return &Prompt{instance: instance}, nil
}

// Read returns the next line. It returns ErrInterrupt on Ctrl+C and io.EOF on Ctrl+D.
func (p *Prompt) Read() (string, error) {
	line, err := p.instance.Readline()
	if err == readline.ErrInterrupt {
		return "", ErrInterrupt
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Close releases the terminal.
func (p *Prompt) Close() error {
	return p.instance.Close()
}
