package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
	"inkboard/src/pkg/session"
)

// CLI represents the command-line interface
type CLI struct {
	sessions  *session.SessionManager
	sessionID string
	rl        *readline.Instance
	out       io.Writer
	stopCh    chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once
	logger    *log.Logger
}

// NewCLI creates a new CLI instance with its own session. Input history is
// kept in historyFile when it is not empty.
func NewCLI(sessions *session.SessionManager, historyFile string, logger *log.Logger) (*CLI, error) {
	c, err := newCLI(sessions, os.Stdout, logger)
	if err != nil {
		return nil, err
	}

	c.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     historyFile,
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		sessions.SessionDelete(c.sessionID)
		return nil, fmt.Errorf("failed to initialize readline: %w", err)
	}
	c.out = c.rl.Stdout()
	return c, nil
}

func newCLI(sessions *session.SessionManager, out io.Writer, logger *log.Logger) (*CLI, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session manager not initialized")
	}
	sessionID, err := sessions.SessionAdd()
	if err != nil {
		return nil, fmt.Errorf("failed to create CLI session: %w", err)
	}
	return &CLI{
		sessions:  sessions,
		sessionID: sessionID,
		out:       out,
		stopCh:    make(chan struct{}),
		logger:    logger,
	}, nil
}

// Run starts the CLI and handles user input until exit, EOF or Stop
func (c *CLI) Run() error {
	ctx := context.Background()
	defer c.closeReadline()
	defer c.sessions.SessionDelete(c.sessionID)

	fmt.Fprintln(c.out, "Welcome to Inkboard CLI!")
	fmt.Fprintln(c.out, "Type 'help' for a list of commands or 'exit' to quit.")
	c.logger.Info(ctx, "CLI started", log.Fields{"sessionID": c.sessionID})

	// Main loop
	for {
		line, err := c.rl.Readline()
		select {
		case <-c.stopCh:
			return nil
		default:
		}
		if errors.Is(err, readline.ErrInterrupt) {
			fmt.Fprintln(c.out, "Use 'exit' or 'quit' to exit the program.")
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			c.logger.Error(ctx, "Error reading input", log.Fields{"error": err})
			return fmt.Errorf("error reading input: %w", err)
		}

		if done := c.execute(line); done {
			return nil
		}
	}
}

// Stop signals the CLI to stop its main loop
func (c *CLI) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.closeReadline()
	})
}

// closeReadline restores the terminal; Readline returns io.EOF afterwards
func (c *CLI) closeReadline() {
	c.closeOnce.Do(func() {
		if c.rl == nil {
			return
		}
		if err := c.rl.Close(); err != nil {
			c.logger.Warn(context.Background(), "Failed to close readline", log.Fields{"error": err})
		}
	})
}

// execute runs one input line and reports whether the user asked to exit
func (c *CLI) execute(input string) bool {
	ctx := context.Background()
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	if input == "exit" || input == "quit" {
		return true
	}

	// Parse input into model.Command
	cmd, err := parseCommand(input)
	if err != nil {
		fmt.Fprintf(c.out, "Error parsing command: %v\n", err)
		c.logger.Warn(ctx, "Error parsing command", log.Fields{"error": err, "input": input})
		return false
	}

	// Check for help command
	if cmd.Scope == "help" {
		args := cmd.Args
		if cmd.Operation != "" {
			args = append([]string{cmd.Operation}, args...)
		}
		c.printHelp(args)
		return false
	}

	result, err := c.sessions.SessionRun(c.sessionID, cmd)
	if errors.Is(err, session.ErrExit) {
		return true
	}
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		if errors.Is(err, session.ErrStopped) {
			return true
		}
	} else if result != nil {
		fmt.Fprintf(c.out, "Result: %v\n", result)
	}
	return false
}

// parseCommand parses user input into a model.Command. Double quotes group
// words into one argument; scope and operation are case-insensitive.
func parseCommand(input string) (model.Command, error) {
	args, err := splitArgs(input)
	if err != nil {
		return model.Command{}, err
	}
	if len(args) == 0 {
		return model.Command{}, fmt.Errorf("empty command")
	}

	cmd := model.Command{
		Scope:     strings.ToLower(args[0]),
		Operation: "",
		Args:      []string{},
	}

	if len(args) > 1 {
		cmd.Operation = strings.ToLower(args[1])
		cmd.Args = args[2:]
	}

	return cmd, nil
}

func splitArgs(input string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuotes, quoted := false, false

	for _, char := range input {
		switch {
		case char == '"':
			inQuotes = !inQuotes
			quoted = true
		case (char == ' ' || char == '\t') && !inQuotes:
			if current.Len() > 0 || quoted {
				args = append(args, current.String())
				current.Reset()
				quoted = false
			}
		default:
			current.WriteRune(char)
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quote")
	}
	if current.Len() > 0 || quoted {
		args = append(args, current.String())
	}
	return args, nil
}
