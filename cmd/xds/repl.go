package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

const replPrompt = "xds> "

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".xds_history")
}

func (s *session) replCommand() *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "Run commands interactively against one registry",
		Action: func(ctx context.Context, c *cli.Command) error {
			if _, err := s.registry(ctx, c); err != nil {
				return err
			}

			lin := liner.NewLiner()
			defer lin.Close()

			lin.SetCtrlCAborts(true)

			hist := historyPath()
			if f, err := os.Open(hist); err == nil {
				lin.ReadHistory(f)
				f.Close()
			}

			for {
				line, err := lin.Prompt(replPrompt)
				if err == io.EOF || err == liner.ErrPromptAborted {
					fmt.Fprintln(s.out)
					break
				}

				if err != nil {
					return err
				}

				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}

				lin.AppendHistory(line)

				if line == ":quit" || line == ":q" {
					break
				}

				if err := s.eval(ctx, line); err != nil {
					fmt.Fprintln(s.out, "error:", err)
				}
			}

			if f, err := os.Create(hist); err == nil {
				lin.WriteHistory(f)
				f.Close()
			}

			return nil
		},
	}
}

// eval runs one repl line as a command against the session's registry.
func (s *session) eval(ctx context.Context, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return nil
	}

	if args[0] == "repl" {
		return errors.New("already in the repl")
	}

	return newApp(s).Run(ctx, append([]string{"xds"}, args...))
}
