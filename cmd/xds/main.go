// Command xds inspects models and constructs instances from a directory of
// YAML model specifications.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	s := &session{out: os.Stdout}

	if err := newApp(s).Run(context.Background(), args); err != nil {
		fmt.Fprintln(os.Stderr, "xds:", err)
		os.Exit(1)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML file with models_dir, configs_dir, env and identity"},
		&cli.StringFlag{Name: "models", Usage: "directory of model specs", Sources: cli.EnvVars("XDS_MODELS")},
		&cli.StringFlag{Name: "configs", Usage: "directory of config documents", Sources: cli.EnvVars("XDS_CONFIGS")},
		&cli.StringFlag{Name: "env", Usage: "environment name", Sources: cli.EnvVars("XDS_ENV")},
		&cli.StringFlag{Name: "identity", Usage: "creator identity stamped on instances"},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log debug messages"},
	}
}

func newApp(s *session) *cli.Command {
	return &cli.Command{
		Name:   "xds",
		Usage:  "Config driven schemas, instances and proxies",
		Writer: s.out,
		Flags:  globalFlags(),
		Commands: []*cli.Command{
			s.modelsCommand(),
			s.describeCommand(),
			s.constructCommand(),
			s.checkCommand(),
			s.locateCommand(),
			s.keysCommand(),
			s.schemaCommand(),
			s.dumpCommand(),
			s.callCommand(),
			s.replCommand(),
		},
	}
}
