package main

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"xds/internal/common"
	"xds/internal/export"
	"xds/internal/fieldspec"
	"xds/internal/instance"
	"xds/internal/loader"
	"xds/internal/log"
	"xds/internal/normalize"
	"xds/internal/schema"
)

func needArgs(c *cli.Command, n int, usage string) error {
	if c.Args().Len() < n {
		return errors.Errorf("usage: %s %s", c.Name, usage)
	}

	return nil
}

func (s *session) modelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "models",
		Usage: "List the specified models",
		Action: func(ctx context.Context, c *cli.Command) error {
			r, err := s.registry(ctx, c)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODEL\tKIND\tFIELDS\tSTATE")

			for _, name := range r.Specs() {
				rt, ok := r.Model(name)
				if !ok {
					fmt.Fprintf(tw, "%s\t-\t-\tspecified\n", name)
					continue
				}

				fmt.Fprintf(tw, "%s\t%s\t%d\tregistered\n", name, rt.Kind, rt.Len())
			}

			return tw.Flush()
		},
	}
}

func (s *session) describeCommand() *cli.Command {
	return &cli.Command{
		Name:      "describe",
		Usage:     "Show the fields of a model",
		ArgsUsage: "<model>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Usage: "include system and hidden fields"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := needArgs(c, 1, "<model>"); err != nil {
				return err
			}

			r, err := s.registry(ctx, c)
			if err != nil {
				return err
			}

			rt, err := r.RegisterModel(c.Args().First())
			if err != nil {
				return err
			}

			mode := "strict"
			if !rt.Strict {
				mode = "open"
			}

			fmt.Fprintf(s.out, "%s (%s)\n", rt.Kind, mode)

			tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tTYPE\tREQUIRED\tDEFAULT\tFLAGS\tTITLE")
			describeFields(tw, rt, "", c.Bool("all"))

			return tw.Flush()
		},
	}
}

func describeFields(tw *tabwriter.Writer, rt *schema.RecordType, prefix string, all bool) {
	for _, f := range rt.Fields() {
		if !all && (f.System || f.Has(fieldspec.FlagHidden)) {
			continue
		}

		def := "-"
		if f.HasDefault {
			def = fmt.Sprint(f.Default)
		}

		flags := "-"
		if len(f.Meta.Flags) > 0 {
			flags = strings.Join(f.Meta.Flags, ",")
		}

		fmt.Fprintf(tw, "%s%s\t%s\t%t\t%s\t%s\t%s\n", prefix, f.Name, f.Meta.DType, f.Required, def, flags, f.Meta.Title)

		if f.Record != nil {
			describeFields(tw, f.Record, prefix+f.Name+".", all)
		}
	}
}

// input merges a loaded source with key=value arguments, the latter winning.
func (s *session) input(c *cli.Command, args []string) (map[string]any, error) {
	raw := map[string]any{}

	if src := c.String("from"); src != "" {
		loaded, err := loader.New(&log.Default{Verbose: c.Bool("verbose")}).Load(src)
		if err != nil {
			return nil, err
		}

		raw = loaded
	}

	maps.Copy(raw, assignments(args))

	if ns := c.String("ns"); ns != "" {
		raw[schema.FieldNS] = ns
	}

	return raw, nil
}

func (s *session) constructCommand() *cli.Command {
	return &cli.Command{
		Name:      "construct",
		Usage:     "Build and register an instance, printing it as YAML",
		ArgsUsage: "<model> [key=value ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "file, directory, query or YAML to read input from"},
			&cli.StringFlag{Name: "ns", Usage: "namespace below the model"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := needArgs(c, 1, "<model> [key=value ...]"); err != nil {
				return err
			}

			r, err := s.registry(ctx, c)
			if err != nil {
				return err
			}

			raw, err := s.input(c, c.Args().Tail())
			if err != nil {
				return err
			}

			inst, err := r.RegisterInstance(c.Args().First(), raw)
			if inst != nil {
				if werr := writeYAML(s.out, inst); werr != nil {
					return werr
				}
			}

			return err
		},
	}
}

func (s *session) locateCommand() *cli.Command {
	return &cli.Command{
		Name:      "locate",
		Usage:     "Resolve a namespace key, exactly or by unique suffix",
		ArgsUsage: "<key>",
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := needArgs(c, 1, "<key>"); err != nil {
				return err
			}

			r, err := s.registry(ctx, c)
			if err != nil {
				return err
			}

			v, err := r.Locate(c.Args().First())
			if err != nil {
				return err
			}

			switch x := v.(type) {
			case *schema.RecordType:
				fmt.Fprintf(s.out, "model %s\n", x)
				return nil
			case *instance.Instance:
				fmt.Fprintf(s.out, "instance %s\n", x.NSID())
				return writeYAML(s.out, x)
			}

			return nil
		},
	}
}

func (s *session) keysCommand() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "List every namespace key",
		Action: func(ctx context.Context, c *cli.Command) error {
			r, err := s.registry(ctx, c)
			if err != nil {
				return err
			}

			for _, k := range r.Keys() {
				fmt.Fprintln(s.out, k)
			}

			return nil
		},
	}
}

func (s *session) schemaCommand() *cli.Command {
	return &cli.Command{
		Name:      "schema",
		Usage:     "Print the JSON Schema of a model",
		ArgsUsage: "<model>",
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := needArgs(c, 1, "<model>"); err != nil {
				return err
			}

			r, err := s.registry(ctx, c)
			if err != nil {
				return err
			}

			rt, err := r.RegisterModel(c.Args().First())
			if err != nil {
				return err
			}

			data, err := export.JSON(rt)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(s.out, string(data))

			return err
		},
	}
}

func (s *session) checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Validate input against a model without registering it",
		ArgsUsage: "<model> [key=value ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "file, directory, query or YAML to read input from"},
			&cli.StringFlag{Name: "ns", Usage: "namespace below the model"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := needArgs(c, 1, "<model> [key=value ...]"); err != nil {
				return err
			}

			r, err := s.registry(ctx, c)
			if err != nil {
				return err
			}

			rt, err := r.RegisterModel(c.Args().First())
			if err != nil {
				return err
			}

			raw, err := s.input(c, c.Args().Tail())
			if err != nil {
				return err
			}

			inst, err := r.Factory().Construct(rt, raw)
			if err != nil {
				return err
			}

			v, err := export.Compile(rt)
			if err != nil {
				return err
			}

			if err := v.Validate(inst.Values()); err != nil {
				return err
			}

			by, _ := inst.Get(schema.FieldCreatedBy)
			fmt.Fprintf(s.out, "ok %s (as %v)\n", inst.NSID(), by)

			return nil
		},
	}
}

func (s *session) dumpCommand() *cli.Command {
	return &cli.Command{
		Name:      "dump",
		Usage:     "Dump the Go structure behind a namespace key",
		ArgsUsage: "<key>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "flat", Usage: "print instance values as dotted paths"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := needArgs(c, 1, "<key>"); err != nil {
				return err
			}

			r, err := s.registry(ctx, c)
			if err != nil {
				return err
			}

			v, err := r.Locate(c.Args().First())
			if err != nil {
				return err
			}

			cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true, MaxDepth: 6}
			if inst, ok := v.(*instance.Instance); ok {
				if c.Bool("flat") {
					flat := normalize.Flatten(inst.Values())
					for _, k := range common.SortedKeys(flat) {
						fmt.Fprintf(s.out, "%s = %v\n", k, flat[k])
					}

					return nil
				}

				cfg.Fdump(s.out, inst.Values())

				return nil
			}

			cfg.Fdump(s.out, v)

			return nil
		},
	}
}

func (s *session) callCommand() *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "Invoke or read a proxy export of an instance",
		ArgsUsage: "<key> <export> [arg ...]",
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := needArgs(c, 2, "<key> <export> [arg ...]"); err != nil {
				return err
			}

			r, err := s.registry(ctx, c)
			if err != nil {
				return err
			}

			args := c.Args().Slice()

			inst, ok := r.Instance(args[0])
			if !ok {
				return errors.Errorf("no instance %q", args[0])
			}

			if fn, ok := inst.Capability(args[1]); ok {
				in := make([]any, 0, len(args)-2)
				for _, a := range args[2:] {
					in = append(in, scalarArg(a))
				}

				out, err := fn(in...)
				if err != nil {
					return err
				}

				return writeYAML(s.out, out)
			}

			v, ok := inst.Export(args[1])
			if !ok {
				return errors.Errorf("%s exports no %q (exports: %v)", inst.NSID(), args[1], inst.Exports())
			}

			return writeYAML(s.out, v)
		},
	}
}
