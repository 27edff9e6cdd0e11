package main

import (
	"context"
	"io"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"xds/internal/log"
	"xds/internal/proxy"
	"xds/internal/proxy/dataset"
	"xds/internal/proxy/widget"
	"xds/internal/registry"
)

// session holds the registry across the commands of one process, so the
// repl bootstraps once.
type session struct {
	reg *registry.Registry
	out io.Writer
}

func (s *session) registry(ctx context.Context, c *cli.Command) (*registry.Registry, error) {
	if s.reg != nil {
		return s.reg, nil
	}

	cfg := &registry.Config{}

	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = registry.LoadConfig(path); err != nil {
			return nil, err
		}
	}

	for flag, dst := range map[string]*string{
		"models":   &cfg.ModelsDir,
		"configs":  &cfg.ConfigsDir,
		"env":      &cfg.Env,
		"identity": &cfg.Identity,
	} {
		if v := c.String(flag); v != "" {
			*dst = v
		}
	}

	m := proxy.NewMap()
	dataset.Register(m)
	widget.Register(m)

	r := registry.New(*cfg,
		registry.WithLogger(&log.Default{Verbose: c.Bool("verbose")}),
		registry.WithProxies(m),
	)

	if err := r.Init(ctx); err != nil {
		return nil, err
	}

	s.reg = r

	return r, nil
}

// assignments turns key=value arguments into raw instance input.
func assignments(args []string) map[string]any {
	raw := make(map[string]any, len(args))

	for _, a := range args {
		k, v, _ := strings.Cut(a, "=")
		raw[strings.TrimSpace(k)] = v
	}

	return raw
}

// scalarArg decodes a call argument as YAML so "3" is a number and
// "{status: done}" a mapping.
func scalarArg(s string) any {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return s
	}

	return v
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(v); err != nil {
		return err
	}

	return enc.Close()
}
