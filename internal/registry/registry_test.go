package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"xds/internal/diagnostic"
	"xds/internal/instance"
	"xds/internal/log"
	"xds/internal/proxy"
	"xds/internal/proxy/dataset"
	"xds/internal/schema"
)

var testModels = map[string]string{
	"ds.yaml": `
kind: DS
name: str#req#key
rows: int=5
proxy: str=DataSourceProxy
`,
	"board.yaml": `
kind: Board
title: str#req
source: xref=DS
`,
	"team.yaml": `
kind: Team
lead: str
---
kind: Member#open
name: str#req
`,
	"cycle.yaml": `
kind: CycA
b: xref=CycB
---
kind: CycB
a: xref=CycA
`,
}

func setup(t *testing.T, env string) (*Registry, Config) {
	t.Helper()

	root := t.TempDir()
	cfg := Config{
		ModelsDir:  filepath.Join(root, "models"),
		ConfigsDir: filepath.Join(root, "configs"),
		Identity:   "tester",
	}

	require.NoError(t, os.Mkdir(cfg.ModelsDir, 0o755))
	require.NoError(t, os.Mkdir(cfg.ConfigsDir, 0o755))

	for name, content := range testModels {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.ModelsDir, name), []byte(content), 0o644))
	}

	require.NoError(t, os.WriteFile(filepath.Join(cfg.ConfigsDir, "env.dev.yaml"), []byte(env), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ConfigsDir, "board.yaml"), []byte("kind: Board\ntitle: Sprint\n"), 0o644))

	m := proxy.NewMap()
	dataset.Register(m)

	return New(cfg, WithLogger(log.NewTesting(t)), WithProxies(m)), cfg
}

func TestRegistry_Init(t *testing.T) {
	r, _ := setup(t, "kind: Env\nmodels: [board]\n")
	assert.Equal(t, StateUninitialized, r.State())

	require.NoError(t, r.Init(context.Background()))
	assert.Equal(t, StateReady, r.State())
	assert.Equal(t, "ready", r.State().String())

	var kinds []string
	for _, rt := range r.Models() {
		kinds = append(kinds, rt.Kind)
	}

	assert.Equal(t, []string{"Board", "DS", "Env"}, kinds)
	assert.Equal(t, []string{"board", "cyca", "cycb", "ds", "env", "member", "team"}, r.Specs())

	env := r.Env()
	require.NotNil(t, env)
	assert.Equal(t, "env/dev", env.NSID())

	name, _ := env.Get("name")
	assert.Equal(t, "dev", name)

	assert.Equal(t, []string{"instances/env/dev", "models/board", "models/ds", "models/env"}, r.Keys())

	cfg, ok := r.Config("board")
	require.True(t, ok)
	assert.Equal(t, "Sprint", cfg["title"])

	// second Init is a no-op
	require.NoError(t, r.Init(context.Background()))
	assert.Len(t, r.Instances(), 1)
}

func TestRegistry_InitFailure(t *testing.T) {
	r, _ := setup(t, "models: [ghost]\n")

	err := r.Init(context.Background())
	require.ErrorIs(t, err, diagnostic.ErrNotFound)
	assert.Equal(t, StateUninitialized, r.State())
}

func TestRegistry_InitCanceled(t *testing.T) {
	r, _ := setup(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, r.Init(ctx), context.Canceled)
}

func TestRegistry_RegisterModel(t *testing.T) {
	r, _ := setup(t, "")

	rt, err := r.RegisterModel("team")
	require.NoError(t, err)
	assert.Equal(t, "Team", rt.Kind)
	assert.Equal(t, StateReady, r.State())

	again, err := r.RegisterModel("models/TEAM")
	require.NoError(t, err)
	assert.Same(t, rt, again)

	got, ok := r.Model("Team")
	require.True(t, ok)
	assert.Same(t, rt, got)

	_, err = r.RegisterModel("membr")
	require.ErrorIs(t, err, diagnostic.ErrNotFound)
	assert.Contains(t, err.Error(), "models/member")

	_, err = r.RegisterModel("cyca")
	assert.ErrorIs(t, err, diagnostic.ErrInvalidSpec)
}

func TestRegistry_XRefOrder(t *testing.T) {
	r, _ := setup(t, "")

	rts, err := r.RegisterModels("board", "member")
	require.NoError(t, err)
	require.Len(t, rts, 2)
	assert.Equal(t, "Board", rts[0].Kind)
	assert.Equal(t, "Member", rts[1].Kind)

	source, ok := rts[0].Field("source")
	require.True(t, ok)
	require.NotNil(t, source.Record)
	assert.Equal(t, []string{"name", "rows", "proxy"}, source.Record.Names())

	_, ok = r.Model("ds")
	assert.True(t, ok)
	assert.Empty(t, r.Diagnostics().Warnings)
}

func TestRegistry_RegisterInstance(t *testing.T) {
	r, _ := setup(t, "")

	inst, err := r.RegisterInstance("DS", map[string]any{"name": "xbow", "ns": "xbow"})
	require.NoError(t, err)
	assert.Equal(t, "ds/xbow", inst.NSID())
	assert.Contains(t, inst.Exports(), "filter")

	createdBy, _ := inst.Get(schema.FieldCreatedBy)
	assert.Equal(t, "tester", createdBy)

	for _, key := range []string{"instances/ds/xbow", "INSTANCES/DS/XBOW/", "xbow", "ds/xbow"} {
		v, err := r.Locate(key)
		require.NoError(t, err, key)
		assert.Same(t, inst, v, key)
	}

	rt, err := r.Locate("models/ds")
	require.NoError(t, err)
	assert.IsType(t, &schema.RecordType{}, rt)

	got, ok := r.Instance("xbow")
	require.True(t, ok)
	assert.Same(t, inst, got)

	_, ok = r.Instance("models/ds")
	assert.False(t, ok)

	_, err = r.RegisterInstance("ds", map[string]any{"name": "other", "ns": "XBOW"})
	assert.ErrorIs(t, err, diagnostic.ErrNamespaceCollision)

	_, err = r.RegisterInstance("ds", map[string]any{"name": "xbow", "ns": "second"})
	require.ErrorIs(t, err, diagnostic.ErrValidation)
	assert.Contains(t, err.Error(), "ds/xbow")

	_, ok = r.Lookup("instances/ds/second")
	assert.False(t, ok)
}

func TestRegistry_Locate(t *testing.T) {
	r, _ := setup(t, "")

	_, err := r.RegisterInstance("ds", map[string]any{"name": "a", "ns": "shared"})
	require.NoError(t, err)

	_, err = r.RegisterInstance("team", map[string]any{"ns": "shared"})
	require.NoError(t, err)

	_, err = r.Locate("shared")
	require.ErrorIs(t, err, diagnostic.ErrAmbiguousLookup)
	assert.Contains(t, err.Error(), "instances/ds/shared")

	v, err := r.Locate("team/shared")
	require.NoError(t, err)
	assert.Equal(t, "Team", v.(*instance.Instance).Kind())

	_, err = r.Locate("sharde")
	require.ErrorIs(t, err, diagnostic.ErrNotFound)
	assert.Contains(t, err.Error(), "did you mean")

	v, ok := r.Lookup("nowhere")
	assert.False(t, ok)
	assert.Nil(t, v)

	_, ok = r.Lookup("")
	assert.False(t, ok)
}

func TestRegistry_RegisterInstanceFrom(t *testing.T) {
	r, cfg := setup(t, "")

	inst, err := r.RegisterInstanceFrom("", "kind: DS\nname: q\nns: q\n")
	require.NoError(t, err)
	assert.Equal(t, "ds/q", inst.NSID())

	inst, err = r.RegisterInstanceFrom("", filepath.Join(cfg.ConfigsDir, "board.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "board", inst.NSID())

	inst, err = r.RegisterInstanceFrom("team", "lead=ann&ns=core")
	require.NoError(t, err)
	assert.Equal(t, "team/core", inst.NSID())

	_, err = r.RegisterInstanceFrom("", "lead=ann")
	assert.ErrorIs(t, err, diagnostic.ErrKindRequired)
}

func TestRegistry_ProxyFailureNotRegistered(t *testing.T) {
	r := New(Config{ModelsDir: filepath.Join(t.TempDir(), "none")}, WithLogger(log.NewTesting(t)))

	var tree schema.Tree
	require.NoError(t, yaml.Unmarshal([]byte("kind: Chart\nname: str\nproxy: str\n"), &tree))

	_, err := r.DefineModel(&tree)
	require.NoError(t, err)

	inst, err := r.RegisterInstance("chart", map[string]any{"name": "v", "proxy": "Nope"})
	require.ErrorIs(t, err, diagnostic.ErrProxyNotFound)
	require.NotNil(t, inst)

	_, ok := r.Instance("instances/chart")
	assert.False(t, ok)

	// an identical definition is accepted, a different one is not
	_, err = r.DefineModel(&tree)
	require.NoError(t, err)

	var other schema.Tree
	require.NoError(t, yaml.Unmarshal([]byte("kind: Chart\nname: int\n"), &other))

	_, err = r.DefineModel(&other)
	assert.ErrorIs(t, err, diagnostic.ErrDuplicateType)
}

func TestConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte("env: prod\n"))
	require.NoError(t, err)
	assert.Equal(t, &Config{ModelsDir: "models", ConfigsDir: "configs", Env: "prod", Identity: instance.DefaultIdentity}, cfg)

	_, err = ParseConfig([]byte("env: [\n"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "xds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models_dir: m\nidentity: ops\n"), 0o644))

	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "m", cfg.ModelsDir)
	assert.Equal(t, "ops", cfg.Identity)
	assert.Equal(t, "dev", cfg.Env)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRegistry_UnknownEnvProxy(t *testing.T) {
	r, _ := setup(t, "proxies: [DSProxy, DSProxi]\n")
	require.NoError(t, r.Init(context.Background()))

	ds := r.Diagnostics()
	require.Len(t, ds.Warnings, 1)

	w := ds.Warnings[0]
	assert.Equal(t, diagnostic.CodeProxyNotFound, w.Code)
	assert.Equal(t, "proxies", w.Field)
	assert.Contains(t, w.Suggestions, "DSProxy")
}

func TestRegistry_Concurrent(t *testing.T) {
	t.Run("register while reading", func(t *testing.T) {
		r, _ := setup(t, "")

		_, err := r.RegisterInstance("ds", map[string]any{"name": "seed", "ns": "seed"})
		require.NoError(t, err)

		const n = 20

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			errs []error
		)

		fail := func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}

		for i := range n {
			wg.Add(2)

			go func() {
				defer wg.Done()

				name := fmt.Sprintf("n%d", i)
				if _, err := r.RegisterInstance("ds", map[string]any{"name": name, "ns": name}); err != nil {
					fail(err)
				}
			}()

			go func() {
				defer wg.Done()

				if _, err := r.Locate("seed"); err != nil {
					fail(err)
				}

				_ = r.Keys()
				_ = r.Instances()
				_ = r.Diagnostics()
			}()
		}

		wg.Wait()

		assert.Empty(t, errs)
		assert.Len(t, r.Instances(), n+1)
		assert.Contains(t, r.Keys(), InstancesPrefix+"ds/n0")
	})
}
