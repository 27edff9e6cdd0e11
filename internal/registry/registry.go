package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"xds/internal/common"
	"xds/internal/diagnostic"
	"xds/internal/fieldspec"
	"xds/internal/instance"
	"xds/internal/loader"
	"xds/internal/log"
	"xds/internal/match"
	"xds/internal/proxy"
	"xds/internal/schema"
)

// Namespace key prefixes.
const (
	ModelsPrefix    = "models/"
	InstancesPrefix = "instances/"
	ConfigsPrefix   = "configs/"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLoader sets the document loader.
func WithLoader(l loader.Loader) Option { return func(r *Registry) { r.loader = l } }

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option { return func(r *Registry) { r.log = log.Or(l) } }

// WithProxies sets the proxy map instances bind against.
func WithProxies(m *proxy.Map) Option { return func(r *Registry) { r.proxies = m } }

// WithClock sets the time source of audit stamps.
func WithClock(now func() time.Time) Option { return func(r *Registry) { r.now = now } }

// WithUUID sets the uuid generator of constructed instances.
func WithUUID(fn func() uuid.UUID) Option { return func(r *Registry) { r.newUUID = fn } }

// Registry catalogs record types and instances under lower-cased namespace
// keys: models/<kind> and instances/<nsid>. Entries are never removed.
type Registry struct {
	mu sync.RWMutex

	cfg     Config
	state   State
	loader  loader.Loader
	log     log.Logger
	proxies *proxy.Map
	now     func() time.Time
	newUUID func() uuid.UUID
	builder *schema.Builder
	factory *instance.Factory

	specs     map[string]*schema.Tree
	configs   map[string]map[string]any
	entries   map[string]any
	models    map[string]*schema.RecordType
	instances map[string]*instance.Instance
	unique    map[string]string
	env       *instance.Instance
	diags     diagnostic.Diagnostics
}

// New creates an uninitialized registry. Init, or the first registration,
// runs the bootstrap.
func New(cfg Config, opts ...Option) *Registry {
	cfg.applyDefaults()

	r := &Registry{
		cfg:       cfg,
		log:       log.Root,
		specs:     map[string]*schema.Tree{},
		configs:   map[string]map[string]any{},
		entries:   map[string]any{},
		models:    map[string]*schema.RecordType{},
		instances: map[string]*instance.Instance{},
		unique:    map[string]string{},
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.loader == nil {
		r.loader = loader.New(r.log)
	}

	if r.proxies == nil {
		r.proxies = proxy.NewMap()
	}

	r.builder = schema.NewBuilder(r.log)
	r.factory = &instance.Factory{
		Proxies:  proxy.NewBinder(r.proxies, r.log),
		Identity: cfg.Identity,
		Now:      r.now,
		NewUUID:  r.newUUID,
		Log:      r.log,
	}

	return r
}

// Init loads the model and config documents, registers the Env type and
// instance, then every model the Env instance lists. It is a no-op once the
// registry is ready; a failed bootstrap leaves it uninitialized.
func (r *Registry) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.init(ctx)
}

func (r *Registry) init(ctx context.Context) error {
	if r.state == StateReady {
		return nil
	}

	r.state = StateBootstrapping

	if err := r.bootstrap(ctx); err != nil {
		r.reset()
		return err
	}

	r.state = StateReady

	r.log.Info("registry ready", "env", r.cfg.Env, "models", len(r.models), "instances", len(r.instances))

	return nil
}

// reset drops everything a failed bootstrap registered.
func (r *Registry) reset() {
	r.state = StateUninitialized
	r.specs = map[string]*schema.Tree{}
	r.configs = map[string]map[string]any{}
	r.entries = map[string]any{}
	r.models = map[string]*schema.RecordType{}
	r.instances = map[string]*instance.Instance{}
	r.unique = map[string]string{}
	r.env = nil
	r.diags = diagnostic.Diagnostics{}
	r.builder = schema.NewBuilder(r.log)
}

func (r *Registry) bootstrap(ctx context.Context) error {
	if err := r.loadModels(ctx); err != nil {
		return err
	}

	if err := r.loadConfigs(ctx); err != nil {
		return err
	}

	if _, ok := r.specs[ModelsPrefix+"env"]; !ok {
		var tree schema.Tree
		if err := yaml.Unmarshal([]byte(envSpec), &tree); err != nil {
			return errors.Wrap(err, "decode built-in env spec")
		}

		r.specs[ModelsPrefix+"env"] = &tree
	}

	rts, err := r.registerModels(ctx, []string{EnvKind})
	if err != nil {
		return err
	}

	raw, err := r.envInput()
	if err != nil {
		return err
	}

	env, err := r.registerInstance(rts[0], raw)
	if err != nil {
		return errors.Wrapf(err, "env %s", r.cfg.Env)
	}

	r.env = env

	for _, name := range stringList(env, "proxies") {
		if !r.proxies.Has(name) {
			r.log.Warn("env names an unregistered proxy", "proxy", name)
			r.diags.Add(diagnostic.Diagnostic{
				Severity:    diagnostic.SeverityWarning,
				Code:        diagnostic.CodeProxyNotFound,
				Message:     "env names unregistered proxy " + name,
				Kind:        EnvKind,
				Field:       "proxies",
				Suggestions: match.Suggest(name, r.proxies.Names(), 3, 0.5),
			})
		}
	}

	_, err = r.registerModels(ctx, stringList(env, "models"))

	return err
}

func (r *Registry) loadModels(ctx context.Context) error {
	docs, err := r.documents(r.cfg.ModelsDir)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}

		var tree schema.Tree
		if err := doc.Node.Decode(&tree); err != nil {
			return errors.Wrapf(err, "decode %s", doc.Path)
		}

		if err := r.addSpec(&tree, doc.Path); err != nil {
			return err
		}
	}

	return nil
}

func (r *Registry) loadConfigs(ctx context.Context) error {
	docs, err := r.documents(r.cfg.ConfigsDir)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}

		var m map[string]any
		if err := doc.Node.Decode(&m); err != nil {
			return &diagnostic.Error{Code: diagnostic.CodeParse, Field: doc.Path, Msg: "config is not a mapping", Err: err}
		}

		name, _ := m[schema.FieldKind].(string)
		if name, _ = schema.SplitKind(name); name == "" {
			name = strings.TrimSuffix(filepath.Base(doc.Path), filepath.Ext(doc.Path))
		}

		key := ConfigsPrefix + strings.ToLower(name)
		if _, dup := r.configs[key]; dup {
			r.log.Warn("config replaced", "key", key, "path", doc.Path)
		}

		r.configs[key] = m
	}

	return nil
}

// stringList returns the string elements of a list field.
func stringList(inst *instance.Instance, field string) []string {
	v, _ := inst.Get(field)
	items, _ := v.([]any)

	var out []string

	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}

	return out
}

// documents reads every document of dir; a missing directory has none.
func (r *Registry) documents(dir string) ([]loader.Document, error) {
	if dir == "" {
		return nil, nil
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		r.log.Warn("directory missing", "dir", dir)
		return nil, nil
	}

	return r.loader.Documents(dir)
}

func (r *Registry) envInput() (map[string]any, error) {
	path := filepath.Join(r.cfg.ConfigsDir, "env."+r.cfg.Env+".yaml")

	raw := map[string]any{}

	if _, err := os.Stat(path); err == nil {
		if raw, err = r.loader.Load(path); err != nil {
			return nil, err
		}
	} else {
		r.log.Warn("env config missing", "path", path)
	}

	if common.IsFalsy(raw[schema.FieldNS]) {
		raw[schema.FieldNS] = r.cfg.Env
	}

	if common.IsFalsy(raw["name"]) {
		raw["name"] = r.cfg.Env
	}

	return raw, nil
}

// addSpec caches a specification tree under models/<kind>. Re-adding an
// identical tree is a no-op.
func (r *Registry) addSpec(tree *schema.Tree, origin string) error {
	name, _ := schema.SplitKind(tree.Kind())
	if name == "" {
		return diagnostic.Errorf(diagnostic.CodeKindRequired, "", origin, "specification has no kind")
	}

	key := ModelsPrefix + strings.ToLower(name)

	if prev, ok := r.specs[key]; ok {
		if prev.Fingerprint() == tree.Fingerprint() {
			return nil
		}

		return diagnostic.Errorf(diagnostic.CodeDuplicateType, name, origin, "kind already specified")
	}

	r.specs[key] = tree

	r.log.Debug("specification loaded", "key", key, "origin", origin)

	return nil
}

func (r *Registry) ensure() error {
	if r.state == StateUninitialized {
		return r.init(context.Background())
	}

	return nil
}

// DefineModel adds a specification tree and registers it.
func (r *Registry) DefineModel(tree *schema.Tree) (*schema.RecordType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensure(); err != nil {
		return nil, err
	}

	if err := r.addSpec(tree, "define"); err != nil {
		return nil, err
	}

	name, _ := schema.SplitKind(tree.Kind())

	rts, err := r.registerModels(context.Background(), []string{name})
	if err != nil {
		return nil, err
	}

	return rts[0], nil
}

// RegisterModel builds and registers the model specified as name, along
// with the models it cross-references.
func (r *Registry) RegisterModel(name string) (*schema.RecordType, error) {
	rts, err := r.RegisterModels(name)
	if err != nil {
		return nil, err
	}

	return rts[0], nil
}

// RegisterModels registers models in cross-reference order and returns them
// in the order given.
func (r *Registry) RegisterModels(names ...string) ([]*schema.RecordType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensure(); err != nil {
		return nil, err
	}

	return r.registerModels(context.Background(), names)
}

func (r *Registry) registerModels(ctx context.Context, names []string) ([]*schema.RecordType, error) {
	want := make([]string, len(names))
	for i, n := range names {
		want[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(n), ModelsPrefix))
	}

	deps := func(name string) []string {
		tree, ok := r.specs[ModelsPrefix+name]
		if !ok {
			return nil
		}

		var out []string
		for _, d := range schema.Dependencies(tree) {
			out = append(out, strings.ToLower(d))
		}

		return out
	}

	// closure over the cached specs, registered models need no rebuild
	var pending []string

	seen := map[string]bool{}
	queue := slices.Clone(want)

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		if seen[name] {
			continue
		}

		seen[name] = true

		if _, done := r.models[name]; done {
			continue
		}

		if _, ok := r.specs[ModelsPrefix+name]; !ok {
			if !slices.Contains(want, name) {
				continue
			}

			e := diagnostic.Errorf(diagnostic.CodeNotFound, "", ModelsPrefix+name, "no specification for model %q", name)
			if s := match.Suggest(name, common.SortedKeys(r.specs), 3, 0.5); len(s) > 0 {
				e.Msg += fmt.Sprintf(" (did you mean %v?)", s)
			}

			return nil, e
		}

		pending = append(pending, name)
		queue = append(queue, deps(name)...)
	}

	order, err := orderModels(pending, deps)
	if err != nil {
		return nil, err
	}

	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rt, err := r.builder.Build(schema.CallerRegisterModel, r.specs[ModelsPrefix+name], false)
		if err != nil {
			return nil, err
		}

		r.models[name] = rt
		r.entries[ModelsPrefix+name] = rt

		r.log.Debug("model registered", "kind", rt.Kind, "fields", rt.Len())
	}

	out := make([]*schema.RecordType, len(want))
	for i, name := range want {
		out[i] = r.models[name]
	}

	return out, nil
}

// RegisterInstance constructs an instance of model from raw and registers
// it under instances/<nsid>. The model is registered first when needed.
//
// An instance whose proxy cannot be bound is returned with the error but
// not registered.
func (r *Registry) RegisterInstance(model string, raw map[string]any) (*instance.Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensure(); err != nil {
		return nil, err
	}

	rts, err := r.registerModels(context.Background(), []string{model})
	if err != nil {
		return nil, err
	}

	return r.registerInstance(rts[0], raw)
}

// RegisterInstanceFrom loads src and registers it as an instance of model,
// or of the kind src names when model is empty.
func (r *Registry) RegisterInstanceFrom(model, src string) (*instance.Instance, error) {
	raw, err := r.loader.Load(src)
	if err != nil {
		return nil, err
	}

	if model == "" {
		kind, _ := raw[schema.FieldKind].(string)
		if model, _ = schema.SplitKind(kind); model == "" {
			return nil, diagnostic.Errorf(diagnostic.CodeKindRequired, "", schema.FieldKind, "source names no kind")
		}
	}

	return r.RegisterInstance(model, raw)
}

func (r *Registry) registerInstance(rt *schema.RecordType, raw map[string]any) (*instance.Instance, error) {
	inst, err := r.factory.Construct(rt, raw)
	if err != nil {
		return inst, err
	}

	key := InstancesPrefix + inst.NSID()
	if _, taken := r.entries[key]; taken {
		return nil, diagnostic.Errorf(diagnostic.CodeNamespaceCollision, rt.Kind, schema.FieldNS, "%s is already registered", key)
	}

	claims, err := r.uniqueClaims(rt, inst)
	if err != nil {
		return nil, err
	}

	for _, c := range claims {
		r.unique[c] = inst.NSID()
	}

	r.entries[key] = inst
	r.instances[inst.NSID()] = inst

	r.log.Debug("instance registered", "key", key)

	return inst, nil
}

// uniqueClaims returns the index keys of inst's unique and key fields,
// failing when another instance of the model holds one of them.
func (r *Registry) uniqueClaims(rt *schema.RecordType, inst *instance.Instance) ([]string, error) {
	var claims []string

	for _, fd := range rt.Fields() {
		if !fd.Has(fieldspec.FlagUnique) && !fd.Has(fieldspec.FlagKey) {
			continue
		}

		v, _ := inst.Get(fd.Name)
		if v == nil {
			continue
		}

		claim := fmt.Sprintf("%s.%s=%v", strings.ToLower(rt.Kind), fd.Name, v)
		if owner, taken := r.unique[claim]; taken {
			return nil, diagnostic.Errorf(diagnostic.CodeValidation, rt.Kind, fd.Name, "value %v is already used by %s", v, owner)
		}

		claims = append(claims, claim)
	}

	return claims, nil
}

// Locate resolves key to a *schema.RecordType or *instance.Instance. It
// tries the exact key, then the model or instance cache for prefixed keys,
// then a unique entry whose last segment matches key's.
func (r *Registry) Locate(key string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.locate(key)
}

func (r *Registry) locate(key string) (any, error) {
	k := strings.ToLower(strings.Trim(strings.TrimSpace(key), "/"))

	if v, ok := r.entries[k]; ok {
		return v, nil
	}

	if rest, ok := strings.CutPrefix(k, ModelsPrefix); ok {
		if rt, ok := r.models[rest]; ok {
			return rt, nil
		}
	}

	if rest, ok := strings.CutPrefix(k, InstancesPrefix); ok {
		if inst, ok := r.instances[rest]; ok {
			return inst, nil
		}
	}

	hits := r.suffixed(k)
	if len(hits) == 0 && strings.Contains(k, "/") {
		hits = r.suffixed(k[strings.LastIndexByte(k, '/')+1:])
	}

	switch len(hits) {
	case 1:
		return r.entries[hits[0]], nil
	case 0:
		e := diagnostic.Errorf(diagnostic.CodeNotFound, "", key, "no entry")
		if s := match.Suggest(k, common.SortedKeys(r.entries), 3, 0.5); len(s) > 0 {
			e.Msg += fmt.Sprintf(" (did you mean %v?)", s)
		}

		return nil, e
	}

	return nil, diagnostic.Errorf(diagnostic.CodeAmbiguousLookup, "", key, "matches %v", hits)
}

// suffixed returns the keys ending in /suffix.
func (r *Registry) suffixed(suffix string) []string {
	if suffix == "" {
		return nil
	}

	var hits []string

	for _, name := range common.SortedKeys(r.entries) {
		if strings.HasSuffix(name, "/"+suffix) {
			hits = append(hits, name)
		}
	}

	return hits
}

// Lookup is Locate returning an empty result on misses.
func (r *Registry) Lookup(key string) (any, bool) {
	v, err := r.Locate(key)
	return v, err == nil
}

// Model returns a registered model by name.
func (r *Registry) Model(name string) (*schema.RecordType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.models[strings.ToLower(strings.TrimPrefix(name, ModelsPrefix))]

	return rt, ok
}

// Instance locates a registered instance.
func (r *Registry) Instance(key string) (*instance.Instance, bool) {
	v, ok := r.Lookup(key)
	if !ok {
		return nil, false
	}

	inst, ok := v.(*instance.Instance)

	return inst, ok
}

// Models returns the registered models sorted by name.
func (r *Registry) Models() []*schema.RecordType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*schema.RecordType, 0, len(r.models))
	for _, k := range common.SortedKeys(r.models) {
		out = append(out, r.models[k])
	}

	return out
}

// Instances returns the registered instances sorted by nsid.
func (r *Registry) Instances() []*instance.Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*instance.Instance, 0, len(r.instances))
	for _, k := range common.SortedKeys(r.instances) {
		out = append(out, r.instances[k])
	}

	return out
}

// Keys returns every namespace key, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return common.SortedKeys(r.entries)
}

// Specs returns the model names with a loaded specification, registered or not.
func (r *Registry) Specs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.specs))
	for _, k := range common.SortedKeys(r.specs) {
		out = append(out, strings.TrimPrefix(k, ModelsPrefix))
	}

	return out
}

// Spec returns the specification tree of a model.
func (r *Registry) Spec(name string) (*schema.Tree, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.specs[ModelsPrefix+strings.ToLower(strings.TrimPrefix(name, ModelsPrefix))]

	return t, ok
}

// Config returns a loaded config document by kind.
func (r *Registry) Config(kind string) (map[string]any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.configs[ConfigsPrefix+strings.ToLower(kind)]

	return m, ok
}

// Env returns the environment instance, nil before Init.
func (r *Registry) Env() *instance.Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.env
}

// State returns the bootstrap state.
func (r *Registry) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state
}

// Diagnostics returns the warnings collected while bootstrapping and
// building models.
func (r *Registry) Diagnostics() diagnostic.Diagnostics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ds diagnostic.Diagnostics
	ds.Merge(r.diags)
	ds.Merge(r.builder.Diagnostics())

	return ds
}

// Proxies returns the proxy map instances bind against.
func (r *Registry) Proxies() *proxy.Map { return r.proxies }

// Factory returns the factory RegisterInstance constructs with. Constructing
// through it directly registers nothing.
func (r *Registry) Factory() *instance.Factory { return r.factory }
