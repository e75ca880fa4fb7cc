package pongo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"reflect"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-mailrender/pkg/render/template"
)

// Name is the registry name of this backend.
const Name = "pongo2"

// ModelKey holds the model in the template context when the model is not
// object shaped (a number, a string, a list).
const ModelKey = "model"

// Option configures the pongo2 backend before construction.
type Option func(*config)

type config struct {
	setName    string
	baseDir    string
	templates  fs.FS
	templateFn map[string]any
	globalData map[string]any
}

// WithSetName overrides the name used for per-render template sets.
func WithSetName(name string) Option {
	return func(cfg *config) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cfg.setName = trimmed
		}
	}
}

// WithBaseDir lets templates include files from a base directory on disk.
// Project templates still take precedence.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS lets templates include files from an fs.FS.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templates = files
	}
}

// WithTemplateFunc registers helper functions or filters when the backend loads.
func WithTemplateFunc(funcs map[string]any) Option {
	return func(cfg *config) {
		if len(funcs) == 0 {
			return
		}
		if cfg.templateFn == nil {
			cfg.templateFn = make(map[string]any, len(funcs))
		}
		for name, fn := range funcs {
			cfg.templateFn[strings.TrimSpace(name)] = fn
		}
	}
}

// WithGlobalData seeds global context values available to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if len(data) == 0 {
			return
		}
		if cfg.globalData == nil {
			cfg.globalData = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

// Backend satisfies template.Backend with pongo2. Every project gets its own
// pongo2.TemplateSet; only globals and filters are shared.
type Backend struct {
	mu sync.RWMutex

	setName string
	loaders []pongo2.TemplateLoader
	globals pongo2.Context
}

var _ template.Backend = (*Backend)(nil)

// New constructs a Backend using the provided configuration options.
func New(options ...Option) (*Backend, error) {
	cfg := &config{
		setName: "mailrender",
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	var loaders []pongo2.TemplateLoader
	if cfg.baseDir != "" {
		loader, err := pongo2.NewLocalFileSystemLoader(cfg.baseDir)
		if err != nil {
			return nil, fmt.Errorf("pongo: create local loader: %w", err)
		}
		loaders = append(loaders, loader)
	}
	if cfg.templates != nil {
		loaders = append(loaders, pongo2.NewFSLoader(cfg.templates))
	}

	backend := &Backend{
		setName: cfg.setName,
		loaders: loaders,
		globals: make(pongo2.Context),
	}
	registerDefaultFilters()

	if err := backend.GlobalContext(cfg.globalData); err != nil {
		return nil, fmt.Errorf("pongo: apply global data: %w", err)
	}
	for name, fn := range cfg.templateFn {
		if err := backend.registerTemplateFunc(name, fn); err != nil {
			return nil, fmt.Errorf("pongo: register template func %q: %w", name, err)
		}
	}

	return backend, nil
}

// Name implements template.Backend.
func (b *Backend) Name() string {
	return Name
}

// NewEngine implements template.Backend.
func (b *Backend) NewEngine(project *template.Project) (template.Engine, error) {
	if b == nil {
		return nil, template.ErrNilBackend
	}
	if project == nil {
		return nil, errors.New("pongo: project is required")
	}

	loaders := make([]pongo2.TemplateLoader, 0, len(b.loaders)+1)
	loaders = append(loaders, &projectLoader{project: project})
	loaders = append(loaders, b.loaders...)

	set := pongo2.NewSet(b.setName, loaders...)

	b.mu.RLock()
	globals := make(pongo2.Context, len(b.globals))
	globals.Update(b.globals)
	b.mu.RUnlock()
	set.Globals = globals

	return &engine{set: set, project: project}, nil
}

// RegisterFilter registers a pongo2 filter. pongo2 keeps filters in a process
// wide registry, so a name can only be registered once.
func (b *Backend) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	if strings.TrimSpace(name) == "" || fn == nil {
		return errors.New("pongo: filter name and function required")
	}

	filter := func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var paramVal any
		if param != nil {
			paramVal = param.Interface()
		}
		result, err := fn(in.Interface(), paramVal)
		if err != nil {
			return nil, &pongo2.Error{Sender: "custom_filter", OrigError: err}
		}
		return pongo2.AsValue(result), nil
	}

	registered, err := registerFilterOnce(name, filter)
	if err != nil {
		return err
	}
	if !registered {
		return fmt.Errorf("pongo: filter %q already exists", name)
	}
	return nil
}

// GlobalContext merges data into the globals every new engine starts with.
func (b *Backend) GlobalContext(data any) error {
	if b == nil {
		return template.ErrNilBackend
	}
	if data == nil {
		return nil
	}

	globalCtx, err := convertToContext(data)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.globals.Update(globalCtx)
	return nil
}

func (b *Backend) registerTemplateFunc(name string, fn any) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || fn == nil {
		return nil
	}

	if filter, ok := fn.(pongo2.FilterFunction); ok {
		_, err := registerFilterOnce(trimmed, filter)
		return err
	}

	if !isCallable(fn) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.globals[trimmed] = fn
	return nil
}

type engine struct {
	set     *pongo2.TemplateSet
	project *template.Project
}

// Compile parses the named project template. pongo2 autoescaping is a process
// wide switch, so the HTML hint is not applied per template.
func (e *engine) Compile(ctx context.Context, name string, _ template.CompileOptions) (template.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source, err := e.project.Source(name)
	if err != nil {
		return nil, err
	}

	tmpl, err := e.set.FromString(source)
	if err != nil {
		return nil, compilationError(name, err)
	}
	return &compiled{name: name, tmpl: tmpl}, nil
}

type compiled struct {
	name string
	tmpl *pongo2.Template
}

// Execute implements template.Template.
func (c *compiled) Execute(ctx context.Context, model any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	viewContext, err := convertToContext(model)
	if err != nil {
		return "", &template.ExecutionError{
			Engine:  Name,
			Name:    c.name,
			Message: fmt.Sprintf("convert model: %v", err),
			Err:     err,
		}
	}

	var buf bytes.Buffer
	if err := c.tmpl.ExecuteWriter(viewContext, &buf); err != nil {
		return "", &template.ExecutionError{
			Engine: Name,
			Name:   c.name,
			Err:    err,
		}
	}
	return buf.String(), nil
}

func compilationError(name string, err error) *template.CompilationError {
	compErr := &template.CompilationError{
		Engine:  Name,
		Name:    name,
		Message: err.Error(),
		Err:     err,
	}

	var pongoErr *pongo2.Error
	if errors.As(err, &pongoErr) {
		compErr.Line = pongoErr.Line
		compErr.Column = pongoErr.Column
		if pongoErr.OrigError != nil {
			compErr.Message = pongoErr.OrigError.Error()
		}
	}
	return compErr
}

// projectLoader resolves includes against the templates of one project.
type projectLoader struct {
	project *template.Project
}

func (l *projectLoader) Abs(_, name string) string {
	return name
}

func (l *projectLoader) Get(path string) (io.Reader, error) {
	source, err := l.project.Source(path)
	if err != nil {
		return nil, err
	}
	return strings.NewReader(source), nil
}

func isCallable(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.IsValid() && rv.Kind() == reflect.Func
}

func convertToContext(data any) (pongo2.Context, error) {
	switch v := data.(type) {
	case nil:
		return pongo2.Context{}, nil
	case pongo2.Context:
		return convertMapToContext(map[string]any(v))
	case map[string]any:
		return convertMapToContext(v)
	default:
		if isScalar(v) {
			return pongo2.Context{ModelKey: v}, nil
		}
		raw, err := jsonToAny(v)
		if err != nil {
			return nil, err
		}
		if m, ok := raw.(map[string]any); ok {
			return convertMapToContext(m)
		}
		converted, err := convertValue(raw)
		if err != nil {
			return nil, err
		}
		return pongo2.Context{ModelKey: converted}, nil
	}
}

func convertMapToContext(in map[string]any) (pongo2.Context, error) {
	out := make(pongo2.Context, len(in))
	for key, value := range in {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		converted, err := convertValue(value)
		if err != nil {
			return nil, err
		}
		out[key] = converted
	}
	return out, nil
}

func convertValue(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if isCallable(value) {
		return value, nil
	}

	switch v := value.(type) {
	case pongo2.Context:
		return convertMap(map[string]any(v))
	case map[string]any:
		return convertMap(v)
	case []any:
		return convertSlice(v)
	default:
		raw, err := jsonToAny(v)
		if err != nil {
			return nil, err
		}
		switch decoded := raw.(type) {
		case map[string]any:
			return convertMap(decoded)
		case []any:
			return convertSlice(decoded)
		default:
			return decoded, nil
		}
	}
}

func convertMap(in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for key, value := range in {
		converted, err := convertValue(value)
		if err != nil {
			return nil, err
		}
		out[key] = converted
	}
	return out, nil
}

func convertSlice(in []any) ([]any, error) {
	out := make([]any, 0, len(in))
	for _, value := range in {
		converted, err := convertValue(value)
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

func jsonToAny(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func isScalar(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// filterMu serializes access to pongo2's process wide filter registry.
var filterMu sync.Mutex

// registerFilterOnce registers fn under name unless a filter with that name
// exists. It reports whether fn was registered.
func registerFilterOnce(name string, fn pongo2.FilterFunction) (bool, error) {
	filterMu.Lock()
	defer filterMu.Unlock()

	if pongo2.FilterExists(name) {
		return false, nil
	}
	if err := pongo2.RegisterFilter(name, fn); err != nil {
		return false, err
	}
	return true, nil
}

func registerDefaultFilters() {
	_, _ = registerFilterOnce("trim", filterTrim)
	_, _ = registerFilterOnce("lowerfirst", filterLowerFirst)
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

func filterLowerFirst(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	t := in.String()

	var (
		firstNonWhitespaceIndex int
		firstRune               rune
		firstRuneSize           int
	)

	for i, r := range t {
		if !strings.ContainsRune(" \t\n\r", r) {
			firstNonWhitespaceIndex = i
			firstRune = r
			firstRuneSize = utf8.RuneLen(r)
			break
		}
	}

	if firstRune == 0 {
		return pongo2.AsValue(t), nil
	}

	prefix := t[:firstNonWhitespaceIndex]
	loweredRune := strings.ToLower(string(firstRune))
	rest := t[firstNonWhitespaceIndex+firstRuneSize:]

	return pongo2.AsValue(prefix + loweredRune + rest), nil
}
