// Package hooks runs an optional Lua script against packages before they are saved.
//
// A script may define a global before_save(pkg) function. It receives the package as a
// table using the same field names as the JSON API. Returning a table replaces the
// package, returning nothing keeps it, and raising an error rejects the save.
//
// Scripts run in a sandbox with the base, string, table, math and bit32 libraries only;
// file, module loading and garbage collector functions are removed. A small `catalog`
// library exposes logging and the slug generator.
package hooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Shopify/go-lua"
	"github.com/Shopify/goluago/util"
	"github.com/Vinicius-jafe/bookish-broccoli/domain"
	"github.com/Vinicius-jafe/bookish-broccoli/slug"
)

// ErrRejected is returned when the script refuses a package or returns something unusable.
var ErrRejected = errors.New("rejected by catalog hook")

// Rejection is the error returned when a package does not pass the script.
// It matches ErrRejected with errors.Is.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string {
	return ErrRejected.Error() + ": " + r.Reason
}

func (r *Rejection) Unwrap() error {
	return ErrRejected
}

func reject(format string, args ...any) error {
	return &Rejection{Reason: fmt.Sprintf(format, args...)}
}

const beforeSave = "before_save"

// restrictedGlobals are removed from the base library after it is opened.
var restrictedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "require", "collectgarbage"}

// Runner holds a loaded hook script. A nil *Runner is valid and does nothing.
type Runner struct {
	mu            sync.Mutex // a lua.State is not safe for concurrent use
	state         *lua.State
	name          string
	hasBeforeSave bool
	logger        *slog.Logger
}

// Load reads the script at path and prepares it. An empty path returns a nil Runner.
func Load(path string, logger *slog.Logger) (*Runner, error) {
	if path == "" {
		return nil, nil
	}
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hook script %s: %w", path, err)
	}
	return New(filepath.Base(path), string(code), logger)
}

// New compiles and runs code once so it can define its hook functions.
// A nil logger discards output.
func New(name, code string, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	runner := &Runner{
		state:  lua.NewState(),
		name:   name,
		logger: logger.With("hook", name),
	}
	runner.openLibraries()

	l := runner.state
	if err := lua.LoadBuffer(l, code, "@"+name, ""); err != nil {
		return nil, fmt.Errorf("compiling hook %s: %s", name, luaError(l, err))
	}
	if err := l.ProtectedCall(0, 0, 0); err != nil {
		return nil, fmt.Errorf("running hook %s: %s", name, luaError(l, err))
	}

	l.Global(beforeSave)
	runner.hasBeforeSave = l.IsFunction(-1)
	l.SetTop(0)

	if !runner.hasBeforeSave {
		runner.logger.Warn("hook script defines no before_save function")
	}
	return runner, nil
}

// HasBeforeSave reports whether the script defines before_save.
func (r *Runner) HasBeforeSave() bool {
	return r != nil && r.hasBeforeSave
}

// BeforeSave passes pkg through the script's before_save function and applies its result.
// The package keeps its ID when the script returns a table without one.
func (r *Runner) BeforeSave(ctx context.Context, pkg *domain.Package) error {
	if !r.HasBeforeSave() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	input, err := toTable(pkg)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	l := r.state
	defer l.SetTop(0)

	l.Global(beforeSave)
	util.DeepPush(l, input)
	if err := l.ProtectedCall(1, 1, 0); err != nil {
		message := luaError(l, err)
		r.logger.Info("package rejected by hook", "title", pkg.Title, "reason", message)
		return &Rejection{Reason: message}
	}

	if l.IsNil(-1) {
		return nil
	}
	if !l.IsTable(-1) {
		return reject("before_save returned %s, expected a table or nil", lua.TypeNameOf(l, -1))
	}

	output, err := util.PullTable(l, -1)
	if err != nil {
		return reject("reading before_save result: %v", err)
	}

	replaced, err := fromTable(output)
	if err != nil {
		return err
	}
	if replaced.ID == "" {
		replaced.ID = pkg.ID
	}
	*pkg = *replaced
	return nil
}

// Close releases the script. The Lua state itself is garbage collected.
func (r *Runner) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = nil
	r.hasBeforeSave = false
	return nil
}

func (r *Runner) openLibraries() {
	l := r.state

	lua.Require(l, "_G", lua.BaseOpen, true)
	l.Pop(1)
	lua.Require(l, "string", lua.StringOpen, true)
	l.Pop(1)
	lua.Require(l, "table", lua.TableOpen, true)
	l.Pop(1)
	lua.Require(l, "math", lua.MathOpen, true)
	l.Pop(1)
	lua.Require(l, "bit32", lua.Bit32Open, true)
	l.Pop(1)

	for _, global := range restrictedGlobals {
		l.PushNil()
		l.SetGlobal(global)
	}

	l.Register("print", func(l *lua.State) int {
		count := l.Top()
		parts := make([]string, 0, count)
		for i := 1; i <= count; i++ {
			part, _ := lua.ToStringMeta(l, i)
			parts = append(parts, part)
			l.Pop(1)
		}
		r.logger.Info(strings.Join(parts, "\t"))
		return 0
	})

	lua.NewLibrary(l, []lua.RegistryFunction{
		{Name: "log", Function: func(l *lua.State) int {
			message := lua.CheckString(l, 1)
			level := strings.ToUpper(lua.OptString(l, 2, "INFO"))
			switch level {
			case "ERROR":
				r.logger.Error(message)
			case "WARN":
				r.logger.Warn(message)
			case "DEBUG":
				r.logger.Debug(message)
			default:
				r.logger.Info(message)
			}
			return 0
		}},
		{Name: "slugify", Function: func(l *lua.State) int {
			l.PushString(slug.Slugify(lua.CheckString(l, 1)))
			return 1
		}},
	})
	l.SetGlobal("catalog")
}

// luaError returns the error value left on the stack by a failed call, falling back to err.
func luaError(l *lua.State, err error) string {
	if message, ok := l.ToString(-1); ok && message != "" {
		l.Pop(1)
		return message
	}
	return err.Error()
}

// toTable converts the package into the generic shape util.DeepPush understands,
// keyed by the JSON field names.
func toTable(pkg *domain.Package) (map[string]any, error) {
	normalized := *pkg
	normalized.Normalize()

	encoded, err := json.Marshal(&normalized)
	if err != nil {
		return nil, fmt.Errorf("encoding package for hook: %w", err)
	}
	var table map[string]any
	if err := json.Unmarshal(encoded, &table); err != nil {
		return nil, fmt.Errorf("decoding package for hook: %w", err)
	}
	return table, nil
}

// listFields are package fields that must decode as arrays even when Lua hands back an empty table.
var listFields = []string{"images", "inclusions", "months"}

func fromTable(value any) (*domain.Package, error) {
	table, ok := value.(map[string]any)
	if !ok {
		return nil, reject("before_save must return a table with named fields")
	}

	for _, field := range listFields {
		if empty, ok := table[field].(map[string]any); ok && len(empty) == 0 {
			table[field] = []any{}
		}
	}

	encoded, err := json.Marshal(table)
	if err != nil {
		return nil, reject("encoding before_save result: %v", err)
	}
	var pkg domain.Package
	if err := json.Unmarshal(encoded, &pkg); err != nil {
		return nil, reject("before_save result is not a package: %v", err)
	}
	pkg.Normalize()
	return &pkg, nil
}
