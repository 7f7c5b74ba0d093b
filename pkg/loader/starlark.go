package loader

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	starlarkjson "go.starlark.net/lib/json"
	starlarkmath "go.starlark.net/lib/math"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"

	"github.com/openfroyo/sassdata/pkg/value"
)

// ExportsGlobal, when defined by a Starlark module, is the module's value.
const ExportsGlobal = "exports"

// ErrStarlarkTimeout is returned when evaluation exceeds the evaluator's
// timeout.
var ErrStarlarkTimeout = errors.New("starlark execution timeout")

// StarlarkEvaluator executes Starlark data modules.
type StarlarkEvaluator struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// NewStarlarkEvaluator creates a new Starlark evaluator.
func NewStarlarkEvaluator(timeout time.Duration, logger zerolog.Logger) *StarlarkEvaluator {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &StarlarkEvaluator{
		timeout: timeout,
		logger:  logger,
	}
}

// fileOptions lets data modules build values with top-level loops and
// rebinding.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

func predeclared() starlark.StringDict {
	return starlark.StringDict{
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
		"json":   starlarkjson.Module,
		"math":   starlarkmath.Module,
	}
}

// Evaluate runs a module and returns its value: the "exports" global when
// defined, otherwise a mapping of every public global in the order the
// module first assigns it.
//
// Functions taking at most one parameter become deferred values receiving
// the root of the value tree; other callables become opaque functions.
func (se *StarlarkEvaluator) Evaluate(ctx context.Context, path string, src []byte) (any, error) {
	env := predeclared()
	file, prog, err := starlark.SourceProgramOptions(fileOptions, path, src, env.Has)
	if err != nil {
		return nil, err
	}

	thread := se.newThread(path)
	globals, err := se.run(ctx, thread, func() (starlark.StringDict, error) {
		return prog.Init(thread, env)
	})
	if err != nil {
		return nil, err
	}
	globals.Freeze()

	if exports, ok := globals[ExportsGlobal]; ok {
		return se.fromStarlark(path, exports)
	}

	m := value.NewMap()
	for _, name := range globalOrder(file) {
		v, ok := globals[name]
		if !ok || strings.HasPrefix(name, "_") {
			continue
		}
		conv, err := se.fromStarlark(path, v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		m.Set(name, conv)
	}
	return m, nil
}

func (se *StarlarkEvaluator) newThread(path string) *starlark.Thread {
	return &starlark.Thread{
		Name: path,
		Print: func(_ *starlark.Thread, msg string) {
			se.logger.Debug().Str("path", path).Msg(msg)
		},
	}
}

// run executes fn, cancelling the thread when ctx ends or the timeout
// elapses.
func (se *StarlarkEvaluator) run(ctx context.Context, thread *starlark.Thread, fn func() (starlark.StringDict, error)) (starlark.StringDict, error) {
	evalCtx, cancel := context.WithTimeout(ctx, se.timeout)
	defer cancel()
	thread.SetLocal(contextLocal, evalCtx)
	stop := context.AfterFunc(evalCtx, func() {
		thread.Cancel(evalCtx.Err().Error())
	})
	defer stop()

	result, err := fn()
	if err != nil {
		if errors.Is(evalCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %v", ErrStarlarkTimeout, se.timeout)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return result, nil
}

// contextLocal is the thread-local key holding the context a thread runs
// under.
const contextLocal = "sassdata.context"

func threadContext(thread *starlark.Thread) context.Context {
	if ctx, ok := thread.Local(contextLocal).(context.Context); ok {
		return ctx
	}
	return context.Background()
}

// globalOrder lists the names bound at the top level of file, in order of
// first binding.
func globalOrder(file *syntax.File) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(id *syntax.Ident) {
		if id != nil && !seen[id.Name] {
			seen[id.Name] = true
			names = append(names, id.Name)
		}
	}

	var bind func(e syntax.Expr)
	bind = func(e syntax.Expr) {
		switch t := e.(type) {
		case *syntax.Ident:
			add(t)
		case *syntax.TupleExpr:
			for _, x := range t.List {
				bind(x)
			}
		case *syntax.ListExpr:
			for _, x := range t.List {
				bind(x)
			}
		case *syntax.ParenExpr:
			bind(t.X)
		}
	}

	var walk func(stmts []syntax.Stmt)
	walk = func(stmts []syntax.Stmt) {
		for _, stmt := range stmts {
			switch s := stmt.(type) {
			case *syntax.AssignStmt:
				bind(s.LHS)
			case *syntax.DefStmt:
				add(s.Name)
			case *syntax.LoadStmt:
				for _, id := range s.To {
					add(id)
				}
			case *syntax.ForStmt:
				bind(s.Vars)
				walk(s.Body)
			case *syntax.WhileStmt:
				walk(s.Body)
			case *syntax.IfStmt:
				walk(s.True)
				walk(s.False)
			}
		}
	}
	walk(file.Stmts)
	return names
}

func (se *StarlarkEvaluator) fromStarlark(path string, v starlark.Value) (any, error) {
	switch t := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(t), nil
	case starlark.Int:
		if i, ok := t.Int64(); ok {
			return value.Int(i), nil
		}
		return value.Number(t.BigInt().String()), nil
	case starlark.Float:
		f := float64(t)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("unsupported number %v", t)
		}
		return value.Float(f), nil
	case starlark.String:
		return string(t), nil
	case *starlark.List:
		return se.fromIterable(path, t, t.Len())
	case starlark.Tuple:
		return se.fromIterable(path, t, t.Len())
	case *starlark.Dict:
		m := value.NewMap()
		for _, item := range t.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %s", item[0].Type())
			}
			conv, err := se.fromStarlark(path, item[1])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", string(key), err)
			}
			m.Set(string(key), conv)
		}
		return m, nil
	case *starlarkstruct.Struct:
		m := value.NewMap()
		for _, name := range t.AttrNames() {
			attr, err := t.Attr(name)
			if err != nil {
				return nil, err
			}
			conv, err := se.fromStarlark(path, attr)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			m.Set(name, conv)
		}
		return m, nil
	case *starlark.Function:
		if t.NumParams() <= 1 && !t.HasVarargs() && !t.HasKwargs() {
			return se.deferred(path, t), nil
		}
		return value.Function{Name: t.Name()}, nil
	case starlark.Callable:
		return value.Function{Name: t.Name()}, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
	}
}

func (se *StarlarkEvaluator) fromIterable(path string, seq starlark.Indexable, n int) (any, error) {
	list := make([]any, n)
	for i := 0; i < n; i++ {
		conv, err := se.fromStarlark(path, seq.Index(i))
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		list[i] = conv
	}
	return list, nil
}

// deferred wraps fn so it runs on its own thread, against the root value
// when it declares a parameter.
func (se *StarlarkEvaluator) deferred(path string, fn *starlark.Function) *value.Deferred {
	arity := fn.NumParams()
	return &value.Deferred{
		Name:  fn.Name(),
		Arity: arity,
		Fn: func(ctx context.Context, root any) (any, error) {
			var args starlark.Tuple
			if arity == 1 {
				arg, err := se.toStarlark(root)
				if err != nil {
					return nil, err
				}
				args = starlark.Tuple{arg}
			}

			thread := se.newThread(path)
			var result starlark.Value
			_, err := se.run(ctx, thread, func() (starlark.StringDict, error) {
				var err error
				result, err = starlark.Call(thread, fn, args, nil)
				return nil, err
			})
			if err != nil {
				return nil, err
			}
			return se.fromStarlark(path, result)
		},
	}
}

// toStarlark converts a value tree into Starlark values. Mappings become
// dicts in key order and numbers become ints where they are integral.
func (se *StarlarkEvaluator) toStarlark(v any) (starlark.Value, error) {
	switch t := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(t), nil
	case string:
		return starlark.String(t), nil
	case value.Number:
		if i, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return starlark.MakeInt64(i), nil
		}
		if f, err := strconv.ParseFloat(string(t), 64); err == nil {
			return starlark.Float(f), nil
		}
		return starlark.String(string(t)), nil
	case []any:
		list := make([]starlark.Value, len(t))
		for i, item := range t {
			conv, err := se.toStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list[i] = conv
		}
		return starlark.NewList(list), nil
	case *value.Map:
		dict := starlark.NewDict(t.Len())
		var convErr error
		t.Range(func(key string, item any) bool {
			conv, err := se.toStarlark(item)
			if err == nil {
				err = dict.SetKey(starlark.String(key), conv)
			}
			if err != nil {
				convErr = fmt.Errorf("%s: %w", key, err)
				return false
			}
			return true
		})
		if convErr != nil {
			return nil, convErr
		}
		return dict, nil
	case *value.Deferred:
		d := t
		return starlark.NewBuiltin(builtinName(d.Name), func(thread *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
			var root any
			if len(args) > 0 {
				conv, err := se.fromStarlark(d.Name, args[0])
				if err != nil {
					return nil, err
				}
				root = conv
			}
			result, err := d.CallContext(threadContext(thread), root)
			if err != nil {
				return nil, err
			}
			return se.toStarlark(result)
		}), nil
	case value.Function:
		name := builtinName(t.Name)
		return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, _ starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
			return nil, fmt.Errorf("%s: function cannot be called", b.Name())
		}), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func builtinName(name string) string {
	if name == "" {
		return "function"
	}
	return name
}
