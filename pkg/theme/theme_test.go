package theme

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/openfroyo/sassdata/pkg/value"
)

// ref returns a deferred value reading a top-level key of the root.
func ref(key string) *value.Deferred {
	return value.NewDeferred("ref "+key, func(root any) (any, error) {
		v, _ := root.(*value.Map).Get(key)
		return v, nil
	})
}

func TestResolve_DeferredSeesRoot(t *testing.T) {
	tree := value.MapOf(
		"a", value.MapOf("b", ref("c")),
		"c", value.Number("5"),
	)

	got, err := Resolve(tree, tree)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := map[string]any{"a": map[string]any{"b": "5"}, "c": "5"}
	if diff := cmp.Diff(want, value.ToNative(got)); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "c"}, got.(*value.Map).Keys()); diff != "" {
		t.Errorf("Resolve() key order mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_SiblingOrderIrrelevant(t *testing.T) {
	before := value.MapOf("c", value.Number("5"), "a", value.MapOf("b", ref("c")))
	after := value.MapOf("a", value.MapOf("b", ref("c")), "c", value.Number("5"))

	r1, err := Resolve(before, before)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	r2, err := Resolve(after, after)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if diff := cmp.Diff(value.ToNative(r1), value.ToNative(r2)); diff != "" {
		t.Errorf("resolution depends on sibling order (-first +second):\n%s", diff)
	}
}

func TestResolve_SequencesNotRecursed(t *testing.T) {
	d := ref("x")
	tree := value.MapOf("list", []any{d}, "x", value.Number("1"))

	got, err := Resolve(tree, tree)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	list, _ := got.(*value.Map).Get("list")
	if list.([]any)[0] != d {
		t.Errorf("expected the deferred value inside the list to be left alone")
	}
}

func TestResolve_SinglePass(t *testing.T) {
	inner := ref("x")
	outer := value.NewDeferred("outer", func(any) (any, error) { return inner, nil })
	tree := value.MapOf("v", outer, "x", value.Number("1"))

	got, err := Resolve(tree, tree)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if v, _ := got.(*value.Map).Get("v"); v != inner {
		t.Errorf("expected the deferred result to be returned unresolved, got %#v", v)
	}
}

func TestResolve_DoesNotModifyInput(t *testing.T) {
	d := ref("x")
	tree := value.MapOf("v", d, "x", value.Number("1"))

	if _, err := Resolve(tree, tree); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if v, _ := tree.Get("v"); v != d {
		t.Errorf("input tree was modified")
	}
}

func TestResolve_ErrorNamesPath(t *testing.T) {
	boom := errors.New("boom")
	tree := value.MapOf("button", value.MapOf("bg", value.NewDeferred("bg", func(any) (any, error) {
		return nil, boom
	})))

	_, err := Resolve(tree, tree)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !strings.Contains(err.Error(), "button.bg") {
		t.Errorf("error %q does not name the key path", err)
	}
}

func TestResolveTheme(t *testing.T) {
	th, err := ResolveTheme(value.MapOf("primary", "red", "accent", ref("primary")))
	if err != nil {
		t.Fatalf("ResolveTheme() error = %v", err)
	}
	if v, _ := th.Get("accent"); v != "red" {
		t.Errorf("accent = %v, want red", v)
	}

	if _, err := ResolveTheme([]any{"a"}); err == nil {
		t.Errorf("expected an error for a sequence theme")
	}
}

func TestMergeModule(t *testing.T) {
	theme := value.MapOf(
		"primary", "red",
		ModulesKey, value.MapOf(
			"button", value.MapOf("bg", "blue", "border", value.MapOf("width", value.Number("2"))),
			"sizes", value.MapOf("sizes", []any{value.Number("9")}),
			"scalar", "overridden",
		),
	)

	tests := []struct {
		name         string
		module       string
		data         any
		theme        *value.Map
		want         any
		wantIdentity string
	}{
		{
			name:         "no theme",
			module:       "button",
			data:         value.MapOf("bg", "white"),
			want:         map[string]any{"bg": "white"},
			wantIdentity: "button",
		},
		{
			name:         "no override for module",
			module:       "card",
			data:         value.MapOf("bg", "white"),
			theme:        theme,
			want:         map[string]any{"bg": "white"},
			wantIdentity: "card",
		},
		{
			name:   "deep override wins",
			module: "button",
			data: value.MapOf(
				"bg", "white",
				"fg", "black",
				"border", value.MapOf("width", value.Number("1"), "style", "solid"),
			),
			theme: theme,
			want: map[string]any{
				"bg":     "blue",
				"fg":     "black",
				"border": map[string]any{"width": "2", "style": "solid"},
			},
			wantIdentity: "button",
		},
		{
			name:         "@module property names the module",
			module:       "btn-file",
			data:         value.MapOf(ModuleNameKey, "button", "bg", "white"),
			theme:        theme,
			want:         map[string]any{ModuleNameKey: "button", "bg": "blue", "border": map[string]any{"width": "2"}},
			wantIdentity: "button",
		},
		{
			name:         "sequence wrapped then overridden",
			module:       "sizes",
			data:         []any{value.Number("1"), value.Number("2")},
			theme:        theme,
			want:         map[string]any{"sizes": []any{"9"}},
			wantIdentity: "sizes",
		},
		{
			name:         "sequence wrapped without theme",
			module:       "sizes",
			data:         []any{value.Number("1")},
			want:         map[string]any{"sizes": []any{"1"}},
			wantIdentity: "sizes",
		},
		{
			name:         "scalar replaced by override",
			module:       "scalar",
			data:         "original",
			theme:        theme,
			want:         "overridden",
			wantIdentity: "scalar",
		},
		{
			name:   "deferred called with theme",
			module: "link",
			data: value.NewDeferred("link", func(root any) (any, error) {
				p, _ := root.(*value.Map).Get("primary")
				return value.MapOf("color", p), nil
			}),
			theme:        theme,
			want:         map[string]any{"color": "red"},
			wantIdentity: "link",
		},
		{
			name:   "deferred without theme gets an empty map",
			module: "link",
			data: value.NewDeferred("link", func(root any) (any, error) {
				return value.MapOf("n", value.Int(int64(root.(*value.Map).Len()))), nil
			}),
			want:         map[string]any{"n": "0"},
			wantIdentity: "link",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, identity, err := MergeModule(tt.module, tt.data, tt.theme)
			if err != nil {
				t.Fatalf("MergeModule() error = %v", err)
			}
			if identity != tt.wantIdentity {
				t.Errorf("identity = %q, want %q", identity, tt.wantIdentity)
			}
			if diff := cmp.Diff(tt.want, value.ToNative(got)); diff != "" {
				t.Errorf("MergeModule() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeModule_Idempotent(t *testing.T) {
	theme := value.MapOf(ModulesKey, value.MapOf(
		"button", value.MapOf("bg", "blue", "sizes", []any{value.Number("1")}),
	))
	data := value.MapOf("bg", "white", "fg", "black", "sizes", []any{value.Number("2"), value.Number("3")})

	once, _, err := MergeModule("button", data, theme)
	if err != nil {
		t.Fatalf("MergeModule() error = %v", err)
	}
	twice, _, err := MergeModule("button", once, theme)
	if err != nil {
		t.Fatalf("MergeModule() error = %v", err)
	}
	if diff := cmp.Diff(value.ToNative(once), value.ToNative(twice)); diff != "" {
		t.Errorf("second merge changed the result (-once +twice):\n%s", diff)
	}
}

func TestMergeModule_ThemeIsReadOnly(t *testing.T) {
	theme := value.MapOf(
		"primary", "red",
		ModulesKey, value.MapOf("button", value.MapOf("bg", "blue")),
	)
	before := value.ToNative(theme)

	data := value.NewDeferred("mutator", func(root any) (any, error) {
		root.(*value.Map).Set("primary", "green")
		return value.MapOf("bg", "white", "extra", true), nil
	})
	merged, _, err := MergeModule("button", data, theme)
	if err != nil {
		t.Fatalf("MergeModule() error = %v", err)
	}
	merged.(*value.Map).Set("bg", "purple")

	if diff := cmp.Diff(before, value.ToNative(theme)); diff != "" {
		t.Errorf("theme was modified (-before +after):\n%s", diff)
	}
}

func TestMergeModule_DeferredError(t *testing.T) {
	boom := errors.New("boom")
	_, _, err := MergeModule("m", value.NewDeferred("m", func(any) (any, error) { return nil, boom }), nil)
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestContextVariants_PassContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	checksCtx := &value.Deferred{
		Name:  "checks",
		Arity: 1,
		Fn: func(ctx context.Context, _ any) (any, error) {
			return nil, ctx.Err()
		},
	}

	if _, err := ResolveContext(ctx, value.MapOf("a", checksCtx), nil); !errors.Is(err, context.Canceled) {
		t.Errorf("ResolveContext() error = %v, want context.Canceled", err)
	}
	if _, err := ResolveThemeContext(ctx, value.MapOf("a", checksCtx)); !errors.Is(err, context.Canceled) {
		t.Errorf("ResolveThemeContext() error = %v, want context.Canceled", err)
	}
	if _, _, err := MergeModuleContext(ctx, "m", checksCtx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("MergeModuleContext() error = %v, want context.Canceled", err)
	}
	if _, _, err := MergeModule("m", checksCtx, nil); err != nil {
		t.Errorf("MergeModule() error = %v, want nil", err)
	}
}

func TestSession_Isolation(t *testing.T) {
	a, b := NewSession(), NewSession()
	if a.ID() == b.ID() {
		t.Fatalf("sessions share an ID")
	}

	a.SetTheme("/themes/theme.json", value.MapOf("primary", "red"))

	if _, ok := b.Theme(); ok {
		t.Errorf("session b observed session a's theme")
	}
	th, ok := a.Theme()
	if !ok {
		t.Fatalf("session a lost its theme")
	}
	if v, _ := th.Get("primary"); v != "red" {
		t.Errorf("primary = %v, want red", v)
	}
	if a.ThemePath() != "/themes/theme.json" {
		t.Errorf("ThemePath() = %q", a.ThemePath())
	}
	if a.UpdatedAt().IsZero() {
		t.Errorf("UpdatedAt() not set")
	}

	a.Reset()
	if _, ok := a.Theme(); ok {
		t.Errorf("theme survived Reset")
	}
}

func TestSession_ConcurrentAccess(t *testing.T) {
	s := NewSession()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetTheme("theme.json", value.MapOf("n", value.Number("1")))
		}()
		go func() {
			defer wg.Done()
			if th, ok := s.Theme(); ok && th.Len() != 1 {
				t.Errorf("observed a partially set theme")
			}
		}()
	}
	wg.Wait()
}
