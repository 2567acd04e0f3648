package game

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"ravaged-planets/internal/errs"
	"ravaged-planets/internal/vector"
)

// ComponentTemplate is one component entry of an entity template: the
// component name and the parameter table handed to ApplyTemplate.
type ComponentTemplate struct {
	Name   string
	Params Table
}

// Template is a declarative entity description: top-level scalar
// attributes copied verbatim into the entity's attribute map, plus the
// ordered component list.
type Template struct {
	Name           string
	AttributeNames []string // sorted, so instantiation order is identical on every peer
	Attributes     map[string]Attribute
	Components     []ComponentTemplate
}

// TemplateRegistry maps template names to templates. Lookup is by name;
// nothing iterates the registry during simulation, so a plain map is fine.
type TemplateRegistry struct {
	templates map[string]*Template
}

// NewTemplateRegistry returns an empty registry.
func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{templates: make(map[string]*Template)}
}

// Register adds or replaces a template.
func (r *TemplateRegistry) Register(t *Template) {
	r.templates[t.Name] = t
}

// Get returns the named template, or nil.
func (r *TemplateRegistry) Get(name string) *Template {
	return r.templates[name]
}

// Names returns all template names, sorted.
func (r *TemplateRegistry) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadDir loads every *.entity file in a directory. Template files are
// Lua: each calls the provided entity{...} constructor with a table of
// attributes, plus a components array of {"Name", {params}} pairs —
// an array, so the declaration order components initialize in survives
// the trip through Lua.
func (r *TemplateRegistry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errs.Wrap(errs.KindIo, err, "template dir %s", dir)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".entity") {
			continue
		}
		src, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return errs.Wrap(errs.KindIo, err, "template %s", e.Name())
		}
		if err := r.LoadSource(string(src)); err != nil {
			return errs.Wrap(errs.KindParse, err, "template %s", e.Name())
		}
	}
	return nil
}

// LoadSource evaluates one template chunk.
func (r *TemplateRegistry) LoadSource(src string) error {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	var loadErr error
	L.SetGlobal("entity", L.NewFunction(func(L *lua.LState) int {
		tmpl, err := templateFromLua(L.CheckTable(1))
		if err != nil {
			loadErr = err
			return 0
		}
		r.Register(tmpl)
		return 0
	}))
	L.SetGlobal("vec", L.NewFunction(func(L *lua.LState) int {
		t := L.NewTable()
		t.RawSetString("x", lua.LNumber(L.CheckNumber(1)))
		t.RawSetString("y", lua.LNumber(L.CheckNumber(2)))
		t.RawSetString("z", lua.LNumber(L.CheckNumber(3)))
		L.Push(t)
		return 1
	}))

	if err := L.DoString(src); err != nil {
		return errs.Wrap(errs.KindParse, err, "template chunk")
	}
	return loadErr
}

func templateFromLua(tbl *lua.LTable) (*Template, error) {
	t := &Template{Attributes: make(map[string]Attribute)}

	var convErr error
	tbl.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			return
		}
		switch string(key) {
		case "name":
			t.Name = lua.LVAsString(v)
		case "components":
			comps, ok := v.(*lua.LTable)
			if !ok {
				convErr = errs.New(errs.KindParse, "components must be an array")
				return
			}
			comps.ForEach(func(i, entry lua.LValue) {
				if _, isIdx := i.(lua.LNumber); !isIdx {
					return
				}
				pair, ok := entry.(*lua.LTable)
				if !ok {
					convErr = errs.New(errs.KindParse, "component entry must be a {name, params} pair")
					return
				}
				name := lua.LVAsString(pair.RawGetInt(1))
				params := Table{}
				if pt, ok := pair.RawGetInt(2).(*lua.LTable); ok {
					params = tableFromLua(pt)
				}
				t.Components = append(t.Components, ComponentTemplate{Name: name, Params: params})
			})
		default:
			if a, ok := attributeFromLua(v); ok {
				t.Attributes[string(key)] = a
			}
		}
	})
	if convErr != nil {
		return nil, convErr
	}
	if t.Name == "" {
		return nil, errs.New(errs.KindParse, "entity template has no name")
	}
	for name := range t.Attributes {
		t.AttributeNames = append(t.AttributeNames, name)
	}
	sort.Strings(t.AttributeNames)
	return t, nil
}

func tableFromLua(tbl *lua.LTable) Table {
	out := Table{}
	tbl.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			return
		}
		if a, ok := attributeFromLua(v); ok {
			out[string(key)] = a
		}
	})
	return out
}

// attributeFromLua maps Lua scalars onto the attribute variants: booleans
// become ints, numbers floats, and {x=..,y=..,z=..} tables vectors.
func attributeFromLua(v lua.LValue) (Attribute, bool) {
	switch val := v.(type) {
	case lua.LBool:
		if bool(val) {
			return IntAttr(1), true
		}
		return IntAttr(0), true
	case lua.LNumber:
		return FloatAttr(float32(val)), true
	case lua.LString:
		return StringAttr(string(val)), true
	case *lua.LTable:
		x, xok := val.RawGetString("x").(lua.LNumber)
		y, yok := val.RawGetString("y").(lua.LNumber)
		z, zok := val.RawGetString("z").(lua.LNumber)
		if xok && yok && zok {
			return VectorAttr(vector.V3(float32(x), float32(y), float32(z))), true
		}
		return Attribute{}, false
	default:
		return Attribute{}, false
	}
}
