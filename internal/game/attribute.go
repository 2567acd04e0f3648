package game

import (
	"fmt"
	"strconv"

	"ravaged-planets/internal/vector"
)

// AttrKind tags the dynamic type of an Attribute.
type AttrKind uint8

const (
	AttrInt AttrKind = iota + 1
	AttrFloat
	AttrString
	AttrVector
)

// Attribute is a dynamically-typed scalar attached to an entity by name.
// Templates populate them; components and scripts read and write them.
type Attribute struct {
	Kind AttrKind
	I    int64
	F    float32
	S    string
	V    vector.Vec3
}

// IntAttr builds an int attribute.
func IntAttr(v int64) Attribute { return Attribute{Kind: AttrInt, I: v} }

// FloatAttr builds a float attribute.
func FloatAttr(v float32) Attribute { return Attribute{Kind: AttrFloat, F: v} }

// StringAttr builds a string attribute.
func StringAttr(v string) Attribute { return Attribute{Kind: AttrString, S: v} }

// VectorAttr builds a vector attribute.
func VectorAttr(v vector.Vec3) Attribute { return Attribute{Kind: AttrVector, V: v} }

// AsFloat coerces the attribute to a float.
func (a Attribute) AsFloat() float32 {
	switch a.Kind {
	case AttrFloat:
		return a.F
	case AttrInt:
		return float32(a.I)
	case AttrString:
		f, _ := strconv.ParseFloat(a.S, 32)
		return float32(f)
	default:
		return 0
	}
}

// AsInt coerces the attribute to an int.
func (a Attribute) AsInt() int64 {
	switch a.Kind {
	case AttrInt:
		return a.I
	case AttrFloat:
		return int64(a.F)
	case AttrString:
		i, _ := strconv.ParseInt(a.S, 10, 64)
		return i
	default:
		return 0
	}
}

// AsString renders the attribute.
func (a Attribute) AsString() string {
	switch a.Kind {
	case AttrString:
		return a.S
	case AttrInt:
		return strconv.FormatInt(a.I, 10)
	case AttrFloat:
		return strconv.FormatFloat(float64(a.F), 'g', -1, 32)
	case AttrVector:
		return fmt.Sprintf("%g %g %g", a.V.X, a.V.Y, a.V.Z)
	default:
		return ""
	}
}

// AsVector returns the vector value, or zero for other kinds.
func (a Attribute) AsVector() vector.Vec3 {
	if a.Kind == AttrVector {
		return a.V
	}
	return vector.Vec3{}
}

// Equal compares attributes by kind and value.
func (a Attribute) Equal(b Attribute) bool { return a == b }

// Table is a declarative parameter table: the top level of an entity
// template, and the per-component parameter blocks handed to
// ApplyTemplate. Lookups that miss fall back to the given default, so
// component defaults live at the call site.
type Table map[string]Attribute

// Float returns the float value of key, or def when absent.
func (t Table) Float(key string, def float32) float32 {
	if a, ok := t[key]; ok {
		return a.AsFloat()
	}
	return def
}

// Int returns the int value of key, or def when absent.
func (t Table) Int(key string, def int64) int64 {
	if a, ok := t[key]; ok {
		return a.AsInt()
	}
	return def
}

// Bool treats nonzero ints/floats and the string "true" as true.
func (t Table) Bool(key string, def bool) bool {
	a, ok := t[key]
	if !ok {
		return def
	}
	switch a.Kind {
	case AttrString:
		return a.S == "true"
	default:
		return a.AsInt() != 0
	}
}

// String returns the string value of key, or def when absent.
func (t Table) String(key string, def string) string {
	if a, ok := t[key]; ok {
		return a.AsString()
	}
	return def
}

// Vector returns the vector value of key, or def when absent.
func (t Table) Vector(key string, def vector.Vec3) vector.Vec3 {
	if a, ok := t[key]; ok && a.Kind == AttrVector {
		return a.V
	}
	return def
}

// Has reports whether the key is present.
func (t Table) Has(key string) bool {
	_, ok := t[key]
	return ok
}
