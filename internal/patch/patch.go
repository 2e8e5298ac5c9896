// Package patch builds partial-update instructions from a sparse set of candidate fields.
package patch

import (
	"fmt"
	"reflect"
	"strings"
)

// Field is a single attribute assignment.
type Field struct {
	Name  string
	Value any
}

// Patch is an ordered list of fields to set on an existing record.
// Candidates that are not present are dropped when added.
type Patch struct {
	fields []Field
}

// New returns an empty patch.
func New() *Patch {
	return &Patch{}
}

// Set adds a candidate field. Absent values (nil, nil pointers, blank strings) are skipped.
// Setting the same name twice replaces the earlier value in place.
func (p *Patch) Set(name string, value any) *Patch {
	if !Present(value) {
		return p
	}
	value = deref(value)
	for i := range p.fields {
		if p.fields[i].Name == name {
			p.fields[i].Value = value
			return p
		}
	}
	p.fields = append(p.fields, Field{Name: name, Value: value})
	return p
}

// Fields returns the kept fields in insertion order.
func (p *Patch) Fields() []Field {
	if p == nil {
		return nil
	}
	out := make([]Field, len(p.fields))
	copy(out, p.fields)
	return out
}

// Map returns the kept fields keyed by name.
func (p *Patch) Map() map[string]any {
	out := make(map[string]any, p.Len())
	for _, f := range p.Fields() {
		out[f.Name] = f.Value
	}
	return out
}

// Len is the number of kept fields.
func (p *Patch) Len() int {
	if p == nil {
		return 0
	}
	return len(p.fields)
}

// Empty reports whether the patch would set nothing.
func (p *Patch) Empty() bool {
	return p.Len() == 0
}

// Has reports whether name is part of the patch.
func (p *Patch) Has(name string) bool {
	for _, f := range p.Fields() {
		if f.Name == name {
			return true
		}
	}
	return false
}

// UpdateExpression is a placeholder-based SET statement. Attribute names never
// appear in Expression directly; they are bound through Names.
type UpdateExpression struct {
	Expression string
	Names      map[string]string
	Values     map[string]any
}

// Expression renders the patch as "SET #field0 = :value0, #field1 = :value1".
func (p *Patch) Expression() UpdateExpression {
	fields := p.Fields()
	expr := UpdateExpression{
		Names:  make(map[string]string, len(fields)),
		Values: make(map[string]any, len(fields)),
	}
	if len(fields) == 0 {
		return expr
	}

	parts := make([]string, 0, len(fields))
	for i, f := range fields {
		name := fmt.Sprintf("#field%d", i)
		value := fmt.Sprintf(":value%d", i)
		parts = append(parts, name+" = "+value)
		expr.Names[name] = f.Name
		expr.Values[value] = f.Value
	}
	expr.Expression = "SET " + strings.Join(parts, ", ")
	return expr
}

// Present reports whether a candidate value should be written.
func Present(value any) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) != ""
	case *string:
		return v != nil && strings.TrimSpace(*v) != ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return false
		}
	}
	return true
}

func deref(value any) any {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		return rv.Elem().Interface()
	}
	return value
}
