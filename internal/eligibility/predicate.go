package eligibility

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/geosift/eligo/internal/geom"
)

// Predicate is a typed attribute filter evaluated against one
// feature's attribute record. Trees are built from the comparison and
// boolean constructors below, or decoded from their JSON wire form:
//
//	{"op":"eq","attr":"landuse","value":"forest"}
//	{"op":"and","args":[...]}
//
// Referencing an absent attribute fails the evaluation rather than
// silently excluding the feature.
type Predicate interface {
	Eval(attrs geom.Attributes) (bool, error)
}

type comparison struct {
	op    string
	attr  string
	value any
}

type combinator struct {
	op   string
	args []Predicate
}

func Eq(attr string, value any) Predicate { return &comparison{op: "eq", attr: attr, value: value} }
func Ne(attr string, value any) Predicate { return &comparison{op: "ne", attr: attr, value: value} }
func Lt(attr string, value any) Predicate { return &comparison{op: "lt", attr: attr, value: value} }
func Le(attr string, value any) Predicate { return &comparison{op: "le", attr: attr, value: value} }
func Gt(attr string, value any) Predicate { return &comparison{op: "gt", attr: attr, value: value} }
func Ge(attr string, value any) Predicate { return &comparison{op: "ge", attr: attr, value: value} }

func And(args ...Predicate) Predicate { return &combinator{op: "and", args: args} }
func Or(args ...Predicate) Predicate  { return &combinator{op: "or", args: args} }
func Not(arg Predicate) Predicate     { return &combinator{op: "not", args: []Predicate{arg}} }

func (c *comparison) Eval(attrs geom.Attributes) (bool, error) {
	got, ok := attrs[c.attr]
	if !ok {
		return false, fmt.Errorf("%w: attribute %q not present", ErrInvalidFilter, c.attr)
	}
	cmp, err := compare(got, c.value)
	if err != nil {
		return false, fmt.Errorf("%w: attribute %q: %v", ErrInvalidFilter, c.attr, err)
	}
	switch c.op {
	case "eq":
		return cmp == 0, nil
	case "ne":
		return cmp != 0, nil
	case "lt":
		return cmp < 0, nil
	case "le":
		return cmp <= 0, nil
	case "gt":
		return cmp > 0, nil
	case "ge":
		return cmp >= 0, nil
	default:
		return false, fmt.Errorf("%w: unknown comparison %q", ErrInvalidFilter, c.op)
	}
}

func (c *combinator) Eval(attrs geom.Attributes) (bool, error) {
	switch c.op {
	case "and":
		for _, p := range c.args {
			ok, err := p.Eval(attrs)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case "or":
		for _, p := range c.args {
			ok, err := p.Eval(attrs)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case "not":
		if len(c.args) != 1 {
			return false, fmt.Errorf(`%w: "not" takes exactly one argument`, ErrInvalidFilter)
		}
		ok, err := c.args[0].Eval(attrs)
		if err != nil {
			return false, err
		}
		return !ok, nil
	default:
		return false, fmt.Errorf("%w: unknown combinator %q", ErrInvalidFilter, c.op)
	}
}

// compare orders two attribute values: numbers numerically, strings
// lexicographically, bools with false < true. Mixed types fail.
func compare(a, b any) (int, error) {
	if fa, okA := asFloat(a); okA {
		fb, okB := asFloat(b)
		if !okB {
			return 0, fmt.Errorf("cannot compare number with %T", b)
		}
		switch {
		case fa < fb:
			return -1, nil
		case fa > fb:
			return 1, nil
		default:
			return 0, nil
		}
	}
	switch ta := a.(type) {
	case string:
		tb, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("cannot compare string with %T", b)
		}
		return strings.Compare(ta, tb), nil
	case bool:
		tb, ok := b.(bool)
		if !ok {
			return 0, fmt.Errorf("cannot compare bool with %T", b)
		}
		switch {
		case ta == tb:
			return 0, nil
		case tb:
			return -1, nil
		default:
			return 1, nil
		}
	default:
		return 0, fmt.Errorf("unsupported attribute type %T", a)
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// --- JSON wire form ---

type predicateJSON struct {
	Op    string            `json:"op"`
	Attr  string            `json:"attr,omitempty"`
	Value any               `json:"value,omitempty"`
	Args  []json.RawMessage `json:"args,omitempty"`
}

// DecodePredicate parses the JSON tree form of a predicate.
func DecodePredicate(data []byte) (Predicate, error) {
	var pj predicateJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	switch pj.Op {
	case "eq", "ne", "lt", "le", "gt", "ge":
		if strings.TrimSpace(pj.Attr) == "" {
			return nil, fmt.Errorf("%w: comparison %q without attr", ErrInvalidFilter, pj.Op)
		}
		return &comparison{op: pj.Op, attr: pj.Attr, value: pj.Value}, nil
	case "and", "or":
		if len(pj.Args) == 0 {
			return nil, fmt.Errorf("%w: %q without args", ErrInvalidFilter, pj.Op)
		}
		args := make([]Predicate, 0, len(pj.Args))
		for _, raw := range pj.Args {
			p, err := DecodePredicate(raw)
			if err != nil {
				return nil, err
			}
			args = append(args, p)
		}
		return &combinator{op: pj.Op, args: args}, nil
	case "not":
		if len(pj.Args) != 1 {
			return nil, fmt.Errorf(`%w: "not" takes exactly one argument`, ErrInvalidFilter)
		}
		arg, err := DecodePredicate(pj.Args[0])
		if err != nil {
			return nil, err
		}
		return &combinator{op: "not", args: []Predicate{arg}}, nil
	default:
		return nil, fmt.Errorf("%w: unknown op %q", ErrInvalidFilter, pj.Op)
	}
}

// EncodePredicate renders a predicate tree back to its JSON form,
// used when fingerprinting a request for the result cache.
func EncodePredicate(p Predicate) ([]byte, error) {
	switch t := p.(type) {
	case *comparison:
		return json.Marshal(predicateJSON{Op: t.op, Attr: t.attr, Value: t.value})
	case *combinator:
		args := make([]json.RawMessage, 0, len(t.args))
		for _, a := range t.args {
			raw, err := EncodePredicate(a)
			if err != nil {
				return nil, err
			}
			args = append(args, raw)
		}
		return json.Marshal(predicateJSON{Op: t.op, Args: args})
	default:
		return nil, fmt.Errorf("%w: unknown predicate %T", ErrInvalidFilter, p)
	}
}
