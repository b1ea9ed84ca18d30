package eligibility

import (
	"errors"
	"testing"

	"github.com/geosift/eligo/internal/geom"
)

func TestPredicate_Comparisons(t *testing.T) {
	attrs := geom.Attributes{
		"landuse": "forest",
		"grade":   float64(3),
		"active":  true,
	}

	tests := []struct {
		name string
		pred Predicate
		want bool
	}{
		{"eq string match", Eq("landuse", "forest"), true},
		{"eq string miss", Eq("landuse", "meadow"), false},
		{"ne string", Ne("landuse", "meadow"), true},
		{"lt number", Lt("grade", float64(4)), true},
		{"le number equal", Le("grade", float64(3)), true},
		{"gt number", Gt("grade", float64(3)), false},
		{"ge number", Ge("grade", float64(3)), true},
		{"eq number from int literal", Eq("grade", 3), true},
		{"eq bool", Eq("active", true), true},
		{"bool ordering false < true", Gt("active", false), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.pred.Eval(attrs)
			if err != nil {
				t.Fatalf("Eval: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPredicate_Combinators(t *testing.T) {
	attrs := geom.Attributes{"landuse": "forest", "grade": float64(3)}

	p := And(Eq("landuse", "forest"), Lt("grade", float64(5)))
	if ok, err := p.Eval(attrs); err != nil || !ok {
		t.Fatalf("and: got %v, %v", ok, err)
	}
	p = Or(Eq("landuse", "meadow"), Eq("landuse", "forest"))
	if ok, err := p.Eval(attrs); err != nil || !ok {
		t.Fatalf("or: got %v, %v", ok, err)
	}
	p = Not(Eq("landuse", "forest"))
	if ok, err := p.Eval(attrs); err != nil || ok {
		t.Fatalf("not: got %v, %v", ok, err)
	}
}

func TestPredicate_MissingAttributeFails(t *testing.T) {
	_, err := Eq("absent", 1).Eval(geom.Attributes{"present": 1})
	if !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("err = %v, want ErrInvalidFilter", err)
	}
}

func TestPredicate_MixedTypesFail(t *testing.T) {
	_, err := Lt("grade", "three").Eval(geom.Attributes{"grade": float64(3)})
	if !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("err = %v, want ErrInvalidFilter", err)
	}
}

func TestDecodePredicate(t *testing.T) {
	raw := `{"op":"and","args":[
		{"op":"eq","attr":"landuse","value":"forest"},
		{"op":"not","args":[{"op":"ge","attr":"grade","value":5}]}
	]}`
	p, err := DecodePredicate([]byte(raw))
	if err != nil {
		t.Fatalf("DecodePredicate: %v", err)
	}

	ok, err := p.Eval(geom.Attributes{"landuse": "forest", "grade": float64(3)})
	if err != nil || !ok {
		t.Fatalf("match case: got %v, %v", ok, err)
	}
	ok, err = p.Eval(geom.Attributes{"landuse": "forest", "grade": float64(7)})
	if err != nil || ok {
		t.Fatalf("reject case: got %v, %v", ok, err)
	}
}

func TestDecodePredicate_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown op", `{"op":"xor","args":[]}`},
		{"comparison without attr", `{"op":"eq","value":1}`},
		{"and without args", `{"op":"and"}`},
		{"not with two args", `{"op":"not","args":[{"op":"eq","attr":"a","value":1},{"op":"eq","attr":"b","value":2}]}`},
		{"bad json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodePredicate([]byte(tt.raw)); !errors.Is(err, ErrInvalidFilter) {
				t.Fatalf("err = %v, want ErrInvalidFilter", err)
			}
		})
	}
}

func TestEncodePredicate_RoundTrip(t *testing.T) {
	p := Or(Eq("landuse", "forest"), And(Gt("grade", 2), Not(Eq("active", false))))
	data, err := EncodePredicate(p)
	if err != nil {
		t.Fatalf("EncodePredicate: %v", err)
	}
	back, err := DecodePredicate(data)
	if err != nil {
		t.Fatalf("DecodePredicate: %v", err)
	}

	attrs := geom.Attributes{"landuse": "meadow", "grade": float64(3), "active": true}
	want, err := p.Eval(attrs)
	if err != nil {
		t.Fatalf("original eval: %v", err)
	}
	got, err := back.Eval(attrs)
	if err != nil {
		t.Fatalf("decoded eval: %v", err)
	}
	if got != want {
		t.Fatalf("round trip changed semantics: got %v, want %v", got, want)
	}
}
