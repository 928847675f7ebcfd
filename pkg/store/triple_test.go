package store

import "testing"

func TestNewTriple(t *testing.T) {
	triple := NewTriple(exIRI("Person1"), IRI(RDFType), exIRI("Person"))

	if triple.Subject != exIRI("Person1") {
		t.Errorf("Expected subject Person1, got %v", triple.Subject)
	}
	if triple.Predicate != IRI(RDFType) {
		t.Errorf("Expected predicate rdf:type, got %v", triple.Predicate)
	}
	if triple.Object != exIRI("Person") {
		t.Errorf("Expected object Person, got %v", triple.Object)
	}
}

func TestTriple_Equals(t *testing.T) {
	t1 := NewTriple(exIRI("a"), exIRI("p"), Literal("x"))
	t2 := NewTriple(exIRI("a"), exIRI("p"), Literal("x"))
	t3 := NewTriple(exIRI("a"), exIRI("p"), LangLiteral("x", "en"))

	if !t1.Equals(t2) {
		t.Error("Expected t1 to equal t2")
	}
	if t1.Equals(t3) {
		t.Error("Expected plain and language-tagged literals to differ")
	}
}

func TestTriple_NTriples(t *testing.T) {
	tests := []struct {
		name     string
		triple   Triple
		expected string
	}{
		{
			"iri object",
			NewTriple(exIRI("a"), IRI(RDFType), exIRI("B")),
			`<http://example.org/a> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://example.org/B> .`,
		},
		{
			"plain literal",
			NewTriple(exIRI("a"), exIRI("name"), Literal(`say "hi"`)),
			`<http://example.org/a> <http://example.org/name> "say \"hi\"" .`,
		},
		{
			"language literal",
			NewTriple(exIRI("a"), exIRI("name"), LangLiteral("Ada", "EN")),
			`<http://example.org/a> <http://example.org/name> "Ada"@en .`,
		},
		{
			"typed literal",
			NewTriple(exIRI("a"), exIRI("age"), TypedLiteral("36", XSDInteger)),
			`<http://example.org/a> <http://example.org/age> "36"^^<http://www.w3.org/2001/XMLSchema#integer> .`,
		},
		{
			"blank subject",
			NewTriple(BlankNode("b0"), exIRI("p"), exIRI("o")),
			`_:b0 <http://example.org/p> <http://example.org/o> .`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.triple.NTriples(); got != tt.expected {
				t.Errorf("NTriples() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTriple_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		triple Triple
		valid  bool
	}{
		{"valid", NewTriple(exIRI("a"), exIRI("p"), exIRI("o")), true},
		{"blank subject", NewTriple(BlankNode("b"), exIRI("p"), Literal("o")), true},
		{"empty subject", NewTriple(Term{}, exIRI("p"), exIRI("o")), false},
		{"literal subject", NewTriple(Literal("a"), exIRI("p"), exIRI("o")), false},
		{"blank predicate", NewTriple(exIRI("a"), BlankNode("p"), exIRI("o")), false},
		{"empty predicate IRI", NewTriple(exIRI("a"), IRI(""), exIRI("o")), false},
		{"empty object", NewTriple(exIRI("a"), exIRI("p"), Term{}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.triple.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestTriplePattern_Matches(t *testing.T) {
	triple := NewTriple(exIRI("a"), exIRI("p"), Literal("o"))

	tests := []struct {
		name    string
		pattern TriplePattern
		matches bool
	}{
		{"all wildcards", NewTriplePattern(Term{}, Term{}, Term{}), true},
		{"exact", NewTriplePattern(exIRI("a"), exIRI("p"), Literal("o")), true},
		{"subject only", NewTriplePattern(exIRI("a"), Term{}, Term{}), true},
		{"wrong subject", NewTriplePattern(exIRI("b"), Term{}, Term{}), false},
		{"wrong object datatype", NewTriplePattern(Term{}, Term{}, TypedLiteral("o", XSDDate)), false},
		{"object as IRI", NewTriplePattern(Term{}, Term{}, IRI("o")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pattern.Matches(triple); got != tt.matches {
				t.Errorf("Matches() = %v, want %v", got, tt.matches)
			}
		})
	}
}

func TestTriplePattern_WildcardCount(t *testing.T) {
	tests := []struct {
		pattern   TriplePattern
		count     int
		wildcards bool
	}{
		{NewTriplePattern(Term{}, Term{}, Term{}), 3, true},
		{NewTriplePattern(exIRI("a"), Term{}, Term{}), 2, true},
		{NewTriplePattern(exIRI("a"), exIRI("p"), Term{}), 1, true},
		{NewTriplePattern(exIRI("a"), exIRI("p"), exIRI("o")), 0, false},
	}

	for _, tt := range tests {
		if got := tt.pattern.WildcardCount(); got != tt.count {
			t.Errorf("WildcardCount() = %d, want %d", got, tt.count)
		}
		if got := tt.pattern.HasWildcards(); got != tt.wildcards {
			t.Errorf("HasWildcards() = %v, want %v", got, tt.wildcards)
		}
	}
}

func TestParseTerm(t *testing.T) {
	tests := []struct {
		encoded  string
		expected Term
	}{
		{"<http://example.org/a>", exIRI("a")},
		{`<http://example.org/a b>`, exIRI("a b")},
		{"_:b1", BlankNode("b1")},
		{`"plain"`, Literal("plain")},
		{`"line\nbreak \"quoted\""`, Literal("line\nbreak \"quoted\"")},
		{`"Ada"@EN`, LangLiteral("Ada", "en")},
		{`"42"^^<http://www.w3.org/2001/XMLSchema#integer>`, TypedLiteral("42", XSDInteger)},
		{`"s"^^<http://www.w3.org/2001/XMLSchema#string>`, Literal("s")},
	}

	for _, tt := range tests {
		t.Run(tt.encoded, func(t *testing.T) {
			got, err := ParseTerm(tt.encoded)
			if err != nil {
				t.Fatalf("ParseTerm(%q) failed: %v", tt.encoded, err)
			}
			if got != tt.expected {
				t.Errorf("ParseTerm(%q) = %#v, want %#v", tt.encoded, got, tt.expected)
			}
			// Key is the inverse of ParseTerm.
			again, err := ParseTerm(got.Key())
			if err != nil || again != got {
				t.Errorf("ParseTerm(Key()) = %#v, %v; want %#v", again, err, got)
			}
		})
	}
}

func TestParseTerm_Errors(t *testing.T) {
	for _, encoded := range []string{"", "<>", "<unterminated", "_:", `"open`, `"x"@`, `"x"^^foo`, "bare"} {
		if _, err := ParseTerm(encoded); err == nil {
			t.Errorf("Expected error for %q", encoded)
		}
	}
}
