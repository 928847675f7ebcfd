package store

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// --- Constructor tests ---

func TestNewTurtleSerializer(t *testing.T) {
	serializer := NewTurtleSerializer()

	if len(serializer.prefixes.mappings) != 4 {
		t.Errorf("Expected 4 default prefix mappings, got %d", len(serializer.prefixes.mappings))
	}

	if namespace, _ := serializer.prefixes.lookup("rdf"); namespace != NamespaceRDF {
		t.Errorf("Expected rdf prefix to map to %s, got %s", NamespaceRDF, namespace)
	}
}

func TestNewTurtleSerializer_WithCustomPrefix(t *testing.T) {
	serializer := NewTurtleSerializer(WithPrefix("ex", ex))

	if len(serializer.prefixes.mappings) != 5 {
		t.Errorf("Expected 5 prefix mappings (4 default + 1 custom), got %d", len(serializer.prefixes.mappings))
	}

	if namespace, ok := serializer.prefixes.lookup("ex"); !ok || namespace != ex {
		t.Error("Custom prefix 'ex' not registered")
	}
}

func TestNewTurtleSerializer_OverridePrefix(t *testing.T) {
	serializer := NewTurtleSerializer(WithPrefix("owl", "http://example.org/owl#"))

	if len(serializer.prefixes.mappings) != 4 {
		t.Errorf("Expected override to keep 4 mappings, got %d", len(serializer.prefixes.mappings))
	}
	if namespace, _ := serializer.prefixes.lookup("owl"); namespace != "http://example.org/owl#" {
		t.Error("Expected owl prefix to be overridden")
	}
}

func TestNewTurtleSerializer_WithoutDefaults(t *testing.T) {
	serializer := NewTurtleSerializer(
		WithoutDefaultPrefixes(),
		WithPrefix("custom", "https://example.org/ns#"),
	)

	if len(serializer.prefixes.mappings) != 1 {
		t.Errorf("Expected 1 prefix mapping (defaults cleared), got %d", len(serializer.prefixes.mappings))
	}
}

func TestPrefixSet_SplitPrefersLongestNamespace(t *testing.T) {
	prefixes := defaultPrefixSet()
	prefixes.set("ex", ex)
	prefixes.set("st", ex+"statement/")

	prefix, local, ok := prefixes.split(ex+"statement/s1", isValidLocalName)
	if !ok || prefix != "st" || local != "s1" {
		t.Errorf("split() = %q, %q, %v, want st, s1, true", prefix, local, ok)
	}

	if _, _, ok := prefixes.split(ex, isValidLocalName); ok {
		t.Error("Namespace IRI itself should not split")
	}
}

// --- Escaping tests ---

func TestEscapeLiteralString(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "hello world", "hello world"},
		{"backslash", `path\to\file`, `path\\to\\file`},
		{"double_quote", `say "hello"`, `say \"hello\"`},
		{"newline", "line1\nline2", `line1\nline2`},
		{"tab", "col1\tcol2", `col1\tcol2`},
		{"empty", "", ""},
		{"unicode", "Gräfin von Lovelace", "Gräfin von Lovelace"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			result := escapeLiteralString(testCase.input)
			if result != testCase.expected {
				t.Errorf("escapeLiteralString(%q) = %q, want %q", testCase.input, result, testCase.expected)
			}
		})
	}
}

func TestEscapeIRI(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal_uri", "https://example.org/resource", "https://example.org/resource"},
		{"angle_brackets", "https://example.org/<test>", `https://example.org/\u003Ctest\u003E`},
		{"space", "https://example.org/my resource", `https://example.org/my\u0020resource`},
		{"curly_braces", "https://example.org/{id}", `https://example.org/\u007Bid\u007D`},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			result := escapeIRI(testCase.input)
			if result != testCase.expected {
				t.Errorf("escapeIRI(%q) = %q, want %q", testCase.input, result, testCase.expected)
			}
		})
	}
}

func TestFormatLiteral(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "hello", `"hello"`},
		{"with_quotes", `say "hi"`, `"say \"hi\""`},
		{"multiline", "line1\nline2", `"""line1\nline2"""`},
		{"empty", "", `""`},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			result := formatLiteral(testCase.input)
			if result != testCase.expected {
				t.Errorf("formatLiteral(%q) = %q, want %q", testCase.input, result, testCase.expected)
			}
		})
	}
}

// --- URI compaction tests ---

func TestCompactURI(t *testing.T) {
	serializer := NewTurtleSerializer(WithPrefix("ex", ex))

	testCases := []struct {
		name           string
		inputURI       string
		expectedResult string
		expectedOK     bool
	}{
		{"ex_namespace", ex + "Person", "ex:Person", true},
		{"rdf_namespace", RDFType, "rdf:type", true},
		{"xsd_namespace", XSDDate, "xsd:date", true},
		{"no_match", "https://unknown.example.org/something", "", false},
		{"nested_path", ex + "people/ada", "", false},
		{"namespace_only", ex, "", false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			result, ok := serializer.compactURI(testCase.inputURI)
			if ok != testCase.expectedOK {
				t.Errorf("compactURI(%q) ok = %v, want %v", testCase.inputURI, ok, testCase.expectedOK)
			}
			if result != testCase.expectedResult {
				t.Errorf("compactURI(%q) = %q, want %q", testCase.inputURI, result, testCase.expectedResult)
			}
		})
	}
}

func TestFormatObject(t *testing.T) {
	serializer := NewTurtleSerializer(WithPrefix("ex", ex))

	testCases := []struct {
		name     string
		input    Term
		expected string
	}{
		{"iri", exIRI("Person"), "ex:Person"},
		{"blank", BlankNode("b0"), "_:b0"},
		{"plain", Literal("Ada"), `"Ada"`},
		{"lang", LangLiteral("Ada", "en"), `"Ada"@en`},
		{"typed", TypedLiteral("36", XSDInteger), `"36"^^xsd:integer`},
		{"unknown datatype", TypedLiteral("x", "http://other.org/dt"), `"x"^^<http://other.org/dt>`},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if result := serializer.formatObject(testCase.input); result != testCase.expected {
				t.Errorf("formatObject(%v) = %q, want %q", testCase.input, result, testCase.expected)
			}
		})
	}
}

// --- Serialization tests ---

func TestSerialize_SubjectGrouping(t *testing.T) {
	store := NewTripleStore()
	populateTestStore(store)

	serializer := NewTurtleSerializer(WithPrefix("ex", ex))
	output := serializer.Serialize(store)

	if !strings.Contains(output, "ex:Person1 a ex:Person ;") {
		t.Errorf("Expected rdf:type first with 'a' shorthand, got:\n%s", output)
	}
	if !strings.Contains(output, `ex:name "Charles"@en .`) {
		t.Errorf("Expected language-tagged literal, got:\n%s", output)
	}
	if !strings.Contains(output, ".\n\n") {
		t.Error("Expected blank line between subject groups")
	}
}

func TestSerialize_InferredTriplesExcluded(t *testing.T) {
	store := NewTripleStore()
	_ = store.BulkAdd([]Triple{
		NewTriple(exIRI("Student"), IRI(RDFSSubClassOf), exIRI("Person")),
		NewTriple(exIRI("Ada"), IRI(RDFType), exIRI("Student")),
	})

	output := NewTurtleSerializer(WithPrefix("ex", ex)).Serialize(store)
	if strings.Contains(output, "ex:Ada a ex:Person") {
		t.Errorf("Expected only asserted triples, got:\n%s", output)
	}
}

func TestSerialize_Golden(t *testing.T) {
	triples := []Triple{
		NewTriple(exIRI("Person"), IRI(RDFSSubClassOf), exIRI("Agent")),
		NewTriple(exIRI("Ada"), exIRI("name"), LangLiteral("Augusta", "en")),
		NewTriple(exIRI("Ada"), exIRI("born"), TypedLiteral("1815-12-10", XSDDate)),
		NewTriple(exIRI("Ada"), IRI(RDFType), exIRI("Person")),
		NewTriple(exIRI("Ada"), exIRI("name"), LangLiteral("Ada", "en")),
	}

	output := NewTurtleSerializer(WithPrefix("ex", ex)).SerializeTriples(triples)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "turtle_serialize", []byte(output))
}

func TestSerialize_DeterministicOutput(t *testing.T) {
	store := NewTripleStore()
	populateTestStore(store)

	serializer := NewTurtleSerializer()
	if serializer.Serialize(store) != serializer.Serialize(store) {
		t.Error("Expected deterministic output, but two serializations differ")
	}
}

func TestWriteAndParseNTriples(t *testing.T) {
	store := NewTripleStore()
	populateTestStore(store)
	_ = store.Add(BlankNode("b0"), exIRI("note"), Literal("multi\nline \"quoted\""))

	var builder strings.Builder
	if err := WriteNTriples(&builder, store.All()); err != nil {
		t.Fatalf("WriteNTriples failed: %v", err)
	}

	parsed, err := ParseNTriples(strings.NewReader("# comment\n\n" + builder.String()))
	if err != nil {
		t.Fatalf("ParseNTriples failed: %v", err)
	}

	if len(parsed) != store.Count() {
		t.Fatalf("Expected %d triples, got %d", store.Count(), len(parsed))
	}
	for _, triple := range parsed {
		if !store.Exists(triple.Subject, triple.Predicate, triple.Object) {
			t.Errorf("Parsed triple %s not in store", triple)
		}
	}
}

func TestParseNTriples_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"missing dot", `<http://example.org/a> <http://example.org/p> "x"`},
		{"literal subject", `"a" <http://example.org/p> "x" .`},
		{"trailing content", `<http://example.org/a> <http://example.org/p> "x" <http://example.org/b> .`},
		{"unterminated literal", `<http://example.org/a> <http://example.org/p> "x .`},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := ParseNTriples(strings.NewReader("\n" + testCase.input + "\n"))
			if err == nil {
				t.Fatal("Expected parse error")
			}
			if !strings.Contains(err.Error(), "line 2") {
				t.Errorf("Expected error to carry line number, got %v", err)
			}
		})
	}
}
