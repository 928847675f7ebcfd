package query

import (
	"strings"
	"testing"
)

func TestParseQuery_SimpleSelect(t *testing.T) {
	queryStr := `
		PREFIX ex: <http://example.org/>
		SELECT ?person WHERE {
			?person rdf:type ex:Person .
		}
	`

	query, err := ParseQuery(queryStr)
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}

	if query.Type != SelectQueryType {
		t.Errorf("Type = %v, want %v", query.Type, SelectQueryType)
	}

	if len(query.Select.Variables) != 1 || query.Select.Variables[0] != "?person" {
		t.Errorf("Variables = %v, want [?person]", query.Select.Variables)
	}

	if len(query.Select.Where) != 1 {
		t.Fatalf("Where patterns = %d, want 1", len(query.Select.Where))
	}

	pattern := query.Select.Where[0]
	if pattern.Subject != "?person" {
		t.Errorf("Subject = %v, want ?person", pattern.Subject)
	}
	if pattern.Predicate != "rdf:type" {
		t.Errorf("Predicate = %v, want rdf:type", pattern.Predicate)
	}
	if pattern.Object != "ex:Person" {
		t.Errorf("Object = %v, want ex:Person", pattern.Object)
	}
	if query.Select.Prefixes["ex"] != "http://example.org/" {
		t.Errorf("Prefixes = %v", query.Select.Prefixes)
	}
}

func TestParseQuery_MultipleVariables(t *testing.T) {
	query, err := ParseQuery(`SELECT ?s ?p ?o WHERE { ?s ?p ?o . }`)
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}

	expected := []string{"?s", "?p", "?o"}
	if len(query.Select.Variables) != len(expected) {
		t.Fatalf("Variables count = %d, want 3", len(query.Select.Variables))
	}
	for i, v := range expected {
		if query.Select.Variables[i] != v {
			t.Errorf("Variable[%d] = %s, want %s", i, query.Select.Variables[i], v)
		}
	}
}

func TestParseQuery_SelectAll(t *testing.T) {
	query, err := ParseQuery(`SELECT * WHERE { ?s ?p ?o . }`)
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}

	if len(query.Select.Variables) != 1 || query.Select.Variables[0] != "*" {
		t.Errorf("Variables = %v, want [*]", query.Select.Variables)
	}
}

func TestParseQuery_WithDistinct(t *testing.T) {
	query, err := ParseQuery(`SELECT DISTINCT ?s WHERE { ?s ?p ?o . }`)
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}

	if !query.Select.Distinct {
		t.Error("Distinct = false, want true")
	}
	if len(query.Select.Variables) != 1 || query.Select.Variables[0] != "?s" {
		t.Errorf("Variables = %v, want [?s]", query.Select.Variables)
	}
}

func TestParseQuery_SolutionModifiers(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
		wantOrder  []OrderBy
	}{
		{
			name:      "limit",
			query:     `SELECT ?s WHERE { ?s ?p ?o . } LIMIT 10`,
			wantLimit: 10,
		},
		{
			name:       "limit and offset",
			query:      `SELECT ?s WHERE { ?s ?p ?o . } LIMIT 10 OFFSET 5`,
			wantLimit:  10,
			wantOffset: 5,
		},
		{
			name:      "order by variable",
			query:     `SELECT ?s ?o WHERE { ?s ?p ?o . } ORDER BY ?o ?s`,
			wantOrder: []OrderBy{{Variable: "?o"}, {Variable: "?s"}},
		},
		{
			name:      "order by desc",
			query:     `SELECT ?s ?o WHERE { ?s ?p ?o . } ORDER BY DESC(?o) ASC(?s) LIMIT 3`,
			wantLimit: 3,
			wantOrder: []OrderBy{{Variable: "?o", Descending: true}, {Variable: "?s"}},
		},
		{
			name:  "keywords inside literals are ignored",
			query: `SELECT ?s WHERE { ?s ?p "LIMIT 4 OFFSET 2" . }`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("ParseQuery() error = %v", err)
			}
			if query.Select.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", query.Select.Limit, tt.wantLimit)
			}
			if query.Select.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", query.Select.Offset, tt.wantOffset)
			}
			if len(query.Select.OrderBy) != len(tt.wantOrder) {
				t.Fatalf("OrderBy = %v, want %v", query.Select.OrderBy, tt.wantOrder)
			}
			for i, ob := range tt.wantOrder {
				if query.Select.OrderBy[i] != ob {
					t.Errorf("OrderBy[%d] = %v, want %v", i, query.Select.OrderBy[i], ob)
				}
			}
		})
	}
}

func TestParseQuery_WithFilter(t *testing.T) {
	query, err := ParseQuery(`
		SELECT ?s WHERE {
			?s ex:name ?name .
			FILTER(CONTAINS(?name, "Ada"))
			FILTER(REGEX(STR(?name), "^A(da)?"))
		}`)
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}

	if len(query.Select.Filters) != 2 {
		t.Fatalf("Filters = %d, want 2", len(query.Select.Filters))
	}
	if query.Select.Filters[0].Expression != `CONTAINS(?name, "Ada")` {
		t.Errorf("Filter[0] = %q", query.Select.Filters[0].Expression)
	}
	if query.Select.Filters[1].Expression != `REGEX(STR(?name), "^A(da)?")` {
		t.Errorf("Filter[1] = %q", query.Select.Filters[1].Expression)
	}
	if len(query.Select.Where) != 1 {
		t.Errorf("Where patterns = %d, want 1 (filters must not leak into patterns)", len(query.Select.Where))
	}
}

func TestParseQuery_WithOptional(t *testing.T) {
	query, err := ParseQuery(`
		SELECT ?s ?friend WHERE {
			?s a ex:Person .
			OPTIONAL { ?s ex:knows ?friend }
		}`)
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}

	if len(query.Select.Where) != 1 {
		t.Errorf("Where patterns = %d, want 1", len(query.Select.Where))
	}
	if len(query.Select.Optional) != 1 || len(query.Select.Optional[0]) != 1 {
		t.Fatalf("Optional = %v, want one group of one pattern", query.Select.Optional)
	}
	if query.Select.Optional[0][0].Object != "?friend" {
		t.Errorf("Optional object = %s, want ?friend", query.Select.Optional[0][0].Object)
	}
}

func TestParseQuery_PatternTokens(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    TriplePattern
	}{
		{"shorthand a", `?s a ex:Person`, TriplePattern{"?s", "rdf:type", "ex:Person"}},
		{"uri subject", `<http://example.org/a.b> ?p ?o`, TriplePattern{"<http://example.org/a.b>", "?p", "?o"}},
		{"plain literal", `?s ex:name "Ada Lovelace"`, TriplePattern{"?s", "ex:name", `"Ada Lovelace"`}},
		{"literal with dot", `?s ex:name "Ada. Lovelace"@en`, TriplePattern{"?s", "ex:name", `"Ada. Lovelace"@en`}},
		{"typed literal", `?s ex:age "36"^^xsd:integer`, TriplePattern{"?s", "ex:age", `"36"^^xsd:integer`}},
		{"escaped quote", `?s ex:note "say \"hi\""`, TriplePattern{"?s", "ex:note", `"say \"hi\""`}},
		{"decimal", `?s ex:score 3.5`, TriplePattern{"?s", "ex:score", "3.5"}},
		{"blank node", `_:b0 ex:p ?o`, TriplePattern{"_:b0", "ex:p", "?o"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := ParseQuery(`SELECT * WHERE { ` + tt.pattern + ` . }`)
			if err != nil {
				t.Fatalf("ParseQuery() error = %v", err)
			}
			if len(query.Select.Where) != 1 {
				t.Fatalf("Where patterns = %v, want 1", query.Select.Where)
			}
			if query.Select.Where[0] != tt.want {
				t.Errorf("pattern = %+v, want %+v", query.Select.Where[0], tt.want)
			}
		})
	}
}

func TestParseQuery_SemicolonContinuation(t *testing.T) {
	query, err := ParseQuery(`SELECT ?name ?age WHERE { ?s a ex:Person ; ex:name ?name ; ex:age ?age . }`)
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}

	if len(query.Select.Where) != 3 {
		t.Fatalf("Where patterns = %d, want 3", len(query.Select.Where))
	}
	for _, pattern := range query.Select.Where {
		if pattern.Subject != "?s" {
			t.Errorf("Subject = %s, want ?s", pattern.Subject)
		}
	}
}

func TestParseQuery_Errors(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr string
	}{
		{"empty", "", "empty query"},
		{"whitespace", "   \n\t", "empty query"},
		{"missing where", `SELECT ?s`, "missing WHERE clause"},
		{"missing braces", `SELECT ?s WHERE ?s ?p ?o`, "missing braces"},
		{"unsupported", `ASK { ?s ?p ?o }`, "unsupported query type"},
		{"no variables", `SELECT name WHERE { ?s ?p ?o . }`, "no variables"},
		{"short pattern", `SELECT ?s WHERE { ?s ?p . }`, "malformed triple pattern"},
		{"long pattern", `SELECT ?s WHERE { ?s ?p ?o ?x . }`, "malformed triple pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuery(tt.query)
			if err == nil {
				t.Fatal("ParseQuery() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestIsVariable(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"?s", true},
		{"?name", true},
		{"?", false},
		{"s", false},
		{"<http://example.org/>", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsVariable(tt.input); got != tt.want {
			t.Errorf("IsVariable(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestIsURI(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"<http://example.org/>", true},
		{"<>", false},
		{"http://example.org/", false},
		{"ex:Person", false},
	}

	for _, tt := range tests {
		if got := IsURI(tt.input); got != tt.want {
			t.Errorf("IsURI(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestIsLiteral(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{`"Ada"`, true},
		{`"Ada"@en`, true},
		{`"36"^^xsd:integer`, true},
		{`"`, false},
		{"Ada", false},
	}

	for _, tt := range tests {
		if got := IsLiteral(tt.input); got != tt.want {
			t.Errorf("IsLiteral(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestIsPrefixed(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"ex:Person", true},
		{"rdf:type", true},
		{":local", false},
		{"ex:", false},
		{"?s", false},
		{"_:b0", false},
		{"<http://example.org/>", false},
		{`"a:b"`, false},
	}

	for _, tt := range tests {
		if got := IsPrefixed(tt.input); got != tt.want {
			t.Errorf("IsPrefixed(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestStripVariableAndURI(t *testing.T) {
	if got := StripVariable("?name"); got != "name" {
		t.Errorf("StripVariable(?name) = %q", got)
	}
	if got := StripVariable("name"); got != "name" {
		t.Errorf("StripVariable(name) = %q", got)
	}
	if got := StripURI("<http://example.org/>"); got != "http://example.org/" {
		t.Errorf("StripURI() = %q", got)
	}
	if got := StripURI("ex:Person"); got != "ex:Person" {
		t.Errorf("StripURI(ex:Person) = %q", got)
	}
}

func TestQuery_Validate(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantErrors int
	}{
		{"valid", `SELECT ?s WHERE { ?s ?p ?o . }`, 0},
		{"select all", `SELECT * WHERE { ?s ?p ?o . }`, 0},
		{"unbound variable", `SELECT ?x WHERE { ?s ?p ?o . }`, 1},
		{"optional binds", `SELECT ?s ?f WHERE { ?s ?p ?o . OPTIONAL { ?s ex:knows ?f } }`, 0},
		{"order by not selected", `SELECT ?s WHERE { ?s ?p ?o . } ORDER BY ?o`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("ParseQuery() error = %v", err)
			}
			if errs := query.Validate(); len(errs) != tt.wantErrors {
				t.Errorf("Validate() = %v, want %d errors", errs, tt.wantErrors)
			}
		})
	}
}

func TestQuery_String(t *testing.T) {
	query, err := ParseQuery(`
		PREFIX ex: <http://example.org/>
		SELECT DISTINCT ?s WHERE { ?s a ex:Person . FILTER(BOUND(?s)) } ORDER BY DESC(?s) LIMIT 5 OFFSET 2`)
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}

	str := query.String()
	for _, want := range []string{
		"PREFIX ex: <http://example.org/>",
		"SELECT DISTINCT ?s WHERE {",
		"?s rdf:type ex:Person .",
		"FILTER(BOUND(?s))",
		"ORDER BY DESC(?s)",
		"LIMIT 5",
		"OFFSET 2",
	} {
		if !strings.Contains(str, want) {
			t.Errorf("String() missing %q:\n%s", want, str)
		}
	}

	reparsed, err := ParseQuery(str)
	if err != nil {
		t.Fatalf("ParseQuery(String()) error = %v", err)
	}
	if reparsed.String() != str {
		t.Errorf("String() is not stable:\n%s\n---\n%s", str, reparsed.String())
	}
}
