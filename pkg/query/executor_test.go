package query

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/coolbeans/kbgraph/pkg/store"
)

const ex = "http://example.org/"

func exIRI(local string) store.Term {
	return store.IRI(ex + local)
}

func setupTestStore() *store.TripleStore {
	ts := store.NewTripleStore()

	_ = ts.BulkAdd([]store.Triple{
		store.NewTriple(exIRI("Student"), store.IRI(store.RDFSSubClassOf), exIRI("Person")),

		store.NewTriple(exIRI("Ada"), store.IRI(store.RDFType), exIRI("Student")),
		store.NewTriple(exIRI("Ada"), exIRI("name"), store.LangLiteral("Ada Lovelace", "en")),
		store.NewTriple(exIRI("Ada"), exIRI("age"), store.TypedLiteral("36", store.XSDInteger)),
		store.NewTriple(exIRI("Ada"), exIRI("knows"), exIRI("Charles")),

		store.NewTriple(exIRI("Charles"), store.IRI(store.RDFType), exIRI("Person")),
		store.NewTriple(exIRI("Charles"), exIRI("name"), store.Literal("Charles Babbage")),
		store.NewTriple(exIRI("Charles"), exIRI("age"), store.TypedLiteral("79", store.XSDInteger)),

		store.NewTriple(exIRI("Mary"), store.IRI(store.RDFType), exIRI("Person")),
		store.NewTriple(exIRI("Mary"), exIRI("name"), store.Literal("Mary Somerville")),
		store.NewTriple(exIRI("Mary"), exIRI("age"), store.TypedLiteral("9", store.XSDInteger)),
	})

	return ts
}

func TestNewExecutor(t *testing.T) {
	ts := store.NewTripleStore()
	executor := NewExecutor(ts)

	if executor == nil {
		t.Fatal("NewExecutor() returned nil")
	}
	if executor.planner == nil {
		t.Error("Executor planner not initialized")
	}
	if executor.prefixes["rdf"] != store.NamespaceRDF {
		t.Error("Executor should know the rdf prefix by default")
	}
}

func TestExecutor_SimpleSelect(t *testing.T) {
	executor := NewExecutor(setupTestStore())

	result, err := executor.ExecuteString(`
		PREFIX ex: <http://example.org/>
		SELECT ?person WHERE { ?person rdf:type ex:Person . }`)
	if err != nil {
		t.Fatalf("ExecuteString() error = %v", err)
	}

	if result.Count != 2 {
		t.Errorf("Count = %d, want 2", result.Count)
	}
	if len(result.Variables) != 1 || result.Variables[0] != "person" {
		t.Errorf("Variables = %v, want [person]", result.Variables)
	}
}

func TestExecutor_IncludeInferred(t *testing.T) {
	ts := setupTestStore()
	queryStr := `SELECT ?person WHERE { ?person a <http://example.org/Person> . }`

	explicit, err := NewExecutor(ts).ExecuteString(queryStr)
	if err != nil {
		t.Fatalf("ExecuteString() error = %v", err)
	}
	all, err := NewExecutor(ts, WithInferred(true)).ExecuteString(queryStr)
	if err != nil {
		t.Fatalf("ExecuteString() error = %v", err)
	}

	if explicit.Count != 2 {
		t.Errorf("explicit Count = %d, want 2", explicit.Count)
	}
	if all.Count != 3 {
		t.Errorf("inferred Count = %d, want 3 (Ada is a Student)", all.Count)
	}
}

func TestExecutor_PreBoundVariables(t *testing.T) {
	executor := NewExecutor(setupTestStore(), WithBindings(Binding{"s": exIRI("Charles")}))

	result, err := executor.ExecuteString(`SELECT * WHERE { ?s ?p ?o . }`)
	if err != nil {
		t.Fatalf("ExecuteString() error = %v", err)
	}

	if result.Count != 3 {
		t.Fatalf("Count = %d, want 3", result.Count)
	}
	for _, binding := range result.Bindings {
		if binding["s"] != exIRI("Charles") {
			t.Errorf("binding s = %v, want Charles", binding["s"])
		}
	}
	if strings.Join(result.Variables, ",") != "o,p,s" {
		t.Errorf("Variables = %v, want [o p s]", result.Variables)
	}
}

func TestExecutor_MultiplePatterns(t *testing.T) {
	executor := NewExecutor(setupTestStore(), WithPrefixes(map[string]string{"ex": ex}))

	result, err := executor.ExecuteString(`
		SELECT ?name ?friendName WHERE {
			?person ex:knows ?friend .
			?person ex:name ?name .
			?friend ex:name ?friendName .
		}`)
	if err != nil {
		t.Fatalf("ExecuteString() error = %v", err)
	}

	if result.Count != 1 {
		t.Fatalf("Count = %d, want 1", result.Count)
	}
	row := result.Bindings[0]
	if row["name"] != store.LangLiteral("Ada Lovelace", "en") {
		t.Errorf("name = %#v", row["name"])
	}
	if row["friendName"].Value != "Charles Babbage" {
		t.Errorf("friendName = %v", row["friendName"])
	}
}

func TestExecutor_LiteralConstants(t *testing.T) {
	executor := NewExecutor(setupTestStore(), WithPrefixes(map[string]string{"ex": ex}))

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"language tagged", `SELECT ?s WHERE { ?s ex:name "Ada Lovelace"@en . }`, 1},
		{"language mismatch", `SELECT ?s WHERE { ?s ex:name "Ada Lovelace" . }`, 0},
		{"plain", `SELECT ?s WHERE { ?s ex:name "Mary Somerville" . }`, 1},
		{"prefixed datatype", `SELECT ?s WHERE { ?s ex:age "36"^^xsd:integer . }`, 1},
		{"bare integer", `SELECT ?s WHERE { ?s ex:age 79 . }`, 1},
		{"semicolon", `SELECT ?n WHERE { ?s a ex:Person ; ex:name ?n . }`, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := executor.ExecuteString(tt.query)
			if err != nil {
				t.Fatalf("ExecuteString() error = %v", err)
			}
			if result.Count != tt.want {
				t.Errorf("Count = %d, want %d", result.Count, tt.want)
			}
		})
	}
}

func TestExecutor_WithLimitAndOffset(t *testing.T) {
	executor := NewExecutor(setupTestStore())

	result, err := executor.ExecuteString(`SELECT ?s ?o WHERE { ?s <http://example.org/age> ?o . } ORDER BY ?o LIMIT 1 OFFSET 1`)
	if err != nil {
		t.Fatalf("ExecuteString() error = %v", err)
	}

	if result.Count != 1 {
		t.Fatalf("Count = %d, want 1", result.Count)
	}
	// Numeric ordering: 9, 36, 79
	if result.Bindings[0]["o"].Value != "36" {
		t.Errorf("second age = %v, want 36", result.Bindings[0]["o"])
	}
}

func TestExecutor_WithOrderByDesc(t *testing.T) {
	executor := NewExecutor(setupTestStore())

	result, err := executor.ExecuteString(`SELECT ?s ?o WHERE { ?s <http://example.org/age> ?o . } ORDER BY DESC(?o)`)
	if err != nil {
		t.Fatalf("ExecuteString() error = %v", err)
	}

	var ages []string
	for _, binding := range result.Bindings {
		ages = append(ages, binding["o"].Value)
	}
	if strings.Join(ages, ",") != "79,36,9" {
		t.Errorf("ages = %v, want [79 36 9]", ages)
	}
}

func TestExecutor_WithDistinct(t *testing.T) {
	executor := NewExecutor(setupTestStore())

	result, err := executor.ExecuteString(`SELECT DISTINCT ?type WHERE { ?s a ?type . }`)
	if err != nil {
		t.Fatalf("ExecuteString() error = %v", err)
	}

	if result.Count != 2 {
		t.Errorf("Count = %d, want 2", result.Count)
	}
}

func TestExecutor_Filters(t *testing.T) {
	executor := NewExecutor(setupTestStore(), WithPrefixes(map[string]string{"ex": ex}))

	tests := []struct {
		name   string
		filter string
		want   int
	}{
		{"contains", `CONTAINS(?name, "Lovelace")`, 1},
		{"regex", `REGEX(?name, "^(Ada|Mary)")`, 2},
		{"strstarts", `STRSTARTS(?name, "Charles")`, 1},
		{"numeric", `?age > 30`, 2},
		{"equality", `?name = "Mary Somerville"`, 1},
		{"inequality", `?name != "Mary Somerville"`, 2},
		{"language", `LANG(?name) = "en"`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := executor.ExecuteString(`
				SELECT ?s WHERE {
					?s ex:name ?name .
					?s ex:age ?age .
					FILTER(` + tt.filter + `)
				}`)
			if err != nil {
				t.Fatalf("ExecuteString() error = %v", err)
			}
			if result.Count != tt.want {
				t.Errorf("Count = %d, want %d", result.Count, tt.want)
			}
		})
	}
}

func TestExecutor_WithOptional(t *testing.T) {
	executor := NewExecutor(setupTestStore(), WithPrefixes(map[string]string{"ex": ex}))

	result, err := executor.ExecuteString(`
		SELECT ?s ?friend WHERE {
			?s ex:age ?age .
			OPTIONAL { ?s ex:knows ?friend }
		}`)
	if err != nil {
		t.Fatalf("ExecuteString() error = %v", err)
	}

	if result.Count != 3 {
		t.Fatalf("Count = %d, want 3", result.Count)
	}
	withFriend := 0
	for _, binding := range result.Bindings {
		if _, ok := binding["friend"]; ok {
			withFriend++
		}
	}
	if withFriend != 1 {
		t.Errorf("rows with friend = %d, want 1", withFriend)
	}
}

func TestExecutor_NoResults(t *testing.T) {
	executor := NewExecutor(setupTestStore())

	result, err := executor.ExecuteString(`SELECT ?s WHERE { ?s <http://example.org/missing> ?o . }`)
	if err != nil {
		t.Fatalf("ExecuteString() error = %v", err)
	}
	if result.Count != 0 {
		t.Errorf("Count = %d, want 0", result.Count)
	}
}

func TestExecutor_EvaluationErrors(t *testing.T) {
	executor := NewExecutor(setupTestStore())

	tests := []struct {
		name  string
		query string
	}{
		{"parse error", `SELECT ?s`},
		{"unknown prefix", `SELECT ?s WHERE { ?s nope:thing ?o . }`},
		{"malformed pattern", `SELECT ?s WHERE { ?s ?p . }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executor.ExecuteString(tt.query)
			var evalErr *EvaluationError
			if !errors.As(err, &evalErr) {
				t.Fatalf("error = %v, want *EvaluationError", err)
			}
			if !errors.Is(err, ErrEvaluation) {
				t.Error("EvaluationError should match ErrEvaluation")
			}
		})
	}
}

func TestExecutor_WithContext(t *testing.T) {
	executor := NewExecutor(setupTestStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := executor.ExecuteStringWithContext(ctx, `SELECT ?s WHERE { ?s ?p ?o . }`)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Errorf("error = %v, want *EvaluationError", err)
	}
}

func TestExecutor_DeadlineExceeded(t *testing.T) {
	executor := NewExecutor(setupTestStore(), WithTimeout(time.Minute))

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := executor.ExecuteStringWithContext(ctx, `SELECT ?s WHERE { ?s ?p ?o . }`)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestExecutor_InsideTransaction(t *testing.T) {
	ts := setupTestStore()

	err := ts.Update(context.Background(), func(tx *store.Tx) error {
		if err := tx.Add(store.NewTriple(exIRI("Grace"), store.IRI(store.RDFType), exIRI("Person"))); err != nil {
			return err
		}
		result, err := NewExecutor(tx).ExecuteString(`SELECT ?s WHERE { ?s a <http://example.org/Person> . }`)
		if err != nil {
			return err
		}
		if result.Count != 3 {
			t.Errorf("Count inside transaction = %d, want 3", result.Count)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
}

func TestExecutor_Metrics(t *testing.T) {
	executor := NewExecutor(setupTestStore())

	result, err := executor.ExecuteString(`SELECT ?s ?n WHERE { ?s a <http://example.org/Person> . ?s <http://example.org/name> ?n . }`)
	if err != nil {
		t.Fatalf("ExecuteString() error = %v", err)
	}

	if result.Metrics.PatternsCount != 2 {
		t.Errorf("PatternsCount = %d, want 2", result.Metrics.PatternsCount)
	}
	if result.Metrics.ResultCount != result.Count {
		t.Errorf("ResultCount = %d, want %d", result.Metrics.ResultCount, result.Count)
	}
}

func TestQueryResult_Format(t *testing.T) {
	result := &QueryResult{
		Variables: []string{"s", "name"},
		Bindings: []Binding{
			{"s": exIRI("Ada"), "name": store.LangLiteral("Ada", "en")},
		},
		Count: 1,
	}

	table := result.FormatTable()
	if !strings.Contains(table, "http://example.org/Ada") || !strings.Contains(table, "1 rows") {
		t.Errorf("FormatTable() = %q", table)
	}

	jsonOut, err := result.Format(FormatJSON)
	if err != nil {
		t.Fatalf("FormatJSON() error = %v", err)
	}
	if !strings.Contains(jsonOut, `"name": "\"Ada\"@en"`) {
		t.Errorf("FormatJSON() = %s", jsonOut)
	}

	csvOut, err := result.Format(FormatCSV)
	if err != nil {
		t.Fatalf("FormatCSV() error = %v", err)
	}
	if csvOut != "s,name\nhttp://example.org/Ada,Ada\n" {
		t.Errorf("FormatCSV() = %q", csvOut)
	}

	if _, err := result.Format("xml"); err == nil {
		t.Error("Format(xml) should fail")
	}
}

func TestQueryPlanner_OptimizePatterns(t *testing.T) {
	ts := setupTestStore()
	planner := NewQueryPlanner(ts.Stats())

	patterns, err := compilePatterns([]TriplePattern{
		{Subject: "?s", Predicate: "?p", Object: "?o"},
		{Subject: "?s", Predicate: "<http://example.org/knows>", Object: "?friend"},
	}, store.DefaultPrefixes())
	if err != nil {
		t.Fatalf("compilePatterns() error = %v", err)
	}

	ordered := planner.optimizePatterns(patterns, nil)
	if ordered[0].predicate.term != exIRI("knows") {
		t.Errorf("expected the bound predicate pattern first, got %+v", ordered[0])
	}
}

func BenchmarkExecutor_TwoPatternQuery(b *testing.B) {
	executor := NewExecutor(setupTestStore())
	queryStr := `SELECT ?s ?n WHERE { ?s a <http://example.org/Person> . ?s <http://example.org/name> ?n . }`

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = executor.ExecuteString(queryStr)
	}
}
