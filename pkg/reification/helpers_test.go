package reification

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coolbeans/kbgraph/pkg/graph"
	"github.com/coolbeans/kbgraph/pkg/kb"
	"github.com/coolbeans/kbgraph/pkg/store"
)

const ex = "http://example.org/"

func exIRI(local string) store.Term {
	return store.IRI(ex + local)
}

func handle(local string) graph.Handle {
	return graph.NewHandle(ex + local)
}

// schema declares ex:name, ex:knows and ex:friendOf as properties.
func schema() []store.Triple {
	return []store.Triple{
		store.NewTriple(exIRI("name"), store.IRI(store.RDFType), store.IRI(store.OWLDatatypeProperty)),
		store.NewTriple(exIRI("name"), store.IRI(store.RDFSLabel), store.LangLiteral("name", "en")),
		store.NewTriple(exIRI("knows"), store.IRI(store.RDFType), store.IRI(store.OWLObjectProperty)),
		store.NewTriple(exIRI("friendOf"), store.IRI(store.RDFSSubPropertyOf), exIRI("knows")),
		store.NewTriple(exIRI("source"), store.IRI(store.RDFType), store.IRI(store.RDFProperty)),
	}
}

type fixture struct {
	service *kb.Service
	kb      kb.KnowledgeBase
	repo    *store.TripleStore
	logs    *bytes.Buffer
	logger  *slog.Logger
}

func newFixture(t *testing.T, mode kb.ReificationMode, data ...store.Triple) fixture {
	t.Helper()

	repo := store.NewTripleStore()
	require.NoError(t, repo.BulkAdd(append(schema(), data...)))

	service := kb.NewService()
	require.NoError(t, service.Register(kb.KnowledgeBase{
		ID:              "people",
		BaseNamespace:   ex,
		ReificationMode: mode,
		DefaultLanguage: "en",
	}, repo))
	registered, err := service.Get("people")
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	return fixture{
		service: service,
		kb:      registered,
		repo:    repo,
		logs:    logs,
		logger:  slog.New(slog.NewTextHandler(logs, nil)),
	}
}

func (f fixture) strategy(t *testing.T, opts ...Option) Strategy {
	t.Helper()
	strategy, err := ForKnowledgeBase(f.kb, f.service, append([]Option{WithLogger(f.logger)}, opts...)...)
	require.NoError(t, err)
	return strategy
}

func (f fixture) explicit(subject store.Term) []store.Triple {
	return f.repo.Match(store.NewTriplePattern(subject, store.Term{}, store.Term{}), false)
}

// fixedService serves a fixed set of triples through read connections.
type fixedService struct {
	triples       []store.Triple
	properties    []graph.Handle
	propertiesErr error
}

func (s fixedService) GetConnection(_ context.Context, knowledgeBase kb.KnowledgeBase) (*kb.Connection, error) {
	return kb.NewConnection(knowledgeBase, fixedSource{triples: s.triples}), nil
}

func (s fixedService) Update(context.Context, kb.KnowledgeBase, func(*kb.Connection) error) error {
	return errors.New("fixed service is read-only")
}

func (s fixedService) ListProperties(context.Context, kb.KnowledgeBase, bool) ([]graph.Handle, error) {
	return s.properties, s.propertiesErr
}

// fixedSource returns its triples without validating them, so it can hold
// results a store never would.
type fixedSource struct {
	triples []store.Triple
}

func (s fixedSource) Match(pattern store.TriplePattern, _ bool) []store.Triple {
	var matched []store.Triple
	for _, triple := range s.triples {
		if pattern.Matches(triple) {
			matched = append(matched, triple)
		}
	}
	return matched
}

func (s fixedSource) Stats() store.IndexStats {
	return store.IndexStats{}
}

func originalKeys(statements []graph.Statement) map[string]bool {
	keys := make(map[string]bool)
	for _, statement := range statements {
		for _, triple := range statement.OriginalTriples() {
			keys[triple.Key()] = true
		}
	}
	return keys
}

func findStatement(statements []graph.Statement, property string) (graph.Statement, bool) {
	for _, statement := range statements {
		if statement.Property.Identifier == property {
			return statement, true
		}
	}
	return graph.Statement{}, false
}
