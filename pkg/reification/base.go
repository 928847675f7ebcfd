package reification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/coolbeans/kbgraph/pkg/graph"
	"github.com/coolbeans/kbgraph/pkg/kb"
	"github.com/coolbeans/kbgraph/pkg/query"
	"github.com/coolbeans/kbgraph/pkg/store"
)

// aboutQuery lists every triple with ?s as its subject.
const aboutQuery = "SELECT * WHERE { ?s ?p ?o . }"

// base holds what every strategy shares: the knowledge base service, the
// value mapper and the logging and metrics sinks.
type base struct {
	mode    kb.ReificationMode
	service KnowledgeBaseService
	mapper  graph.ValueMapper
	logger  *slog.Logger
	metrics *Metrics
}

func newBase(mode kb.ReificationMode, service KnowledgeBaseService, opts []Option) base {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return base{
		mode:    mode,
		service: service,
		logger:  o.logger.With(slog.String("reification", string(mode))),
		metrics: o.metrics,
	}
}

// Mode returns the reification mode the strategy encodes.
func (b *base) Mode() kb.ReificationMode {
	return b.mode
}

func (b *base) observe(operation string, err error) {
	b.metrics.observe(string(b.mode), operation, err)
}

// propertyIndex is the call-scoped lookup from predicate IRI to property
// handle.
type propertyIndex struct {
	handles         map[string]graph.Handle
	includeInferred bool

	// unavailable is set when the property query could not be evaluated.
	// Listings built on such an index are empty.
	unavailable bool
}

// properties loads the property index of kbase. A property query that cannot
// be evaluated yields an unavailable index and a warning; store failures are
// returned.
func (b *base) properties(ctx context.Context, kbase kb.KnowledgeBase, includeInferred bool) (propertyIndex, error) {
	handles, err := b.service.ListProperties(ctx, kbase, includeInferred)
	if err != nil {
		var evalErr *query.EvaluationError
		if errors.As(err, &evalErr) {
			b.logger.Warn("Property query failed",
				slog.String("kb", kbase.ID),
				slog.Any("error", err))
			b.metrics.skip(string(b.mode), skipQueryFailed)
			return propertyIndex{unavailable: true}, nil
		}
		return propertyIndex{}, err
	}
	index := propertyIndex{
		handles:         make(map[string]graph.Handle, len(handles)),
		includeInferred: includeInferred,
	}
	for _, handle := range handles {
		index.handles[handle.Identifier] = handle
	}
	return index, nil
}

// resolve returns the handle of a predicate. Predicates that are not declared
// properties get an identifier-only handle when inferred data is included and
// are rejected otherwise.
func (p propertyIndex) resolve(iri string) (graph.Handle, bool) {
	if handle, ok := p.handles[iri]; ok {
		return handle, true
	}
	if p.includeInferred {
		return graph.NewHandle(iri), true
	}
	return graph.Handle{}, false
}

// qualifierHandle returns the handle of a qualifier property. Undeclared
// qualifier properties are always kept.
func (p propertyIndex) qualifierHandle(iri string) graph.Handle {
	if handle, ok := p.handles[iri]; ok {
		return handle
	}
	return graph.NewHandle(iri)
}

// selectTriples returns the triples about subject through the bound pattern
// query. A query that cannot be evaluated yields no triples and a warning;
// store failures are returned.
func (b *base) selectTriples(ctx context.Context, conn *kb.Connection, subject store.Term, includeInferred bool) ([]store.Triple, error) {
	result, err := conn.Select(ctx, aboutQuery, query.Binding{"s": subject}, includeInferred)
	if err != nil {
		var evalErr *query.EvaluationError
		if errors.As(err, &evalErr) {
			b.logger.Warn("Statement query failed",
				slog.String("kb", conn.KnowledgeBase().ID),
				slog.String("subject", subject.Value),
				slog.Any("error", err))
			b.metrics.skip(string(b.mode), skipQueryFailed)
			return nil, nil
		}
		return nil, err
	}

	triples := make([]store.Triple, 0, len(result.Bindings))
	for _, binding := range result.Bindings {
		triples = append(triples, store.Triple{
			Subject:   subject,
			Predicate: binding["p"],
			Object:    binding["o"],
		})
	}
	sortTriples(triples)
	return triples, nil
}

// selectTerms returns the distinct values bound to variable.
func (b *base) selectTerms(ctx context.Context, conn *kb.Connection, queryStr string, bindings query.Binding, variable string, includeInferred bool) ([]store.Term, error) {
	result, err := conn.Select(ctx, queryStr, bindings, includeInferred)
	if err != nil {
		var evalErr *query.EvaluationError
		if errors.As(err, &evalErr) {
			b.logger.Warn("Statement node query failed",
				slog.String("kb", conn.KnowledgeBase().ID),
				slog.Any("error", err))
			b.metrics.skip(string(b.mode), skipQueryFailed)
			return nil, nil
		}
		return nil, err
	}

	seen := make(map[store.Term]bool)
	var terms []store.Term
	for _, binding := range result.Bindings {
		term := binding[variable]
		if term.IsZero() || seen[term] {
			continue
		}
		seen[term] = true
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Key() < terms[j].Key() })
	return terms, nil
}

// decodeValue converts a triple object into a statement value. Objects that
// cannot be values are logged, counted and reported as not ok.
func (b *base) decodeValue(kbase kb.KnowledgeBase, triple store.Triple) (graph.Value, bool) {
	attrs := []any{
		slog.String("kb", kbase.ID),
		slog.String("subject", triple.Subject.Value),
		slog.String("property", triple.Predicate.Value),
	}
	switch {
	case triple.Object.IsZero():
		b.logger.Warn("Property with null value detected", attrs...)
		b.metrics.skip(string(b.mode), skipNullValue)
		return graph.Value{}, false
	case triple.Object.IsBlank():
		b.logger.Warn("Blank node statements are not supported", attrs...)
		b.metrics.skip(string(b.mode), skipBlankNode)
		return graph.Value{}, false
	}

	value, err := b.mapper.FromStoreValue(triple.Object, graph.KindAny)
	if err != nil {
		b.logger.Warn("Statement value could not be decoded", append(attrs, slog.Any("error", err))...)
		b.metrics.skip(string(b.mode), skipUndecodable)
		return graph.Value{}, false
	}
	return value, true
}

func (b *base) unknownProperty(kbase kb.KnowledgeBase, subject, predicate string) {
	b.logger.Warn("Skipping statement with undeclared property",
		slog.String("kb", kbase.ID),
		slog.String("subject", subject),
		slog.String("property", predicate))
	b.metrics.skip(string(b.mode), skipUnknownProperty)
}

// terms returns the store terms of a statement's instance, property and
// value.
func (b *base) terms(statement graph.Statement) (subject, predicate, object store.Term, err error) {
	if statement.Instance.Identifier == "" {
		return subject, predicate, object, fmt.Errorf("%w: missing instance", ErrInvalidStatement)
	}
	if statement.Property.Identifier == "" {
		return subject, predicate, object, fmt.Errorf("%w: missing property", ErrInvalidStatement)
	}
	object, err = b.mapper.ToStoreValue(statement.Value)
	if err != nil {
		return subject, predicate, object, err
	}
	return store.IRI(statement.Instance.Identifier), store.IRI(statement.Property.Identifier), object, nil
}

// update runs fn in one transaction of the knowledge base.
func (b *base) update(ctx context.Context, kbase kb.KnowledgeBase, fn func(conn *kb.Connection) error) error {
	return b.service.Update(ctx, kbase, fn)
}

func keySet(triples []store.Triple) map[string]bool {
	set := make(map[string]bool, len(triples))
	for _, triple := range triples {
		set[triple.Key()] = true
	}
	return set
}

func sortTriples(triples []store.Triple) {
	sort.Slice(triples, func(i, j int) bool { return triples[i].Key() < triples[j].Key() })
}
