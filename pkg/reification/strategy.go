// Package reification maps knowledge base statements and their qualifiers to
// and from triples.
//
// Every knowledge base picks one encoding. NoReification stores a statement
// as the single triple (subject, property, value) and cannot hold
// qualifiers. The rich encodings give each statement its own node that
// qualifiers attach to:
//
//	standard            rdf:Statement node with rdf:subject, rdf:predicate, rdf:object
//	singleton-property  statement-specific predicate, rdf:singletonPropertyOf the property
//	wikidata            claim and statement-value namespaces around a statement node
//
// All strategies share the same Strategy contract, so callers dispatch on a
// knowledge base's mode once and never branch on the encoding again.
package reification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coolbeans/kbgraph/pkg/graph"
	"github.com/coolbeans/kbgraph/pkg/kb"
	"github.com/coolbeans/kbgraph/pkg/store"
)

var (
	// ErrUnsupportedOperation is returned by qualifier mutators of encodings
	// that cannot hold qualifiers. Check Strategy.SupportsQualifiers first.
	ErrUnsupportedOperation = errors.New("operation not supported by reification mode")

	// ErrStatementNotReified is returned when a qualifier is attached to a
	// statement that has no statement node.
	ErrStatementNotReified = errors.New("statement is not reified")

	// ErrInvalidStatement is returned when a statement lacks an instance or
	// property identifier.
	ErrInvalidStatement = errors.New("invalid statement")
)

// KnowledgeBaseService is the part of the knowledge base service the
// strategies need. *kb.Service implements it.
type KnowledgeBaseService interface {
	GetConnection(ctx context.Context, kb kb.KnowledgeBase) (*kb.Connection, error)
	Update(ctx context.Context, kb kb.KnowledgeBase, fn func(conn *kb.Connection) error) error
	ListProperties(ctx context.Context, kb kb.KnowledgeBase, includeInferred bool) ([]graph.Handle, error)
}

// Strategy reads and writes the statements of a knowledge base in one
// reification encoding.
//
// Mutators never modify their argument. They return a new Statement or
// Qualifier whose original triples are what the store holds for it after
// the call; on error the argument is returned unchanged and the store is
// left as it was.
type Strategy interface {
	Mode() kb.ReificationMode

	// SupportsQualifiers reports whether the encoding can hold qualifiers.
	SupportsQualifiers() bool

	// Reify returns the triples that materialize statement. It is a pure
	// function of the statement's instance, property and value.
	Reify(kb kb.KnowledgeBase, statement graph.Statement) ([]store.Triple, error)

	// ListStatements returns the statements about subject. With
	// includeInferred, statements derived by the reasoner are included and
	// predicates that are not declared properties are kept.
	ListStatements(ctx context.Context, kb kb.KnowledgeBase, subject graph.Handle, includeInferred bool) ([]graph.Statement, error)

	// DeleteStatement removes the triples backing statement.
	DeleteStatement(ctx context.Context, kb kb.KnowledgeBase, statement graph.Statement) (graph.Statement, error)

	// UpsertStatement replaces the triples backing statement with the ones
	// for its current value. The triples of an inferred statement are left
	// alone, so upserting one promotes it to an explicit statement.
	UpsertStatement(ctx context.Context, kb kb.KnowledgeBase, statement graph.Statement) (graph.Statement, error)

	AddQualifier(ctx context.Context, kb kb.KnowledgeBase, qualifier graph.Qualifier) (graph.Qualifier, error)
	UpsertQualifier(ctx context.Context, kb kb.KnowledgeBase, qualifier graph.Qualifier) (graph.Qualifier, error)
	DeleteQualifier(ctx context.Context, kb kb.KnowledgeBase, qualifier graph.Qualifier) (graph.Qualifier, error)
	ListQualifiers(ctx context.Context, kb kb.KnowledgeBase, statement graph.Statement) ([]graph.Qualifier, error)
}

// Option configures a strategy.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *Metrics
}

// WithLogger sets the logger that receives data quality warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records operation outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New returns the strategy for mode.
func New(mode kb.ReificationMode, service KnowledgeBaseService, opts ...Option) (Strategy, error) {
	if service == nil {
		return nil, fmt.Errorf("reification: knowledge base service is required")
	}
	switch mode {
	case kb.ReificationNone, "":
		return NewNoReification(service, opts...), nil
	case kb.ReificationStandard:
		return NewStandardReification(service, opts...), nil
	case kb.ReificationSingletonProperty:
		return NewSingletonProperty(service, opts...), nil
	case kb.ReificationWikidata:
		return NewWikidataStyle(service, opts...), nil
	default:
		return nil, fmt.Errorf("reification: unknown mode %q", mode)
	}
}

// ForKnowledgeBase returns the strategy configured for knowledgeBase.
func ForKnowledgeBase(knowledgeBase kb.KnowledgeBase, service KnowledgeBaseService, opts ...Option) (Strategy, error) {
	return New(knowledgeBase.WithDefaults().ReificationMode, service, opts...)
}
