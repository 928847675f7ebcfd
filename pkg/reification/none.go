package reification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coolbeans/kbgraph/pkg/graph"
	"github.com/coolbeans/kbgraph/pkg/kb"
	"github.com/coolbeans/kbgraph/pkg/store"
)

// NoReification stores every statement as a single triple. Qualifiers are
// not supported.
type NoReification struct {
	base
}

// NewNoReification creates the baseline strategy.
func NewNoReification(service KnowledgeBaseService, opts ...Option) *NoReification {
	return &NoReification{base: newBase(kb.ReificationNone, service, opts)}
}

// SupportsQualifiers always returns false.
func (s *NoReification) SupportsQualifiers() bool {
	return false
}

// Reify returns the single triple (instance, property, value).
func (s *NoReification) Reify(kbase kb.KnowledgeBase, statement graph.Statement) ([]store.Triple, error) {
	subject, predicate, object, err := s.terms(statement)
	if err != nil {
		return nil, err
	}
	return []store.Triple{store.NewTriple(subject, predicate, object)}, nil
}

// ListStatements returns one statement per triple about subject. A statement
// is inferred when its triple is not among the explicit triples.
func (s *NoReification) ListStatements(ctx context.Context, kbase kb.KnowledgeBase, subject graph.Handle, includeInferred bool) (statements []graph.Statement, err error) {
	defer func() { s.observe("list_statements", err) }()

	properties, err := s.properties(ctx, kbase, includeInferred)
	if err != nil {
		return nil, err
	}
	if properties.unavailable {
		return []graph.Statement{}, nil
	}

	conn, err := s.service.GetConnection(ctx, kbase)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	subjectTerm := store.IRI(subject.Identifier)
	all, err := s.selectTriples(ctx, conn, subjectTerm, includeInferred)
	if err != nil {
		return nil, err
	}
	explicit, err := s.selectTriples(ctx, conn, subjectTerm, false)
	if err != nil {
		return nil, err
	}
	explicitKeys := keySet(explicit)

	statements = []graph.Statement{}
	for _, triple := range all {
		value, ok := s.decodeValue(kbase, triple)
		if !ok {
			continue
		}
		property, ok := properties.resolve(triple.Predicate.Value)
		if !ok {
			s.unknownProperty(kbase, subject.Identifier, triple.Predicate.Value)
			continue
		}

		statement := graph.NewStatement(subject, property, value)
		statement.Inferred = !explicitKeys[triple.Key()]
		statements = append(statements, statement.WithOriginalTriples([]store.Triple{triple}))
	}
	return statements, nil
}

// DeleteStatement removes the statement's original triples.
func (s *NoReification) DeleteStatement(ctx context.Context, kbase kb.KnowledgeBase, statement graph.Statement) (deleted graph.Statement, err error) {
	defer func() { s.observe("delete_statement", err) }()

	err = s.update(ctx, kbase, func(conn *kb.Connection) error {
		return conn.Remove(statement.OriginalTriples()...)
	})
	if err != nil {
		return statement, err
	}
	return statement.WithOriginalTriples(nil), nil
}

// UpsertStatement replaces the statement's original triples with the triple
// for its current value.
func (s *NoReification) UpsertStatement(ctx context.Context, kbase kb.KnowledgeBase, statement graph.Statement) (upserted graph.Statement, err error) {
	defer func() { s.observe("upsert_statement", err) }()

	triples, err := s.Reify(kbase, statement)
	if err != nil {
		return statement, err
	}

	err = s.update(ctx, kbase, func(conn *kb.Connection) error {
		if !statement.Inferred {
			if err := conn.Remove(statement.OriginalTriples()...); err != nil {
				return err
			}
		}
		return conn.Add(triples...)
	})
	if err != nil {
		return statement, err
	}

	upserted = statement.WithOriginalTriples(triples)
	upserted.Inferred = false
	return upserted, nil
}

// AddQualifier is not supported.
func (s *NoReification) AddQualifier(ctx context.Context, kbase kb.KnowledgeBase, qualifier graph.Qualifier) (graph.Qualifier, error) {
	return qualifier, s.unsupported(kbase, "add_qualifier")
}

// UpsertQualifier is not supported.
func (s *NoReification) UpsertQualifier(ctx context.Context, kbase kb.KnowledgeBase, qualifier graph.Qualifier) (graph.Qualifier, error) {
	return qualifier, s.unsupported(kbase, "upsert_qualifier")
}

// DeleteQualifier is not supported.
func (s *NoReification) DeleteQualifier(ctx context.Context, kbase kb.KnowledgeBase, qualifier graph.Qualifier) (graph.Qualifier, error) {
	return qualifier, s.unsupported(kbase, "delete_qualifier")
}

// ListQualifiers returns no qualifiers.
func (s *NoReification) ListQualifiers(ctx context.Context, kbase kb.KnowledgeBase, statement graph.Statement) ([]graph.Qualifier, error) {
	s.observe("list_qualifiers", nil)
	return []graph.Qualifier{}, nil
}

func (s *NoReification) unsupported(kbase kb.KnowledgeBase, operation string) error {
	err := fmt.Errorf("%w: %s with reification mode %s", ErrUnsupportedOperation, operation, s.mode)
	s.logger.Error("Qualifiers are not supported by this reification mode",
		slog.String("kb", kbase.ID),
		slog.String("operation", operation))
	s.observe(operation, err)
	return err
}
