package reification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/coolbeans/kbgraph/pkg/graph"
	"github.com/coolbeans/kbgraph/pkg/kb"
	"github.com/coolbeans/kbgraph/pkg/store"
)

// encoding is the triple layout of one rich reification mode. The reified
// strategy does the reading and writing; an encoding only says which
// triples make up a statement and its qualifiers.
type encoding interface {
	// pattern returns the triples materializing subject-predicate-object
	// with node as the statement node.
	pattern(kbase kb.KnowledgeBase, subject, predicate, object, node store.Term) []store.Triple

	// nodes returns the statement nodes of statements about subject.
	nodes(ctx context.Context, r *reified, conn *kb.Connection, kbase kb.KnowledgeBase, subject store.Term, about []store.Triple, includeInferred bool) ([]store.Term, error)

	// decode recovers the predicate and object of the statement on node
	// from the node's triples and the triples about its subject.
	decode(kbase kb.KnowledgeBase, subject, node store.Term, nodeTriples, about []store.Triple) (predicate, object store.Term, ok bool)

	// qualifier returns the triple attaching a qualifier to node.
	qualifier(kbase kb.KnowledgeBase, node, property, value store.Term) store.Triple

	// checkProperty rejects property IRIs the encoding cannot round-trip.
	checkProperty(kbase kb.KnowledgeBase, iri string) error

	// qualifierProperty returns the qualifier property of a triple on a
	// statement node, or false when the triple is part of the statement
	// pattern or not a qualifier.
	qualifierProperty(kbase kb.KnowledgeBase, triple store.Triple) (string, bool)
}

// reified implements Strategy for the encodings with statement nodes.
type reified struct {
	base
	encoding encoding
}

func newReified(mode kb.ReificationMode, enc encoding, service KnowledgeBaseService, opts []Option) reified {
	return reified{base: newBase(mode, service, opts), encoding: enc}
}

// SupportsQualifiers always returns true.
func (r *reified) SupportsQualifiers() bool {
	return true
}

// statementNode returns the node of the statement subject-predicate-object.
// Nodes are name-based UUIDs, so the same statement always gets the same
// node.
func statementNode(kbase kb.KnowledgeBase, subject, predicate, object store.Term) store.Term {
	name := subject.Key() + " " + predicate.Key() + " " + object.Key()
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(name))
	return store.IRI(kbase.StatementNamespace + id.String())
}

// Reify returns the full statement pattern of statement.
func (r *reified) Reify(kbase kb.KnowledgeBase, statement graph.Statement) ([]store.Triple, error) {
	triples, _, err := r.reify(kbase, statement)
	return triples, err
}

func (r *reified) reify(kbase kb.KnowledgeBase, statement graph.Statement) ([]store.Triple, store.Term, error) {
	subject, predicate, object, err := r.terms(statement)
	if err != nil {
		return nil, store.Term{}, err
	}
	kbase = kbase.WithDefaults()
	if err := r.encoding.checkProperty(kbase, predicate.Value); err != nil {
		return nil, store.Term{}, err
	}
	node := statementNode(kbase, subject, predicate, object)
	return r.encoding.pattern(kbase, subject, predicate, object, node), node, nil
}

// ListStatements reconstructs the reified statements about subject and lists
// every remaining triple about it as a plain statement.
func (r *reified) ListStatements(ctx context.Context, kbase kb.KnowledgeBase, subject graph.Handle, includeInferred bool) (statements []graph.Statement, err error) {
	defer func() { r.observe("list_statements", err) }()

	kbase = kbase.WithDefaults()
	properties, err := r.properties(ctx, kbase, includeInferred)
	if err != nil {
		return nil, err
	}
	if properties.unavailable {
		return []graph.Statement{}, nil
	}

	conn, err := r.service.GetConnection(ctx, kbase)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	subjectTerm := store.IRI(subject.Identifier)
	all, err := r.selectTriples(ctx, conn, subjectTerm, includeInferred)
	if err != nil {
		return nil, err
	}
	explicit, err := r.selectTriples(ctx, conn, subjectTerm, false)
	if err != nil {
		return nil, err
	}
	allKeys := keySet(all)
	explicitKeys := keySet(explicit)

	nodes, err := r.encoding.nodes(ctx, r, conn, kbase, subjectTerm, all, includeInferred)
	if err != nil {
		return nil, err
	}

	statements = []graph.Statement{}
	covered := make(map[string]bool)
	for _, node := range nodes {
		if !node.IsIRI() {
			continue
		}
		nodeTriples, err := r.selectTriples(ctx, conn, node, includeInferred)
		if err != nil {
			return nil, err
		}
		nodeExplicit, err := r.selectTriples(ctx, conn, node, false)
		if err != nil {
			return nil, err
		}
		nodeKeys := keySet(nodeTriples)
		for key := range keySet(nodeExplicit) {
			explicitKeys[key] = true
		}

		predicate, object, ok := r.encoding.decode(kbase, subjectTerm, node, nodeTriples, all)
		if !ok {
			continue
		}

		var pattern []store.Triple
		inferred := false
		for _, triple := range r.encoding.pattern(kbase, subjectTerm, predicate, object, node) {
			key := triple.Key()
			if !allKeys[key] && !nodeKeys[key] {
				continue
			}
			covered[key] = true
			pattern = append(pattern, triple)
			if !explicitKeys[key] {
				inferred = true
			}
		}

		value, ok := r.decodeValue(kbase, store.NewTriple(subjectTerm, predicate, object))
		if !ok {
			continue
		}
		property, ok := properties.resolve(predicate.Value)
		if !ok {
			r.unknownProperty(kbase, subject.Identifier, predicate.Value)
			continue
		}

		statement := graph.NewStatement(subject, property, value)
		statement.Inferred = inferred
		statement.StatementID = node.Value
		statement = statement.WithOriginalTriples(pattern)
		statement.Qualifiers = r.decodeQualifiers(kbase, statement, nodeTriples, properties)
		statements = append(statements, statement)
	}

	for _, triple := range all {
		if covered[triple.Key()] {
			continue
		}
		value, ok := r.decodeValue(kbase, triple)
		if !ok {
			continue
		}
		property, ok := properties.resolve(triple.Predicate.Value)
		if !ok {
			r.unknownProperty(kbase, subject.Identifier, triple.Predicate.Value)
			continue
		}

		statement := graph.NewStatement(subject, property, value)
		statement.Inferred = !explicitKeys[triple.Key()]
		statements = append(statements, statement.WithOriginalTriples([]store.Triple{triple}))
	}
	return statements, nil
}

// DeleteStatement removes the statement pattern and the qualifiers on the
// statement node.
func (r *reified) DeleteStatement(ctx context.Context, kbase kb.KnowledgeBase, statement graph.Statement) (deleted graph.Statement, err error) {
	defer func() { r.observe("delete_statement", err) }()

	kbase = kbase.WithDefaults()
	err = r.update(ctx, kbase, func(conn *kb.Connection) error {
		if err := conn.Remove(statement.OriginalTriples()...); err != nil {
			return err
		}
		if !statement.IsReified() {
			return nil
		}
		qualifiers, err := r.qualifierTriples(conn, kbase, store.IRI(statement.StatementID))
		if err != nil {
			return err
		}
		return conn.Remove(qualifiers...)
	})
	if err != nil {
		return statement, err
	}

	deleted = statement.WithOriginalTriples(nil)
	deleted.StatementID = ""
	deleted.Qualifiers = nil
	return deleted, nil
}

// UpsertStatement writes the pattern for the statement's current value. When
// the statement node changes, the qualifiers of the old node are moved to
// the new one, or copied if the statement was inferred.
func (r *reified) UpsertStatement(ctx context.Context, kbase kb.KnowledgeBase, statement graph.Statement) (upserted graph.Statement, err error) {
	defer func() { r.observe("upsert_statement", err) }()

	kbase = kbase.WithDefaults()
	triples, node, err := r.reify(kbase, statement)
	if err != nil {
		return statement, err
	}
	moved := statement.IsReified() && statement.StatementID != node.Value

	err = r.update(ctx, kbase, func(conn *kb.Connection) error {
		var qualifiers []store.Triple
		if moved {
			var err error
			qualifiers, err = r.qualifierTriples(conn, kbase, store.IRI(statement.StatementID))
			if err != nil {
				return err
			}
		}

		if !statement.Inferred {
			if err := conn.Remove(statement.OriginalTriples()...); err != nil {
				return err
			}
			if err := conn.Remove(qualifiers...); err != nil {
				return err
			}
		}
		if err := conn.Add(triples...); err != nil {
			return err
		}
		return conn.Add(retarget(qualifiers, node)...)
	})
	if err != nil {
		return statement, err
	}

	upserted = statement.WithOriginalTriples(triples)
	upserted.Inferred = false
	upserted.StatementID = node.Value
	if moved {
		for i, qualifier := range upserted.Qualifiers {
			snapshot := upserted
			snapshot.Qualifiers = nil
			qualifier.Statement = snapshot
			upserted.Qualifiers[i] = qualifier.WithOriginalTriples(retarget(qualifier.OriginalTriples(), node))
		}
	}
	return upserted, nil
}

// AddQualifier attaches a qualifier to its statement's node.
func (r *reified) AddQualifier(ctx context.Context, kbase kb.KnowledgeBase, qualifier graph.Qualifier) (added graph.Qualifier, err error) {
	defer func() { r.observe("add_qualifier", err) }()

	kbase = kbase.WithDefaults()
	triple, err := r.qualifierTriple(kbase, qualifier)
	if err != nil {
		return qualifier, err
	}
	err = r.update(ctx, kbase, func(conn *kb.Connection) error {
		return conn.Add(triple)
	})
	if err != nil {
		return qualifier, err
	}
	return qualifier.WithOriginalTriples([]store.Triple{triple}), nil
}

// UpsertQualifier replaces the qualifier's original triples with the triple
// for its current value.
func (r *reified) UpsertQualifier(ctx context.Context, kbase kb.KnowledgeBase, qualifier graph.Qualifier) (upserted graph.Qualifier, err error) {
	defer func() { r.observe("upsert_qualifier", err) }()

	kbase = kbase.WithDefaults()
	triple, err := r.qualifierTriple(kbase, qualifier)
	if err != nil {
		return qualifier, err
	}
	err = r.update(ctx, kbase, func(conn *kb.Connection) error {
		if err := conn.Remove(qualifier.OriginalTriples()...); err != nil {
			return err
		}
		return conn.Add(triple)
	})
	if err != nil {
		return qualifier, err
	}
	return qualifier.WithOriginalTriples([]store.Triple{triple}), nil
}

// DeleteQualifier removes the qualifier's original triples.
func (r *reified) DeleteQualifier(ctx context.Context, kbase kb.KnowledgeBase, qualifier graph.Qualifier) (deleted graph.Qualifier, err error) {
	defer func() { r.observe("delete_qualifier", err) }()

	if !qualifier.Statement.IsReified() {
		return qualifier, fmt.Errorf("%w: %s", ErrStatementNotReified, qualifier.Statement)
	}
	err = r.update(ctx, kbase, func(conn *kb.Connection) error {
		return conn.Remove(qualifier.OriginalTriples()...)
	})
	if err != nil {
		return qualifier, err
	}
	return qualifier.WithOriginalTriples(nil), nil
}

// ListQualifiers returns the explicit qualifiers on the statement's node. A
// statement without a node has none.
func (r *reified) ListQualifiers(ctx context.Context, kbase kb.KnowledgeBase, statement graph.Statement) (qualifiers []graph.Qualifier, err error) {
	defer func() { r.observe("list_qualifiers", err) }()

	if !statement.IsReified() {
		return []graph.Qualifier{}, nil
	}

	kbase = kbase.WithDefaults()
	properties, err := r.properties(ctx, kbase, false)
	if err != nil {
		return nil, err
	}
	if properties.unavailable {
		return []graph.Qualifier{}, nil
	}
	conn, err := r.service.GetConnection(ctx, kbase)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	nodeTriples, err := r.selectTriples(ctx, conn, store.IRI(statement.StatementID), false)
	if err != nil {
		return nil, err
	}
	return r.decodeQualifiers(kbase, statement, nodeTriples, properties), nil
}

func (r *reified) decodeQualifiers(kbase kb.KnowledgeBase, statement graph.Statement, nodeTriples []store.Triple, properties propertyIndex) []graph.Qualifier {
	qualifiers := []graph.Qualifier{}
	for _, triple := range nodeTriples {
		iri, ok := r.encoding.qualifierProperty(kbase, triple)
		if !ok {
			continue
		}
		value, ok := r.decodeValue(kbase, triple)
		if !ok {
			continue
		}
		qualifier := graph.NewQualifier(statement, properties.qualifierHandle(iri), value)
		qualifiers = append(qualifiers, qualifier.WithOriginalTriples([]store.Triple{triple}))
	}
	return qualifiers
}

// qualifierTriples returns the explicit qualifier triples on node.
func (r *reified) qualifierTriples(conn *kb.Connection, kbase kb.KnowledgeBase, node store.Term) ([]store.Triple, error) {
	triples, err := conn.Match(store.NewTriplePattern(node, store.Term{}, store.Term{}), false)
	if err != nil {
		return nil, err
	}
	var qualifiers []store.Triple
	for _, triple := range triples {
		if _, ok := r.encoding.qualifierProperty(kbase, triple); ok {
			qualifiers = append(qualifiers, triple)
		}
	}
	sortTriples(qualifiers)
	return qualifiers, nil
}

func (r *reified) qualifierTriple(kbase kb.KnowledgeBase, qualifier graph.Qualifier) (store.Triple, error) {
	if !qualifier.Statement.IsReified() {
		return store.Triple{}, fmt.Errorf("%w: %s", ErrStatementNotReified, qualifier.Statement)
	}
	if qualifier.Property.Identifier == "" {
		return store.Triple{}, fmt.Errorf("%w: qualifier without property", ErrInvalidStatement)
	}
	if err := r.encoding.checkProperty(kbase, qualifier.Property.Identifier); err != nil {
		return store.Triple{}, err
	}
	value, err := r.mapper.ToStoreValue(qualifier.Value)
	if err != nil {
		return store.Triple{}, err
	}
	return r.encoding.qualifier(kbase, store.IRI(qualifier.Statement.StatementID), store.IRI(qualifier.Property.Identifier), value), nil
}

// retarget moves qualifier triples to node. Qualifier predicates do not
// depend on the node, so only the subject changes.
func retarget(triples []store.Triple, node store.Term) []store.Triple {
	moved := make([]store.Triple, 0, len(triples))
	for _, triple := range triples {
		moved = append(moved, store.NewTriple(node, triple.Predicate, triple.Object))
	}
	return moved
}
