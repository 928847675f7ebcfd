package graph

import (
	"fmt"

	"github.com/coolbeans/kbgraph/pkg/store"
)

// Statement is a subject-property-value fact of a knowledge base.
//
// A statement remembers the triples that currently materialize it in the
// store. Reification strategies read them through OriginalTriples and hand
// back a new Statement carrying the updated set from every create, update and
// delete; callers never edit them directly.
type Statement struct {
	Instance Handle
	Property Handle
	Value    Value

	// Inferred is set when the store's reasoner derived the fact rather than
	// it being asserted.
	Inferred bool

	// StatementID is the IRI of the statement node for encodings that
	// reify statements, and empty otherwise.
	StatementID string

	Qualifiers []Qualifier

	originalTriples []store.Triple
}

// NewStatement creates an unpersisted statement.
func NewStatement(instance, property Handle, value Value) Statement {
	return Statement{Instance: instance, Property: property, Value: value}
}

// OriginalTriples returns a copy of the triples backing the statement.
func (s Statement) OriginalTriples() []store.Triple {
	return cloneTriples(s.originalTriples)
}

// WithOriginalTriples returns a copy of s backed by triples.
func (s Statement) WithOriginalTriples(triples []store.Triple) Statement {
	s.originalTriples = cloneTriples(triples)
	s.Qualifiers = append([]Qualifier(nil), s.Qualifiers...)
	return s
}

// IsPersisted reports whether the statement is backed by any triples.
func (s Statement) IsPersisted() bool {
	return len(s.originalTriples) > 0
}

// IsReified reports whether the statement has a statement node that
// qualifiers can attach to.
func (s Statement) IsReified() bool {
	return s.StatementID != ""
}

// String returns a compact description of the statement.
func (s Statement) String() string {
	marker := ""
	if s.Inferred {
		marker = " (inferred)"
	}
	return fmt.Sprintf("<%s> <%s> %s%s", s.Instance.Identifier, s.Property.Identifier, s.Value, marker)
}

// Qualifier is a property-value annotation of a statement.
type Qualifier struct {
	// Statement is a snapshot of the qualified statement.
	Statement Statement
	Property  Handle
	Value     Value

	originalTriples []store.Triple
}

// NewQualifier creates an unpersisted qualifier of statement.
func NewQualifier(statement Statement, property Handle, value Value) Qualifier {
	statement.Qualifiers = nil
	return Qualifier{Statement: statement, Property: property, Value: value}
}

// OriginalTriples returns a copy of the triples backing the qualifier.
func (q Qualifier) OriginalTriples() []store.Triple {
	return cloneTriples(q.originalTriples)
}

// WithOriginalTriples returns a copy of q backed by triples.
func (q Qualifier) WithOriginalTriples(triples []store.Triple) Qualifier {
	q.originalTriples = cloneTriples(triples)
	return q
}

// IsPersisted reports whether the qualifier is backed by any triples.
func (q Qualifier) IsPersisted() bool {
	return len(q.originalTriples) > 0
}

func cloneTriples(triples []store.Triple) []store.Triple {
	if len(triples) == 0 {
		return []store.Triple{}
	}
	return append([]store.Triple(nil), triples...)
}
