package store

import "fmt"

// Triple represents an RDF Subject-Predicate-Object triple.
//   - Subject: an IRI or blank node (e.g., "http://example.org/Person1")
//   - Predicate: always an IRI (e.g., rdf:type, a schema property)
//   - Object: an IRI, blank node or literal
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// NewTriple creates a new triple with the given components.
func NewTriple(subject, predicate, object Term) Triple {
	return Triple{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
	}
}

// Equals checks if two triples have identical components.
func (t Triple) Equals(other Triple) bool {
	return t.Subject == other.Subject &&
		t.Predicate == other.Predicate &&
		t.Object == other.Object
}

// Key returns a stable identity for the triple, usable as a map key.
func (t Triple) Key() string {
	return t.Subject.Key() + " " + t.Predicate.Key() + " " + t.Object.Key()
}

// String returns a human-readable representation of the triple.
func (t Triple) String() string {
	return fmt.Sprintf("(%s %s %s)", t.Subject.Key(), t.Predicate.Key(), t.Object.Key())
}

// NTriples returns the triple in N-Triples format.
func (t Triple) NTriples() string {
	return t.Key() + " ."
}

// IsValid returns true if the triple can be stored: an IRI or blank node
// subject, an IRI predicate and a non-empty object.
func (t Triple) IsValid() bool {
	if t.Subject.Kind != TermIRI && t.Subject.Kind != TermBlankNode {
		return false
	}
	if t.Predicate.Kind != TermIRI || t.Predicate.Value == "" {
		return false
	}
	return !t.Object.IsZero()
}

// TriplePattern represents a pattern for matching triples.
// Zero terms act as wildcards that match any value.
type TriplePattern struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// NewTriplePattern creates a new pattern for querying.
// Use the zero Term for wildcards.
func NewTriplePattern(subject, predicate, object Term) TriplePattern {
	return TriplePattern{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
	}
}

// Matches checks if a triple matches this pattern.
func (p TriplePattern) Matches(t Triple) bool {
	if !p.Subject.IsZero() && p.Subject != t.Subject {
		return false
	}
	if !p.Predicate.IsZero() && p.Predicate != t.Predicate {
		return false
	}
	if !p.Object.IsZero() && p.Object != t.Object {
		return false
	}
	return true
}

// HasWildcards returns true if any component is a wildcard.
func (p TriplePattern) HasWildcards() bool {
	return p.Subject.IsZero() || p.Predicate.IsZero() || p.Object.IsZero()
}

// WildcardCount returns the number of wildcard components.
func (p TriplePattern) WildcardCount() int {
	count := 0
	if p.Subject.IsZero() {
		count++
	}
	if p.Predicate.IsZero() {
		count++
	}
	if p.Object.IsZero() {
		count++
	}
	return count
}

// ContainsTriple reports whether triples contains t.
func ContainsTriple(triples []Triple, t Triple) bool {
	for _, candidate := range triples {
		if candidate.Equals(t) {
			return true
		}
	}
	return false
}
