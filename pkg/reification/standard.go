package reification

import (
	"context"

	"github.com/coolbeans/kbgraph/pkg/kb"
	"github.com/coolbeans/kbgraph/pkg/query"
	"github.com/coolbeans/kbgraph/pkg/store"
)

// StandardReification asserts each statement as a triple and describes it
// with an rdf:Statement node:
//
//	s p o .
//	st rdf:type rdf:Statement .
//	st rdf:subject s .
//	st rdf:predicate p .
//	st rdf:object o .
//
// Qualifiers are further triples on st.
type StandardReification struct {
	reified
}

// NewStandardReification creates the rdf:Statement strategy.
func NewStandardReification(service KnowledgeBaseService, opts ...Option) *StandardReification {
	return &StandardReification{reified: newReified(kb.ReificationStandard, standardEncoding{}, service, opts)}
}

const standardNodesQuery = "SELECT ?st WHERE { ?st ?subjectOf ?s . }"

type standardEncoding struct{}

func (standardEncoding) pattern(_ kb.KnowledgeBase, subject, predicate, object, node store.Term) []store.Triple {
	return []store.Triple{
		store.NewTriple(subject, predicate, object),
		store.NewTriple(node, store.IRI(store.RDFType), store.IRI(store.RDFStatement)),
		store.NewTriple(node, store.IRI(store.RDFSubject), subject),
		store.NewTriple(node, store.IRI(store.RDFPredicate), predicate),
		store.NewTriple(node, store.IRI(store.RDFObject), object),
	}
}

func (standardEncoding) nodes(ctx context.Context, r *reified, conn *kb.Connection, _ kb.KnowledgeBase, subject store.Term, _ []store.Triple, includeInferred bool) ([]store.Term, error) {
	return r.selectTerms(ctx, conn, standardNodesQuery, query.Binding{
		"subjectOf": store.IRI(store.RDFSubject),
		"s":         subject,
	}, "st", includeInferred)
}

func (standardEncoding) decode(_ kb.KnowledgeBase, subject, _ store.Term, nodeTriples, _ []store.Triple) (store.Term, store.Term, bool) {
	var predicate, object store.Term
	for _, triple := range nodeTriples {
		switch triple.Predicate.Value {
		case store.RDFSubject:
			if triple.Object != subject {
				return store.Term{}, store.Term{}, false
			}
		case store.RDFPredicate:
			if predicate.IsZero() && triple.Object.IsIRI() {
				predicate = triple.Object
			}
		case store.RDFObject:
			if object.IsZero() {
				object = triple.Object
			}
		}
	}
	if predicate.IsZero() || object.IsZero() {
		return store.Term{}, store.Term{}, false
	}
	return predicate, object, true
}

func (standardEncoding) qualifier(_ kb.KnowledgeBase, node, property, value store.Term) store.Triple {
	return store.NewTriple(node, property, value)
}

func (standardEncoding) checkProperty(kb.KnowledgeBase, string) error {
	return nil
}

func (standardEncoding) qualifierProperty(_ kb.KnowledgeBase, triple store.Triple) (string, bool) {
	switch triple.Predicate.Value {
	case store.RDFSubject, store.RDFPredicate, store.RDFObject:
		return "", false
	case store.RDFType:
		if triple.Object == store.IRI(store.RDFStatement) {
			return "", false
		}
	}
	return triple.Predicate.Value, true
}
