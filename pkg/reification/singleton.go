package reification

import (
	"context"

	"github.com/coolbeans/kbgraph/pkg/kb"
	"github.com/coolbeans/kbgraph/pkg/query"
	"github.com/coolbeans/kbgraph/pkg/store"
)

// SingletonProperty asserts each statement with a predicate of its own,
// linked to the generic property:
//
//	s sp o .
//	sp rdf:singletonPropertyOf p .
//
// Qualifiers are further triples on sp.
type SingletonProperty struct {
	reified
}

// NewSingletonProperty creates the singleton property strategy.
func NewSingletonProperty(service KnowledgeBaseService, opts ...Option) *SingletonProperty {
	return &SingletonProperty{reified: newReified(kb.ReificationSingletonProperty, singletonEncoding{}, service, opts)}
}

const singletonNodesQuery = "SELECT ?sp WHERE { ?s ?sp ?o . ?sp ?singletonOf ?p . }"

type singletonEncoding struct{}

func (singletonEncoding) pattern(_ kb.KnowledgeBase, subject, predicate, object, node store.Term) []store.Triple {
	return []store.Triple{
		store.NewTriple(subject, node, object),
		store.NewTriple(node, store.IRI(store.RDFSingletonPropertyOf), predicate),
	}
}

func (singletonEncoding) nodes(ctx context.Context, r *reified, conn *kb.Connection, _ kb.KnowledgeBase, subject store.Term, _ []store.Triple, includeInferred bool) ([]store.Term, error) {
	return r.selectTerms(ctx, conn, singletonNodesQuery, query.Binding{
		"s":           subject,
		"singletonOf": store.IRI(store.RDFSingletonPropertyOf),
	}, "sp", includeInferred)
}

// decode takes the first value asserted with the singleton property; a
// singleton property carries exactly one statement.
func (singletonEncoding) decode(_ kb.KnowledgeBase, subject, node store.Term, nodeTriples, about []store.Triple) (store.Term, store.Term, bool) {
	var predicate store.Term
	for _, triple := range nodeTriples {
		if triple.Predicate.Value == store.RDFSingletonPropertyOf && triple.Object.IsIRI() {
			predicate = triple.Object
			break
		}
	}
	if predicate.IsZero() {
		return store.Term{}, store.Term{}, false
	}
	for _, triple := range about {
		if triple.Subject == subject && triple.Predicate == node {
			return predicate, triple.Object, true
		}
	}
	return store.Term{}, store.Term{}, false
}

func (singletonEncoding) qualifier(_ kb.KnowledgeBase, node, property, value store.Term) store.Triple {
	return store.NewTriple(node, property, value)
}

func (singletonEncoding) checkProperty(kb.KnowledgeBase, string) error {
	return nil
}

func (singletonEncoding) qualifierProperty(_ kb.KnowledgeBase, triple store.Triple) (string, bool) {
	if triple.Predicate.Value == store.RDFSingletonPropertyOf {
		return "", false
	}
	return triple.Predicate.Value, true
}
