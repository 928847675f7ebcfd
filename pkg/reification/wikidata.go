package reification

import (
	"context"
	"fmt"
	"strings"

	"github.com/coolbeans/kbgraph/pkg/kb"
	"github.com/coolbeans/kbgraph/pkg/store"
)

// WikidataStyle encodes statements the way the Wikidata RDF dump does.
// Properties live in the knowledge base namespace; for a property with
// local name L:
//
//	s p:L st .
//	st ps:L o .
//	st pq:Q v .    (qualifier with property Q)
//
// where p, ps and pq are the claim, statement value and qualifier
// namespaces of the knowledge base.
type WikidataStyle struct {
	reified
}

// NewWikidataStyle creates the Wikidata-style strategy.
func NewWikidataStyle(service KnowledgeBaseService, opts ...Option) *WikidataStyle {
	return &WikidataStyle{reified: newReified(kb.ReificationWikidata, wikidataEncoding{}, service, opts)}
}

type wikidataEncoding struct{}

// localPart returns the name of a property inside the knowledge base
// namespace.
func localPart(kbase kb.KnowledgeBase, iri string) (string, bool) {
	if !strings.HasPrefix(iri, kbase.BaseNamespace) || len(iri) == len(kbase.BaseNamespace) {
		return "", false
	}
	return iri[len(kbase.BaseNamespace):], true
}

// checkProperty accepts only properties in the knowledge base namespace, the
// one namespace claim, value and qualifier predicates map back to.
func (wikidataEncoding) checkProperty(kbase kb.KnowledgeBase, iri string) error {
	if _, ok := localPart(kbase, iri); !ok {
		return fmt.Errorf("%w: property %s is outside namespace %s", ErrInvalidStatement, iri, kbase.BaseNamespace)
	}
	return nil
}

func (wikidataEncoding) pattern(kbase kb.KnowledgeBase, subject, predicate, object, node store.Term) []store.Triple {
	local, _ := localPart(kbase, predicate.Value)
	return []store.Triple{
		store.NewTriple(subject, store.IRI(kbase.ClaimNamespace+local), node),
		store.NewTriple(node, store.IRI(kbase.StatementValueNamespace+local), object),
	}
}

// nodes returns the objects of the claim triples about subject.
func (wikidataEncoding) nodes(_ context.Context, _ *reified, _ *kb.Connection, kbase kb.KnowledgeBase, subject store.Term, about []store.Triple, _ bool) ([]store.Term, error) {
	seen := make(map[store.Term]bool)
	var nodes []store.Term
	for _, triple := range about {
		if triple.Subject != subject || !triple.Object.IsIRI() || seen[triple.Object] {
			continue
		}
		if _, ok := claimLocal(kbase, triple.Predicate.Value); !ok {
			continue
		}
		seen[triple.Object] = true
		nodes = append(nodes, triple.Object)
	}
	return nodes, nil
}

// claimLocal returns L for a predicate p:L. Predicates in the statement
// value and qualifier namespaces, which sit under the claim namespace by
// default, are not claims.
func claimLocal(kbase kb.KnowledgeBase, iri string) (string, bool) {
	if strings.HasPrefix(iri, kbase.StatementValueNamespace) || strings.HasPrefix(iri, kbase.QualifierNamespace) {
		return "", false
	}
	if !strings.HasPrefix(iri, kbase.ClaimNamespace) || len(iri) == len(kbase.ClaimNamespace) {
		return "", false
	}
	return iri[len(kbase.ClaimNamespace):], true
}

func (wikidataEncoding) decode(kbase kb.KnowledgeBase, subject, node store.Term, nodeTriples, about []store.Triple) (store.Term, store.Term, bool) {
	for _, claim := range about {
		if claim.Subject != subject || claim.Object != node {
			continue
		}
		local, ok := claimLocal(kbase, claim.Predicate.Value)
		if !ok {
			continue
		}
		valuePredicate := store.IRI(kbase.StatementValueNamespace + local)
		for _, triple := range nodeTriples {
			if triple.Subject == node && triple.Predicate == valuePredicate {
				return store.IRI(kbase.BaseNamespace + local), triple.Object, true
			}
		}
	}
	return store.Term{}, store.Term{}, false
}

func (wikidataEncoding) qualifier(kbase kb.KnowledgeBase, node, property, value store.Term) store.Triple {
	local, _ := localPart(kbase, property.Value)
	return store.NewTriple(node, store.IRI(kbase.QualifierNamespace+local), value)
}

func (wikidataEncoding) qualifierProperty(kbase kb.KnowledgeBase, triple store.Triple) (string, bool) {
	iri := triple.Predicate.Value
	if !strings.HasPrefix(iri, kbase.QualifierNamespace) || len(iri) == len(kbase.QualifierNamespace) {
		return "", false
	}
	return kbase.BaseNamespace + iri[len(kbase.QualifierNamespace):], true
}
