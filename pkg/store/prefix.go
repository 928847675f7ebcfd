package store

import "sort"

// PrefixMapping associates a short prefix label with its full namespace URI.
type PrefixMapping struct {
	Prefix    string
	Namespace string
}

// prefixSet is the prefix table of a serializer.
type prefixSet struct {
	mappings []PrefixMapping
}

func defaultPrefixSet() prefixSet {
	return prefixSet{mappings: []PrefixMapping{
		{Prefix: "owl", Namespace: NamespaceOWL},
		{Prefix: "rdf", Namespace: NamespaceRDF},
		{Prefix: "rdfs", Namespace: NamespaceRDFS},
		{Prefix: "xsd", Namespace: NamespaceXSD},
	}}
}

// set adds prefix or rebinds it to namespace.
func (p *prefixSet) set(prefix, namespace string) {
	for i, mapping := range p.mappings {
		if mapping.Prefix == prefix {
			p.mappings[i].Namespace = namespace
			return
		}
	}
	p.mappings = append(p.mappings, PrefixMapping{Prefix: prefix, Namespace: namespace})
}

func (p *prefixSet) clear() {
	p.mappings = nil
}

// lookup returns the namespace bound to prefix.
func (p prefixSet) lookup(prefix string) (string, bool) {
	for _, mapping := range p.mappings {
		if mapping.Prefix == prefix {
			return mapping.Namespace, true
		}
	}
	return "", false
}

// sorted returns the mappings ordered by prefix.
func (p prefixSet) sorted() []PrefixMapping {
	sorted := append([]PrefixMapping(nil), p.mappings...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Prefix < sorted[j].Prefix
	})
	return sorted
}

// split finds the longest namespace that iri starts with whose remainder
// is accepted by validLocal.
func (p prefixSet) split(iri string, validLocal func(string) bool) (prefix, local string, ok bool) {
	best := -1
	for i, mapping := range p.mappings {
		namespace := mapping.Namespace
		if len(iri) <= len(namespace) || iri[:len(namespace)] != namespace {
			continue
		}
		if best >= 0 && len(namespace) <= len(p.mappings[best].Namespace) {
			continue
		}
		if validLocal(iri[len(namespace):]) {
			best = i
		}
	}
	if best < 0 {
		return "", "", false
	}
	return p.mappings[best].Prefix, iri[len(p.mappings[best].Namespace):], true
}
