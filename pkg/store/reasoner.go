package store

// Reasoner derives entailed triples from the asserted ones. The result may
// include asserted triples; the store drops those.
type Reasoner interface {
	Infer(explicit []Triple) []Triple
}

// RDFSReasoner implements the subset of RDFS entailment the store supports:
//   - rdfs:subPropertyOf and rdfs:subClassOf are transitive
//   - (s p o), p rdfs:subPropertyOf q  =>  (s q o)
//   - (s rdf:type c), c rdfs:subClassOf d  =>  (s rdf:type d)
type RDFSReasoner struct{}

// Infer computes the entailed triples.
func (RDFSReasoner) Infer(explicit []Triple) []Triple {
	subProperty := IRI(RDFSSubPropertyOf)
	subClass := IRI(RDFSSubClassOf)
	rdfType := IRI(RDFType)

	superProperties := closure(explicit, subProperty)
	superClasses := closure(explicit, subClass)

	seen := make(map[string]bool)
	var inferred []Triple
	emit := func(triple Triple) {
		key := triple.Key()
		if seen[key] {
			return
		}
		seen[key] = true
		inferred = append(inferred, triple)
	}

	for _, h := range []struct {
		predicate Term
		supers    map[string][]Term
		byKey     map[string]Term
	}{
		{subProperty, superProperties.supers, superProperties.terms},
		{subClass, superClasses.supers, superClasses.terms},
	} {
		for key, supers := range h.supers {
			for _, super := range supers {
				emit(NewTriple(h.byKey[key], h.predicate, super))
			}
		}
	}

	// Property inheritance first, so that sub-properties of rdf:type feed the
	// class step.
	withProperties := make([]Triple, 0, len(explicit))
	withProperties = append(withProperties, explicit...)
	for _, triple := range explicit {
		for _, super := range superProperties.supers[triple.Predicate.Key()] {
			if !super.IsIRI() {
				continue
			}
			derived := NewTriple(triple.Subject, super, triple.Object)
			emit(derived)
			withProperties = append(withProperties, derived)
		}
	}

	for _, triple := range withProperties {
		if triple.Predicate != rdfType {
			continue
		}
		for _, super := range superClasses.supers[triple.Object.Key()] {
			emit(NewTriple(triple.Subject, rdfType, super))
		}
	}

	return inferred
}

type hierarchy struct {
	supers map[string][]Term // term key -> all transitive supers
	terms  map[string]Term   // term key -> term
}

// closure computes the transitive closure of a hierarchy predicate.
func closure(triples []Triple, predicate Term) hierarchy {
	direct := make(map[string][]Term)
	terms := make(map[string]Term)
	for _, triple := range triples {
		if triple.Predicate != predicate {
			continue
		}
		key := triple.Subject.Key()
		terms[key] = triple.Subject
		direct[key] = append(direct[key], triple.Object)
	}

	result := hierarchy{
		supers: make(map[string][]Term, len(direct)),
		terms:  terms,
	}
	for key, parents := range direct {
		visited := map[string]bool{key: true}
		queue := append([]Term(nil), parents...)
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			currentKey := current.Key()
			if visited[currentKey] {
				continue
			}
			visited[currentKey] = true
			result.supers[key] = append(result.supers[key], current)
			queue = append(queue, direct[currentKey]...)
		}
	}
	return result
}
