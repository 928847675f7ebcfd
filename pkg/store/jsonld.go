package store

import (
	"encoding/json"
	"sort"
)

// JSONLDContext represents a JSON-LD @context document.
type JSONLDContext map[string]interface{}

// JSONLDSerializer converts triples into JSON-LD format.
type JSONLDSerializer struct {
	prefixes    prefixSet
	compactForm bool // If true, produce compact JSON-LD; otherwise expanded
}

// JSONLDOption is a functional option for configuring the JSONLDSerializer.
type JSONLDOption func(*JSONLDSerializer)

// NewJSONLDSerializer creates a JSONLDSerializer with standard prefix declarations.
func NewJSONLDSerializer(options ...JSONLDOption) *JSONLDSerializer {
	serializer := &JSONLDSerializer{
		prefixes:    defaultPrefixSet(),
		compactForm: true,
	}
	for _, option := range options {
		option(serializer)
	}
	return serializer
}

// WithJSONLDPrefix adds or overrides a prefix mapping.
func WithJSONLDPrefix(prefix, namespace string) JSONLDOption {
	return func(serializer *JSONLDSerializer) {
		serializer.prefixes.set(prefix, namespace)
	}
}

// WithExpandedForm configures the serializer to output expanded JSON-LD (no context compaction).
func WithExpandedForm() JSONLDOption {
	return func(serializer *JSONLDSerializer) {
		serializer.compactForm = false
	}
}

// BuildContext creates the JSON-LD @context document from prefix mappings.
func (serializer *JSONLDSerializer) BuildContext() JSONLDContext {
	context := make(JSONLDContext, len(serializer.prefixes.mappings))
	for _, mapping := range serializer.prefixes.mappings {
		context[mapping.Prefix] = mapping.Namespace
	}
	return context
}

// JSONLDDocument represents a complete JSON-LD document.
type JSONLDDocument struct {
	Context JSONLDContext            `json:"@context,omitempty"`
	Graph   []map[string]interface{} `json:"@graph"`
}

// Serialize converts all asserted triples in the store to JSON-LD.
func (serializer *JSONLDSerializer) Serialize(store *TripleStore) ([]byte, error) {
	return serializer.SerializeTriples(store.All())
}

// SerializeTriples converts the given triples to an indented JSON-LD
// document with one node object per subject, in subject order.
func (serializer *JSONLDSerializer) SerializeTriples(triples []Triple) ([]byte, error) {
	groups := make(map[string]map[string][]Term)
	subjects := make(map[string]Term)
	for _, triple := range triples {
		subjectKey := triple.Subject.Key()
		if _, exists := groups[subjectKey]; !exists {
			groups[subjectKey] = make(map[string][]Term)
			subjects[subjectKey] = triple.Subject
		}
		predicate := triple.Predicate.Value
		groups[subjectKey][predicate] = append(groups[subjectKey][predicate], triple.Object)
	}

	document := JSONLDDocument{Graph: make([]map[string]interface{}, 0, len(groups))}
	if serializer.compactForm {
		document.Context = serializer.BuildContext()
	}

	for _, subjectKey := range sortedKeys(groups) {
		document.Graph = append(document.Graph, serializer.buildNode(subjects[subjectKey], groups[subjectKey]))
	}

	return json.MarshalIndent(document, "", "  ")
}

func (serializer *JSONLDSerializer) buildNode(subject Term, predicateObjectMap map[string][]Term) map[string]interface{} {
	node := map[string]interface{}{"@id": serializer.nodeID(subject)}

	for _, predicate := range sortPredicatesTypeFirst(predicateObjectMap) {
		objects := predicateObjectMap[predicate]
		sort.Slice(objects, func(i, j int) bool {
			return objects[i].Key() < objects[j].Key()
		})

		if predicate == RDFType && allIRIs(objects) {
			types := make([]string, 0, len(objects))
			for _, object := range objects {
				types = append(types, serializer.compactURI(object.Value))
			}
			node["@type"] = types
			continue
		}

		values := make([]interface{}, 0, len(objects))
		for _, object := range objects {
			values = append(values, serializer.formatObject(object))
		}
		node[serializer.compactURI(predicate)] = values
	}

	return node
}

func (serializer *JSONLDSerializer) formatObject(object Term) interface{} {
	switch object.Kind {
	case TermIRI, TermBlankNode:
		return map[string]string{"@id": serializer.nodeID(object)}
	}

	value := map[string]string{"@value": object.Value}
	switch {
	case object.Lang != "":
		value["@language"] = object.Lang
	case object.Datatype != "" && object.Datatype != XSDString:
		value["@type"] = serializer.compactURI(object.Datatype)
	case serializer.compactForm:
		return object.Value
	}
	return value
}

func (serializer *JSONLDSerializer) nodeID(term Term) string {
	if term.IsBlank() {
		return term.Key()
	}
	return serializer.compactURI(term.Value)
}

// compactURI replaces a full namespace URI with its prefix form when the
// serializer writes a context.
func (serializer *JSONLDSerializer) compactURI(fullURI string) string {
	if !serializer.compactForm {
		return fullURI
	}

	prefix, local, ok := serializer.prefixes.split(fullURI, isValidLocalName)
	if !ok {
		return fullURI
	}
	return prefix + ":" + local
}

func allIRIs(terms []Term) bool {
	for _, term := range terms {
		if !term.IsIRI() {
			return false
		}
	}
	return true
}
