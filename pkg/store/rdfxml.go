package store

import (
	"fmt"
	"sort"
	"strings"
)

// RDFXMLSerializer converts triples into W3C-compliant RDF/XML format.
type RDFXMLSerializer struct {
	prefixes prefixSet
}

// RDFXMLOption is a functional option for configuring the RDFXMLSerializer.
type RDFXMLOption func(*RDFXMLSerializer)

// NewRDFXMLSerializer creates an RDFXMLSerializer with standard namespace declarations.
func NewRDFXMLSerializer(options ...RDFXMLOption) *RDFXMLSerializer {
	serializer := &RDFXMLSerializer{prefixes: defaultPrefixSet()}
	for _, option := range options {
		option(serializer)
	}
	return serializer
}

// WithRDFXMLPrefix adds or overrides a namespace prefix mapping.
func WithRDFXMLPrefix(prefix, namespace string) RDFXMLOption {
	return func(serializer *RDFXMLSerializer) {
		serializer.prefixes.set(prefix, namespace)
	}
}

// Serialize converts all asserted triples in the store to RDF/XML format.
func (serializer *RDFXMLSerializer) Serialize(store *TripleStore) (string, error) {
	return serializer.SerializeTriples(store.All())
}

// SerializeTriples converts the given triples to RDF/XML. Every predicate
// must be expressible as a qualified XML name; predicates outside the
// registered namespaces get generated ns0, ns1, ... prefixes.
func (serializer *RDFXMLSerializer) SerializeTriples(triples []Triple) (string, error) {
	namespaces := prefixSet{mappings: append([]PrefixMapping(nil), serializer.prefixes.mappings...)}
	namespaces.set("rdf", NamespaceRDF)

	groups := make(map[string]map[string][]Term)
	subjects := make(map[string]Term)
	elementNames := make(map[string]string)

	for _, triple := range triples {
		predicate := triple.Predicate.Value
		if _, known := elementNames[predicate]; !known {
			name, err := elementName(predicate, &namespaces)
			if err != nil {
				return "", err
			}
			elementNames[predicate] = name
		}

		subjectKey := triple.Subject.Key()
		if _, exists := groups[subjectKey]; !exists {
			groups[subjectKey] = make(map[string][]Term)
			subjects[subjectKey] = triple.Subject
		}
		groups[subjectKey][predicate] = append(groups[subjectKey][predicate], triple.Object)
	}

	var builder strings.Builder
	writeXMLHeader(&builder, namespaces)

	for _, subjectKey := range sortedKeys(groups) {
		predicateObjectMap := groups[subjectKey]

		builder.WriteString("\n")
		fmt.Fprintf(&builder, "  <rdf:Description %s>\n", nodeAttribute("rdf:about", subjects[subjectKey]))

		for _, predicate := range sortPredicatesTypeFirst(predicateObjectMap) {
			objects := predicateObjectMap[predicate]
			sort.Slice(objects, func(i, j int) bool {
				return objects[i].Key() < objects[j].Key()
			})
			for _, object := range objects {
				writeProperty(&builder, elementNames[predicate], object)
			}
		}

		builder.WriteString("  </rdf:Description>\n")
	}

	builder.WriteString("</rdf:RDF>\n")
	return builder.String(), nil
}

// writeXMLHeader writes the XML declaration and opening rdf:RDF element with namespace attributes.
func writeXMLHeader(builder *strings.Builder, namespaces prefixSet) {
	builder.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	builder.WriteString("<rdf:RDF")
	for _, mapping := range namespaces.sorted() {
		fmt.Fprintf(builder, "\n    xmlns:%s=\"%s\"", mapping.Prefix, escapeXMLAttribute(mapping.Namespace))
	}
	builder.WriteString(">\n")
}

// writeProperty writes a single predicate-object pair as an XML element.
func writeProperty(builder *strings.Builder, element string, object Term) {
	switch object.Kind {
	case TermIRI:
		fmt.Fprintf(builder, "    <%s %s/>\n", element, nodeAttribute("rdf:resource", object))
	case TermBlankNode:
		fmt.Fprintf(builder, "    <%s %s/>\n", element, nodeAttribute("", object))
	default:
		attribute := ""
		switch {
		case object.Lang != "":
			attribute = fmt.Sprintf(" xml:lang=\"%s\"", escapeXMLAttribute(object.Lang))
		case object.Datatype != "" && object.Datatype != XSDString:
			attribute = fmt.Sprintf(" rdf:datatype=\"%s\"", escapeXMLAttribute(object.Datatype))
		}
		fmt.Fprintf(builder, "    <%s%s>%s</%s>\n", element, attribute, escapeXMLText(object.Value), element)
	}
}

// nodeAttribute references an IRI through attribute, or a blank node
// through rdf:nodeID.
func nodeAttribute(attribute string, term Term) string {
	if term.IsBlank() {
		return fmt.Sprintf("rdf:nodeID=\"%s\"", escapeXMLAttribute(term.Value))
	}
	return fmt.Sprintf("%s=\"%s\"", attribute, escapeXMLAttribute(term.Value))
}

// elementName converts a predicate IRI to a prefixed element name, minting a
// prefix for its namespace when none is registered.
func elementName(predicate string, namespaces *prefixSet) (string, error) {
	if prefix, local, ok := namespaces.split(predicate, isXMLName); ok {
		return prefix + ":" + local, nil
	}

	split := strings.LastIndexAny(predicate, "#/") + 1
	if split == 0 || !isXMLName(predicate[split:]) {
		return "", fmt.Errorf("predicate %s cannot be written as an RDF/XML element", predicate)
	}
	prefix := fmt.Sprintf("ns%d", len(namespaces.mappings))
	namespaces.set(prefix, predicate[:split])
	return prefix + ":" + predicate[split:], nil
}

// isXMLName reports whether local can follow a prefix in an XML element name.
func isXMLName(local string) bool {
	if local == "" {
		return false
	}
	for i, char := range local {
		switch {
		case char == '_' || (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z'):
		case i > 0 && (char == '-' || char == '.' || (char >= '0' && char <= '9')):
		default:
			return false
		}
	}
	return true
}

// escapeXMLText escapes characters that are special in XML text content.
func escapeXMLText(text string) string {
	var builder strings.Builder
	builder.Grow(len(text) + len(text)/8)

	for _, char := range text {
		switch char {
		case '&':
			builder.WriteString("&amp;")
		case '<':
			builder.WriteString("&lt;")
		case '>':
			builder.WriteString("&gt;")
		default:
			builder.WriteRune(char)
		}
	}

	return builder.String()
}

// escapeXMLAttribute escapes characters that are special in XML attribute values.
func escapeXMLAttribute(text string) string {
	return strings.ReplaceAll(escapeXMLText(text), `"`, "&quot;")
}
