package store

import (
	"fmt"
	"sort"
	"strings"
)

// TurtleSerializer converts triples into W3C-compliant Turtle (TTL) format.
type TurtleSerializer struct {
	prefixes prefixSet
}

// TurtleOption is a functional option for configuring the TurtleSerializer.
type TurtleOption func(*TurtleSerializer)

// NewTurtleSerializer creates a TurtleSerializer with standard prefix declarations.
func NewTurtleSerializer(options ...TurtleOption) *TurtleSerializer {
	serializer := &TurtleSerializer{prefixes: defaultPrefixSet()}
	for _, option := range options {
		option(serializer)
	}
	return serializer
}

// WithPrefix adds or overrides a prefix mapping.
func WithPrefix(prefix, namespace string) TurtleOption {
	return func(serializer *TurtleSerializer) {
		serializer.prefixes.set(prefix, namespace)
	}
}

// WithoutDefaultPrefixes clears default prefixes so only custom ones are used.
func WithoutDefaultPrefixes() TurtleOption {
	return func(serializer *TurtleSerializer) {
		serializer.prefixes.clear()
	}
}

// Serialize converts all asserted triples in the store to Turtle format.
func (serializer *TurtleSerializer) Serialize(store *TripleStore) string {
	return serializer.SerializeTriples(store.All())
}

// SerializeTriples converts the given triples to Turtle format. Output is
// deterministic: subjects, predicates (rdf:type first) and objects are sorted.
func (serializer *TurtleSerializer) SerializeTriples(triples []Triple) string {
	var builder strings.Builder

	serializer.writePrefixDeclarations(&builder)

	subjectGroups, subjects := serializer.groupTriplesBySubject(triples)
	sortedSubjects := sortedKeys(subjectGroups)

	for subjectIndex, subjectKey := range sortedSubjects {
		if subjectIndex > 0 {
			builder.WriteString("\n")
		}
		serializer.writeSubjectGroup(&builder, subjects[subjectKey], subjectGroups[subjectKey])
	}

	return builder.String()
}

func (serializer *TurtleSerializer) writePrefixDeclarations(builder *strings.Builder) {
	mappings := serializer.prefixes.sorted()
	for _, mapping := range mappings {
		fmt.Fprintf(builder, "@prefix %s: <%s> .\n", mapping.Prefix, mapping.Namespace)
	}
	if len(mappings) > 0 {
		builder.WriteString("\n")
	}
}

// groupTriplesBySubject organizes triples into subject key -> predicate IRI -> []object.
func (serializer *TurtleSerializer) groupTriplesBySubject(triples []Triple) (map[string]map[string][]Term, map[string]Term) {
	subjectGroups := make(map[string]map[string][]Term)
	subjects := make(map[string]Term)

	for _, triple := range triples {
		subjectKey := triple.Subject.Key()
		if _, exists := subjectGroups[subjectKey]; !exists {
			subjectGroups[subjectKey] = make(map[string][]Term)
			subjects[subjectKey] = triple.Subject
		}
		predicate := triple.Predicate.Value
		subjectGroups[subjectKey][predicate] = append(subjectGroups[subjectKey][predicate], triple.Object)
	}

	return subjectGroups, subjects
}

func (serializer *TurtleSerializer) writeSubjectGroup(
	builder *strings.Builder,
	subject Term,
	predicateObjectMap map[string][]Term,
) {
	builder.WriteString(serializer.formatResource(subject))

	sortedPredicates := sortPredicatesTypeFirst(predicateObjectMap)

	for predicateIndex, predicate := range sortedPredicates {
		objects := predicateObjectMap[predicate]
		sort.Slice(objects, func(i, j int) bool {
			return objects[i].Key() < objects[j].Key()
		})

		if predicateIndex == 0 {
			builder.WriteString(" ")
		} else {
			builder.WriteString(" ;\n    ")
		}

		builder.WriteString(serializer.formatPredicate(predicate))

		for objectIndex, object := range objects {
			if objectIndex > 0 {
				builder.WriteString(" ,\n        ")
			} else {
				builder.WriteString(" ")
			}
			builder.WriteString(serializer.formatObject(object))
		}
	}

	builder.WriteString(" .\n")
}

// formatResource formats a subject (an IRI or blank node).
func (serializer *TurtleSerializer) formatResource(value Term) string {
	if value.IsBlank() {
		return value.Key()
	}
	return serializer.formatIRI(value.Value)
}

func (serializer *TurtleSerializer) formatIRI(iri string) string {
	if compacted, ok := serializer.compactURI(iri); ok {
		return compacted
	}
	return "<" + escapeIRI(iri) + ">"
}

// formatPredicate formats a predicate, using "a" shorthand for rdf:type.
func (serializer *TurtleSerializer) formatPredicate(predicate string) string {
	if predicate == RDFType {
		return "a"
	}
	return serializer.formatIRI(predicate)
}

// formatObject formats an object which may be an IRI, blank node or literal.
func (serializer *TurtleSerializer) formatObject(value Term) string {
	switch value.Kind {
	case TermIRI:
		return serializer.formatIRI(value.Value)
	case TermBlankNode:
		return value.Key()
	}

	literal := formatLiteral(value.Value)
	switch {
	case value.Lang != "":
		return literal + "@" + value.Lang
	case value.Datatype == "" || value.Datatype == XSDString:
		return literal
	default:
		return literal + "^^" + serializer.formatIRI(value.Datatype)
	}
}

// compactURI replaces a full namespace URI with its prefix form.
func (serializer *TurtleSerializer) compactURI(fullURI string) (string, bool) {
	prefix, local, ok := serializer.prefixes.split(fullURI, isValidLocalName)
	if !ok {
		return "", false
	}
	return prefix + ":" + local, true
}

// sortPredicatesTypeFirst sorts predicates with rdf:type first, then alphabetically.
func sortPredicatesTypeFirst(predicateObjectMap map[string][]Term) []string {
	predicates := make([]string, 0, len(predicateObjectMap))
	hasRDFType := false

	for predicate := range predicateObjectMap {
		if predicate == RDFType {
			hasRDFType = true
		} else {
			predicates = append(predicates, predicate)
		}
	}

	sort.Strings(predicates)

	if hasRDFType {
		predicates = append([]string{RDFType}, predicates...)
	}

	return predicates
}

// isValidLocalName checks if a string is a valid Turtle local name.
func isValidLocalName(localName string) bool {
	if localName == "" {
		return false
	}
	if strings.HasSuffix(localName, ".") {
		return false
	}
	return !strings.ContainsAny(localName, " \t\n\r<>\"{}|^`\\/#:?=&%")
}

// formatLiteral wraps a string value in Turtle-compliant double quotes.
func formatLiteral(value string) string {
	escaped := escapeLiteralString(value)

	if strings.Contains(value, "\n") {
		return `"""` + escaped + `"""`
	}

	return `"` + escaped + `"`
}

// escapeLiteralString escapes special characters per the W3C Turtle grammar.
func escapeLiteralString(value string) string {
	var builder strings.Builder
	builder.Grow(len(value) + len(value)/8)

	for _, char := range value {
		switch char {
		case '\\':
			builder.WriteString(`\\`)
		case '"':
			builder.WriteString(`\"`)
		case '\n':
			builder.WriteString(`\n`)
		case '\r':
			builder.WriteString(`\r`)
		case '\t':
			builder.WriteString(`\t`)
		default:
			builder.WriteRune(char)
		}
	}

	return builder.String()
}

// escapeIRI escapes characters not allowed in IRIs within angle brackets.
func escapeIRI(iri string) string {
	var builder strings.Builder
	builder.Grow(len(iri))

	for _, char := range iri {
		switch char {
		case '<':
			builder.WriteString(`\u003C`)
		case '>':
			builder.WriteString(`\u003E`)
		case '"':
			builder.WriteString(`\u0022`)
		case ' ':
			builder.WriteString(`\u0020`)
		case '{':
			builder.WriteString(`\u007B`)
		case '}':
			builder.WriteString(`\u007D`)
		default:
			builder.WriteRune(char)
		}
	}

	return builder.String()
}

// sortedKeys returns the keys of a map sorted alphabetically.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
