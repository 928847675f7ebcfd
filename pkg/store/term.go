package store

import (
	"fmt"
	"strings"
)

// TermKind identifies the kind of an RDF term.
type TermKind uint8

const (
	// TermNone is the zero kind. A zero Term acts as a wildcard in patterns.
	TermNone TermKind = iota
	// TermIRI is an IRI reference.
	TermIRI
	// TermBlankNode is a blank node.
	TermBlankNode
	// TermLiteral is a literal with a datatype and optional language tag.
	TermLiteral
)

// String returns the kind name.
func (k TermKind) String() string {
	switch k {
	case TermIRI:
		return "iri"
	case TermBlankNode:
		return "bnode"
	case TermLiteral:
		return "literal"
	default:
		return "none"
	}
}

// Term is an RDF term as held by the store.
//
// Literals always carry a datatype: plain literals are xsd:string and
// language-tagged literals are rdf:langString.
type Term struct {
	Kind     TermKind
	Value    string // IRI, blank node label, or literal lexical form
	Datatype string // literal datatype IRI
	Lang     string // literal language tag (lower case)
}

// IRI creates an IRI term.
func IRI(value string) Term {
	return Term{Kind: TermIRI, Value: value}
}

// BlankNode creates a blank node term with the given label.
func BlankNode(label string) Term {
	return Term{Kind: TermBlankNode, Value: label}
}

// Literal creates a plain xsd:string literal.
func Literal(lexical string) Term {
	return Term{Kind: TermLiteral, Value: lexical, Datatype: XSDString}
}

// TypedLiteral creates a literal with an explicit datatype. An empty datatype
// defaults to xsd:string.
func TypedLiteral(lexical, datatype string) Term {
	if datatype == "" {
		datatype = XSDString
	}
	return Term{Kind: TermLiteral, Value: lexical, Datatype: datatype}
}

// LangLiteral creates a language-tagged literal.
func LangLiteral(lexical, lang string) Term {
	if lang == "" {
		return Literal(lexical)
	}
	return Term{Kind: TermLiteral, Value: lexical, Datatype: RDFLangString, Lang: strings.ToLower(lang)}
}

// IsZero reports whether the term is unset.
func (t Term) IsZero() bool {
	return t.Kind == TermNone
}

// IsIRI reports whether the term is an IRI.
func (t Term) IsIRI() bool { return t.Kind == TermIRI }

// IsBlank reports whether the term is a blank node.
func (t Term) IsBlank() bool { return t.Kind == TermBlankNode }

// IsLiteral reports whether the term is a literal.
func (t Term) IsLiteral() bool { return t.Kind == TermLiteral }

// Key returns the N-Triples encoding of the term. Keys are unique per term
// and are what the store indexes by.
func (t Term) Key() string {
	switch t.Kind {
	case TermIRI:
		return "<" + escapeIRI(t.Value) + ">"
	case TermBlankNode:
		return "_:" + t.Value
	case TermLiteral:
		quoted := `"` + escapeLiteralString(t.Value) + `"`
		if t.Lang != "" {
			return quoted + "@" + t.Lang
		}
		if t.Datatype == "" || t.Datatype == XSDString {
			return quoted
		}
		return quoted + "^^<" + escapeIRI(t.Datatype) + ">"
	default:
		return ""
	}
}

// String returns a human-readable form of the term: the bare IRI, the blank
// node label, or the literal lexical form.
func (t Term) String() string {
	switch t.Kind {
	case TermBlankNode:
		return "_:" + t.Value
	case TermNone:
		return ""
	default:
		return t.Value
	}
}

// ParseTerm decodes a single N-Triples term as produced by Key.
func ParseTerm(encoded string) (Term, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return Term{}, fmt.Errorf("empty term")
	}

	switch {
	case strings.HasPrefix(encoded, "<"):
		if !strings.HasSuffix(encoded, ">") || len(encoded) < 3 {
			return Term{}, fmt.Errorf("malformed IRI %q", encoded)
		}
		return IRI(unescapeIRI(encoded[1 : len(encoded)-1])), nil

	case strings.HasPrefix(encoded, "_:"):
		label := encoded[2:]
		if label == "" {
			return Term{}, fmt.Errorf("empty blank node label")
		}
		return BlankNode(label), nil

	case strings.HasPrefix(encoded, `"`):
		end := closingQuote(encoded)
		if end < 0 {
			return Term{}, fmt.Errorf("unterminated literal %q", encoded)
		}
		lexical, err := unescapeLiteralString(encoded[1:end])
		if err != nil {
			return Term{}, err
		}
		rest := encoded[end+1:]
		switch {
		case rest == "":
			return Literal(lexical), nil
		case strings.HasPrefix(rest, "@"):
			if len(rest) == 1 {
				return Term{}, fmt.Errorf("empty language tag in %q", encoded)
			}
			return LangLiteral(lexical, rest[1:]), nil
		case strings.HasPrefix(rest, "^^<") && strings.HasSuffix(rest, ">"):
			return TypedLiteral(lexical, unescapeIRI(rest[3:len(rest)-1])), nil
		default:
			return Term{}, fmt.Errorf("malformed literal suffix %q", rest)
		}
	}

	return Term{}, fmt.Errorf("unrecognized term %q", encoded)
}

// closingQuote returns the index of the unescaped quote that closes the
// literal starting at index 0, or -1.
func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func unescapeLiteralString(value string) (string, error) {
	if !strings.Contains(value, `\`) {
		return value, nil
	}

	var builder strings.Builder
	builder.Grow(len(value))
	for i := 0; i < len(value); i++ {
		char := value[i]
		if char != '\\' {
			builder.WriteByte(char)
			continue
		}
		i++
		if i >= len(value) {
			return "", fmt.Errorf("dangling escape in literal")
		}
		switch value[i] {
		case '\\':
			builder.WriteByte('\\')
		case '"':
			builder.WriteByte('"')
		case 'n':
			builder.WriteByte('\n')
		case 'r':
			builder.WriteByte('\r')
		case 't':
			builder.WriteByte('\t')
		default:
			return "", fmt.Errorf("unsupported escape \\%c in literal", value[i])
		}
	}
	return builder.String(), nil
}

func unescapeIRI(iri string) string {
	if !strings.Contains(iri, `\u`) {
		return iri
	}
	replacer := strings.NewReplacer(
		`\u003C`, "<",
		`\u003E`, ">",
		`\u0022`, `"`,
		`\u0020`, " ",
		`\u007B`, "{",
		`\u007D`, "}",
	)
	return replacer.Replace(iri)
}
