package graph

import (
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/coolbeans/kbgraph/pkg/store"
)

// Kind is the kind of a Value. KindAny is used as a decoding hint only.
type Kind uint8

const (
	KindAny Kind = iota
	KindIRI
	KindString
	KindBoolean
	KindInteger
	KindDecimal
	KindDate
	KindDateTime
	KindTyped
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindDate:
		return "date"
	case KindDateTime:
		return "dateTime"
	case KindTyped:
		return "typed"
	default:
		return "any"
	}
}

// Value is the typed value of a statement or qualifier: a reference to
// another entity or a literal.
//
// Values hold the canonical lexical form of their kind, so two values
// compare equal with == exactly when they denote the same thing.
type Value struct {
	kind     Kind
	lexical  string
	lang     string
	datatype string // KindTyped only
}

// IRIValue creates a reference to the entity identified by iri.
func IRIValue(iri string) Value {
	return Value{kind: KindIRI, lexical: iri}
}

// StringValue creates an xsd:string literal.
func StringValue(s string) Value {
	return Value{kind: KindString, lexical: s}
}

// LangStringValue creates a language-tagged string literal.
func LangStringValue(s, lang string) Value {
	return Value{kind: KindString, lexical: s, lang: strings.ToLower(lang)}
}

// BoolValue creates an xsd:boolean literal.
func BoolValue(b bool) Value {
	return Value{kind: KindBoolean, lexical: strconv.FormatBool(b)}
}

// IntegerValue creates an xsd:integer literal.
func IntegerValue(i int64) Value {
	return Value{kind: KindInteger, lexical: strconv.FormatInt(i, 10)}
}

// DecimalValue creates an xsd:decimal literal from its lexical form, for
// example "12.50". It reports false when lexical is not a decimal.
func DecimalValue(lexical string) (Value, bool) {
	canonical, ok := canonicalDecimal(lexical)
	if !ok {
		return Value{}, false
	}
	return Value{kind: KindDecimal, lexical: canonical}, true
}

// DateValue creates an xsd:date literal for the calendar day of t.
func DateValue(t time.Time) Value {
	return Value{kind: KindDate, lexical: t.Format(dateLayout)}
}

// DateTimeValue creates an xsd:dateTime literal.
func DateTimeValue(t time.Time) Value {
	return Value{kind: KindDateTime, lexical: t.Format(time.RFC3339Nano)}
}

// TypedValue creates a literal with an arbitrary datatype. Lexical forms of
// the datatypes that have their own kind are canonicalized into that kind;
// anything else keeps its lexical form verbatim.
func TypedValue(lexical, datatype string) Value {
	return literalValue(lexical, datatype, "")
}

const dateLayout = "2006-01-02"

var (
	integerLexical = regexp.MustCompile(`^[+-]?\d+$`)
	decimalLexical = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
)

// literalValue builds the value of a literal term, preferring the most
// specific kind whose lexical space accepts the lexical form.
func literalValue(lexical, datatype, lang string) Value {
	switch datatype {
	case "", store.XSDString:
		return StringValue(lexical)
	case store.RDFLangString:
		return LangStringValue(lexical, lang)
	case store.XSDBoolean:
		switch lexical {
		case "true", "1":
			return BoolValue(true)
		case "false", "0":
			return BoolValue(false)
		}
	case store.XSDInteger:
		if integerLexical.MatchString(lexical) {
			var n big.Int
			if _, ok := n.SetString(strings.TrimPrefix(lexical, "+"), 10); ok {
				return Value{kind: KindInteger, lexical: n.String()}
			}
		}
	case store.XSDDecimal:
		if v, ok := DecimalValue(lexical); ok {
			return v
		}
	case store.XSDDate:
		if t, err := time.Parse(dateLayout, lexical); err == nil {
			return DateValue(t)
		}
	case store.XSDDateTime:
		if t, err := time.Parse(time.RFC3339Nano, lexical); err == nil {
			return DateTimeValue(t)
		}
	}
	return Value{kind: KindTyped, lexical: lexical, datatype: datatype}
}

// canonicalDecimal strips the sign of zero, a leading '+', leading zeros of
// the integer part and trailing zeros of the fraction.
func canonicalDecimal(lexical string) (string, bool) {
	if !decimalLexical.MatchString(lexical) {
		return "", false
	}

	negative := strings.HasPrefix(lexical, "-")
	lexical = strings.TrimLeft(lexical, "+-")

	intPart, fracPart, _ := strings.Cut(lexical, ".")
	intPart = strings.TrimLeft(intPart, "0")
	fracPart = strings.TrimRight(fracPart, "0")
	if intPart == "" {
		intPart = "0"
	}
	if fracPart == "" {
		fracPart = "0"
	}

	canonical := intPart + "." + fracPart
	if negative && canonical != "0.0" {
		canonical = "-" + canonical
	}
	return canonical, true
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsZero reports whether the value is unset.
func (v Value) IsZero() bool {
	return v == Value{}
}

// IsIRI reports whether the value references an entity.
func (v Value) IsIRI() bool {
	return v.kind == KindIRI
}

// Lexical returns the IRI or the canonical lexical form of the literal.
func (v Value) Lexical() string {
	return v.lexical
}

// Lang returns the language tag of a string literal.
func (v Value) Lang() string {
	return v.lang
}

// Datatype returns the datatype IRI of a literal value, or "" for IRIs.
func (v Value) Datatype() string {
	switch v.kind {
	case KindString:
		if v.lang != "" {
			return store.RDFLangString
		}
		return store.XSDString
	case KindBoolean:
		return store.XSDBoolean
	case KindInteger:
		return store.XSDInteger
	case KindDecimal:
		return store.XSDDecimal
	case KindDate:
		return store.XSDDate
	case KindDateTime:
		return store.XSDDateTime
	case KindTyped:
		return v.datatype
	default:
		return ""
	}
}

// Bool returns the value of a boolean literal.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBoolean {
		return false, false
	}
	return v.lexical == "true", true
}

// Int returns the value of an integer literal that fits in an int64.
func (v Value) Int() (int64, bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	i, err := strconv.ParseInt(v.lexical, 10, 64)
	return i, err == nil
}

// Float returns the value of an integer or decimal literal as a float64.
func (v Value) Float() (float64, bool) {
	if v.kind != KindInteger && v.kind != KindDecimal {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.lexical, 64)
	return f, err == nil
}

// Time returns the value of a date or dateTime literal.
func (v Value) Time() (time.Time, bool) {
	var (
		t   time.Time
		err error
	)
	switch v.kind {
	case KindDate:
		t, err = time.Parse(dateLayout, v.lexical)
	case KindDateTime:
		t, err = time.Parse(time.RFC3339Nano, v.lexical)
	default:
		return time.Time{}, false
	}
	return t, err == nil
}

// String renders the value in a Turtle-like form for display.
func (v Value) String() string {
	switch v.kind {
	case KindIRI:
		return "<" + v.lexical + ">"
	case KindString:
		if v.lang != "" {
			return strconv.Quote(v.lexical) + "@" + v.lang
		}
		return strconv.Quote(v.lexical)
	case KindAny:
		return ""
	default:
		return strconv.Quote(v.lexical) + "^^<" + v.Datatype() + ">"
	}
}
