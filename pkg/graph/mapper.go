package graph

import (
	"errors"
	"fmt"

	"github.com/coolbeans/kbgraph/pkg/store"
)

// ErrValueDecoding is matched by every ValueDecodingError.
var ErrValueDecoding = errors.New("value decoding failed")

// ValueDecodingError reports a value that has no representation on the other
// side of the mapping: a blank node or unset term read from the store, a term
// that does not conform to the requested kind, or an unset value written to it.
type ValueDecodingError struct {
	Term   store.Term
	Value  Value
	Hint   Kind
	Reason string
}

func (e *ValueDecodingError) Error() string {
	if !e.Term.IsZero() {
		return fmt.Sprintf("%v: term %s as %s: %s", ErrValueDecoding, e.Term.Key(), e.Hint, e.Reason)
	}
	return fmt.Sprintf("%v: value %q: %s", ErrValueDecoding, e.Value.String(), e.Reason)
}

func (e *ValueDecodingError) Unwrap() error {
	return ErrValueDecoding
}

// ValueMapper converts statement values to store terms and back. The zero
// value is ready to use; it holds no state.
type ValueMapper struct{}

// ToStoreValue converts v to the store term representing it.
func (ValueMapper) ToStoreValue(v Value) (store.Term, error) {
	switch v.kind {
	case KindAny:
		return store.Term{}, &ValueDecodingError{Value: v, Reason: "value is unset"}
	case KindIRI:
		if v.lexical == "" {
			return store.Term{}, &ValueDecodingError{Value: v, Reason: "empty IRI"}
		}
		return store.IRI(v.lexical), nil
	case KindString:
		if v.lang != "" {
			return store.LangLiteral(v.lexical, v.lang), nil
		}
		return store.Literal(v.lexical), nil
	default:
		return store.TypedLiteral(v.lexical, v.Datatype()), nil
	}
}

// FromStoreValue converts a store term to a value. With KindAny any IRI or
// literal is accepted; any other hint requires the term to conform to that
// kind. Blank nodes and unset terms always fail.
func (ValueMapper) FromStoreValue(t store.Term, hint Kind) (Value, error) {
	fail := func(reason string) (Value, error) {
		return Value{}, &ValueDecodingError{Term: t, Hint: hint, Reason: reason}
	}

	switch t.Kind {
	case store.TermNone:
		return Value{}, &ValueDecodingError{Hint: hint, Reason: "null value"}
	case store.TermBlankNode:
		return fail("blank node values are not supported")
	case store.TermIRI:
		if hint != KindAny && hint != KindIRI {
			return fail("expected a literal")
		}
		return IRIValue(t.Value), nil
	}

	if hint == KindIRI {
		return fail("expected an IRI")
	}

	v := literalValue(t.Value, t.Datatype, t.Lang)
	switch {
	case hint == KindAny, hint == v.kind:
		return v, nil
	case hint == KindTyped:
		return Value{kind: KindTyped, lexical: t.Value, datatype: t.Datatype}, nil
	case hint == KindDecimal && v.kind == KindInteger:
		return Value{kind: KindDecimal, lexical: v.lexical + ".0"}, nil
	}
	return fail(fmt.Sprintf("literal of datatype <%s> is not a valid %s", t.Datatype, hint))
}
