// Package graph holds the statement model shared by every reification
// strategy: entity handles, typed values, statements and qualifiers, and the
// mapper converting values to and from store terms.
package graph

import "strings"

// Handle is a resolved reference to an identifier in a knowledge base. It is
// used for statement subjects, properties and qualifier properties.
//
// Handles are values; two handles are equal when their identifiers are.
type Handle struct {
	Identifier  string
	Name        string
	Description string
	Language    string
	Type        string
}

// HandleOption configures a Handle built by NewHandle.
type HandleOption func(*Handle)

// WithName sets the human-readable label.
func WithName(name string) HandleOption {
	return func(h *Handle) {
		h.Name = name
	}
}

// WithDescription sets the description.
func WithDescription(description string) HandleOption {
	return func(h *Handle) {
		h.Description = description
	}
}

// WithLanguage sets the language of the label and description.
func WithLanguage(language string) HandleOption {
	return func(h *Handle) {
		h.Language = language
	}
}

// WithType sets the type marker, usually the IRI of the handle's class.
func WithType(typeIRI string) HandleOption {
	return func(h *Handle) {
		h.Type = typeIRI
	}
}

// NewHandle creates a handle for identifier.
func NewHandle(identifier string, opts ...HandleOption) Handle {
	h := Handle{Identifier: identifier}
	for _, opt := range opts {
		opt(&h)
	}
	return h
}

// Equal reports whether h and other refer to the same identifier.
func (h Handle) Equal(other Handle) bool {
	return h.Identifier == other.Identifier
}

// IsZero reports whether the handle has no identifier.
func (h Handle) IsZero() bool {
	return h.Identifier == ""
}

// UIName returns the label, falling back to the local name of the identifier.
func (h Handle) UIName() string {
	if h.Name != "" {
		return h.Name
	}
	return LocalName(h.Identifier)
}

// String returns the identifier.
func (h Handle) String() string {
	return h.Identifier
}

// LocalName returns the part of an IRI after its last '#', '/' or ':'.
func LocalName(iri string) string {
	if idx := strings.LastIndexAny(iri, "#/:"); idx >= 0 && idx < len(iri)-1 {
		return iri[idx+1:]
	}
	return iri
}
