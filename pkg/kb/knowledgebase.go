// Package kb manages knowledge bases: their configuration, the triple store
// repository behind each one, scoped connections and atomic updates, and the
// property and class listings used to resolve predicate IRIs to handles.
package kb

import (
	"fmt"
	"strings"

	"github.com/coolbeans/kbgraph/pkg/store"
)

// ReificationMode selects how statements and their qualifiers are encoded as
// triples.
type ReificationMode string

const (
	// ReificationNone stores each statement as a single triple and cannot
	// hold qualifiers.
	ReificationNone ReificationMode = "none"

	// ReificationStandard uses an rdf:Statement node per statement.
	ReificationStandard ReificationMode = "standard"

	// ReificationSingletonProperty uses a statement-specific predicate.
	ReificationSingletonProperty ReificationMode = "singleton-property"

	// ReificationWikidata uses Wikidata-style claim and statement nodes.
	ReificationWikidata ReificationMode = "wikidata"
)

// ReificationModes lists every supported mode.
var ReificationModes = []ReificationMode{
	ReificationNone,
	ReificationStandard,
	ReificationSingletonProperty,
	ReificationWikidata,
}

// ParseReificationMode parses a mode name. The empty string is ReificationNone.
func ParseReificationMode(s string) (ReificationMode, error) {
	if s == "" {
		return ReificationNone, nil
	}
	for _, mode := range ReificationModes {
		if strings.EqualFold(s, string(mode)) {
			return mode, nil
		}
	}
	return "", fmt.Errorf("unknown reification mode %q", s)
}

// KnowledgeBase describes one knowledge base and the schema conventions of
// the data in it.
type KnowledgeBase struct {
	ID              string
	Name            string
	ReificationMode ReificationMode
	ReadOnly        bool

	// DefaultLanguage is preferred when several labels exist.
	DefaultLanguage string

	// BaseNamespace is the namespace of entities created in this KB.
	BaseNamespace string

	// StatementNamespace is where statement nodes are minted.
	StatementNamespace string

	LabelIRI       string
	DescriptionIRI string
	TypeIRI        string
	SubclassIRI    string
	SubpropertyIRI string

	// PropertyTypeIRIs are the classes whose instances are properties.
	PropertyTypeIRIs []string

	// ClassTypeIRIs are the classes whose instances are classes.
	ClassTypeIRIs []string

	// Wikidata-style namespaces: properties are identified in the entity
	// namespace; claims, statement values and qualifiers use their own.
	ClaimNamespace          string
	StatementValueNamespace string
	QualifierNamespace      string
}

// WithDefaults returns kb with every unset schema field filled in.
func (kb KnowledgeBase) WithDefaults() KnowledgeBase {
	if kb.Name == "" {
		kb.Name = kb.ID
	}
	if kb.ReificationMode == "" {
		kb.ReificationMode = ReificationNone
	}
	if kb.BaseNamespace == "" {
		kb.BaseNamespace = "http://kbgraph.local/kb/" + kb.ID + "/"
	}
	if kb.StatementNamespace == "" {
		kb.StatementNamespace = kb.BaseNamespace + "statement/"
	}
	if kb.LabelIRI == "" {
		kb.LabelIRI = store.RDFSLabel
	}
	if kb.DescriptionIRI == "" {
		kb.DescriptionIRI = store.RDFSComment
	}
	if kb.TypeIRI == "" {
		kb.TypeIRI = store.RDFType
	}
	if kb.SubclassIRI == "" {
		kb.SubclassIRI = store.RDFSSubClassOf
	}
	if kb.SubpropertyIRI == "" {
		kb.SubpropertyIRI = store.RDFSSubPropertyOf
	}
	if len(kb.PropertyTypeIRIs) == 0 {
		kb.PropertyTypeIRIs = []string{store.RDFProperty, store.OWLObjectProperty, store.OWLDatatypeProperty}
	}
	if len(kb.ClassTypeIRIs) == 0 {
		kb.ClassTypeIRIs = []string{store.RDFSClass, store.OWLClass}
	}
	if kb.ClaimNamespace == "" {
		kb.ClaimNamespace = kb.BaseNamespace + "prop/"
	}
	if kb.StatementValueNamespace == "" {
		kb.StatementValueNamespace = kb.ClaimNamespace + "statement/"
	}
	if kb.QualifierNamespace == "" {
		kb.QualifierNamespace = kb.ClaimNamespace + "qualifier/"
	}
	return kb
}

// Validate checks that the knowledge base can be registered.
func (kb KnowledgeBase) Validate() error {
	if kb.ID == "" {
		return fmt.Errorf("knowledge base id is required")
	}
	if strings.ContainsAny(kb.ID, " \t\n/") {
		return fmt.Errorf("knowledge base id %q must not contain whitespace or '/'", kb.ID)
	}
	if _, err := ParseReificationMode(string(kb.ReificationMode)); err != nil {
		return fmt.Errorf("knowledge base %s: %w", kb.ID, err)
	}
	return nil
}

// Prefixes returns the prefixes available to queries against this knowledge
// base in addition to the standard vocabularies.
func (kb KnowledgeBase) Prefixes() map[string]string {
	prefixes := map[string]string{}
	if kb.BaseNamespace != "" {
		prefixes["kb"] = kb.BaseNamespace
	}
	if kb.StatementNamespace != "" {
		prefixes["st"] = kb.StatementNamespace
	}
	if kb.ReificationMode == ReificationWikidata {
		prefixes["p"] = kb.ClaimNamespace
		prefixes["ps"] = kb.StatementValueNamespace
		prefixes["pq"] = kb.QualifierNamespace
	}
	return prefixes
}
