// Package store provides an in-memory RDF triple store with explicit and
// inferred partitions, atomic transactions and RDF serialization.
package store

// Namespace URIs for the vocabularies the store and its callers rely on.
const (
	// NamespaceRDF is the standard RDF namespace.
	NamespaceRDF = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

	// NamespaceRDFS is the RDF Schema namespace.
	NamespaceRDFS = "http://www.w3.org/2000/01/rdf-schema#"

	// NamespaceOWL is the Web Ontology Language namespace.
	NamespaceOWL = "http://www.w3.org/2002/07/owl#"

	// NamespaceXSD is the XML Schema namespace for datatypes.
	NamespaceXSD = "http://www.w3.org/2001/XMLSchema#"

	// NamespaceSKOS is the SKOS namespace, used for labels in many KBs.
	NamespaceSKOS = "http://www.w3.org/2004/02/skos/core#"

	// NamespaceSchema is the schema.org namespace.
	NamespaceSchema = "http://schema.org/"
)

// RDF vocabulary.
const (
	// RDFType indicates the class of a resource.
	RDFType = NamespaceRDF + "type"

	// RDFProperty is the class of RDF properties.
	RDFProperty = NamespaceRDF + "Property"

	// RDFStatement is the class of reified statements.
	RDFStatement = NamespaceRDF + "Statement"

	// RDFSubject, RDFPredicate and RDFObject describe a reified statement.
	RDFSubject   = NamespaceRDF + "subject"
	RDFPredicate = NamespaceRDF + "predicate"
	RDFObject    = NamespaceRDF + "object"

	// RDFLangString is the datatype of language-tagged literals.
	RDFLangString = NamespaceRDF + "langString"

	// RDFSingletonPropertyOf links a singleton property to its generic property.
	RDFSingletonPropertyOf = NamespaceRDF + "singletonPropertyOf"
)

// RDFS vocabulary.
const (
	// RDFSLabel provides a human-readable label.
	RDFSLabel = NamespaceRDFS + "label"

	// RDFSComment provides a description.
	RDFSComment = NamespaceRDFS + "comment"

	// RDFSClass is the class of classes.
	RDFSClass = NamespaceRDFS + "Class"

	// RDFSSubClassOf indicates class hierarchy.
	RDFSSubClassOf = NamespaceRDFS + "subClassOf"

	// RDFSSubPropertyOf indicates property hierarchy.
	RDFSSubPropertyOf = NamespaceRDFS + "subPropertyOf"

	// RDFSDomain and RDFSRange constrain property usage.
	RDFSDomain = NamespaceRDFS + "domain"
	RDFSRange  = NamespaceRDFS + "range"
)

// OWL vocabulary.
const (
	OWLClass            = NamespaceOWL + "Class"
	OWLObjectProperty   = NamespaceOWL + "ObjectProperty"
	OWLDatatypeProperty = NamespaceOWL + "DatatypeProperty"
)

// XSD datatypes.
const (
	XSDString   = NamespaceXSD + "string"
	XSDBoolean  = NamespaceXSD + "boolean"
	XSDInteger  = NamespaceXSD + "integer"
	XSDInt      = NamespaceXSD + "int"
	XSDLong     = NamespaceXSD + "long"
	XSDDecimal  = NamespaceXSD + "decimal"
	XSDDouble   = NamespaceXSD + "double"
	XSDFloat    = NamespaceXSD + "float"
	XSDDate     = NamespaceXSD + "date"
	XSDDateTime = NamespaceXSD + "dateTime"
)

// DefaultPrefixes returns the prefixes understood everywhere without a
// PREFIX declaration.
func DefaultPrefixes() map[string]string {
	return map[string]string{
		"rdf":  NamespaceRDF,
		"rdfs": NamespaceRDFS,
		"owl":  NamespaceOWL,
		"xsd":  NamespaceXSD,
		"skos": NamespaceSKOS,
	}
}
