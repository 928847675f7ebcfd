// Package query provides SPARQL query parsing and data structures.
package query

import (
	"errors"
	"fmt"
)

// Query represents a parsed SPARQL query.
type Query struct {
	Type   QueryType
	Select *SelectQuery
}

// QueryType represents the type of SPARQL query.
type QueryType string

const (
	// SelectQueryType represents a SELECT query.
	SelectQueryType QueryType = "SELECT"
)

// SelectQuery represents a parsed SELECT query.
type SelectQuery struct {
	Variables []string          // Variables to select (e.g., ["?subject", "?predicate"])
	Distinct  bool              // DISTINCT modifier
	Where     []TriplePattern   // WHERE clause triple patterns
	Optional  [][]TriplePattern // OPTIONAL clause patterns
	Filters   []Filter          // FILTER clauses
	OrderBy   []OrderBy         // ORDER BY clauses
	Limit     int               // LIMIT (0 = no limit)
	Offset    int               // OFFSET (0 = no offset)
	Prefixes  map[string]string // Prefix declarations
}

// TriplePattern represents a triple pattern in a WHERE clause, as written.
type TriplePattern struct {
	Subject   string // Can be variable (?var), URI (<uri>), or prefixed (ex:Person)
	Predicate string
	Object    string // May also be a literal ("Ada", "Ada"@en, "36"^^xsd:integer)
}

// Filter represents a FILTER clause.
type Filter struct {
	Expression string // Filter expression (e.g., "CONTAINS(?name, \"Ada\")")
}

// OrderBy represents an ORDER BY clause.
type OrderBy struct {
	Variable   string
	Descending bool
}

// ErrEvaluation is the sentinel wrapped by every EvaluationError.
var ErrEvaluation = errors.New("query evaluation failed")

// EvaluationError reports a query that could not be parsed or evaluated,
// including evaluation that was cancelled or timed out.
type EvaluationError struct {
	Query string
	Err   error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrEvaluation, e.Err)
}

func (e *EvaluationError) Unwrap() []error {
	return []error{ErrEvaluation, e.Err}
}

// IsVariable checks if a string is a SPARQL variable.
func IsVariable(s string) bool {
	return len(s) > 1 && s[0] == '?'
}

// IsURI checks if a string is a URI reference (enclosed in angle brackets).
// Empty URIs (<>) are not considered valid.
func IsURI(s string) bool {
	return len(s) > 2 && s[0] == '<' && s[len(s)-1] == '>'
}

// IsLiteral checks if a string is a quoted literal, optionally followed by
// a language tag or datatype.
func IsLiteral(s string) bool {
	return len(s) >= 2 && s[0] == '"'
}

// IsPrefixed checks if a string is a prefixed name (e.g., ex:Person).
func IsPrefixed(s string) bool {
	if len(s) == 0 || s[0] == '?' || s[0] == '<' || s[0] == '"' || s[0] == '_' {
		return false
	}
	for i, c := range s {
		if c == ':' && i > 0 && i < len(s)-1 {
			return true
		}
	}
	return false
}

// StripVariable removes the ? prefix from a variable.
func StripVariable(s string) string {
	if IsVariable(s) {
		return s[1:]
	}
	return s
}

// StripURI removes the < > brackets from a URI.
func StripURI(s string) string {
	if IsURI(s) {
		return s[1 : len(s)-1]
	}
	return s
}
