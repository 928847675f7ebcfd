package query

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	prefixRegex    = regexp.MustCompile(`(?i)PREFIX\s+(\w*):\s*<([^>]+)>`)
	distinctRegex  = regexp.MustCompile(`(?i)\bSELECT\s+DISTINCT\b`)
	distinctWord   = regexp.MustCompile(`(?i)\bDISTINCT\b`)
	selectRegex    = regexp.MustCompile(`(?i)SELECT\s+([\s\S]*?)\s+WHERE`)
	selectVarRegex = regexp.MustCompile(`\?(\w+)`)
	whereRegex     = regexp.MustCompile(`(?i)WHERE\s*\{([\s\S]*)\}`)
	optionalRegex  = regexp.MustCompile(`(?i)OPTIONAL\s*\{([^}]+)\}`)
	filterKeyword  = regexp.MustCompile(`(?i)\bFILTER\s*\(`)
	orderByRegex   = regexp.MustCompile(`(?i)ORDER\s+BY\s+((?:(?:ASC|DESC)\s*\(\s*\?\w+\s*\)|\?\w+)(?:\s+(?:ASC|DESC)\s*\(\s*\?\w+\s*\)|\s+\?\w+)*)`)
	orderFuncRegex = regexp.MustCompile(`(?i)(ASC|DESC)\s*\(\s*\?(\w+)\s*\)`)
	limitRegex     = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)`)
	offsetRegex    = regexp.MustCompile(`(?i)\bOFFSET\s+(\d+)`)
)

// ParseQuery parses a SPARQL query string and returns a Query object.
func ParseQuery(queryStr string) (*Query, error) {
	queryStr = strings.TrimSpace(queryStr)

	if queryStr == "" {
		return nil, fmt.Errorf("empty query")
	}

	upperQuery := strings.ToUpper(queryStr)
	if strings.Contains(upperQuery, "SELECT") {
		selectQuery, err := parseSelectQuery(queryStr)
		if err != nil {
			return nil, err
		}
		return &Query{
			Type:   SelectQueryType,
			Select: selectQuery,
		}, nil
	}

	return nil, fmt.Errorf("unsupported query type: only SELECT queries are supported")
}

// parseSelectQuery parses a SELECT query.
func parseSelectQuery(queryStr string) (*SelectQuery, error) {
	query := &SelectQuery{
		Prefixes: make(map[string]string),
	}

	// Extract PREFIX declarations
	for _, match := range prefixRegex.FindAllStringSubmatch(queryStr, -1) {
		query.Prefixes[match[1]] = match[2]
	}
	queryStr = prefixRegex.ReplaceAllString(queryStr, "")

	// Check for DISTINCT
	if distinctRegex.MatchString(queryStr) {
		query.Distinct = true
		queryStr = distinctWord.ReplaceAllString(queryStr, "")
	}

	// Extract variables from SELECT clause
	selectMatch := selectRegex.FindStringSubmatch(queryStr)
	if selectMatch == nil {
		return nil, fmt.Errorf("invalid SELECT query: missing WHERE clause")
	}

	varsStr := strings.TrimSpace(selectMatch[1])
	if varsStr == "*" {
		query.Variables = []string{"*"}
	} else {
		varMatches := selectVarRegex.FindAllString(varsStr, -1)
		if len(varMatches) == 0 {
			return nil, fmt.Errorf("no variables found in SELECT clause")
		}
		query.Variables = varMatches
	}

	// Extract the main WHERE clause content
	whereMatch := whereRegex.FindStringSubmatch(queryStr)
	if whereMatch == nil {
		return nil, fmt.Errorf("invalid WHERE clause: missing braces")
	}
	whereClause := whereMatch[1]

	// OPTIONAL blocks first, so their patterns stay out of the main group.
	for _, match := range optionalRegex.FindAllStringSubmatch(whereClause, -1) {
		optionalPatterns, err := parseTriplePatterns(match[1])
		if err != nil {
			return nil, fmt.Errorf("error parsing OPTIONAL clause: %w", err)
		}
		query.Optional = append(query.Optional, optionalPatterns)
	}
	mainWhereClause := optionalRegex.ReplaceAllString(whereClause, "")

	// Extract FILTER clauses
	var filters []Filter
	filters, mainWhereClause = extractFilters(mainWhereClause)
	query.Filters = filters

	// Parse main triple patterns
	patterns, err := parseTriplePatterns(mainWhereClause)
	if err != nil {
		return nil, err
	}
	query.Where = patterns

	// Solution modifiers only appear after the WHERE group.
	tail := queryStr[strings.LastIndex(queryStr, "}"):]

	// Extract ORDER BY
	if orderByMatch := orderByRegex.FindStringSubmatch(tail); orderByMatch != nil {
		query.OrderBy = parseOrderBy(orderByMatch[1])
	}

	// Extract LIMIT
	if limitMatch := limitRegex.FindStringSubmatch(tail); limitMatch != nil {
		query.Limit, _ = strconv.Atoi(limitMatch[1])
	}

	// Extract OFFSET
	if offsetMatch := offsetRegex.FindStringSubmatch(tail); offsetMatch != nil {
		query.Offset, _ = strconv.Atoi(offsetMatch[1])
	}

	return query, nil
}

// parseOrderBy parses ORDER BY clause variables.
func parseOrderBy(orderByStr string) []OrderBy {
	var orderBys []OrderBy

	// Match ASC(?var) or DESC(?var) patterns
	for _, match := range orderFuncRegex.FindAllStringSubmatch(orderByStr, -1) {
		orderBys = append(orderBys, OrderBy{
			Variable:   "?" + match[2],
			Descending: strings.ToUpper(match[1]) == "DESC",
		})
	}

	// If no function matches, try simple variable format
	if len(orderBys) == 0 {
		for _, match := range selectVarRegex.FindAllStringSubmatch(orderByStr, -1) {
			orderBys = append(orderBys, OrderBy{Variable: "?" + match[1]})
		}
	}

	return orderBys
}

// extractFilters pulls FILTER clauses with balanced parentheses out of the
// clause and returns the filters and the clause without them.
func extractFilters(whereClause string) ([]Filter, string) {
	var filters []Filter
	var remaining strings.Builder

	cursor := 0
	for _, match := range filterKeyword.FindAllStringIndex(whereClause, -1) {
		if match[0] < cursor {
			continue
		}
		startIdx := match[1]

		// Find matching closing parenthesis
		depth := 1
		endIdx := startIdx
		inLiteral := false
		for endIdx < len(whereClause) && depth > 0 {
			switch ch := whereClause[endIdx]; {
			case ch == '"' && (endIdx == 0 || whereClause[endIdx-1] != '\\'):
				inLiteral = !inLiteral
			case ch == '(' && !inLiteral:
				depth++
			case ch == ')' && !inLiteral:
				depth--
			}
			endIdx++
		}

		if depth == 0 {
			// Extract expression between balanced parentheses
			expression := strings.TrimSpace(whereClause[startIdx : endIdx-1])
			filters = append(filters, Filter{Expression: expression})
			remaining.WriteString(whereClause[cursor:match[0]])
			cursor = endIdx
		}
	}
	remaining.WriteString(whereClause[cursor:])

	return filters, remaining.String()
}

// splitOutside splits s on sep, ignoring separators inside IRIs and
// literals. A '.' between two digits is part of a decimal, not a separator.
func splitOutside(s string, sep byte) []string {
	var parts []string
	var current strings.Builder
	inURI, inLiteral, escaped := false, false, false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case inLiteral:
			current.WriteByte(ch)
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inLiteral = false
			}
		case inURI:
			current.WriteByte(ch)
			if ch == '>' {
				inURI = false
			}
		case ch == '"':
			inLiteral = true
			current.WriteByte(ch)
		case ch == '<':
			inURI = true
			current.WriteByte(ch)
		case ch == sep && !(sep == '.' && i > 0 && i+1 < len(s) && isDigit(s[i-1]) && isDigit(s[i+1])):
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteByte(ch)
		}
	}

	// Add final part if any
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// parseTriplePatterns parses triple patterns from a WHERE clause.
func parseTriplePatterns(whereClause string) ([]TriplePattern, error) {
	var patterns []TriplePattern

	// Split by period (end of triple) but not periods inside URIs or literals
	for _, line := range splitOutside(whereClause, '.') {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Handle semicolon (same subject continuation)
		var currentSubject string
		for _, part := range splitOutside(line, ';') {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			tokens := tokenize(part)
			switch {
			// Two tokens continue the previous subject
			case len(tokens) == 2 && currentSubject != "":
				tokens = append([]string{currentSubject}, tokens...)
			case len(tokens) != 3:
				return nil, fmt.Errorf("malformed triple pattern %q", part)
			}

			// Handle "a" as rdf:type
			predicate := tokens[1]
			if predicate == "a" {
				predicate = "rdf:type"
			}

			patterns = append(patterns, TriplePattern{
				Subject:   tokens[0],
				Predicate: predicate,
				Object:    tokens[2],
			})

			currentSubject = tokens[0]
		}
	}

	return patterns, nil
}

// tokenize splits a triple pattern into whitespace-separated tokens,
// keeping IRIs and literals (with their language tag or datatype) whole.
func tokenize(s string) []string {
	var tokens []string
	var current strings.Builder
	inURI, inLiteral, escaped := false, false, false

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case inLiteral:
			current.WriteByte(ch)
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inLiteral = false
			}
		case inURI:
			current.WriteByte(ch)
			// End of URI token
			if ch == '>' {
				inURI = false
			}
		case ch == '"':
			inLiteral = true
			current.WriteByte(ch)
		case ch == '<':
			inURI = true
			current.WriteByte(ch)
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			flush()
		default:
			current.WriteByte(ch)
		}
	}
	flush()

	return tokens
}

// Validate checks if the query is well-formed and returns validation errors.
func (q *Query) Validate() []error {
	var errs []error

	if q.Type == "" {
		errs = append(errs, fmt.Errorf("query type is not set"))
	}

	if q.Select == nil && q.Type == SelectQueryType {
		errs = append(errs, fmt.Errorf("SELECT query missing select clause"))
		return errs
	}

	if q.Select != nil {
		errs = append(errs, q.Select.Validate()...)
	}

	return errs
}

// Validate checks if the SELECT query is well-formed.
func (q *SelectQuery) Validate() []error {
	var errs []error

	if len(q.Variables) == 0 {
		errs = append(errs, fmt.Errorf("SELECT clause has no variables"))
	}

	if len(q.Where) == 0 {
		errs = append(errs, fmt.Errorf("WHERE clause has no triple patterns"))
	}

	// Check that all selected variables (except *) appear in WHERE patterns
	if len(q.Variables) > 0 && q.Variables[0] != "*" {
		boundVars := make(map[string]bool)
		collect := func(patterns []TriplePattern) {
			for _, p := range patterns {
				for _, term := range []string{p.Subject, p.Predicate, p.Object} {
					if IsVariable(term) {
						boundVars[term] = true
					}
				}
			}
		}
		collect(q.Where)
		// Also check OPTIONAL patterns
		for _, opt := range q.Optional {
			collect(opt)
		}

		for _, v := range q.Variables {
			if !boundVars[v] {
				errs = append(errs, fmt.Errorf("variable %s in SELECT is not bound in WHERE clause", v))
			}
		}
	}

	// Check ORDER BY variables are selected
	for _, ob := range q.OrderBy {
		found := false
		for _, v := range q.Variables {
			if v == "*" || v == ob.Variable {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, fmt.Errorf("ORDER BY variable %s is not in SELECT clause", ob.Variable))
		}
	}

	if q.Limit < 0 {
		errs = append(errs, fmt.Errorf("LIMIT cannot be negative"))
	}

	if q.Offset < 0 {
		errs = append(errs, fmt.Errorf("OFFSET cannot be negative"))
	}

	return errs
}

// String returns a string representation of the query (for debugging).
func (q *Query) String() string {
	if q.Select != nil {
		return q.Select.String()
	}
	return "<unknown query type>"
}

// String returns a string representation of the SELECT query.
func (q *SelectQuery) String() string {
	var sb strings.Builder

	// Prefixes
	for _, prefix := range sortedPrefixNames(q.Prefixes) {
		fmt.Fprintf(&sb, "PREFIX %s: <%s>\n", prefix, q.Prefixes[prefix])
	}

	// SELECT clause
	sb.WriteString("SELECT ")
	if q.Distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(strings.Join(q.Variables, " "))

	// WHERE clause
	sb.WriteString(" WHERE {\n")
	for _, p := range q.Where {
		fmt.Fprintf(&sb, "  %s %s %s .\n", p.Subject, p.Predicate, p.Object)
	}
	for _, f := range q.Filters {
		fmt.Fprintf(&sb, "  FILTER(%s)\n", f.Expression)
	}
	for _, opt := range q.Optional {
		sb.WriteString("  OPTIONAL {\n")
		for _, p := range opt {
			fmt.Fprintf(&sb, "    %s %s %s .\n", p.Subject, p.Predicate, p.Object)
		}
		sb.WriteString("  }\n")
	}
	sb.WriteString("}")

	// ORDER BY
	if len(q.OrderBy) > 0 {
		sb.WriteString(" ORDER BY")
		for _, ob := range q.OrderBy {
			if ob.Descending {
				fmt.Fprintf(&sb, " DESC(%s)", ob.Variable)
			} else {
				fmt.Fprintf(&sb, " %s", ob.Variable)
			}
		}
	}

	// LIMIT
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}

	// OFFSET
	if q.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", q.Offset)
	}

	return sb.String()
}

func sortedPrefixNames(prefixes map[string]string) []string {
	names := make([]string, 0, len(prefixes))
	for name := range prefixes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
