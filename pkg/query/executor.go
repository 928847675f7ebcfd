package query

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/coolbeans/kbgraph/pkg/store"
)

// Binding maps variable names (without ?) to the terms bound to them.
type Binding map[string]store.Term

func (b Binding) clone() Binding {
	copied := make(Binding, len(b))
	for k, v := range b {
		copied[k] = v
	}
	return copied
}

// Executor executes SPARQL queries against a triple source: a store, or a
// transaction in progress.
type Executor struct {
	source          store.Source
	planner         *QueryPlanner
	enablePlanning  bool
	timeout         time.Duration
	includeInferred bool
	initial         Binding
	prefixes        map[string]string
}

// ExecutorOption configures an executor.
type ExecutorOption func(*Executor)

// WithPlanning enables or disables query planning/optimization.
func WithPlanning(enabled bool) ExecutorOption {
	return func(e *Executor) {
		e.enablePlanning = enabled
	}
}

// WithTimeout sets the query execution timeout.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = d
	}
}

// WithInferred makes patterns match entailed triples as well as asserted ones.
func WithInferred(include bool) ExecutorOption {
	return func(e *Executor) {
		e.includeInferred = include
	}
}

// WithBindings pre-binds variables (names without ?) before evaluation.
func WithBindings(bindings Binding) ExecutorOption {
	return func(e *Executor) {
		for name, term := range bindings {
			e.initial[StripVariable(name)] = term
		}
	}
}

// WithPrefixes adds prefixes available to every query without a PREFIX
// declaration.
func WithPrefixes(prefixes map[string]string) ExecutorOption {
	return func(e *Executor) {
		for prefix, namespace := range prefixes {
			e.prefixes[prefix] = namespace
		}
	}
}

// NewExecutor creates a new query executor.
func NewExecutor(source store.Source, opts ...ExecutorOption) *Executor {
	e := &Executor{
		source:         source,
		planner:        NewQueryPlanner(source.Stats()),
		enablePlanning: true,
		timeout:        30 * time.Second, // Default 30s timeout
		initial:        make(Binding),
		prefixes:       store.DefaultPrefixes(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RefreshStats updates the query planner with current store statistics.
func (e *Executor) RefreshStats() {
	e.planner = NewQueryPlanner(e.source.Stats())
}

// QueryResult represents the result of a query execution.
type QueryResult struct {
	Variables []string     // Variable names (without ?)
	Bindings  []Binding    // Variable bindings for each result row
	Count     int          // Number of result rows
	Metrics   QueryMetrics // Execution metrics
}

// QueryMetrics contains performance metrics for query execution.
type QueryMetrics struct {
	ParseTime     time.Duration `json:"parse_time"`
	PlanTime      time.Duration `json:"plan_time"`
	ExecuteTime   time.Duration `json:"execute_time"`
	TotalTime     time.Duration `json:"total_time"`
	PatternsCount int           `json:"patterns_count"`
	ResultCount   int           `json:"result_count"`
}

// Execute executes a parsed query.
func (e *Executor) Execute(query *Query) (*QueryResult, error) {
	return e.ExecuteWithContext(context.Background(), query)
}

// ExecuteWithContext executes a parsed query with context for cancellation.
// Failures are reported as *EvaluationError.
func (e *Executor) ExecuteWithContext(ctx context.Context, query *Query) (*QueryResult, error) {
	startTime := time.Now()
	metrics := QueryMetrics{}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if query.Type != SelectQueryType || query.Select == nil {
		return nil, &EvaluationError{Query: query.String(), Err: fmt.Errorf("unsupported query type: %s", query.Type)}
	}

	result, err := e.executeSelect(ctx, query.Select, &metrics)
	if err != nil {
		return nil, &EvaluationError{Query: query.String(), Err: err}
	}
	metrics.TotalTime = time.Since(startTime)
	result.Metrics = metrics
	return result, nil
}

// ExecuteString parses and executes a SPARQL query string.
func (e *Executor) ExecuteString(queryStr string) (*QueryResult, error) {
	return e.ExecuteStringWithContext(context.Background(), queryStr)
}

// ExecuteStringWithContext parses and executes a SPARQL query string with context.
func (e *Executor) ExecuteStringWithContext(ctx context.Context, queryStr string) (*QueryResult, error) {
	startTime := time.Now()

	query, err := ParseQuery(queryStr)
	if err != nil {
		return nil, &EvaluationError{Query: queryStr, Err: fmt.Errorf("parse error: %w", err)}
	}

	result, err := e.ExecuteWithContext(ctx, query)
	if err != nil {
		return nil, err
	}

	result.Metrics.ParseTime = time.Since(startTime) - result.Metrics.PlanTime - result.Metrics.ExecuteTime
	return result, nil
}

// slot is one position of a compiled pattern: a variable or a constant term.
type slot struct {
	variable string
	term     store.Term
}

type compiledPattern struct {
	subject, predicate, object slot
}

// executeSelect executes a SELECT query.
func (e *Executor) executeSelect(ctx context.Context, query *SelectQuery, metrics *QueryMetrics) (*QueryResult, error) {
	prefixes := make(map[string]string, len(e.prefixes)+len(query.Prefixes))
	for prefix, namespace := range e.prefixes {
		prefixes[prefix] = namespace
	}
	for prefix, namespace := range query.Prefixes {
		prefixes[prefix] = namespace
	}

	where, err := compilePatterns(query.Where, prefixes)
	if err != nil {
		return nil, err
	}
	optional := make([][]compiledPattern, 0, len(query.Optional))
	for _, group := range query.Optional {
		compiled, err := compilePatterns(group, prefixes)
		if err != nil {
			return nil, err
		}
		optional = append(optional, compiled)
	}

	planStart := time.Now()
	if e.enablePlanning && len(where) > 1 {
		where = e.planner.optimizePatterns(where, e.initial)
	}
	metrics.PlanTime = time.Since(planStart)
	metrics.PatternsCount = len(where)

	executeStart := time.Now()

	bindings := []Binding{e.initial.clone()}

	for _, pattern := range where {
		bindings, err = e.matchPattern(ctx, pattern, bindings)
		if err != nil {
			return nil, err
		}
		if len(bindings) == 0 {
			break // No matches, short-circuit
		}
	}

	for _, group := range optional {
		bindings, err = e.processOptional(ctx, group, bindings)
		if err != nil {
			return nil, err
		}
	}

	for _, filter := range query.Filters {
		bindings = e.applyFilter(filter, bindings)
	}

	// ORDER BY before DISTINCT keeps the first occurrence stable.
	if len(query.OrderBy) > 0 {
		bindings = e.applyOrderBy(query.OrderBy, bindings)
	}

	if query.Distinct {
		bindings = e.applyDistinct(bindings, query.Variables)
	}

	if query.Offset > 0 {
		if query.Offset < len(bindings) {
			bindings = bindings[query.Offset:]
		} else {
			bindings = []Binding{}
		}
	}

	if query.Limit > 0 && query.Limit < len(bindings) {
		bindings = bindings[:query.Limit]
	}

	metrics.ExecuteTime = time.Since(executeStart)
	metrics.ResultCount = len(bindings)

	result := &QueryResult{
		Bindings: bindings,
		Count:    len(bindings),
	}

	if len(query.Variables) == 1 && query.Variables[0] == "*" {
		varSet := make(map[string]bool)
		for _, binding := range bindings {
			for v := range binding {
				varSet[v] = true
			}
		}
		for v := range varSet {
			result.Variables = append(result.Variables, v)
		}
		sort.Strings(result.Variables)
	} else {
		for _, v := range query.Variables {
			result.Variables = append(result.Variables, StripVariable(v))
		}
	}

	return result, nil
}

func compilePatterns(patterns []TriplePattern, prefixes map[string]string) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		subject, err := resolveToken(pattern.Subject, prefixes)
		if err != nil {
			return nil, err
		}
		predicate, err := resolveToken(pattern.Predicate, prefixes)
		if err != nil {
			return nil, err
		}
		object, err := resolveToken(pattern.Object, prefixes)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledPattern{subject: subject, predicate: predicate, object: object})
	}
	return compiled, nil
}

var (
	integerToken = regexp.MustCompile(`^[+-]?\d+$`)
	decimalToken = regexp.MustCompile(`^[+-]?\d*\.\d+$`)
)

// resolveToken turns a pattern token into a variable or constant slot.
func resolveToken(token string, prefixes map[string]string) (slot, error) {
	switch {
	case IsVariable(token):
		return slot{variable: StripVariable(token)}, nil
	case IsURI(token):
		return slot{term: store.IRI(StripURI(token))}, nil
	case strings.HasPrefix(token, "_:") && len(token) > 2:
		return slot{term: store.BlankNode(token[2:])}, nil
	case IsLiteral(token):
		term, err := parseLiteralToken(token, prefixes)
		if err != nil {
			return slot{}, err
		}
		return slot{term: term}, nil
	case token == "true" || token == "false":
		return slot{term: store.TypedLiteral(token, store.XSDBoolean)}, nil
	case integerToken.MatchString(token):
		return slot{term: store.TypedLiteral(token, store.XSDInteger)}, nil
	case decimalToken.MatchString(token):
		return slot{term: store.TypedLiteral(token, store.XSDDecimal)}, nil
	case IsPrefixed(token):
		iri, err := expandPrefix(token, prefixes)
		if err != nil {
			return slot{}, err
		}
		return slot{term: store.IRI(iri)}, nil
	}
	return slot{}, fmt.Errorf("unrecognized term %q", token)
}

// parseLiteralToken parses "lex", "lex"@lang, "lex"^^<iri> and "lex"^^prefix:name.
func parseLiteralToken(token string, prefixes map[string]string) (store.Term, error) {
	end := -1
	for i := 1; i < len(token); i++ {
		if token[i] == '\\' {
			i++
			continue
		}
		if token[i] == '"' {
			end = i
			break
		}
	}
	if end < 0 {
		return store.Term{}, fmt.Errorf("unterminated literal %s", token)
	}

	suffix := token[end+1:]
	if strings.HasPrefix(suffix, "^^") && !strings.HasPrefix(suffix, "^^<") {
		datatype, err := expandPrefix(suffix[2:], prefixes)
		if err != nil {
			return store.Term{}, err
		}
		token = token[:end+1] + "^^<" + datatype + ">"
	}

	return store.ParseTerm(token)
}

// expandPrefix expands a prefixed name using the provided prefix map.
func expandPrefix(term string, prefixes map[string]string) (string, error) {
	colonIdx := strings.Index(term, ":")
	if colonIdx < 0 {
		return "", fmt.Errorf("not a prefixed name: %q", term)
	}
	baseURI, ok := prefixes[term[:colonIdx]]
	if !ok {
		return "", fmt.Errorf("unknown prefix %q in %q", term[:colonIdx], term)
	}
	return baseURI + term[colonIdx+1:], nil
}

func (s slot) resolve(binding Binding) store.Term {
	if s.variable == "" {
		return s.term
	}
	// Unbound variables resolve to the zero term, a wildcard.
	return binding[s.variable]
}

// bind records term for the slot's variable, reporting false when the
// variable is already bound to a different term.
func (s slot) bind(binding Binding, term store.Term) bool {
	if s.variable == "" {
		return true
	}
	if existing, ok := binding[s.variable]; ok {
		return existing == term
	}
	binding[s.variable] = term
	return true
}

// matchPattern matches a triple pattern against the source.
func (e *Executor) matchPattern(ctx context.Context, pattern compiledPattern, currentBindings []Binding) ([]Binding, error) {
	var newBindings []Binding

	for _, binding := range currentBindings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		triples := e.source.Match(store.NewTriplePattern(
			pattern.subject.resolve(binding),
			pattern.predicate.resolve(binding),
			pattern.object.resolve(binding),
		), e.includeInferred)

		for _, triple := range triples {
			newBinding := binding.clone()
			if !pattern.subject.bind(newBinding, triple.Subject) ||
				!pattern.predicate.bind(newBinding, triple.Predicate) ||
				!pattern.object.bind(newBinding, triple.Object) {
				continue // Skip inconsistent binding
			}
			newBindings = append(newBindings, newBinding)
		}
	}

	return newBindings, nil
}

// processOptional processes OPTIONAL patterns (left outer join).
func (e *Executor) processOptional(ctx context.Context, patterns []compiledPattern, currentBindings []Binding) ([]Binding, error) {
	var result []Binding

	for _, binding := range currentBindings {
		optBindings := []Binding{binding}
		for _, pattern := range patterns {
			var err error
			optBindings, err = e.matchPattern(ctx, pattern, optBindings)
			if err != nil {
				return nil, err
			}
		}

		if len(optBindings) > 0 {
			result = append(result, optBindings...)
		} else {
			result = append(result, binding)
		}
	}

	return result, nil
}

// applyFilter applies a FILTER clause to bindings.
func (e *Executor) applyFilter(filter Filter, bindings []Binding) []Binding {
	var filtered []Binding

	for _, binding := range bindings {
		if e.evaluateFilter(filter.Expression, binding) {
			filtered = append(filtered, binding)
		}
	}

	return filtered
}

var (
	langPattern       = regexp.MustCompile(`(?i)\bLANG\s*\(\s*\?(\w+)\s*\)`)
	strPattern        = regexp.MustCompile(`(?i)\bSTR\s*\(\s*"([^"]*)"\s*\)`)
	regexFilter       = regexp.MustCompile(`(?i)REGEX\s*\(\s*"([^"]*)"\s*,\s*"([^"]+)"\s*\)`)
	containsPattern   = regexp.MustCompile(`(?i)CONTAINS\s*\(\s*"([^"]*)"\s*,\s*"([^"]+)"\s*\)`)
	strstartsPattern  = regexp.MustCompile(`(?i)STRSTARTS\s*\(\s*"([^"]*)"\s*,\s*"([^"]+)"\s*\)`)
	strendsPattern    = regexp.MustCompile(`(?i)STRENDS\s*\(\s*"([^"]*)"\s*,\s*"([^"]+)"\s*\)`)
	numComparePattern = regexp.MustCompile(`"([^"]+)"\s*(>=|<=|!=|>|<|=)\s*(-?\d+)`)
	eqPattern         = regexp.MustCompile(`"([^"]*)"\s*=\s*"([^"]*)"`)
	neqPattern        = regexp.MustCompile(`"([^"]*)"\s*!=\s*"([^"]*)"`)
	notBoundPattern   = regexp.MustCompile(`(?i)!\s*BOUND\s*\(\s*\?(\w+)\s*\)`)
	boundPattern      = regexp.MustCompile(`(?i)BOUND\s*\(\s*\?(\w+)\s*\)`)
)

// evaluateFilter evaluates a filter expression against the lexical values
// of the bound terms.
func (e *Executor) evaluateFilter(expression string, binding Binding) bool {
	// BOUND checks look at the raw expression.
	if match := notBoundPattern.FindStringSubmatch(expression); match != nil {
		_, ok := binding[match[1]]
		return !ok
	}
	if match := boundPattern.FindStringSubmatch(expression); match != nil {
		_, ok := binding[match[1]]
		return ok
	}

	expr := langPattern.ReplaceAllStringFunc(expression, func(call string) string {
		name := langPattern.FindStringSubmatch(call)[1]
		return `"` + binding[name].Lang + `"`
	})

	// Longest names first so ?name does not clobber ?names.
	names := make([]string, 0, len(binding))
	for name := range binding {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	for _, name := range names {
		expr = strings.ReplaceAll(expr, "?"+name, `"`+binding[name].Value+`"`)
	}

	expr = strPattern.ReplaceAllString(expr, `"$1"`)

	if match := regexFilter.FindStringSubmatch(expr); match != nil {
		matched, _ := regexp.MatchString(match[2], match[1])
		return matched
	}

	if match := containsPattern.FindStringSubmatch(expr); match != nil {
		return strings.Contains(match[1], match[2])
	}

	if match := strstartsPattern.FindStringSubmatch(expr); match != nil {
		return strings.HasPrefix(match[1], match[2])
	}

	if match := strendsPattern.FindStringSubmatch(expr); match != nil {
		return strings.HasSuffix(match[1], match[2])
	}

	if match := numComparePattern.FindStringSubmatch(expr); match != nil {
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return false // Non-numeric comparison fails
		}
		threshold, _ := strconv.ParseFloat(match[3], 64)
		switch match[2] {
		case ">":
			return value > threshold
		case "<":
			return value < threshold
		case ">=":
			return value >= threshold
		case "<=":
			return value <= threshold
		case "=":
			return value == threshold
		case "!=":
			return value != threshold
		}
	}

	if match := neqPattern.FindStringSubmatch(expr); match != nil {
		return match[1] != match[2]
	}

	if match := eqPattern.FindStringSubmatch(expr); match != nil {
		return match[1] == match[2]
	}

	// Default: assume true if we can't parse
	return true
}

// applyOrderBy sorts bindings by variables. Numeric literals compare by value.
func (e *Executor) applyOrderBy(orderBys []OrderBy, bindings []Binding) []Binding {
	sort.SliceStable(bindings, func(i, j int) bool {
		for _, ob := range orderBys {
			varName := StripVariable(ob.Variable)
			cmp := compareTerms(bindings[i][varName], bindings[j][varName])
			if cmp == 0 {
				continue // Try next sort key
			}
			if ob.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	return bindings
}

func compareTerms(a, b store.Term) int {
	if a.IsLiteral() && b.IsLiteral() {
		x, errX := strconv.ParseFloat(a.Value, 64)
		y, errY := strconv.ParseFloat(b.Value, 64)
		if errX == nil && errY == nil {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(a.String(), b.String())
}

// applyDistinct removes duplicate bindings based on selected variables.
func (e *Executor) applyDistinct(bindings []Binding, variables []string) []Binding {
	seen := make(map[string]bool)
	var unique []Binding

	for _, binding := range bindings {
		var key string
		if len(variables) == 1 && variables[0] == "*" {
			keys := make([]string, 0, len(binding))
			for k, v := range binding {
				keys = append(keys, k+"="+v.Key())
			}
			sort.Strings(keys)
			key = strings.Join(keys, "|")
		} else {
			values := make([]string, 0, len(variables))
			for _, v := range variables {
				values = append(values, binding[StripVariable(v)].Key())
			}
			key = strings.Join(values, "|")
		}

		if !seen[key] {
			seen[key] = true
			unique = append(unique, binding)
		}
	}

	return unique
}

// OutputFormat selects how a result is rendered.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatCSV   OutputFormat = "csv"
)

// Format formats the query result in the specified format.
func (r *QueryResult) Format(format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return r.FormatJSON()
	case FormatCSV:
		return r.FormatCSV()
	case FormatTable:
		return r.FormatTable(), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// FormatTable formats the result as an ASCII table.
func (r *QueryResult) FormatTable() string {
	if len(r.Variables) == 0 || len(r.Bindings) == 0 {
		return fmt.Sprintf("No results (%d rows)\n", r.Count)
	}

	var sb strings.Builder

	widths := make([]int, len(r.Variables))
	for i, v := range r.Variables {
		widths[i] = len(v)
	}
	for _, binding := range r.Bindings {
		for i, v := range r.Variables {
			if n := len(binding[v].String()); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var sep strings.Builder
	sep.WriteString("+")
	for _, w := range widths {
		sep.WriteString(strings.Repeat("-", w+2))
		sep.WriteString("+")
	}
	sep.WriteString("\n")

	sb.WriteString(sep.String())

	sb.WriteString("|")
	for i, v := range r.Variables {
		fmt.Fprintf(&sb, " %-*s |", widths[i], v)
	}
	sb.WriteString("\n")
	sb.WriteString(sep.String())

	for _, binding := range r.Bindings {
		sb.WriteString("|")
		for i, v := range r.Variables {
			fmt.Fprintf(&sb, " %-*s |", widths[i], binding[v].String())
		}
		sb.WriteString("\n")
	}
	sb.WriteString(sep.String())

	fmt.Fprintf(&sb, "%d rows\n", r.Count)
	return sb.String()
}

// FormatJSON formats the result as JSON. Terms are written in N-Triples
// form so IRIs, blank nodes and literals stay distinguishable.
func (r *QueryResult) FormatJSON() (string, error) {
	type jsonResult struct {
		Variables []string            `json:"variables"`
		Bindings  []map[string]string `json:"bindings"`
		Count     int                 `json:"count"`
	}

	result := jsonResult{
		Variables: r.Variables,
		Bindings:  make([]map[string]string, 0, len(r.Bindings)),
		Count:     r.Count,
	}
	for _, binding := range r.Bindings {
		row := make(map[string]string, len(binding))
		for name, term := range binding {
			row[name] = term.Key()
		}
		result.Bindings = append(result.Bindings, row)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatCSV formats the result as CSV.
func (r *QueryResult) FormatCSV() (string, error) {
	var sb strings.Builder
	writer := csv.NewWriter(&sb)

	if err := writer.Write(r.Variables); err != nil {
		return "", err
	}

	for _, binding := range r.Bindings {
		row := make([]string, len(r.Variables))
		for i, v := range r.Variables {
			row[i] = binding[v].String()
		}
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}

	return sb.String(), nil
}

// QueryPlanner orders triple patterns using index statistics.
type QueryPlanner struct {
	stats store.IndexStats
}

// NewQueryPlanner creates a new query planner with index statistics.
func NewQueryPlanner(stats store.IndexStats) *QueryPlanner {
	return &QueryPlanner{
		stats: stats,
	}
}

// optimizePatterns returns the patterns ordered most selective first.
// Variables bound in initial count as constants.
func (qp *QueryPlanner) optimizePatterns(patterns []compiledPattern, initial Binding) []compiledPattern {
	if len(patterns) <= 1 {
		return patterns
	}

	type patternWithSelectivity struct {
		pattern     compiledPattern
		selectivity float64
	}

	selectivities := make([]patternWithSelectivity, len(patterns))
	for i, pattern := range patterns {
		selectivities[i] = patternWithSelectivity{
			pattern:     pattern,
			selectivity: qp.estimateSelectivity(pattern, initial),
		}
	}

	sort.SliceStable(selectivities, func(i, j int) bool {
		return selectivities[i].selectivity < selectivities[j].selectivity
	})

	optimized := make([]compiledPattern, len(patterns))
	for i, sel := range selectivities {
		optimized[i] = sel.pattern
	}
	return optimized
}

// estimateSelectivity estimates the selectivity of a triple pattern.
// Lower values = more selective (fewer results expected).
func (qp *QueryPlanner) estimateSelectivity(pattern compiledPattern, initial Binding) float64 {
	if qp.stats.TotalTriples == 0 {
		return 1.0
	}

	selectivity := float64(qp.stats.TotalTriples)
	boundCount := 0

	apply := func(position slot, counts map[string]int) {
		term := position.resolve(initial)
		if term.IsZero() {
			return
		}
		boundCount++
		count, ok := counts[term.Key()]
		switch {
		case !ok && boundCount == 1:
			selectivity = 0.1 // Unknown term is very selective
		case !ok:
			selectivity *= 0.1
		case boundCount == 1:
			selectivity = float64(count)
		default:
			selectivity *= float64(count) / float64(qp.stats.TotalTriples)
		}
	}

	apply(pattern.subject, qp.stats.SubjectCounts)
	apply(pattern.predicate, qp.stats.PredicateCounts)
	apply(pattern.object, qp.stats.ObjectCounts)

	if selectivity < 0.1 {
		selectivity = 0.1
	}

	return selectivity
}
