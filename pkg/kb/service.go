package kb

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coolbeans/kbgraph/pkg/graph"
	"github.com/coolbeans/kbgraph/pkg/query"
	"github.com/coolbeans/kbgraph/pkg/store"
)

// DefaultQueryTimeout bounds the evaluation of every query run through a
// connection.
const DefaultQueryTimeout = 30 * time.Second

// Service is the registry of knowledge bases and the owner of their
// repositories. It is safe for concurrent use.
type Service struct {
	mu      sync.RWMutex
	entries map[string]*entry

	logger       *slog.Logger
	queryTimeout time.Duration
}

type entry struct {
	kb   KnowledgeBase
	repo *store.TripleStore
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithQueryTimeout sets the evaluation timeout of connection queries.
func WithQueryTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		if timeout > 0 {
			s.queryTimeout = timeout
		}
	}
}

// NewService creates an empty knowledge base registry.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		entries:      make(map[string]*entry),
		logger:       slog.Default(),
		queryTimeout: DefaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a knowledge base backed by repo. Unset schema fields of kb
// take their defaults.
func (s *Service) Register(kb KnowledgeBase, repo *store.TripleStore) error {
	kb = kb.WithDefaults()
	if err := kb.Validate(); err != nil {
		return err
	}
	if repo == nil {
		return fmt.Errorf("knowledge base %s: repository is required", kb.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[kb.ID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, kb.ID)
	}
	s.entries[kb.ID] = &entry{kb: kb, repo: repo}

	s.logger.Debug("Registered knowledge base",
		slog.String("kb", kb.ID),
		slog.String("reification", string(kb.ReificationMode)),
		slog.Bool("read_only", kb.ReadOnly))
	return nil
}

// Get returns the registered knowledge base with the given ID.
func (s *Service) Get(id string) (KnowledgeBase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return KnowledgeBase{}, fmt.Errorf("%w: %s", ErrUnknownKnowledgeBase, id)
	}
	return e.kb, nil
}

// List returns all registered knowledge bases ordered by ID.
func (s *Service) List() []KnowledgeBase {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kbs := make([]KnowledgeBase, 0, len(s.entries))
	for _, e := range s.entries {
		kbs = append(kbs, e.kb)
	}
	sort.Slice(kbs, func(i, j int) bool { return kbs[i].ID < kbs[j].ID })
	return kbs
}

// Unregister removes a knowledge base. Its repository is left open.
func (s *Service) Unregister(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKnowledgeBase, id)
	}
	delete(s.entries, id)
	return nil
}

// Repository returns the triple store behind a knowledge base.
func (s *Service) Repository(id string) (*store.TripleStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKnowledgeBase, id)
	}
	return e.repo, nil
}

// resolve finds the registered entry for kb and checks that its repository
// is reachable.
func (s *Service) resolve(ctx context.Context, kb KnowledgeBase, op string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.entries[kb.ID]
	s.mu.RUnlock()

	if !ok {
		return nil, &StoreError{KnowledgeBase: kb.ID, Op: op, Err: ErrUnknownKnowledgeBase}
	}
	if err := ctx.Err(); err != nil {
		return nil, &StoreError{KnowledgeBase: kb.ID, Op: op, Err: err}
	}
	if e.repo.Closed() {
		return nil, &StoreError{KnowledgeBase: kb.ID, Op: op, Err: store.ErrClosed}
	}
	return e, nil
}

// GetConnection opens a read connection to the repository of kb. The caller
// must Close it.
func (s *Service) GetConnection(ctx context.Context, kb KnowledgeBase) (*Connection, error) {
	e, err := s.resolve(ctx, kb, "connect")
	if err != nil {
		return nil, err
	}
	return &Connection{kb: e.kb, source: e.repo, timeout: s.queryTimeout}, nil
}

// Update runs fn as one atomic transaction against the repository of kb.
// If fn returns an error nothing it did is applied and that error is
// returned as is; failures of the repository itself are *StoreError.
func (s *Service) Update(ctx context.Context, kb KnowledgeBase, fn func(conn *Connection) error) error {
	e, err := s.resolve(ctx, kb, "update")
	if err != nil {
		return err
	}
	if e.kb.ReadOnly {
		return fmt.Errorf("kb %s: %w", e.kb.ID, ErrReadOnly)
	}

	var workErr error
	err = e.repo.Update(ctx, func(tx *store.Tx) error {
		conn := &Connection{kb: e.kb, source: tx, tx: tx, timeout: s.queryTimeout}
		defer conn.Close()

		workErr = fn(conn)
		return workErr
	})
	switch {
	case err == nil:
		return nil
	case workErr != nil:
		return workErr
	default:
		return &StoreError{KnowledgeBase: e.kb.ID, Op: "update", Err: err}
	}
}

// ListProperties returns the properties of kb: subjects typed with one of
// its property types, and subjects of its sub-property relation.
func (s *Service) ListProperties(ctx context.Context, kb KnowledgeBase, includeInferred bool) ([]graph.Handle, error) {
	registered, err := s.Get(kb.ID)
	if err != nil {
		return nil, &StoreError{KnowledgeBase: kb.ID, Op: "list properties", Err: err}
	}
	return s.listTyped(ctx, registered, registered.PropertyTypeIRIs, registered.SubpropertyIRI, includeInferred)
}

// ListClasses returns the classes of kb: subjects typed with one of its class
// types, and subjects of its sub-class relation.
func (s *Service) ListClasses(ctx context.Context, kb KnowledgeBase, includeInferred bool) ([]graph.Handle, error) {
	registered, err := s.Get(kb.ID)
	if err != nil {
		return nil, &StoreError{KnowledgeBase: kb.ID, Op: "list classes", Err: err}
	}
	return s.listTyped(ctx, registered, registered.ClassTypeIRIs, registered.SubclassIRI, includeInferred)
}

const (
	typedQuery    = "SELECT ?x WHERE { ?x ?type ?class . }"
	relationQuery = "SELECT ?x WHERE { ?x ?relation ?super . }"
)

func (s *Service) listTyped(ctx context.Context, kb KnowledgeBase, typeIRIs []string, relationIRI string, includeInferred bool) ([]graph.Handle, error) {
	conn, err := s.GetConnection(ctx, kb)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	types := make(map[string]string)
	var order []string
	collect := func(result *query.QueryResult, typeIRI string) {
		for _, binding := range result.Bindings {
			term := binding["x"]
			if !term.IsIRI() {
				continue
			}
			if _, seen := types[term.Value]; !seen {
				order = append(order, term.Value)
			}
			if types[term.Value] == "" {
				types[term.Value] = typeIRI
			}
		}
	}

	for _, typeIRI := range typeIRIs {
		result, err := conn.Select(ctx, typedQuery, query.Binding{
			"type":  store.IRI(kb.TypeIRI),
			"class": store.IRI(typeIRI),
		}, includeInferred)
		if err != nil {
			return nil, err
		}
		collect(result, typeIRI)
	}

	if relationIRI != "" {
		result, err := conn.Select(ctx, relationQuery, query.Binding{
			"relation": store.IRI(relationIRI),
		}, includeInferred)
		if err != nil {
			return nil, err
		}
		collect(result, "")
	}

	handles := make([]graph.Handle, 0, len(order))
	for _, identifier := range order {
		handle, err := s.describe(conn, kb, identifier, includeInferred)
		if err != nil {
			return nil, err
		}
		handle.Type = types[identifier]
		handles = append(handles, handle)
	}

	sort.Slice(handles, func(i, j int) bool { return handles[i].Identifier < handles[j].Identifier })
	return handles, nil
}

// describe builds the handle for identifier with its label and description.
func (s *Service) describe(conn *Connection, kb KnowledgeBase, identifier string, includeInferred bool) (graph.Handle, error) {
	subject := store.IRI(identifier)

	labels, err := conn.Match(store.NewTriplePattern(subject, store.IRI(kb.LabelIRI), store.Term{}), includeInferred)
	if err != nil {
		return graph.Handle{}, err
	}
	descriptions, err := conn.Match(store.NewTriplePattern(subject, store.IRI(kb.DescriptionIRI), store.Term{}), includeInferred)
	if err != nil {
		return graph.Handle{}, err
	}

	label := preferLanguage(labels, kb.DefaultLanguage)
	description := preferLanguage(descriptions, kb.DefaultLanguage)

	language := label.Lang
	if language == "" {
		language = description.Lang
	}
	return graph.NewHandle(identifier,
		graph.WithName(label.Value),
		graph.WithDescription(description.Value),
		graph.WithLanguage(language),
	), nil
}

// preferLanguage picks the literal in the given language, then one without a
// language tag, then any other. Ties are broken by term key so the choice is
// stable.
func preferLanguage(triples []store.Triple, language string) store.Term {
	language = strings.ToLower(language)
	var best store.Term
	bestRank := -1
	for _, triple := range triples {
		object := triple.Object
		if !object.IsLiteral() {
			continue
		}
		rank := 1
		switch {
		case language != "" && object.Lang == language:
			rank = 3
		case object.Lang == "":
			rank = 2
		}
		if rank > bestRank || (rank == bestRank && object.Key() < best.Key()) {
			best, bestRank = object, rank
		}
	}
	return best
}
