package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned when a closed store is used.
var ErrClosed = errors.New("triple store is closed")

// IndexStats contains statistics about the triple store for query optimization.
// Counts are keyed by the N-Triples encoding of the term (see Term.Key).
type IndexStats struct {
	TotalTriples     int            `json:"total_triples"`
	InferredTriples  int            `json:"inferred_triples"`
	UniqueSubjects   int            `json:"unique_subjects"`
	UniquePredicates int            `json:"unique_predicates"`
	UniqueObjects    int            `json:"unique_objects"`
	PredicateCounts  map[string]int `json:"predicate_counts"`
	SubjectCounts    map[string]int `json:"subject_counts"`
	ObjectCounts     map[string]int `json:"object_counts"`
}

// Source is a read view over triples. Both the store and a running
// transaction implement it.
type Source interface {
	Match(pattern TriplePattern, includeInferred bool) []Triple
	Stats() IndexStats
}

// ChangeSet holds the net effect of a committed transaction.
type ChangeSet struct {
	Added   []Triple
	Removed []Triple
}

// IsEmpty reports whether the change set changes nothing.
func (c ChangeSet) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0
}

// CommitHook is called with the net changes of a transaction before it is
// made final. Returning an error rolls the transaction back.
type CommitHook func(ctx context.Context, changes ChangeSet) error

// TripleStore is an in-memory RDF triple store with multiple indexes.
// It provides efficient lookups via three indexes:
//   - SPO: Subject -> Predicate -> Object (find facts about a subject)
//   - POS: Predicate -> Object -> Subject (find subjects with property=value)
//   - OSP: Object -> Subject -> Predicate (find subjects pointing to object)
//
// Asserted triples and triples entailed by the store's reasoner are indexed
// separately so callers can ask for either view.
type TripleStore struct {
	mu sync.RWMutex

	explicit *index
	inferred *index

	reasoner Reasoner
	dirty    bool
	closed   bool
	hooks    []CommitHook
}

// Option configures a TripleStore.
type Option func(*TripleStore)

// WithReasoner sets the reasoner that computes the inferred view.
// Pass nil to disable inference.
func WithReasoner(reasoner Reasoner) Option {
	return func(ts *TripleStore) {
		ts.reasoner = reasoner
	}
}

// WithCommitHook registers a hook run on every non-empty commit.
func WithCommitHook(hook CommitHook) Option {
	return func(ts *TripleStore) {
		if hook != nil {
			ts.hooks = append(ts.hooks, hook)
		}
	}
}

// NewTripleStore creates a new in-memory triple store with all indexes
// initialized and RDFS inference enabled.
func NewTripleStore(opts ...Option) *TripleStore {
	ts := &TripleStore{
		explicit: newIndex(),
		inferred: newIndex(),
		reasoner: RDFSReasoner{},
	}
	for _, opt := range opts {
		opt(ts)
	}
	return ts
}

// AddCommitHook registers a commit hook after construction.
func (ts *TripleStore) AddCommitHook(hook CommitHook) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if hook != nil {
		ts.hooks = append(ts.hooks, hook)
	}
}

// Add inserts a triple into the store. Returns nil if successful or if the
// triple already exists (idempotent operation).
func (ts *TripleStore) Add(subject, predicate, object Term) error {
	return ts.AddTriple(NewTriple(subject, predicate, object))
}

// AddTriple inserts a Triple struct into the store.
func (ts *TripleStore) AddTriple(triple Triple) error {
	return ts.Update(context.Background(), func(tx *Tx) error {
		return tx.Add(triple)
	})
}

// BulkAdd inserts multiple triples in one transaction. Invalid triples are
// skipped.
func (ts *TripleStore) BulkAdd(triples []Triple) error {
	return ts.Update(context.Background(), func(tx *Tx) error {
		for _, triple := range triples {
			if !triple.IsValid() {
				continue
			}
			if err := tx.Add(triple); err != nil {
				return err
			}
		}
		return nil
	})
}

// Restore loads triples without running commit hooks. It is used to
// rehydrate a store from its own persistence.
func (ts *TripleStore) Restore(triples []Triple) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.closed {
		return ErrClosed
	}
	for _, triple := range triples {
		if !triple.IsValid() {
			return fmt.Errorf("invalid triple %s", triple)
		}
		if ts.explicit.add(triple) {
			ts.dirty = true
		}
	}
	ts.refreshInferencesUnsafe()
	return nil
}

// MergeFrom copies all asserted triples from the source store into this store.
// Returns the number of new triples added (duplicates are skipped).
func (ts *TripleStore) MergeFrom(source *TripleStore) int {
	sourceTriples := source.All()
	previousCount := ts.Count()
	_ = ts.BulkAdd(sourceTriples)
	return ts.Count() - previousCount
}

// Find queries asserted triples. Use the zero Term for wildcards.
func (ts *TripleStore) Find(subject, predicate, object Term) []Triple {
	return ts.Match(NewTriplePattern(subject, predicate, object), false)
}

// FindPattern queries asserted triples using a TriplePattern.
func (ts *TripleStore) FindPattern(pattern TriplePattern) []Triple {
	return ts.Match(pattern, false)
}

// Match returns triples matching the pattern. With includeInferred the
// triples entailed by the reasoner are returned as well.
func (ts *TripleStore) Match(pattern TriplePattern, includeInferred bool) []Triple {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	return ts.matchUnsafe(pattern, includeInferred)
}

// Exists checks if a specific triple is asserted in the store.
func (ts *TripleStore) Exists(subject, predicate, object Term) bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	return ts.explicit.exists(subject.Key(), predicate.Key(), object.Key())
}

// IsInferred reports whether the triple is entailed but not asserted.
func (ts *TripleStore) IsInferred(triple Triple) bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	return ts.inferred.exists(triple.Subject.Key(), triple.Predicate.Key(), triple.Object.Key())
}

// Get retrieves all asserted properties for a subject as a map of
// predicate IRI -> objects.
func (ts *TripleStore) Get(subject Term) map[string][]Term {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	result := make(map[string][]Term)
	for _, triple := range ts.explicit.find(subject.Key(), "", "") {
		result[triple.Predicate.Value] = append(result[triple.Predicate.Value], triple.Object)
	}
	return result
}

// GetOne retrieves a single asserted object for a subject-predicate pair.
// Returns the zero Term if not found.
func (ts *TripleStore) GetOne(subject, predicate Term) Term {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	for _, triple := range ts.explicit.find(subject.Key(), predicate.Key(), "") {
		return triple.Object
	}
	return Term{}
}

// Delete removes matching asserted triples. Use the zero Term for wildcards.
func (ts *TripleStore) Delete(subject, predicate, object Term) int {
	deleted := 0
	err := ts.Update(context.Background(), func(tx *Tx) error {
		matches := tx.Match(NewTriplePattern(subject, predicate, object), false)
		deleted = len(matches)
		return tx.Remove(matches...)
	})
	if err != nil {
		return 0
	}
	return deleted
}

// DeleteTriple removes a specific triple.
func (ts *TripleStore) DeleteTriple(triple Triple) bool {
	return ts.Delete(triple.Subject, triple.Predicate, triple.Object) > 0
}

// Clear removes all triples from the store. Commit hooks are not run.
func (ts *TripleStore) Clear() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.explicit = newIndex()
	ts.inferred = newIndex()
	ts.dirty = false
}

// Count returns the number of asserted triples in the store.
func (ts *TripleStore) Count() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.explicit.count
}

// InferredCount returns the number of entailed, non-asserted triples.
func (ts *TripleStore) InferredCount() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.inferred.count
}

// Subjects returns all unique asserted subjects in the store.
func (ts *TripleStore) Subjects() []Term {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	subjects := make([]Term, 0, len(ts.explicit.spo))
	for _, pMap := range ts.explicit.spo {
		for _, oMap := range pMap {
			for _, triple := range oMap {
				subjects = append(subjects, triple.Subject)
				break
			}
			break
		}
	}
	return subjects
}

// Predicates returns all unique asserted predicates in the store.
func (ts *TripleStore) Predicates() []Term {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	predicates := make([]Term, 0, len(ts.explicit.pos))
	for _, oMap := range ts.explicit.pos {
		for _, sMap := range oMap {
			for _, triple := range sMap {
				predicates = append(predicates, triple.Predicate)
				break
			}
			break
		}
	}
	return predicates
}

// All returns all asserted triples in the store.
func (ts *TripleStore) All() []Triple {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	return ts.explicit.find("", "", "")
}

// Stats returns index statistics for query optimization.
func (ts *TripleStore) Stats() IndexStats {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	return ts.statsUnsafe()
}

// Close marks the store as closed. Subsequent updates fail with ErrClosed.
func (ts *TripleStore) Close() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (ts *TripleStore) Closed() bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.closed
}

// Update runs fn as a single atomic unit of work. The write lock is held for
// the whole call so readers never observe a partial update. If fn or a
// commit hook returns an error every change made through the transaction is
// undone.
func (ts *TripleStore) Update(ctx context.Context, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.closed {
		return ErrClosed
	}

	tx := newTx(ts)
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}

	changes := tx.changeSet()
	if !changes.IsEmpty() {
		for _, hook := range ts.hooks {
			if err := hook(ctx, changes); err != nil {
				tx.rollback()
				return fmt.Errorf("commit rejected: %w", err)
			}
		}
	}

	ts.refreshInferencesUnsafe()
	return nil
}

func (ts *TripleStore) matchUnsafe(pattern TriplePattern, includeInferred bool) []Triple {
	s, p, o := pattern.Subject.Key(), pattern.Predicate.Key(), pattern.Object.Key()
	results := ts.explicit.find(s, p, o)
	if includeInferred && ts.reasoner != nil {
		ts.refreshInferencesUnsafe()
		results = append(results, ts.inferred.find(s, p, o)...)
	}
	return results
}

func (ts *TripleStore) statsUnsafe() IndexStats {
	stats := IndexStats{
		TotalTriples:     ts.explicit.count,
		InferredTriples:  ts.inferred.count,
		UniqueSubjects:   len(ts.explicit.spo),
		UniquePredicates: len(ts.explicit.pos),
		UniqueObjects:    len(ts.explicit.osp),
		PredicateCounts:  make(map[string]int, len(ts.explicit.predicateCounts)),
		SubjectCounts:    make(map[string]int, len(ts.explicit.subjectCounts)),
		ObjectCounts:     make(map[string]int, len(ts.explicit.objectCounts)),
	}

	for k, v := range ts.explicit.predicateCounts {
		stats.PredicateCounts[k] = v
	}
	for k, v := range ts.explicit.subjectCounts {
		stats.SubjectCounts[k] = v
	}
	for k, v := range ts.explicit.objectCounts {
		stats.ObjectCounts[k] = v
	}

	return stats
}

// refreshInferencesUnsafe recomputes the inferred index if asserted triples
// changed since the last computation. Callers must hold the write lock, or
// the read lock when the index is known to be clean.
func (ts *TripleStore) refreshInferencesUnsafe() {
	if !ts.dirty {
		return
	}
	ts.dirty = false

	ts.inferred = newIndex()
	if ts.reasoner == nil {
		return
	}
	for _, triple := range ts.reasoner.Infer(ts.explicit.find("", "", "")) {
		if ts.explicit.exists(triple.Subject.Key(), triple.Predicate.Key(), triple.Object.Key()) {
			continue
		}
		ts.inferred.add(triple)
	}
}

// index holds one partition of the store, keyed by term keys.
type index struct {
	// SPO index: Subject -> Predicate -> Object -> triple
	spo map[string]map[string]map[string]Triple

	// POS index: Predicate -> Object -> Subject -> triple
	pos map[string]map[string]map[string]Triple

	// OSP index: Object -> Subject -> Predicate -> triple
	osp map[string]map[string]map[string]Triple

	count int

	predicateCounts map[string]int
	subjectCounts   map[string]int
	objectCounts    map[string]int
}

func newIndex() *index {
	return &index{
		spo:             make(map[string]map[string]map[string]Triple),
		pos:             make(map[string]map[string]map[string]Triple),
		osp:             make(map[string]map[string]map[string]Triple),
		predicateCounts: make(map[string]int),
		subjectCounts:   make(map[string]int),
		objectCounts:    make(map[string]int),
	}
}

// add inserts a triple and reports whether it was new.
func (ix *index) add(triple Triple) bool {
	subject, predicate, object := triple.Subject.Key(), triple.Predicate.Key(), triple.Object.Key()
	if ix.exists(subject, predicate, object) {
		return false
	}

	if ix.spo[subject] == nil {
		ix.spo[subject] = make(map[string]map[string]Triple)
	}
	if ix.spo[subject][predicate] == nil {
		ix.spo[subject][predicate] = make(map[string]Triple)
	}
	ix.spo[subject][predicate][object] = triple

	if ix.pos[predicate] == nil {
		ix.pos[predicate] = make(map[string]map[string]Triple)
	}
	if ix.pos[predicate][object] == nil {
		ix.pos[predicate][object] = make(map[string]Triple)
	}
	ix.pos[predicate][object][subject] = triple

	if ix.osp[object] == nil {
		ix.osp[object] = make(map[string]map[string]Triple)
	}
	if ix.osp[object][subject] == nil {
		ix.osp[object][subject] = make(map[string]Triple)
	}
	ix.osp[object][subject][predicate] = triple

	ix.predicateCounts[predicate]++
	ix.subjectCounts[subject]++
	ix.objectCounts[object]++
	ix.count++

	return true
}

func (ix *index) exists(subject, predicate, object string) bool {
	if pMap, ok := ix.spo[subject]; ok {
		if oMap, ok := pMap[predicate]; ok {
			_, ok := oMap[object]
			return ok
		}
	}
	return false
}

// find returns triples matching the given keys; "" is a wildcard.
func (ix *index) find(subject, predicate, object string) []Triple {
	var results []Triple

	if subject != "" {
		// Use SPO index
		pMap, ok := ix.spo[subject]
		if !ok {
			return results
		}
		if predicate != "" {
			oMap, ok := pMap[predicate]
			if !ok {
				return results
			}
			if object != "" {
				if triple, ok := oMap[object]; ok {
					results = append(results, triple)
				}
				return results
			}
			for _, triple := range oMap {
				results = append(results, triple)
			}
			return results
		}
		for _, oMap := range pMap {
			if object != "" {
				if triple, ok := oMap[object]; ok {
					results = append(results, triple)
				}
				continue
			}
			for _, triple := range oMap {
				results = append(results, triple)
			}
		}
		return results
	}

	if predicate != "" {
		// Use POS index (no subject specified)
		oMap, ok := ix.pos[predicate]
		if !ok {
			return results
		}
		if object != "" {
			for _, triple := range oMap[object] {
				results = append(results, triple)
			}
			return results
		}
		for _, sMap := range oMap {
			for _, triple := range sMap {
				results = append(results, triple)
			}
		}
		return results
	}

	if object != "" {
		// Use OSP index (only O specified)
		for _, pMap := range ix.osp[object] {
			for _, triple := range pMap {
				results = append(results, triple)
			}
		}
		return results
	}

	// Full scan
	for _, pMap := range ix.spo {
		for _, oMap := range pMap {
			for _, triple := range oMap {
				results = append(results, triple)
			}
		}
	}
	return results
}

// remove deletes a triple and reports whether it was present.
func (ix *index) remove(triple Triple) bool {
	subject, predicate, object := triple.Subject.Key(), triple.Predicate.Key(), triple.Object.Key()
	if !ix.exists(subject, predicate, object) {
		return false
	}

	if pMap, ok := ix.spo[subject]; ok {
		if oMap, ok := pMap[predicate]; ok {
			delete(oMap, object)
			if len(oMap) == 0 {
				delete(pMap, predicate)
			}
		}
		if len(pMap) == 0 {
			delete(ix.spo, subject)
		}
	}

	if oMap, ok := ix.pos[predicate]; ok {
		if sMap, ok := oMap[object]; ok {
			delete(sMap, subject)
			if len(sMap) == 0 {
				delete(oMap, object)
			}
		}
		if len(oMap) == 0 {
			delete(ix.pos, predicate)
		}
	}

	if sMap, ok := ix.osp[object]; ok {
		if pMap, ok := sMap[subject]; ok {
			delete(pMap, predicate)
			if len(pMap) == 0 {
				delete(sMap, subject)
			}
		}
		if len(sMap) == 0 {
			delete(ix.osp, object)
		}
	}

	ix.predicateCounts[predicate]--
	if ix.predicateCounts[predicate] <= 0 {
		delete(ix.predicateCounts, predicate)
	}
	ix.subjectCounts[subject]--
	if ix.subjectCounts[subject] <= 0 {
		delete(ix.subjectCounts, subject)
	}
	ix.objectCounts[object]--
	if ix.objectCounts[object] <= 0 {
		delete(ix.objectCounts, object)
	}

	ix.count--
	return true
}
