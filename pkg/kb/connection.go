package kb

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/coolbeans/kbgraph/pkg/query"
	"github.com/coolbeans/kbgraph/pkg/store"
)

// Connection is a scoped view of a knowledge base's repository. Connections
// from GetConnection read the committed store; the connection handed to an
// Update unit of work reads and writes the running transaction.
//
// Always release a connection with Close.
type Connection struct {
	kb      KnowledgeBase
	source  store.Source
	tx      *store.Tx
	timeout time.Duration
	closed  atomic.Bool
}

// NewConnection returns a read connection to kb over an arbitrary triple
// source, such as a transaction or a store that is not registered.
func NewConnection(kb KnowledgeBase, source store.Source) *Connection {
	return &Connection{kb: kb.WithDefaults(), source: source, timeout: DefaultQueryTimeout}
}

// KnowledgeBase returns the knowledge base the connection is scoped to.
func (c *Connection) KnowledgeBase() KnowledgeBase {
	return c.kb
}

// Select evaluates a SELECT query with the given variables pre-bound.
// Failures to evaluate the query are reported as *query.EvaluationError.
func (c *Connection) Select(ctx context.Context, queryStr string, bindings query.Binding, includeInferred bool) (*query.QueryResult, error) {
	if err := c.check("select"); err != nil {
		return nil, err
	}

	executor := query.NewExecutor(c.source,
		query.WithBindings(bindings),
		query.WithInferred(includeInferred),
		query.WithPrefixes(c.kb.Prefixes()),
		query.WithTimeout(c.timeout),
	)
	return executor.ExecuteStringWithContext(ctx, queryStr)
}

// Match returns the triples matching pattern.
func (c *Connection) Match(pattern store.TriplePattern, includeInferred bool) ([]store.Triple, error) {
	if err := c.check("match"); err != nil {
		return nil, err
	}
	return c.source.Match(pattern, includeInferred), nil
}

// Add asserts triples. Only connections inside Service.Update can write.
func (c *Connection) Add(triples ...store.Triple) error {
	if err := c.writable("add"); err != nil {
		return err
	}
	return c.tx.Add(triples...)
}

// Remove retracts asserted triples. Only connections inside Service.Update
// can write.
func (c *Connection) Remove(triples ...store.Triple) error {
	if err := c.writable("remove"); err != nil {
		return err
	}
	return c.tx.Remove(triples...)
}

// Close releases the connection. Closing twice is harmless.
func (c *Connection) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *Connection) check(op string) error {
	if c.closed.Load() {
		return &StoreError{KnowledgeBase: c.kb.ID, Op: op, Err: ErrConnectionClosed}
	}
	return nil
}

func (c *Connection) writable(op string) error {
	if err := c.check(op); err != nil {
		return err
	}
	if c.tx == nil {
		return ErrNotWritable
	}
	if c.kb.ReadOnly {
		return ErrReadOnly
	}
	return nil
}
