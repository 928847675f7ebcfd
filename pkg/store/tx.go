package store

import "fmt"

// Tx is a unit of work running inside TripleStore.Update. Changes are applied
// to the indexes immediately, so reads through the Tx see them, and are
// undone if the transaction fails. A Tx must not be used after Update
// returns.
type Tx struct {
	store   *TripleStore
	order   []string
	ordered map[string]bool
	changes map[string]txChange
}

type txChange struct {
	triple Triple
	added  bool
}

func newTx(ts *TripleStore) *Tx {
	return &Tx{
		store:   ts,
		ordered: make(map[string]bool),
		changes: make(map[string]txChange),
	}
}

// Add asserts triples. Triples that already exist are ignored.
func (tx *Tx) Add(triples ...Triple) error {
	for _, triple := range triples {
		if !triple.IsValid() {
			return fmt.Errorf("invalid triple %s", triple)
		}
		if !tx.store.explicit.add(triple) {
			continue
		}
		tx.store.dirty = true
		tx.record(triple, true)
	}
	return nil
}

// Remove retracts asserted triples. Triples that are not asserted, including
// triples that are only entailed, are ignored.
func (tx *Tx) Remove(triples ...Triple) error {
	for _, triple := range triples {
		if !tx.store.explicit.remove(triple) {
			continue
		}
		tx.store.dirty = true
		tx.record(triple, false)
	}
	return nil
}

// Match returns triples matching the pattern as seen by this transaction.
func (tx *Tx) Match(pattern TriplePattern, includeInferred bool) []Triple {
	return tx.store.matchUnsafe(pattern, includeInferred)
}

// Stats returns index statistics as seen by this transaction.
func (tx *Tx) Stats() IndexStats {
	return tx.store.statsUnsafe()
}

// record tracks the net change for a triple. Adding a triple removed earlier
// in the same transaction (or the reverse) cancels out.
func (tx *Tx) record(triple Triple, added bool) {
	key := triple.Key()
	if previous, ok := tx.changes[key]; ok && previous.added != added {
		delete(tx.changes, key)
		return
	}
	if !tx.ordered[key] {
		tx.ordered[key] = true
		tx.order = append(tx.order, key)
	}
	tx.changes[key] = txChange{triple: triple, added: added}
}

func (tx *Tx) changeSet() ChangeSet {
	var changes ChangeSet
	for _, key := range tx.order {
		change, ok := tx.changes[key]
		if !ok {
			continue
		}
		if change.added {
			changes.Added = append(changes.Added, change.triple)
		} else {
			changes.Removed = append(changes.Removed, change.triple)
		}
	}
	return changes
}

// rollback reverts the net changes in reverse order.
func (tx *Tx) rollback() {
	for i := len(tx.order) - 1; i >= 0; i-- {
		change, ok := tx.changes[tx.order[i]]
		if !ok {
			continue
		}
		if change.added {
			tx.store.explicit.remove(change.triple)
		} else {
			tx.store.explicit.add(change.triple)
		}
		tx.store.dirty = true
	}
	tx.changes = make(map[string]txChange)
	tx.ordered = make(map[string]bool)
	tx.order = nil
	tx.store.refreshInferencesUnsafe()
}
