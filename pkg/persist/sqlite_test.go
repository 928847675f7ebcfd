package persist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/kbgraph/pkg/store"
)

const ex = "http://example.org/"

func exIRI(local string) store.Term {
	return store.IRI(ex + local)
}

func openTemp(t *testing.T) (*SQLite, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kbgraph.db")
	journal, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })
	return journal, path
}

func TestOpen_Idempotent(t *testing.T) {
	journal, path := openTemp(t)
	require.NoError(t, journal.Close())

	again, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestSQLite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	journal, path := openTemp(t)

	repo := store.NewTripleStore()
	n, err := journal.Attach(ctx, "people", repo)
	require.NoError(t, err)
	assert.Zero(t, n)

	triples := []store.Triple{
		store.NewTriple(exIRI("Person1"), exIRI("name"), store.LangLiteral("Ada", "en")),
		store.NewTriple(exIRI("Person1"), exIRI("age"), store.TypedLiteral("36", store.XSDInteger)),
		store.NewTriple(exIRI("Person1"), exIRI("knows"), exIRI("Person2")),
		store.NewTriple(exIRI("Person1"), exIRI("note"), store.Literal("line one\nline \"two\"")),
		store.NewTriple(store.BlankNode("b0"), exIRI("name"), store.Literal("anonymous")),
	}
	require.NoError(t, repo.BulkAdd(triples))

	count, err := journal.Count(ctx, "people")
	require.NoError(t, err)
	assert.Equal(t, len(triples), count)

	require.NoError(t, repo.Update(ctx, func(tx *store.Tx) error {
		return tx.Remove(triples[2])
	}))
	require.NoError(t, journal.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	restored := store.NewTripleStore()
	n, err = reopened.Load(ctx, "people", restored)
	require.NoError(t, err)
	assert.Equal(t, len(triples)-1, n)

	want := append([]store.Triple{}, triples[:2]...)
	want = append(want, triples[3:]...)
	assert.ElementsMatch(t, want, restored.All())
}

func TestSQLite_SeparatesKnowledgeBases(t *testing.T) {
	ctx := context.Background()
	journal, _ := openTemp(t)

	people := store.NewTripleStore()
	places := store.NewTripleStore()
	_, err := journal.Attach(ctx, "people", people)
	require.NoError(t, err)
	_, err = journal.Attach(ctx, "places", places)
	require.NoError(t, err)

	require.NoError(t, people.AddTriple(store.NewTriple(exIRI("Person1"), exIRI("name"), store.Literal("Ada"))))
	require.NoError(t, places.AddTriple(store.NewTriple(exIRI("London"), exIRI("name"), store.Literal("London"))))
	require.NoError(t, places.AddTriple(store.NewTriple(exIRI("Paris"), exIRI("name"), store.Literal("Paris"))))

	ids, err := journal.KnowledgeBases(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"people", "places"}, ids)

	n, err := journal.Count(ctx, "places")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLite_LoadedTriplesAreNotJournaledAgain(t *testing.T) {
	ctx := context.Background()
	journal, _ := openTemp(t)

	source := store.NewTripleStore()
	_, err := journal.Attach(ctx, "people", source)
	require.NoError(t, err)
	require.NoError(t, source.AddTriple(store.NewTriple(exIRI("Person1"), exIRI("name"), store.Literal("Ada"))))

	replica := store.NewTripleStore()
	n, err := journal.Attach(ctx, "people", replica)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, replica.Count())

	count, err := journal.Count(ctx, "people")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLite_JournalFailureRejectsCommit(t *testing.T) {
	ctx := context.Background()
	journal, _ := openTemp(t)

	repo := store.NewTripleStore()
	_, err := journal.Attach(ctx, "people", repo)
	require.NoError(t, err)
	require.NoError(t, journal.Close())

	err = repo.AddTriple(store.NewTriple(exIRI("Person1"), exIRI("name"), store.Literal("Ada")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit rejected")
	assert.Zero(t, repo.Count(), "rejected commit is rolled back")
}
