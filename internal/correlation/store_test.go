package correlation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordAt(id string, at int64) *Record {
	return &Record{Raw: `{"trace_id":"` + id + `"}`, CorrelationID: id, ReceivedAt: at}
}

func TestStoreGetOrCreate(t *testing.T) {
	store := NewStore(time.Second)

	trx, created := store.GetOrCreate("a")
	require.True(t, created)
	assert.False(t, trx.Triggered())
	assert.Equal(t, 0, trx.Len())

	again, created := store.GetOrCreate("a")
	assert.False(t, created)
	assert.Same(t, trx, again)
	assert.Equal(t, 1, store.Len())
}

func TestStoreRemove(t *testing.T) {
	store := NewStore(time.Second)
	store.GetOrCreate("a")

	assert.True(t, store.Remove("a"))
	assert.False(t, store.Remove("a"))

	assert.Equal(t, 0, store.Len())

	trx, created := store.GetOrCreate("a")
	assert.True(t, created)
	assert.Equal(t, 0, trx.Len())
}

func TestStoreSweep_StrictTimeout(t *testing.T) {
	store := NewStore(5 * time.Second)

	old, _ := store.GetOrCreate("old")
	old.Add(recordAt("old", 1000))
	old.Add(recordAt("old", 2000))

	edge, _ := store.GetOrCreate("edge")
	edge.Add(recordAt("edge", 3000))

	fresh, _ := store.GetOrCreate("fresh")
	fresh.Add(recordAt("fresh", 7000))

	evicted := store.Sweep(8000)

	require.Len(t, evicted, 1)
	assert.Equal(t, "old", evicted[0].ID)
	assert.Equal(t, 2, evicted[0].Discarded)

	_, created := store.GetOrCreate("edge")
	assert.False(t, created, "age equal to the timeout must survive")
	_, created = store.GetOrCreate("fresh")
	assert.False(t, created)
}

func TestStoreSweep_Idempotent(t *testing.T) {
	store := NewStore(time.Second)
	for _, id := range []string{"a", "b", "c"} {
		trx, _ := store.GetOrCreate(id)
		trx.Add(recordAt(id, 0))
	}

	first := store.Sweep(5000)
	assert.Len(t, first, 3)

	second := store.Sweep(5000)
	assert.Empty(t, second)
	assert.Equal(t, 0, store.Len())
}

func TestStoreSweep_KeepsTriggeredAndEmpty(t *testing.T) {
	store := NewStore(time.Second)

	triggered, _ := store.GetOrCreate("t")
	triggered.Add(recordAt("t", 0))
	triggered.Trigger()

	store.GetOrCreate("empty")

	assert.Empty(t, store.Sweep(60000))
	assert.Equal(t, 2, store.Len())
}

func TestTransactionAge(t *testing.T) {
	trx := newTransaction("a")
	assert.Equal(t, int64(0), trx.Age(100))

	trx.Add(recordAt("a", 100))
	trx.Add(recordAt("a", 400))

	assert.Equal(t, int64(600), trx.Age(1000))
	assert.Equal(t, int64(0), trx.Age(400))
	assert.Equal(t, int64(0), trx.Age(50), "clock skew must not produce a negative age")
}

func TestTransactionTrigger(t *testing.T) {
	trx := newTransaction("a")
	first := recordAt("a", 1)
	second := recordAt("a", 2)
	trx.Add(first)
	trx.Add(second)

	drained := trx.Trigger()

	assert.True(t, trx.Triggered())
	assert.Equal(t, []*Record{first, second}, drained)
	assert.Equal(t, 0, trx.Len())
}
