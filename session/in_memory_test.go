package session

import (
	"sync"
	"testing"

	"github.com/hupe1980/bizagent/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertion)
var _ core.SessionStore = (*InMemoryStore)(nil)

func TestInMemoryStore_CreateAndGet(t *testing.T) {
	store := NewInMemoryStore()

	sess, err := store.Create("sales_agent", "user")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "sales_agent", sess.AppName)
	assert.Equal(t, "user", sess.UserID)

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Empty(t, got.Events)
}

func TestInMemoryStore_CreateRequiresScope(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Create("", "user")
	assert.Error(t, err)

	_, err = store.Create("app", "")
	assert.Error(t, err)
}

func TestInMemoryStore_CreateAssignsDistinctIDs(t *testing.T) {
	store := NewInMemoryStore()

	a, err := store.Create("app", "user")
	require.NoError(t, err)
	b, err := store.Create("app", "user")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, store.List("app", "user"))
	assert.Empty(t, store.List("app", "other"))
}

func TestInMemoryStore_UnknownSession(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.AppendEvent("missing", core.NewEvent("run", "user")), ErrNotFound)
	assert.ErrorIs(t, store.ApplyDelta("missing", map[string]any{"k": 1}), ErrNotFound)
	assert.ErrorIs(t, store.Delete("missing"), ErrNotFound)
}

func TestInMemoryStore_AppendEventAndDelta(t *testing.T) {
	store := NewInMemoryStore()
	sess, err := store.Create("app", "user")
	require.NoError(t, err)

	require.NoError(t, store.AppendEvent(sess.ID, core.NewMessageEvent("run", "InsightBot", "hello")))
	require.NoError(t, store.ApplyDelta(sess.ID, map[string]any{"answer": "42"}))

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Events, 1)
	assert.Equal(t, "hello", got.Events[0].Text())

	v, ok := got.GetState("answer")
	assert.True(t, ok)
	assert.Equal(t, "42", v)
}

func TestInMemoryStore_GetReturnsClone(t *testing.T) {
	store := NewInMemoryStore()
	sess, err := store.Create("app", "user")
	require.NoError(t, err)

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	got.SetState("local", true)
	got.AddEvent(core.NewMessageEvent("run", "a", "x"))

	again, err := store.Get(sess.ID)
	require.NoError(t, err)
	_, ok := again.GetState("local")
	assert.False(t, ok)
	assert.Empty(t, again.Events)
}

func TestInMemoryStore_Delete(t *testing.T) {
	store := NewInMemoryStore()
	sess, err := store.Create("app", "user")
	require.NoError(t, err)

	require.NoError(t, store.Delete(sess.ID))

	_, err = store.Get(sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_ConcurrentAppend(t *testing.T) {
	store := NewInMemoryStore()
	sess, err := store.Create("app", "user")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.AppendEvent(sess.ID, core.NewEvent("run", "agent")))
		}()
	}
	wg.Wait()

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Events, 50)
}
