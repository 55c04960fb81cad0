package docstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForSnapshot(t *testing.T, ch <-chan []Document) []Document {
	t.Helper()
	select {
	case docs := <-ch:
		return docs
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestMemoryGetMissingReturnsNotFound(t *testing.T) {
	store := NewMemory()
	_, err := store.Get(context.Background(), "users/u1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var storeErr *Error
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "get", storeErr.Op)
	assert.Equal(t, "users/u1", storeErr.Path)
}

func TestMemoryRejectsInvalidPaths(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	err := store.Set(ctx, "users", Fields{"a": 1})
	assert.True(t, errors.Is(err, ErrInvalidPath))

	_, err = store.GetAll(ctx, "users/u1", Query{})
	assert.True(t, errors.Is(err, ErrInvalidPath))

	_, err = store.Get(ctx, "users//cart/p1")
	assert.True(t, errors.Is(err, ErrInvalidPath))
}

func TestMemoryCreateUpdateDelete(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	path := "users/u1/cart/p1"

	require.NoError(t, store.Create(ctx, path, Fields{"name": "Shirt", "quantity": 1}))
	err := store.Create(ctx, path, Fields{"name": "Shirt", "quantity": 1})
	assert.True(t, errors.Is(err, ErrAlreadyExists))

	require.NoError(t, store.Update(ctx, path, Fields{"quantity": Increment(2)}))
	doc, err := store.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "p1", doc.ID)
	assert.Equal(t, int64(3), doc.Fields["quantity"])
	assert.Equal(t, "Shirt", doc.Fields["name"])

	err = store.Update(ctx, "users/u1/cart/missing", Fields{"quantity": 2})
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, store.Delete(ctx, path))
	require.NoError(t, store.Delete(ctx, path), "deleting a missing document is a no-op")
	_, err = store.Get(ctx, path)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryConcurrentIncrementsAreNotLost(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	path := "users/u1/cart/p1"
	require.NoError(t, store.Set(ctx, path, Fields{"quantity": 1}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Update(ctx, path, Fields{"quantity": Increment(1)}))
		}()
	}
	wg.Wait()

	doc, err := store.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, int64(51), doc.Fields["quantity"])
}

func TestMemoryServerTimestampUsesStoreClock(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store := NewMemory().WithClock(func() time.Time { return fixed })
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "orders/o1", Fields{"createdAt": ServerTimestamp}))
	doc, err := store.Get(ctx, "orders/o1")
	require.NoError(t, err)
	assert.Equal(t, fixed, doc.Fields["createdAt"])
}

func TestMemoryCommitIsAllOrNothing(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "users/u1/cart/p1", Fields{"quantity": 1}))

	err := store.Commit(ctx, []Write{
		CreateWrite("orders/o1", Fields{"total": 10}),
		DeleteWrite("users/u1/cart/p1"),
		UpdateWrite("users/u1/cart/missing", Fields{"quantity": 2}),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = store.Get(ctx, "orders/o1")
	assert.True(t, errors.Is(err, ErrNotFound), "order must not be written when the batch fails")
	_, err = store.Get(ctx, "users/u1/cart/p1")
	assert.NoError(t, err, "cart line must survive a failed batch")

	require.NoError(t, store.Commit(ctx, []Write{
		CreateWrite("orders/o1", Fields{"total": 10}),
		DeleteWrite("users/u1/cart/p1"),
	}))
	_, err = store.Get(ctx, "users/u1/cart/p1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryGetAllFiltersAndOrders(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "orders/a", Fields{"userId": "u1", "total": 30}))
	require.NoError(t, store.Set(ctx, "orders/b", Fields{"userId": "u2", "total": 10}))
	require.NoError(t, store.Set(ctx, "orders/c", Fields{"userId": "u1", "total": 20}))
	require.NoError(t, store.Set(ctx, "users/u1/cart/p1", Fields{"quantity": 1}))

	docs, err := store.GetAll(ctx, "orders", Query{}.Where("userId", "u1").OrderBy("total", true))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "c", docs[1].ID)

	docs, err = store.GetAll(ctx, "orders", Query{}.Limit(1))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].ID)
}

func TestMemorySubscribeDeliversFullSets(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "users/u1/cart/p1", Fields{"quantity": 1}))

	ch := make(chan []Document, 16)
	unsubscribe, err := store.Subscribe(ctx, "users/u1/cart", func(docs []Document, err error) {
		assert.NoError(t, err)
		ch <- docs
	})
	require.NoError(t, err)

	initial := waitForSnapshot(t, ch)
	require.Len(t, initial, 1)

	require.NoError(t, store.Set(ctx, "users/u1/cart/p2", Fields{"quantity": 4}))
	var latest []Document
	require.Eventually(t, func() bool {
		select {
		case latest = <-ch:
		default:
		}
		return len(latest) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "p1", latest[0].ID)
	assert.Equal(t, "p2", latest[1].ID)

	// writes to another user's cart never reach this subscription
	require.NoError(t, store.Set(ctx, "users/u2/cart/p9", Fields{"quantity": 1}))

	unsubscribe()
	unsubscribe()

	require.NoError(t, store.Delete(ctx, "users/u1/cart/p1"))
	select {
	case docs := <-ch:
		assert.Len(t, docs, 2, "no delivery may reflect writes after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMemorySubscriberMayWriteBack(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	done := make(chan struct{})
	var once sync.Once
	unsubscribe, err := store.Subscribe(ctx, "users/u1/favorites", func(docs []Document, err error) {
		if len(docs) == 1 {
			assert.NoError(t, store.Set(ctx, "users/u1/cart/"+docs[0].ID, Fields{"quantity": 1}))
			once.Do(func() { close(done) })
		}
	})
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, store.Set(ctx, "users/u1/favorites/p1", Fields{"name": "Hat"}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never ran")
	}
	_, err = store.Get(ctx, "users/u1/cart/p1")
	assert.NoError(t, err)
}
