package blog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore tallies read calls so tests can prove which lookups a
// request did, and did not, trigger.
type countingStore struct {
	Store
	findOneCalls  int
	findManyCalls int
}

func (c *countingStore) FindOne(ctx context.Context, collection string, filter Filter) (Doc, error) {
	c.findOneCalls++
	return c.Store.FindOne(ctx, collection, filter)
}

func (c *countingStore) FindMany(ctx context.Context, collection string, filter Filter) ([]Doc, error) {
	c.findManyCalls++
	return c.Store.FindMany(ctx, collection, filter)
}

func seedGraph(t *testing.T, store Store) (user, post, comment Doc) {
	t.Helper()
	ctx := context.Background()
	user, err := store.Insert(ctx, colUsers, Doc{"username": "alice", "email": "a@x.com", "displayName": "Alice", "password": "hash"})
	require.NoError(t, err)
	post, err = store.Insert(ctx, colPosts, Doc{"authorId": user["id"], "title": "T", "body": "B"})
	require.NoError(t, err)
	comment, err = store.Insert(ctx, colComments, Doc{"userId": user["id"], "postId": post["id"], "body": "nice"})
	require.NoError(t, err)
	return user, post, comment
}

func TestResolvePostRelations(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	user, post, _ := seedGraph(t, store)

	got, err := resolvePostAuthor(ctx, store, post)
	require.NoError(t, err)
	author, ok := got.(*User)
	require.True(t, ok)
	assert.Equal(t, user["id"], author.ID)
	assert.Equal(t, "Alice", author.DisplayName)

	got, err = resolvePostComments(ctx, store, post)
	require.NoError(t, err)
	comments, ok := got.([]Comment)
	require.True(t, ok)
	require.Len(t, comments, 1)
	assert.Equal(t, "nice", comments[0].Body)
}

func TestResolveCommentRelations(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	user, post, comment := seedGraph(t, store)

	got, err := resolveCommentUser(ctx, store, comment)
	require.NoError(t, err)
	owner, ok := got.(*User)
	require.True(t, ok)
	assert.Equal(t, user["id"], owner.ID)

	got, err = resolveCommentPost(ctx, store, comment)
	require.NoError(t, err)
	parent, ok := got.(*Post)
	require.True(t, ok)
	assert.Equal(t, post["id"], parent.ID)
}

func TestResolveAbsentRelations(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	orphanPost := Doc{"id": "p-1", "authorId": "gone"}
	got, err := resolvePostAuthor(ctx, store, orphanPost)
	require.NoError(t, err)
	assert.Nil(t, got, "missing author resolves to nil, not a failure")

	got, err = resolvePostComments(ctx, store, orphanPost)
	require.NoError(t, err)
	comments, ok := got.([]Comment)
	require.True(t, ok)
	assert.Empty(t, comments)
}

func TestResolversAreIdempotentReads(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	_, post, _ := seedGraph(t, store)

	first, err := resolvePostComments(ctx, store, post)
	require.NoError(t, err)
	second, err := resolvePostComments(ctx, store, post)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDispatchWithoutExpandSkipsRelationLookups(t *testing.T) {
	mem := NewMemStore()
	_, post, _ := seedGraph(t, mem)
	counting := &countingStore{Store: mem}
	codec := NewTokenCodec("test-secret", time.Hour, nil)
	d := NewDispatcher(counting, codec, nil)

	resp := d.Dispatch(context.Background(), Request{
		Operation: "post",
		Args:      map[string]any{"id": post["id"]},
	}, nil)
	require.Nil(t, resp.Error)

	assert.Equal(t, 1, counting.findOneCalls, "only the post itself should be fetched")
	assert.Equal(t, 0, counting.findManyCalls, "no comments lookup without a selection")
}

func TestDispatchExpandFetchesOnlySelectedRelations(t *testing.T) {
	mem := NewMemStore()
	_, post, _ := seedGraph(t, mem)
	counting := &countingStore{Store: mem}
	codec := NewTokenCodec("test-secret", time.Hour, nil)
	d := NewDispatcher(counting, codec, nil)

	resp := d.Dispatch(context.Background(), Request{
		Operation: "post",
		Args:      map[string]any{"id": post["id"]},
		Expand:    []string{"comments"},
	}, nil)
	require.Nil(t, resp.Error)

	assert.Equal(t, 1, counting.findOneCalls, "author was not selected, so no user lookup")
	assert.Equal(t, 1, counting.findManyCalls, "exactly one comments lookup")

	doc, ok := resp.Data.(Doc)
	require.True(t, ok)
	assert.Contains(t, doc, "comments")
	assert.NotContains(t, doc, "author")
}
