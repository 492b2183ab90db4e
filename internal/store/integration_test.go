//go:build integration
// +build integration

package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrapra-work/rag-system-api/internal/log"
	"github.com/andrapra-work/rag-system-api/internal/store"
	"github.com/andrapra-work/rag-system-api/internal/testutil"
)

const testDimensions = 1536

// unitVec returns a unit vector with a 1 at the given axis. Two vectors on
// different axes have cosine similarity 0; identical axes give 1.
func unitVec(axis int) []float32 {
	v := make([]float32, testDimensions)
	v[axis%testDimensions] = 1
	return v
}

func setupStore(t *testing.T) (*store.Store, func()) {
	t.Helper()
	dbc, cleanup := testutil.SetupTestDB(t)
	return store.New(dbc.Pool, testDimensions, log.NewNop()), cleanup
}

func TestUsers_CreateAndFetch(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	clientID := uuid.New()
	u, err := s.CreateUser(ctx, "alice@example.com", "hash", clientID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, clientID, u.ClientID)

	byEmail, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, byID.Email)
}

func TestUsers_DuplicateEmail(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "bob@example.com", "hash", uuid.New())
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, "bob@example.com", "hash2", uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)

	// Only one row exists.
	u, err := s.GetUserByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", u.PasswordHash)
}

func TestUsers_UpdatePassword(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "carol@example.com", "old", uuid.New())
	require.NoError(t, err)

	require.NoError(t, s.UpdateUserPassword(ctx, u.ID, "new"))

	updated, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", updated.PasswordHash)

	assert.ErrorIs(t, s.UpdateUserPassword(ctx, uuid.New(), "x"), store.ErrNotFound)
}

func TestDocuments_CreateAndGet(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	clientID := uuid.New()
	doc, err := s.CreateDocument(ctx, clientID, "Title", "Content", unitVec(0),
		map[string]any{"source": "test"})
	require.NoError(t, err)
	assert.Equal(t, "Title", doc.Title)
	assert.Equal(t, "test", doc.Metadata["source"])
	assert.False(t, doc.CreatedAt.IsZero())

	got, err := s.GetDocument(ctx, doc.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, doc.Content, got.Content)

	// Wrong tenant sees nothing.
	_, err = s.GetDocument(ctx, doc.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDocuments_Pagination(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	clientID := uuid.New()
	for i := 0; i < 15; i++ {
		_, err := s.CreateDocument(ctx, clientID, fmt.Sprintf("doc-%d", i), "content", unitVec(i), nil)
		require.NoError(t, err)
	}

	page1, err := s.ListDocuments(ctx, clientID, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page1.Data, 10)
	assert.Equal(t, int64(15), page1.Total)
	assert.Equal(t, int64(2), page1.TotalPages)

	page2, err := s.ListDocuments(ctx, clientID, 2, 10)
	require.NoError(t, err)
	assert.Len(t, page2.Data, 5)
	assert.Equal(t, 2, page2.Page)
	assert.Equal(t, int64(2), page2.TotalPages)
}

func TestDocuments_UpdatePartial(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	clientID := uuid.New()
	doc, err := s.CreateDocument(ctx, clientID, "Old Title", "Old content", unitVec(0), nil)
	require.NoError(t, err)

	newTitle := "New Title"
	updated, err := s.UpdateDocument(ctx, doc.ID, clientID, store.DocumentUpdate{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, "Old content", updated.Content)

	// Update from the wrong tenant must not touch the row.
	other := "Hijacked"
	_, err = s.UpdateDocument(ctx, doc.ID, uuid.New(), store.DocumentUpdate{Title: &other})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDocuments_Delete(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	clientID := uuid.New()
	doc, err := s.CreateDocument(ctx, clientID, "t", "c", unitVec(0), nil)
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteDocument(ctx, doc.ID, uuid.New()), store.ErrNotFound)
	require.NoError(t, s.DeleteDocument(ctx, doc.ID, clientID))
	_, err = s.GetDocument(ctx, doc.ID, clientID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSearchDocuments_TenantIsolation(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	tenantA := uuid.New()
	tenantB := uuid.New()

	_, err := s.CreateDocument(ctx, tenantA, "A doc", "alpha", unitVec(0), nil)
	require.NoError(t, err)
	docB, err := s.CreateDocument(ctx, tenantB, "B doc", "beta", unitVec(0), nil)
	require.NoError(t, err)

	// Identical embedding, so B's document would be a perfect match, but
	// the search is scoped to tenant A.
	results, err := s.SearchDocuments(ctx, unitVec(0), tenantA, 10, 0.1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "A doc", results[0].Title)
	assert.NotEqual(t, docB.ID, results[0].ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 0.001)
}

func TestSearchDocuments_ThresholdAndLimit(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	clientID := uuid.New()
	_, err := s.CreateDocument(ctx, clientID, "match", "close", unitVec(0), nil)
	require.NoError(t, err)
	_, err = s.CreateDocument(ctx, clientID, "orthogonal", "far", unitVec(1), nil)
	require.NoError(t, err)

	// Orthogonal vector has similarity 0, below the threshold.
	results, err := s.SearchDocuments(ctx, unitVec(0), clientID, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "match", results[0].Title)

	// Threshold 0 lets everything through, limit caps the result set.
	results, err = s.SearchDocuments(ctx, unitVec(0), clientID, 1, 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestLogQuery_Inserts(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	err := s.LogQuery(ctx, uuid.New(), uuid.New(), "what is alpha?", unitVec(0))
	require.NoError(t, err)

	var count int
	require.NoError(t, s.Pool().QueryRow(ctx, "SELECT COUNT(*) FROM query_logs").Scan(&count))
	assert.Equal(t, 1, count)
}
