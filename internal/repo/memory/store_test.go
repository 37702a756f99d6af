package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/postboard/internal/domain"
	"github.com/geocoder89/postboard/internal/domain/user"
)

func strPtr(s string) *string { return &s }

func TestUsersRepo_CreateRejectsDuplicateEmail(t *testing.T) {
	users := NewStore().Users()
	ctx := context.Background()

	_, err := users.Create(ctx, "alice@example.com", "hash", nil)
	require.NoError(t, err)

	_, err = users.Create(ctx, "alice@example.com", "hash2", nil)
	assert.ErrorIs(t, err, domain.ErrConflict)

	all, err := users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUsersRepo_IDsAreNotReused(t *testing.T) {
	users := NewStore().Users()
	ctx := context.Background()

	first, err := users.Create(ctx, "a@example.com", "h", nil)
	require.NoError(t, err)
	require.NoError(t, users.Delete(ctx, first.ID))

	second, err := users.Create(ctx, "a@example.com", "h", nil)
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)
}

func TestUsersRepo_DeleteCascadesToPosts(t *testing.T) {
	store := NewStore()
	users, posts := store.Users(), store.Posts()
	ctx := context.Background()
	now := time.Now().UTC()

	alice, err := users.Create(ctx, "alice@example.com", "h", nil)
	require.NoError(t, err)
	bob, err := users.Create(ctx, "bob@example.com", "h", nil)
	require.NoError(t, err)

	_, err = posts.Create(ctx, alice.ID, "one", now)
	require.NoError(t, err)
	_, err = posts.Create(ctx, alice.ID, "two", now)
	require.NoError(t, err)
	kept, err := posts.Create(ctx, bob.ID, "bob's", now)
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, alice.ID))

	gone, err := posts.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, gone)

	left, err := posts.ListByUser(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, kept.ID, left[0].ID)
}

func TestPostsRepo_CreateRequiresOwner(t *testing.T) {
	posts := NewStore().Posts()

	_, err := posts.Create(context.Background(), 99, "orphan", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUsersRepo_Filter(t *testing.T) {
	users := NewStore().Users()
	ctx := context.Background()
	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	alice, err := users.Create(ctx, "alice@example.com", "h", strPtr("Alice Liddell"))
	require.NoError(t, err)
	_, err = users.Create(ctx, "bob@example.com", "h", strPtr("Bob"))
	require.NoError(t, err)
	carol, err := users.Create(ctx, "carol@alice.org", "h", nil)
	require.NoError(t, err)

	require.NoError(t, users.SetLastLogin(ctx, alice.ID, t0.Add(time.Hour)))
	require.NoError(t, users.SetLastLogin(ctx, carol.ID, t0.Add(-time.Hour)))

	after := t0
	tests := []struct {
		name    string
		filter  user.Filter
		wantIDs []int64
	}{
		{name: "no_criteria", filter: user.Filter{}, wantIDs: []int64{1, 2, 3}},
		{name: "email_substring_case_insensitive", filter: user.Filter{Email: strPtr("ALICE")}, wantIDs: []int64{1, 3}},
		{name: "name_substring", filter: user.Filter{FullName: strPtr("lid")}, wantIDs: []int64{1}},
		{name: "login_after_inclusive", filter: user.Filter{LoginAfter: &after}, wantIDs: []int64{1}},
		{name: "conjunctive", filter: user.Filter{Email: strPtr("alice"), LoginAfter: &after}, wantIDs: []int64{1}},
		{name: "no_match", filter: user.Filter{Email: strPtr("zed")}, wantIDs: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := users.Filter(ctx, tt.filter)
			require.NoError(t, err)

			ids := make([]int64, 0, len(got))
			for _, u := range got {
				ids = append(ids, u.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestUsersRepo_ReturnsCopies(t *testing.T) {
	users := NewStore().Users()
	ctx := context.Background()

	u, err := users.Create(ctx, "dave@example.com", "h", strPtr("Dave"))
	require.NoError(t, err)

	*u.FullName = "Mallory"

	again, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dave", *again.FullName)
}
