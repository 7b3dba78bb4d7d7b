package store

import (
	"context"
	"testing"
	"time"
)

// These tests exercise ListIssues' ORDER BY and WHERE clauses against a real
// database. They skip unless TEST_DATABASE_URL is set.

func insertListedIssue(t *testing.T, s *PostgresStore, item Issue) {
	t.Helper()
	ctx := context.Background()
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}
	if err := s.InsertIssue(ctx, item); err != nil {
		t.Fatalf("insert issue %s: %v", item.ID, err)
	}
	t.Cleanup(func() {
		_, _ = s.DB().ExecContext(ctx, `DELETE FROM issues WHERE id=$1`, item.ID)
	})
}

func listedIDs(t *testing.T, s *PostgresStore, filter IssueFilter) []string {
	t.Helper()
	items, err := s.ListIssues(context.Background(), filter)
	if err != nil {
		t.Fatalf("list issues: %v", err)
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestListIssuesOrdersByVotesThenRecency(t *testing.T) {
	s := openTestStore(t)

	// Every row shares a unique category so rows from other tests cannot
	// interleave with the expected order.
	const categoryID = "cat_listing_order_test"
	base := time.Now().UTC().Truncate(time.Second)

	seed := []Issue{
		{ID: "iss_list_top", VoteCount: 9, CreatedAt: base.Add(-10 * time.Minute), LocationLat: 12.98, LocationLong: 77.60},
		{ID: "iss_list_far_lng", VoteCount: 7, CreatedAt: base.Add(-5 * time.Minute), LocationLat: 12.97, LocationLong: 78.20},
		{ID: "iss_list_tie_new", VoteCount: 5, CreatedAt: base.Add(-1 * time.Minute), LocationLat: 12.96, LocationLong: 77.58},
		{ID: "iss_list_tie_old", VoteCount: 5, CreatedAt: base.Add(-3 * time.Minute), LocationLat: 12.97, LocationLong: 77.59},
		{ID: "iss_list_far_lat", VoteCount: 1, CreatedAt: base.Add(-2 * time.Minute), LocationLat: 13.50, LocationLong: 77.59},
	}
	for _, item := range seed {
		item.UserID = "usr_listing_test"
		item.CategoryID = categoryID
		item.Title = "listing test"
		item.Status = "pending"
		insertListedIssue(t, s, item)
	}

	got := listedIDs(t, s, IssueFilter{CategoryID: categoryID})
	want := []string{"iss_list_top", "iss_list_far_lng", "iss_list_tie_new", "iss_list_tie_old", "iss_list_far_lat"}
	assertIDOrder(t, got, want)
}

func TestListIssuesBoundingBoxFiltersBothAxes(t *testing.T) {
	s := openTestStore(t)

	const categoryID = "cat_listing_bounds_test"
	base := time.Now().UTC().Truncate(time.Second)

	seed := []Issue{
		{ID: "iss_bounds_in_a", VoteCount: 3, CreatedAt: base.Add(-2 * time.Minute), LocationLat: 12.98, LocationLong: 77.60},
		{ID: "iss_bounds_in_b", VoteCount: 2, CreatedAt: base.Add(-1 * time.Minute), LocationLat: 12.96, LocationLong: 77.58},
		{ID: "iss_bounds_out_lng", VoteCount: 9, CreatedAt: base.Add(-5 * time.Minute), LocationLat: 12.97, LocationLong: 78.20},
		{ID: "iss_bounds_out_lat", VoteCount: 8, CreatedAt: base.Add(-4 * time.Minute), LocationLat: 13.50, LocationLong: 77.59},
	}
	for _, item := range seed {
		item.UserID = "usr_listing_test"
		item.CategoryID = categoryID
		item.Title = "bounds test"
		item.Status = "pending"
		insertListedIssue(t, s, item)
	}

	got := listedIDs(t, s, IssueFilter{
		CategoryID: categoryID,
		HasBounds:  true,
		LatMin:     12.97 - 0.05,
		LatMax:     12.97 + 0.05,
		LngMin:     77.59 - 0.05,
		LngMax:     77.59 + 0.05,
	})
	assertIDOrder(t, got, []string{"iss_bounds_in_a", "iss_bounds_in_b"})
}

func TestListIssuesHonorsLimit(t *testing.T) {
	s := openTestStore(t)

	const categoryID = "cat_listing_limit_test"
	base := time.Now().UTC().Truncate(time.Second)

	for i, id := range []string{"iss_limit_a", "iss_limit_b", "iss_limit_c"} {
		insertListedIssue(t, s, Issue{
			ID:          id,
			UserID:      "usr_listing_test",
			CategoryID:  categoryID,
			Title:       "limit test",
			Status:      "pending",
			VoteCount:   10 - i,
			CreatedAt:   base.Add(time.Duration(-i) * time.Minute),
			LocationLat: 12.97,
		})
	}

	got := listedIDs(t, s, IssueFilter{CategoryID: categoryID, Limit: 2})
	assertIDOrder(t, got, []string{"iss_limit_a", "iss_limit_b"})
}

func assertIDOrder(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d issues %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %s, want %s (full order %v)", i, got[i], want[i], got)
		}
	}
}
