package store

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
)

// These tests exercise the transactional vote toggle against a real database.
// They skip unless TEST_DATABASE_URL is set.

func openTestStore(t *testing.T) *PostgresStore {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := Open(ctx, databaseURL)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := ApplyMigrations(ctx, db, "../../db/migrations"); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewPostgresStore(db)
}

func insertTestIssue(t *testing.T, s *PostgresStore, issueID string) {
	t.Helper()
	ctx := context.Background()
	err := s.InsertIssue(ctx, Issue{
		ID:          issueID,
		UserID:      "usr_toggle_test",
		CategoryID:  "cat_toggle_test",
		Title:       "toggle test",
		Description: "toggle test",
		Status:      "pending",
	})
	if err != nil {
		t.Fatalf("insert issue: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.DB().ExecContext(ctx, `DELETE FROM votes WHERE issue_id=$1`, issueID)
		_, _ = s.DB().ExecContext(ctx, `DELETE FROM issues WHERE id=$1`, issueID)
	})
}

func voteCountFor(t *testing.T, s *PostgresStore, issueID string) (counter, rows int) {
	t.Helper()
	ctx := context.Background()
	if err := s.DB().QueryRowContext(ctx, `SELECT vote_count FROM issues WHERE id=$1`, issueID).Scan(&counter); err != nil {
		t.Fatalf("read vote_count: %v", err)
	}
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM votes WHERE issue_id=$1`, issueID).Scan(&rows); err != nil {
		t.Fatalf("count votes: %v", err)
	}
	return counter, rows
}

func TestToggleVotePairReturnsToOriginalCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	issueID := "iss_toggle_pair_test"
	insertTestIssue(t, s, issueID)

	voted, err := s.ToggleVote(ctx, "vote_pair_1", issueID, "usr_pair")
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !voted {
		t.Fatal("first toggle should report voted=true")
	}
	if counter, rows := voteCountFor(t, s, issueID); counter != 1 || rows != 1 {
		t.Fatalf("after first toggle: counter=%d rows=%d, want 1/1", counter, rows)
	}
	if has, err := s.HasVote(ctx, issueID, "usr_pair"); err != nil || !has {
		t.Fatalf("expected vote row after first toggle: has=%v err=%v", has, err)
	}

	voted, err = s.ToggleVote(ctx, "vote_pair_2", issueID, "usr_pair")
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if voted {
		t.Fatal("second toggle should report voted=false")
	}
	if counter, rows := voteCountFor(t, s, issueID); counter != 0 || rows != 0 {
		t.Fatalf("after second toggle: counter=%d rows=%d, want 0/0", counter, rows)
	}
	if has, err := s.HasVote(ctx, issueID, "usr_pair"); err != nil || has {
		t.Fatalf("expected no vote row after second toggle: has=%v err=%v", has, err)
	}
}

func TestToggleVoteConcurrentDistinctUsers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	issueID := "iss_toggle_concurrent_test"
	insertTestIssue(t, s, issueID)

	const voters = 20
	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := fmt.Sprintf("usr_concurrent_%d", n)
			if _, err := s.ToggleVote(ctx, fmt.Sprintf("vote_concurrent_%d", n), issueID, userID); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent toggle: %v", err)
	}

	counter, rows := voteCountFor(t, s, issueID)
	if counter != voters || rows != voters {
		t.Fatalf("after %d concurrent votes: counter=%d rows=%d", voters, counter, rows)
	}
}
