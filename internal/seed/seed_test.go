package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
)

func TestApply_UpsertsCatalog(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock: %v", err)
	}
	defer mock.Close()

	for _, it := range catalog {
		mock.ExpectExec(`WITH updated AS`).
			WithArgs(it.Title, it.Description, it.Price.String(), it.Category, it.ImageURL).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	n, err := Apply(context.Background(), mock, Options{}, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if n != 12 {
		t.Fatalf("expected 12 items, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestApply_ResetClearsFirst(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM items`).WillReturnResult(pgxmock.NewResult("DELETE", 3))
	for range catalog {
		mock.ExpectExec(`WITH updated AS`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	if _, err := Apply(context.Background(), mock, Options{Reset: true}, nil); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestApply_StopsOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`WITH updated AS`).WillReturnError(errors.New("connection reset"))

	if _, err := Apply(context.Background(), mock, Options{}, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCatalog_Categories(t *testing.T) {
	counts := map[string]int{}
	for _, it := range catalog {
		if it.Price.IsNegative() {
			t.Fatalf("negative price on %q", it.Title)
		}
		counts[it.Category]++
	}
	if counts["Electronics"] != 5 || counts["Sports"] != 3 || counts["Home"] != 4 {
		t.Fatalf("unexpected category split %v", counts)
	}
}
