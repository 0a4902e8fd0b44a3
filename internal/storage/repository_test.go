package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"finance/internal/core"
	"finance/internal/ledger"
	"finance/internal/store"

	"github.com/shopspring/decimal"
)

func newRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "finance.db")
	repo, err := NewSQLiteRepository(path, nil)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func buildLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l := ledger.New()
	for i, amount := range []string{"10.25", "0.1", "999"} {
		name := []string{"Lunch", "Stamp", "Laptop"}[i]
		a := decimal.RequireFromString(amount)
		d := core.NewDate(2024, 7, 3-i)
		cat := ""
		if i == 2 {
			cat = "Tech"
		}
		if _, err := l.Create(ledger.Draft{Name: &name, Amount: &a, Date: &d, Category: &cat}); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.Delete(1); err != nil {
		t.Fatal(err)
	}
	b := decimal.RequireFromString("1500.50")
	if err := l.SetBudget("Tech", &b); err != nil {
		t.Fatal(err)
	}
	return l
}

func TestLoadEmptyDatabase(t *testing.T) {
	repo, _ := newRepo(t)
	if _, err := repo.Load(context.Background()); !errors.Is(err, store.ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	l := buildLedger(t)

	if err := repo.Save(ctx, l.Serialize()); err != nil {
		t.Fatalf("save: %v", err)
	}
	doc, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	restored := ledger.New()
	if err := restored.Deserialize(doc); err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	if restored.NextID() != 3 {
		t.Fatalf("expected next id 3, got %d", restored.NextID())
	}
	want, got := l.Transactions(), restored.Transactions()
	if len(got) != len(want) {
		t.Fatalf("expected %d transactions, got %d", len(want), len(got))
	}
	for i := range want {
		if want[i].ID != got[i].ID || !want[i].Amount.Equal(got[i].Amount) || !want[i].Date.Equal(got[i].Date) ||
			want[i].Category != got[i].Category || want[i].Name != got[i].Name {
			t.Fatalf("transaction %d differs: %+v vs %+v", i, want[i], got[i])
		}
	}
	if b, ok := restored.Budget("Tech"); !ok || b.String() != "1500.5" {
		t.Fatalf("unexpected budget %s", b)
	}
}

func TestSaveReplacesPreviousContent(t *testing.T) {
	ctx := context.Background()
	repo, path := newRepo(t)
	l := buildLedger(t)
	if err := repo.Save(ctx, l.Serialize()); err != nil {
		t.Fatal(err)
	}

	if err := l.Delete(0); err != nil {
		t.Fatal(err)
	}
	if err := l.SetBudget("Tech", nil); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, l.Serialize()); err != nil {
		t.Fatal(err)
	}
	repo.Close()

	reopened, err := NewSQLiteRepository(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	doc, err := reopened.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Transactions) != 1 || *doc.Transactions[0].ID != 2 {
		t.Fatalf("expected only transaction 2, got %d rows", len(doc.Transactions))
	}
	if len(doc.Budgets) != 0 {
		t.Fatalf("expected no budgets, got %v", doc.Budgets)
	}
	if err := reopened.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestSaveRejectsIncompleteDocument(t *testing.T) {
	repo, _ := newRepo(t)
	if err := repo.Save(context.Background(), ledger.Document{}); err == nil {
		t.Fatal("expected error for missing next_id")
	}
}
