package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"FxCast/internal/domain/errs"
	"FxCast/pkg/cache"
)

func TestCatalogFilter(t *testing.T) {
	c := loadedCatalog(t, &stubSource{})

	cases := []struct {
		term string
		want []string
	}{
		{"", []string{"USD_RUB", "AAPL", "GC=F"}},
		{"apple", []string{"AAPL"}},
		{"ДОЛЛАР", []string{"USD_RUB"}},
		{"=f", []string{"GC=F"}},
		{"nothing", nil},
	}
	for _, tc := range cases {
		got := c.Filter(tc.term)
		if len(got) != len(tc.want) {
			t.Fatalf("filter %q: got %v", tc.term, got)
		}
		for i := range got {
			if got[i].Value != tc.want[i] {
				t.Fatalf("filter %q: order mismatch %v", tc.term, got)
			}
		}
	}

	once := c.Filter("u")
	twice := c.Filter("u")
	if len(once) != len(twice) {
		t.Fatalf("filter not idempotent")
	}
}

func TestCatalogLoadFailureEmptiesCatalog(t *testing.T) {
	src := &stubSource{}
	c := loadedCatalog(t, src)
	if !c.Contains("AAPL") {
		t.Fatalf("expected AAPL after load")
	}

	src.symErr = errs.Server("symbols", 502, "bad gateway")
	_, err := c.Load(context.Background())
	if !errors.Is(err, errs.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if len(c.Symbols()) != 0 || c.Contains("AAPL") {
		t.Fatalf("catalog should be empty after failed load")
	}
}

func TestCatalogUsesCache(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()
	src := &stubSource{}
	c := NewCatalogLoader(src, mem, time.Minute, nil)
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	src.symErr = errors.New("backend gone")
	syms, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("cached load: %v", err)
	}
	if len(syms) != len(testSymbols) {
		t.Fatalf("expected %d cached symbols, got %d", len(testSymbols), len(syms))
	}

	c.Invalidate(context.Background())
	if _, err := c.Load(context.Background()); !errors.Is(err, errs.ErrNetwork) {
		t.Fatalf("expected network error after invalidate, got %v", err)
	}
}
