package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/psantana5/grain/pkg/models"
)

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	l := walnut("u1", "l1", models.Now())
	if err := s.Lumber().Create(ctx, l); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	l.Species = "changed after create"
	got, err := s.Lumber().Get(ctx, "u1", "l1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Species != "Black Walnut" {
		t.Errorf("store shares memory with caller: species = %q", got.Species)
	}

	got.Species = "changed after get"
	again, _ := s.Lumber().Get(ctx, "u1", "l1")
	if again.Species != "Black Walnut" {
		t.Errorf("store shares memory with reader: species = %q", again.Species)
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tool := &models.Tool{Record: newRecord("u1", fmt.Sprintf("tool-%d", i), models.Now()),
				Name: "Chisel", Condition: models.ToolGood}
			if err := s.Tools().Create(ctx, tool); err != nil {
				t.Errorf("Create failed: %v", err)
			}
			if _, err := s.Tools().List(ctx, "u1", ListFilter{}); err != nil {
				t.Errorf("List failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	tools, err := s.Tools().List(ctx, "u1", ListFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tools) != 50 {
		t.Errorf("Expected 50 tools, got %d", len(tools))
	}
}

func TestNewStoreUnsupported(t *testing.T) {
	if _, err := NewStore(context.Background(), Config{Type: "oracle"}); err != ErrUnsupportedDatabase {
		t.Errorf("Expected ErrUnsupportedDatabase, got %v", err)
	}
}
