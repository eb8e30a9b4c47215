package cache_test

import (
	"testing"
	"time"

	"github.com/gaqno/financial-app-sub001/internal/domain"
	"github.com/gaqno/financial-app-sub001/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[*domain.CreateTransactionResponse](5 * time.Minute)
	defer c.Close()

	resp := &domain.CreateTransactionResponse{RecurrenceGroupID: "g1"}
	c.Set("idem-1", resp)

	val, ok := c.Get("idem-1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val.RecurrenceGroupID != "g1" {
		t.Errorf("expected group 'g1', got '%s'", val.RecurrenceGroupID)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_SweepRemovesExpired(t *testing.T) {
	c := cache.New[string](20 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	if n := c.Len(); n != 0 {
		t.Errorf("expected janitor to drop expired entry, %d left", n)
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_CloseTwice(t *testing.T) {
	c := cache.New[string](time.Minute)
	c.Close()
	c.Close()
}
