package ai

import (
	"context"
	"testing"
	"time"
)

func TestLimiters_OnePerKey(t *testing.T) {
	l := NewLimiters(1, 1)

	a := l.Get(LimiterKey{Provider: ProviderOpenAI, Operation: OperationEmbed})
	b := l.Get(LimiterKey{Provider: ProviderOpenAI, Operation: OperationEmbed})
	c := l.Get(LimiterKey{Provider: ProviderOpenAI, Operation: OperationTranslate})

	if a != b {
		t.Error("expected the same limiter for the same key")
	}
	if a == c {
		t.Error("expected distinct limiters for distinct operations")
	}
}

func TestLimiters_Throttles(t *testing.T) {
	l := NewLimiters(1, 1)
	key := LimiterKey{Provider: ProviderOllama, Operation: OperationEmbed}

	if err := l.Wait(context.Background(), key); err != nil {
		t.Fatalf("first wait should pass: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, key); err == nil {
		t.Error("expected second wait to exceed the deadline")
	}
}

func TestLimiters_DisabledAndNil(t *testing.T) {
	key := LimiterKey{Provider: ProviderOCR, Operation: OperationExtract}

	unlimited := NewLimiters(0, 1)
	for i := 0; i < 100; i++ {
		if err := unlimited.Wait(context.Background(), key); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	var none *Limiters
	if err := none.Wait(context.Background(), key); err != nil {
		t.Errorf("nil limiters should not block: %v", err)
	}
}
