package config

import (
	"testing"
	"time"
)

func TestResolveBudgetCoversWorstCaseLoop(t *testing.T) {
	cfg := &Config{
		CandidateLimit:         8,
		MetadataTimeoutSeconds: 10,
		IndexerTimeoutSeconds:  15,
		DebridTimeoutSeconds:   20,
	}

	// normalization + indexer query + 8 candidates x 3 debrid calls
	want := 10*time.Second + 15*time.Second + 8*3*20*time.Second
	if got := cfg.ResolveBudget(); got != want {
		t.Errorf("expected budget %v, got %v", want, got)
	}

	// Budget scales with the candidate limit
	cfg.CandidateLimit = 2
	want = 10*time.Second + 15*time.Second + 2*3*20*time.Second
	if got := cfg.ResolveBudget(); got != want {
		t.Errorf("expected budget %v with limit 2, got %v", want, got)
	}
}

func TestTimeoutAccessors(t *testing.T) {
	cfg := &Config{
		MetadataTimeoutSeconds: 10,
		IndexerTimeoutSeconds:  15,
		DebridTimeoutSeconds:   20,
	}

	if cfg.MetadataTimeout() != 10*time.Second {
		t.Errorf("unexpected metadata timeout: %v", cfg.MetadataTimeout())
	}
	if cfg.IndexerTimeout() != 15*time.Second {
		t.Errorf("unexpected indexer timeout: %v", cfg.IndexerTimeout())
	}
	if cfg.DebridTimeout() != 20*time.Second {
		t.Errorf("unexpected debrid timeout: %v", cfg.DebridTimeout())
	}
}
