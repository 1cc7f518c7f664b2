package dedup

import (
	"testing"
	"time"

	"jobscraper/internal/config"
	"jobscraper/pkg/models"
)

func sampleJob(title, company, location, url string) *models.RawJob {
	return &models.RawJob{
		Title:       title,
		Company:     company,
		Location:    location,
		Description: "We are looking for a talented engineer to join our growing team and build great products.",
		URL:         url,
		BoardID:     "board-1",
		FetchedAt:   time.Now(),
	}
}

func TestFingerprintIsDeterministic(t *testing.T) {
	job := sampleJob("Senior Go Engineer", "Acme Corp", "Remote", "https://acme.example.com/jobs/1")
	a := Compute(job, 1)
	b := Compute(job, 2)

	if a.ContentHash != b.ContentHash {
		t.Errorf("ContentHash not deterministic: %q vs %q", a.ContentHash, b.ContentHash)
	}
	if a.NormalizedURL != b.NormalizedURL {
		t.Errorf("NormalizedURL not deterministic: %q vs %q", a.NormalizedURL, b.NormalizedURL)
	}
}

func TestNormalizeTextStripsStopAffixes(t *testing.T) {
	if got := NormalizeText("Senior Go Engineer"); got != "go engineer" {
		t.Errorf("NormalizeText(%q) = %q, want %q", "Senior Go Engineer", got, "go engineer")
	}
}

func TestNormalizeLocationAppliesAliases(t *testing.T) {
	if got := NormalizeLocation("WFH"); got != "remote" {
		t.Errorf("NormalizeLocation(WFH) = %q, want remote", got)
	}
	if got := NormalizeLocation("NYC"); got != "new york" {
		t.Errorf("NormalizeLocation(NYC) = %q, want 'new york'", got)
	}
}

func newTestStore() *Store {
	return NewStore(config.DedupConfig{
		StoreCapacity:       10000,
		EvictionBatch:       1000,
		SimilarityThreshold: 0.85,
	})
}

// An identical posting re-seen from a different URL is still a
// content-hash duplicate.
func TestStoreExactContentHashDuplicate(t *testing.T) {
	s := newTestStore()

	job1 := sampleJob("Go Engineer", "Acme Corp", "Remote", "https://acme.example.com/jobs/1")
	dup, _ := s.Check(job1)
	if dup {
		t.Fatal("first-seen job should not be a duplicate")
	}

	job2 := sampleJob("Go Engineer", "Acme Corp", "Remote", "https://acme.example.com/jobs/2-mirror")
	dup, _ = s.Check(job2)
	if !dup {
		t.Fatal("identical title/company/location should be flagged a content-hash duplicate")
	}
}

func TestStoreExactURLDuplicate(t *testing.T) {
	s := newTestStore()

	job1 := sampleJob("Go Engineer", "Acme Corp", "Remote", "https://acme.example.com/jobs/1?utm=a")
	dup, _ := s.Check(job1)
	if dup {
		t.Fatal("first-seen job should not be a duplicate")
	}

	job2 := sampleJob("Senior Golang Developer II", "Acme Corp", "Remote, USA", "https://acme.example.com/jobs/1?utm=b")
	dup, _ = s.Check(job2)
	if !dup {
		t.Fatal("same normalized URL (ignoring query string) should be a duplicate even with different title")
	}
}

func TestStoreFuzzySimilarityDuplicate(t *testing.T) {
	s := newTestStore()

	job1 := sampleJob("Backend Software Engineer", "Acme Corporation", "New York, NY", "https://acme.example.com/jobs/101")
	if dup, _ := s.Check(job1); dup {
		t.Fatal("first-seen job should not be a duplicate")
	}

	// Near-identical posting re-scraped under a typo'd title and a
	// different URL; should still match via the weighted-similarity tier.
	job2 := sampleJob("Backend Software Enginer", "Acme Corporation", "New York, NY", "https://acme.example.com/careers/102")
	dup, _ := s.Check(job2)
	if !dup {
		t.Fatal("near-identical posting should be flagged duplicate via fuzzy similarity")
	}
}

func TestStoreDistinctJobsAreNotDuplicates(t *testing.T) {
	s := newTestStore()

	jobs := []*models.RawJob{
		sampleJob("Backend Engineer", "Acme Corp", "New York, NY", "https://acme.example.com/jobs/1"),
		sampleJob("Marketing Manager", "Beta Inc", "Austin, TX", "https://beta.example.com/jobs/2"),
		sampleJob("Data Scientist", "Gamma LLC", "Remote", "https://gamma.example.com/jobs/3"),
	}
	for _, j := range jobs {
		if dup, _ := s.Check(j); dup {
			t.Errorf("distinct job %q incorrectly flagged duplicate", j.Title)
		}
	}

	stats := s.Stats()
	if stats.TotalProcessed != 3 || stats.UniqueKept != 3 || stats.DuplicatesFound != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

// TestDedupCountInvariant checks unique+duplicates == total.
func TestDedupCountInvariant(t *testing.T) {
	s := newTestStore()

	total := 0
	jobs := []*models.RawJob{
		sampleJob("Engineer A", "Co A", "NYC", "https://a.example.com/1"),
		sampleJob("Engineer A", "Co A", "NYC", "https://a.example.com/1-dup"),
		sampleJob("Engineer B", "Co B", "SF", "https://b.example.com/2"),
	}
	for _, j := range jobs {
		total++
		s.Check(j)
	}

	stats := s.Stats()
	if stats.UniqueKept+stats.DuplicatesFound != int64(total) {
		t.Errorf("unique(%d)+duplicates(%d) != total(%d)", stats.UniqueKept, stats.DuplicatesFound, total)
	}
}

func TestStoreEvictsOldestOnceOverCapacity(t *testing.T) {
	s := NewStore(config.DedupConfig{StoreCapacity: 5, EvictionBatch: 2, SimilarityThreshold: 0.85})

	titles := []string{"Plumber", "Electrician", "Welder", "Carpenter", "Mason", "Roofer"}
	companies := []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot"}
	locations := []string{"Miami", "Dallas", "Denver", "Boise", "Tulsa", "Reno"}

	for i := 0; i < 6; i++ {
		job := sampleJob(titles[i], companies[i], locations[i], "https://example.com/jobs/"+string(rune('a'+i)))
		if dup, _ := s.Check(job); dup {
			t.Fatalf("job %d (%s/%s) unexpectedly flagged duplicate", i, titles[i], companies[i])
		}
	}

	if s.Size() > 5 {
		t.Errorf("expected store to stay within capacity after eviction, size=%d", s.Size())
	}
}

func TestDedupRate(t *testing.T) {
	stats := Stats{TotalProcessed: 10, DuplicatesFound: 3}
	if got := stats.DedupRate(); got != 0.3 {
		t.Errorf("DedupRate() = %v, want 0.3", got)
	}
	if got := (Stats{}).DedupRate(); got != 0 {
		t.Errorf("DedupRate() with no data = %v, want 0", got)
	}
}
