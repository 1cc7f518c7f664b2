package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobscraper/internal/config"
	"jobscraper/internal/logging"
	"jobscraper/pkg/models"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Engines.RequestTimeout = 5 * time.Second
	return cfg
}

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Remote Jobs</title>
    <item>
      <title>Backend Engineer at Acme Corp</title>
      <link>https://example.com/jobs/backend</link>
      <description>Build APIs. Remote position.</description>
      <pubDate>2026-07-30</pubDate>
    </item>
    <item>
      <title>Data Engineer</title>
      <author>Initech</author>
      <link>https://example.com/jobs/data</link>
      <description>Pipelines in New York.</description>
    </item>
    <item>
      <title>SRE at Globex</title>
      <link>https://example.com/jobs/sre</link>
      <description>Keep things up.</description>
    </item>
  </channel>
</rss>`

const atomBody = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Jobs</title>
  <entry>
    <title>Platform Engineer</title>
    <summary>Kubernetes, remote friendly.</summary>
    <link href="https://example.com/jobs/platform"/>
    <author><name>Hooli</name></author>
  </entry>
</feed>`

// TestFeedHappyPath mirrors the feed happy-path scenario: three feed
// entries become three listable, extractable jobs with one page scraped.
func TestFeedHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssBody)
	}))
	defer srv.Close()

	a := New(testConfig(), logging.NewMultiLogger())
	board := &models.JobBoard{ID: "remoteok", Name: "RemoteOK", BaseURL: srv.URL}

	urls, pages, err := a.ListJobs(context.Background(), board, "", "", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
	require.Len(t, urls, 3)

	var jobs []*models.RawJob
	for _, u := range urls {
		job, err := a.ExtractJob(context.Background(), board, u, nil)
		require.NoError(t, err)
		require.NotNil(t, job)
		jobs = append(jobs, job)
	}

	assert.Equal(t, "Backend Engineer at Acme Corp", jobs[0].Title)
	assert.Equal(t, "Acme Corp", jobs[0].Company, "company should parse from the title's ' at ' clause")
	assert.Equal(t, "https://example.com/jobs/backend", jobs[0].URL)
	require.NotNil(t, jobs[0].PostedDate)

	assert.Equal(t, "Initech", jobs[1].Company, "an explicit author field wins over title parsing")
	assert.Equal(t, "Globex", jobs[2].Company)
	for _, job := range jobs {
		assert.Equal(t, models.EngineFeed, job.Engine)
		assert.Equal(t, "remoteok", job.BoardID)
	}
}

func TestFeedParsesAtom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, atomBody)
	}))
	defer srv.Close()

	a := New(testConfig(), logging.NewMultiLogger())
	board := &models.JobBoard{ID: "b1", BaseURL: srv.URL}

	urls, _, err := a.ListJobs(context.Background(), board, "", "", 1)
	require.NoError(t, err)
	require.Len(t, urls, 1)

	job, err := a.ExtractJob(context.Background(), board, urls[0], nil)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "Platform Engineer", job.Title)
	assert.Equal(t, "Hooli", job.Company)
	assert.Equal(t, "https://example.com/jobs/platform", job.URL)
}

func TestFeedUnreachableReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := New(testConfig(), logging.NewMultiLogger())
	board := &models.JobBoard{ID: "b1", BaseURL: srv.URL}

	_, _, err := a.ListJobs(context.Background(), board, "", "", 1)
	require.Error(t, err)
}

func TestFeedItemURLRoundTrip(t *testing.T) {
	u := feedItemURL("https://example.com/feed.xml", 7)
	feedURL, idx, ok := parseFeedItemURL(u)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/feed.xml", feedURL)
	assert.Equal(t, 7, idx)
}
