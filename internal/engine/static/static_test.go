package static

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
	"jobscraper/pkg/utils"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Engines.RequestTimeout = 5 * time.Second
	cfg.Engines.MaxHTTPRetries = 1
	cfg.Engines.UserAgents = []string{"test-agent/1.0", "test-agent/2.0"}
	return cfg
}

var testGeneric = models.SelectorMap{
	models.SelectorJobTitle:    {"h1.title"},
	models.SelectorCompany:     {".company"},
	models.SelectorLocation:    {".location"},
	models.SelectorDescription: {".description"},
	models.SelectorJobLinks:    {"a.job-link"},
	models.SelectorNextPage:    {"a.next"},
}

func listingPage(links []string, next string) string {
	body := "<html><body>"
	for _, l := range links {
		body += fmt.Sprintf(`<a class="job-link" href=%q>job</a>`, l)
	}
	if next != "" {
		body += fmt.Sprintf(`<a class="next" href=%q>next</a>`, next)
	}
	return body + "</body></html>"
}

// TestListJobsTraversesPagination walks two listing pages where the
// second repeats one URL from the first. The repeat is still emitted
// (flagging duplicates is the deduplicator's job, and it counts them),
// and the traversal stops when no next-page locator remains.
func TestListJobsTraversesPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// page 2 repeats /jobs/3 and has no next link
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, listingPage([]string{"/jobs/3", "/jobs/4", "/jobs/5"}, ""))
			return
		}
		fmt.Fprint(w, listingPage([]string{"/jobs/1", "/jobs/2", "/jobs/3"}, "/jobs?page=2"))
	}))
	defer srv.Close()

	a := New(testConfig(), testGeneric, logging.NewMultiLogger())
	board := &models.JobBoard{ID: "b1", Name: "Test Board", BaseURL: srv.URL + "/jobs"}

	urls, pages, err := a.ListJobs(context.Background(), board, "", "", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
	require.Len(t, urls, 6)
	assert.Equal(t, srv.URL+"/jobs/1", urls[0])
	assert.Equal(t, srv.URL+"/jobs/3", urls[3], "the cross-page repeat must be re-emitted, not suppressed")
	assert.Equal(t, srv.URL+"/jobs/5", urls[5])
}

// A page contributing no new URLs ends the traversal without re-emitting
// its links, even when it still advertises a next page.
func TestListJobsStopsWhenPageYieldsNothingNew(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		next := "/jobs?page=2"
		if page == "2" {
			next = "/jobs?page=3"
		}
		// every page serves the same three links
		fmt.Fprint(w, listingPage([]string{"/jobs/1", "/jobs/2", "/jobs/3"}, next))
	}))
	defer srv.Close()

	a := New(testConfig(), testGeneric, logging.NewMultiLogger())
	board := &models.JobBoard{ID: "b1", BaseURL: srv.URL + "/jobs"}

	urls, pages, err := a.ListJobs(context.Background(), board, "", "", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, pages, "the all-repeat second page is fetched, then traversal stops")
	assert.Len(t, urls, 3)
}

func TestListJobsStopsAtMaxPages(t *testing.T) {
	var pagesServed int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pagesServed++
		fmt.Fprint(w, listingPage(
			[]string{fmt.Sprintf("/jobs/%d", pagesServed)},
			fmt.Sprintf("/jobs?page=%d", pagesServed+1),
		))
	}))
	defer srv.Close()

	a := New(testConfig(), testGeneric, logging.NewMultiLogger())
	board := &models.JobBoard{ID: "b1", BaseURL: srv.URL + "/jobs"}

	urls, pages, err := a.ListJobs(context.Background(), board, "", "", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
	assert.Len(t, urls, 3)
}

func TestExtractJobAppliesSelectorsWithFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<h2 class="headline">Senior Gopher</h2>
			<div class="company">Acme Corp</div>
			<div class="location">Berlin</div>
			<div class="description">Write Go services all day.</div>
		</body></html>`)
	}))
	defer srv.Close()

	a := New(testConfig(), testGeneric, logging.NewMultiLogger())
	board := &models.JobBoard{ID: "b1", Name: "Test Board"}

	// The board-specific title selector wins over the generic h1.title.
	selectors := models.SelectorMap{models.SelectorJobTitle: {"h2.headline"}}

	job, err := a.ExtractJob(context.Background(), board, srv.URL+"/jobs/1", selectors)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "Senior Gopher", job.Title)
	assert.Equal(t, "Acme Corp", job.Company)
	assert.Equal(t, "Berlin", job.Location)
	assert.Equal(t, models.EngineStatic, job.Engine)
	assert.Equal(t, "b1", job.BoardID)
}

// A detail page with no recognizable title/company yields nil, nil: the
// record is skipped at emission rather than surfaced as an error.
func TestExtractJobSkipsRecordMissingRequiredFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>nothing to see</p></body></html>`)
	}))
	defer srv.Close()

	a := New(testConfig(), testGeneric, logging.NewMultiLogger())
	board := &models.JobBoard{ID: "b1"}

	job, err := a.ExtractJob(context.Background(), board, srv.URL, nil)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestFetchSurfacesRateLimitedKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := New(testConfig(), testGeneric, logging.NewMultiLogger())
	board := &models.JobBoard{ID: "b1", BaseURL: srv.URL}

	_, _, err := a.ListJobs(context.Background(), board, "", "", 1)
	require.Error(t, err)
	kind, ok := utils.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, utils.ErrKindRateLimited, kind)
}

func TestUserAgentRotation(t *testing.T) {
	var agents []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.Header.Get("User-Agent"))
		fmt.Fprint(w, "<html></html>")
	}))
	defer srv.Close()

	a := New(testConfig(), testGeneric, logging.NewMultiLogger())
	board := &models.JobBoard{ID: "b1", BaseURL: srv.URL}

	for i := 0; i < 2; i++ {
		_, _, err := a.ListJobs(context.Background(), board, "", "", 1)
		require.NoError(t, err)
	}
	require.Len(t, agents, 2)
	assert.NotEqual(t, agents[0], agents[1])
}
