package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
)

const jobsPayload = `{
  "apiVersion": "2",
  "jobCount": 3,
  "jobs": [
    {
      "id": 118201,
      "url": "https://jobicy.com/jobs/118201-go-engineer",
      "jobTitle": "Senior Go Engineer",
      "companyName": "Acme",
      "jobIndustry": ["Programming", "DevOps &amp; Sysadmin"],
      "jobType": ["full-time"],
      "jobExcerpt": "Build things.",
      "jobDescription": "<p>Build <b>distributed</b> things.</p>"
    },
    {
      "id": "118202",
      "url": "https://jobicy.com/jobs/118202",
      "jobTitle": "Data Analyst",
      "companyName": "Beta",
      "jobIndustry": "Data Science",
      "jobType": "contract",
      "jobExcerpt": "Crunch numbers."
    },
    {
      "id": "118203",
      "url": "https://jobicy.com/jobs/118203",
      "jobTitle": "SRE",
      "companyName": "Gamma",
      "industry": "Software",
      "jobIndustry": "Ignored",
      "jobType": "full-time"
    }
  ]
}`

func TestJobicyListCandidates(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("count") != "20" {
			t.Errorf("expected count=20, got %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(jobsPayload))
	}))
	defer server.Close()

	src := NewJobicySource(config.JobsConfig{ListURL: server.URL + "/api/v2/remote-jobs"}, server.Client())
	candidates, err := src.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("ListCandidates error: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}

	first, err := src.FetchItem(context.Background(), candidates[0])
	if err != nil {
		t.Fatalf("FetchItem error: %v", err)
	}
	job := first.(domain.JobItem)
	if job.ID != "118201" || job.JobType != "full-time" || job.Industry != "Programming, DevOps &amp; Sysadmin" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.Description != "<p>Build <b>distributed</b> things.</p>" {
		t.Fatalf("unexpected description: %q", job.Description)
	}

	second := candidates[1].Item.(domain.JobItem)
	if second.ID != "118202" || second.Description != "Crunch numbers." || second.Industry != "Data Science" {
		t.Fatalf("unexpected job: %+v", second)
	}

	third := candidates[2].Item.(domain.JobItem)
	if third.Industry != "Software" {
		t.Fatalf("expected industry field to win over jobIndustry, got %q", third.Industry)
	}
}

func TestJobicyMalformedEntryDoesNotAbortListing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jobs":[
			{"id":"1","url":"https://jobicy.com/jobs/1","jobTitle":"Go Dev","jobType":"full-time"},
			{"id":"2","url":"https://jobicy.com/jobs/2","jobTitle":"Broken","jobType":{"k":1}},
			{"id":{"nested":true},"jobTitle":"No id"},
			{"id":"4","url":"https://jobicy.com/jobs/4","jobTitle":"Rust Dev"}
		]}`))
	}))
	defer server.Close()

	src := NewJobicySource(config.JobsConfig{ListURL: server.URL}, server.Client())
	candidates, err := src.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("ListCandidates error: %v", err)
	}

	var ids []string
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	if strings.Join(ids, ",") != "1,2,#2,4" {
		t.Fatalf("unexpected candidate ids: %v", ids)
	}

	if _, err := src.FetchItem(context.Background(), candidates[1]); !errors.Is(err, domain.ErrItemFetchFailed) {
		t.Fatalf("expected ErrItemFetchFailed for malformed job, got %v", err)
	}
	item, err := src.FetchItem(context.Background(), candidates[3])
	if err != nil {
		t.Fatalf("FetchItem error: %v", err)
	}
	if item.DisplayTitle() != "Rust Dev" {
		t.Fatalf("unexpected item: %+v", item)
	}
}

func TestJobicyListCandidatesFailures(t *testing.T) {
	t.Parallel()

	cases := map[string]http.HandlerFunc{
		"html page": func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>maintenance</html>"))
		},
		"missing jobs": func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"apiVersion":"2"}`))
		},
		"server error": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
	}

	for name, handler := range cases {
		server := httptest.NewServer(handler)
		src := NewJobicySource(config.JobsConfig{ListURL: server.URL}, server.Client())
		_, err := src.ListCandidates(context.Background())
		server.Close()
		if !errors.Is(err, domain.ErrSourceUnavailable) {
			t.Fatalf("%s: expected ErrSourceUnavailable, got %v", name, err)
		}
	}
}

func TestJobicyFetchItemWithoutPayload(t *testing.T) {
	t.Parallel()

	src := NewJobicySource(config.JobsConfig{ListURL: "http://unused"}, nil)
	if _, err := src.FetchItem(context.Background(), domain.Candidate{ID: "1"}); !errors.Is(err, domain.ErrItemFetchFailed) {
		t.Fatalf("expected ErrItemFetchFailed, got %v", err)
	}
}
