package documents

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func noKeepAliveFetcher(max int64) *HTTPFetcher {
	f := NewHTTPFetcher(max)
	f.Client = &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	return f
}

func TestHTTPFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte("hello"))
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 32)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	f := noKeepAliveFetcher(16)

	data, err := f.Fetch(context.Background(), server.URL+"/ok")
	if err != nil || string(data) != "hello" {
		t.Fatalf("Fetch ok = %q, %v", data, err)
	}
	if _, err := f.Fetch(context.Background(), server.URL+"/missing"); !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("expected ErrDownloadFailed, got %v", err)
	}
	if _, err := f.Fetch(context.Background(), server.URL+"/big"); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	for _, bad := range []string{"", "ftp://example.com/a.txt", "not a url", "file:///etc/passwd"} {
		if _, err := f.Fetch(context.Background(), bad); !errors.Is(err, ErrDownloadFailed) {
			t.Fatalf("Fetch(%q): expected ErrDownloadFailed, got %v", bad, err)
		}
	}
}
