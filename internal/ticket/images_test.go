package ticket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

type stubFetcher struct {
	data map[string][]byte
}

func (s stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	if b, ok := s.data[url]; ok {
		return b, nil
	}
	return nil, errors.New("not found")
}

func TestResolveImages(t *testing.T) {
	job := Job{
		Items: []Item{
			TextItem{Content: "a"},
			ImageItem{URL: "ok"},
			ImageItem{URL: "missing"},
			ImageItem{Data: []byte("inline"), URL: "ok"},
		},
		Options: DefaultOptions(),
	}
	fetcher := stubFetcher{data: map[string][]byte{"ok": []byte("fetched")}}

	resolved := ResolveImages(context.Background(), job, fetcher, zap.NewNop())

	if got := resolved.Items[1].(ImageItem).Data; string(got) != "fetched" {
		t.Errorf("item 1 data = %q", got)
	}
	if got := resolved.Items[2].(ImageItem).Data; got != nil {
		t.Errorf("failed fetch should leave data empty, got %q", got)
	}
	if got := resolved.Items[3].(ImageItem).Data; string(got) != "inline" {
		t.Errorf("inline data replaced: %q", got)
	}
	if job.Items[1].(ImageItem).Data != nil {
		t.Error("ResolveImages mutated the input job")
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/small":
			w.Write([]byte("png-bytes"))
		case "/big":
			w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, 32)
	ctx := context.Background()

	data, err := f.Fetch(ctx, srv.URL+"/small")
	if err != nil || string(data) != "png-bytes" {
		t.Errorf("Fetch(/small) = %q, %v", data, err)
	}
	if _, err := f.Fetch(ctx, srv.URL+"/big"); err == nil {
		t.Error("expected size limit error")
	}
	if _, err := f.Fetch(ctx, srv.URL+"/missing"); err == nil {
		t.Error("expected status error")
	}
	if data, err := f.Fetch(ctx, "data:image/png;base64,aGk="); err != nil || string(data) != "hi" {
		t.Errorf("Fetch(data URI) = %q, %v", data, err)
	}
}
