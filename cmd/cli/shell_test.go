package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookfinder/internal/config"
	"bookfinder/internal/openlibrary"
	"bookfinder/internal/search"
)

func newTestShell(t *testing.T, total int) (*shell, *bytes.Buffer) {
	t.Helper()
	return newShellFor(t, fakeLibrary(t, total))
}

func newShellFor(t *testing.T, srv *httptest.Server) (*shell, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default().OpenLibrary
	cfg.BaseURL = srv.URL
	cfg.RatePerSecond = 0

	svc := search.NewService(openlibrary.New(cfg, nil), 15)
	ctrl := svc.NewController()
	t.Cleanup(ctrl.Close)

	var out bytes.Buffer
	return &shell{ctx: context.Background(), ctrl: ctrl, svc: svc, out: &out}, &out
}

func TestShellSearchMoreReset(t *testing.T) {
	sh, out := newTestShell(t, 20)

	assert.False(t, sh.handle("title:Book"))
	assert.Contains(t, out.String(), "Book 15")
	assert.Contains(t, out.String(), `Type "more"`)
	require.Len(t, sh.ctrl.Results(), 15)

	out.Reset()
	sh.handle("more")
	assert.Contains(t, out.String(), "16.")
	assert.Contains(t, out.String(), "Book 20")
	assert.NotContains(t, out.String(), "Book 15")
	assert.Contains(t, out.String(), "End of results")

	out.Reset()
	sh.handle("more")
	assert.Contains(t, out.String(), "No more results")

	sh.handle("reset")
	assert.Empty(t, sh.ctrl.Results())
	assert.True(t, sh.ctrl.Filters().IsEmpty())
}

func TestShellOpen(t *testing.T) {
	sh, out := newTestShell(t, 2)
	sh.handle("dune")

	out.Reset()
	sh.handle("open 1")
	assert.Contains(t, out.String(), "The first book.")

	out.Reset()
	sh.handle("open 9")
	assert.Contains(t, out.String(), "between 1 and 2")

	out.Reset()
	sh.handle("open 2")
	assert.Contains(t, out.String(), "HTTP 404")
}

func TestShellMisc(t *testing.T) {
	sh, out := newTestShell(t, 0)

	sh.handle("help")
	assert.Contains(t, out.String(), "open <n>")

	out.Reset()
	sh.handle("fields")
	assert.Contains(t, out.String(), "publisher")

	out.Reset()
	sh.handle(`title:""`)
	assert.Contains(t, out.String(), "Nothing to search for")

	out.Reset()
	sh.handle("zzz")
	assert.Contains(t, out.String(), "No results")

	assert.True(t, sh.handle("exit"))
	assert.True(t, sh.handle("QUIT"))
}

func TestCompleteFields(t *testing.T) {
	assert.Equal(t, []string{"title:"}, completeFields("ti"))
	assert.Contains(t, completeFields("p"), "publisher:")
	assert.Contains(t, completeFields("p"), "person:")
	assert.Contains(t, completeFields("p"), "place:")
	assert.Equal(t, []string{"more"}, completeFields("mo"))
}

func TestShellMoreRetriesFailedSearch(t *testing.T) {
	library := fakeLibrary(t, 3)
	var failed atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("title") == "flaky" && failed.CompareAndSwap(false, true) {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		library.Config.Handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	sh, out := newShellFor(t, srv)

	sh.handle("title:flaky")
	assert.Contains(t, out.String(), "HTTP 503")

	out.Reset()
	sh.handle("more")
	assert.Contains(t, out.String(), "1.")
	assert.Contains(t, out.String(), "Book 3")
	assert.Contains(t, out.String(), "3 of 3 shown")
}
