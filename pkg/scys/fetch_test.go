package scys

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	var gotUA, gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCookie = r.Header.Get("Cookie")
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(postPage))
	}))
	defer server.Close()

	f := NewFetcher(time.Second)
	f.Cookie = "session=abc"
	doc, err := f.Fetch(context.Background(), server.URL+"/test-scys-page.html")
	require.NoError(t, err)
	assert.Equal(t, "AI 创业，从0到1的实战", ExtractTitle(doc))
	assert.Equal(t, defaultUserAgent, gotUA)
	assert.Equal(t, "session=abc", gotCookie)

	_, err = f.Fetch(context.Background(), server.URL+"/missing")
	assert.Error(t, err)
}

func TestFetcher_Collect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken/test-scys-page.html" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(postPage))
	}))
	defer server.Close()

	f := NewFetcher(time.Second)

	info, err := f.Collect(context.Background(), server.URL+"/test-scys-page.html")
	require.NoError(t, err)
	assert.Equal(t, "亦仁", info.Author)
	assert.True(t, info.IsFeatured)

	info, err = f.Collect(context.Background(), server.URL+"/broken/test-scys-page.html")
	assert.Error(t, err)
	assert.Equal(t, "无标题", info.Title)
	assert.Equal(t, TypeArticle, info.ContentType)

	info, err = f.Collect(context.Background(), "https://example.com/a")
	assert.ErrorIs(t, err, ErrNotScysPage)
	assert.Equal(t, "https://example.com/a", info.URL)
}
