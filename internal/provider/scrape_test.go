package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	name string

	fetchErr  error
	regionErr error

	html []byte
	text string

	fetchCalls  int
	regionCalls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context, pageURL string, c *http.Client) ([]byte, error) {
	s.fetchCalls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.html, nil
}

func (s *stubSource) Region(html []byte) (string, error) {
	s.regionCalls++
	if s.regionErr != nil {
		return "", s.regionErr
	}
	return s.text, nil
}

func TestFetchMeta_OK(t *testing.T) {
	src := &stubSource{
		name: "LordFilm",
		html: []byte("<html/>"),
		text: "Матрица — это фильм.Название:МатрицаГод выхода:1999Страна:СШАРежиссер:X",
	}

	meta, err := FetchMeta(context.Background(), src, "https://lordfilm.example/1", nil)
	require.NoError(t, err)
	assert.Equal(t, "Матрица", meta.Title)
	assert.Equal(t, "1999", meta.Year)
	assert.Equal(t, "США", meta.Country)
	assert.Equal(t, 5, meta.Priority)
}

func TestFetchMeta_FetchFail(t *testing.T) {
	src := &stubSource{name: "lordfilm", fetchErr: &HTTPStatusError{StatusCode: 503}}

	_, err := FetchMeta(context.Background(), src, "https://lordfilm.example/1", nil)

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageFetch, pe.Stage)
	assert.Equal(t, "lordfilm", pe.Source)

	var he *HTTPStatusError
	require.ErrorAs(t, err, &he, "期望可以解包出 HTTPStatusError")
	assert.Equal(t, 503, he.StatusCode)
	assert.Zero(t, src.regionCalls, "fetch 失败后不应调用 Region")
}

func TestFetchMeta_RegionMissingCarriesURL(t *testing.T) {
	src := &stubSource{name: "lordfilm", html: []byte("<html/>"), regionErr: &RegionMissingError{Selectors: []string{"div#video-description"}}}

	_, err := FetchMeta(context.Background(), src, "https://lordfilm.example/2", nil)

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageRegion, pe.Stage)

	var rm *RegionMissingError
	require.ErrorAs(t, err, &rm)
	assert.Equal(t, "https://lordfilm.example/2", rm.URL, "期望补全 URL")
}

func TestFetchMeta_ContextErrorIsRecognizable(t *testing.T) {
	src := &stubSource{name: "lordfilm", fetchErr: context.DeadlineExceeded}

	_, err := FetchMeta(context.Background(), src, "https://lordfilm.example/3", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchMeta_EmptyURL(t *testing.T) {
	src := &stubSource{name: "lordfilm"}
	_, err := FetchMeta(context.Background(), src, "  ", nil)
	assert.Error(t, err)
	assert.Zero(t, src.fetchCalls, "空 URL 不应发起请求")
}

func TestFetchURL_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := FetchURL(context.Background(), srv.Client(), srv.URL, "")
	var he *HTTPStatusError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusTooManyRequests, he.StatusCode)
}

func TestFetchURL_Blocked(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/sorry/index", http.StatusFound)
	})
	mux.HandleFunc("/sorry/index", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("captcha"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := FetchURL(context.Background(), srv.Client(), srv.URL+"/search", "/sorry/")
	var be *BlockedError
	assert.True(t, errors.As(err, &be), "期望 BlockedError，实际：%v", err)
}

func TestFetchURL_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	b, err := FetchURL(context.Background(), srv.Client(), srv.URL, "")
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", string(b))
}

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry(&stubSource{name: "LordFilm"})
	require.NoError(t, err)

	_, ok := reg.Get(" lordfilm ")
	assert.True(t, ok, "期望按小写名命中")

	_, err = NewRegistry(&stubSource{name: "a"}, &stubSource{name: "A"})
	assert.Error(t, err, "期望重复 name 报错")

	_, err = NewRegistry(&stubSource{name: " "})
	assert.Error(t, err, "期望空 name 报错")
}
