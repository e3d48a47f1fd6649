package client

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	http "github.com/bogdanfinn/fhttp"
	"github.com/stretchr/testify/require"

	"github.com/yourneighborhoodchef/pokerestock/internal/errs"
)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func respond(status int, body string) doerFunc {
	return func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}, nil
	}
}

func TestFetchReadsBody(t *testing.T) {
	var gotUA string
	doer := doerFunc(func(req *http.Request) (*http.Response, error) {
		gotUA = req.Header.Get("User-Agent")
		return respond(200, `{"ok":true}`)(req)
	})
	h := http.Header{}
	h.Set("User-Agent", "test-agent")

	resp, err := Fetch(context.Background(), doer, "walmart", http.MethodGet, "https://example.test/x", h, nil)
	require.NoError(t, err)
	require.True(t, resp.OK())
	require.Equal(t, `{"ok":true}`, string(resp.Body))
	require.Equal(t, "test-agent", gotUA)
}

func TestFetchNon2xxIsNotAnError(t *testing.T) {
	resp, err := Fetch(context.Background(), respond(503, "busy"), "target", http.MethodGet, "https://example.test", nil, nil)
	require.NoError(t, err)
	require.False(t, resp.OK())

	se := StatusError("target", resp)
	require.Equal(t, errs.CodeUpstreamStatus, se.Code)
	require.Equal(t, 503, se.HTTP)
}

func TestFetchTransportErrorIsNetworkCode(t *testing.T) {
	boom := errors.New("connection reset")
	doer := doerFunc(func(*http.Request) (*http.Response, error) { return nil, boom })

	_, err := Fetch(context.Background(), doer, "gamestop", http.MethodGet, "https://example.test", nil, nil)
	require.ErrorIs(t, err, boom)
	require.Equal(t, errs.CodeNetwork, errs.CodeOf(err))
}

func TestSampleTruncates(t *testing.T) {
	require.Equal(t, "short", Sample([]byte("short")))
	long := strings.Repeat("a", 250)
	require.Equal(t, strings.Repeat("a", 200)+"...", Sample([]byte(long)))

	// "é" is two bytes and straddles the cut.
	multi := strings.Repeat("a", 199) + strings.Repeat("é", 10)
	got := Sample([]byte(multi))
	require.True(t, utf8.ValidString(got))
	require.Equal(t, strings.Repeat("a", 199)+"...", got)
}

func TestRotatorRoundRobin(t *testing.T) {
	var hits [3]int
	mk := func(i int) Doer {
		return doerFunc(func(req *http.Request) (*http.Response, error) {
			hits[i]++
			return respond(200, "")(req)
		})
	}
	r := NewRotatorFrom(mk(0), mk(1), mk(2))
	for i := 0; i < 7; i++ {
		_, err := Fetch(context.Background(), r, "x", http.MethodGet, "https://example.test", nil, nil)
		require.NoError(t, err)
	}
	require.Equal(t, [3]int{3, 2, 2}, hits)
	require.Equal(t, 3, r.Size())
}
