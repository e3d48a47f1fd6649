package headers

import (
	"strings"
	"testing"

	http "github.com/bogdanfinn/fhttp"
	"github.com/stretchr/testify/require"
)

func TestBuildJSON(t *testing.T) {
	InitProfilePool(10)
	h := Build(JSON, "https://www.target.com", "https://www.target.com/p/-/A-1")

	require.Equal(t, jsonAccept, h.Get("Accept"))
	require.Equal(t, "cors", h.Get("Sec-Fetch-Mode"))
	require.Equal(t, "https://www.target.com", h.Get("Origin"))
	require.Equal(t, "https://www.target.com/p/-/A-1", h.Get("Referer"))
	ua := h.Get("User-Agent")
	require.Contains(t, ua, "Chrome/")
	require.NotContains(t, ua, "Mobile")
	require.True(t, strings.Contains(h.Get("Sec-CH-UA"), "Google Chrome"))
	require.Equal(t, headerOrder, h[http.HeaderOrderKey])
}

func TestBuildHTML(t *testing.T) {
	h := Build(HTML, "https://ignored.example", "")

	require.Equal(t, htmlAccept, h.Get("Accept"))
	require.Equal(t, "navigate", h.Get("Sec-Fetch-Mode"))
	require.Empty(t, h.Get("Origin"))
	require.Empty(t, h.Get("Referer"))
	require.Equal(t, "1", h.Get("Upgrade-Insecure-Requests"))
}

func TestResetProfilePoolStillBuilds(t *testing.T) {
	ResetProfilePool()
	require.NotEmpty(t, Build(HTML, "", "").Get("User-Agent"))
}
