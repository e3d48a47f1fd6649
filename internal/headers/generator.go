package headers

import (
	"fmt"
	"math/rand"
	"sync"

	http "github.com/bogdanfinn/fhttp"
)

// Kind selects the Accept family of a request.
type Kind int

const (
	JSON Kind = iota
	HTML
)

type Profile struct {
	ua        string
	secCHUA   string
	platform  string
	langIdx   int
	encIdx    int
	cacheIdx  int
	sendCache bool
}

var (
	jsonAccept = "application/json, text/plain, */*"
	htmlAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"

	encOpts = []string{
		"gzip, deflate, br",
		"gzip, deflate, br, zstd",
	}
	langOpts = []string{
		"en-US,en;q=0.9",
		"en-US,en;q=0.8",
		"en-US,en;q=0.9,es;q=0.8",
		"en-US",
	}
	cacheOpts = []string{
		"max-age=0",
		"no-cache",
	}
	platforms = []struct {
		ua   string
		name string
	}{
		{"Windows NT 10.0; Win64; x64", "Windows"},
		{"Macintosh; Intel Mac OS X 10_15_7", "macOS"},
		{"X11; Linux x86_64", "Linux"},
	}

	headerOrder = []string{
		"Accept",
		"Accept-Language",
		"Accept-Encoding",
		"User-Agent",
		"Sec-CH-UA",
		"Sec-CH-UA-Mobile",
		"Sec-CH-UA-Platform",
		"Sec-Fetch-Site",
		"Sec-Fetch-Mode",
		"Sec-Fetch-Dest",
		"Upgrade-Insecure-Requests",
		"Cache-Control",
		"Origin",
		"Referer",
	}
)

var (
	poolMu      sync.RWMutex
	profilePool = newPool()
)

func newPool() *sync.Pool {
	return &sync.Pool{New: func() interface{} { return generateProfile() }}
}

// The client hello is a Chrome 120 profile, so user agents stay on nearby Chrome majors.
func generateProfile() Profile {
	plat := platforms[rand.Intn(len(platforms))]
	major := 118 + rand.Intn(5)
	ua := fmt.Sprintf(
		"Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.%d.%d Safari/537.36",
		plat.ua, major, 6000+rand.Intn(200), rand.Intn(200),
	)
	return Profile{
		ua:        ua,
		secCHUA:   fmt.Sprintf(`"Not_A Brand";v="8", "Chromium";v="%d", "Google Chrome";v="%d"`, major, major),
		platform:  plat.name,
		langIdx:   rand.Intn(len(langOpts)),
		encIdx:    rand.Intn(len(encOpts)),
		cacheIdx:  rand.Intn(len(cacheOpts)),
		sendCache: rand.Float64() < 0.5,
	}
}

// Build returns browser-like headers for one request. origin may be empty.
func Build(kind Kind, origin, referer string) http.Header {
	poolMu.RLock()
	pool := profilePool
	poolMu.RUnlock()

	profile := pool.Get().(Profile)
	defer pool.Put(profile)

	h := http.Header{}
	h.Set("Accept-Language", langOpts[profile.langIdx])
	h.Set("Accept-Encoding", encOpts[profile.encIdx])
	h.Set("User-Agent", profile.ua)
	h.Set("Sec-CH-UA", profile.secCHUA)
	h.Set("Sec-CH-UA-Mobile", "?0")
	h.Set("Sec-CH-UA-Platform", `"`+profile.platform+`"`)

	switch kind {
	case JSON:
		h.Set("Accept", jsonAccept)
		h.Set("Sec-Fetch-Site", "same-site")
		h.Set("Sec-Fetch-Mode", "cors")
		h.Set("Sec-Fetch-Dest", "empty")
		if origin != "" {
			h.Set("Origin", origin)
		}
	default:
		h.Set("Accept", htmlAccept)
		h.Set("Sec-Fetch-Site", "none")
		h.Set("Sec-Fetch-Mode", "navigate")
		h.Set("Sec-Fetch-Dest", "document")
		h.Set("Upgrade-Insecure-Requests", "1")
	}
	if referer != "" {
		h.Set("Referer", referer)
	}
	if profile.sendCache {
		h.Set("Cache-Control", cacheOpts[profile.cacheIdx])
	}

	h[http.HeaderOrderKey] = headerOrder
	return h
}

// InitProfilePool pre-generates count profiles.
func InitProfilePool(count int) {
	poolMu.RLock()
	pool := profilePool
	poolMu.RUnlock()
	for i := 0; i < count; i++ {
		pool.Put(generateProfile())
	}
}

// ResetProfilePool drops every pooled profile.
func ResetProfilePool() {
	poolMu.Lock()
	defer poolMu.Unlock()
	profilePool = newPool()
}
