package client

import (
	"sync/atomic"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// Doer sends one request. tls-client's HttpClient satisfies it; tests use fakes.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type ProxiedClient struct {
	tls_client.HttpClient
	ProxyURL string
}

// CreateClient builds a Chrome-profile client, optionally through proxyURL.
func CreateClient(timeout time.Duration, proxyURL string) (*ProxiedClient, error) {
	seconds := int(timeout / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	jar := tls_client.NewCookieJar()
	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(seconds),
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithCookieJar(jar),
	}
	if proxyURL != "" {
		options = append(options, tls_client.WithProxyUrl(proxyURL))
	}

	c, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, err
	}
	return &ProxiedClient{HttpClient: c, ProxyURL: proxyURL}, nil
}

// Rotator spreads requests over one client per proxy, round-robin.
type Rotator struct {
	clients []Doer
	counter uint32
}

// NewRotator creates one client per proxy, or a single direct client when proxies is empty.
func NewRotator(timeout time.Duration, proxies []string) (*Rotator, error) {
	if len(proxies) == 0 {
		c, err := CreateClient(timeout, "")
		if err != nil {
			return nil, err
		}
		return &Rotator{clients: []Doer{c}}, nil
	}
	clients := make([]Doer, 0, len(proxies))
	for _, p := range proxies {
		c, err := CreateClient(timeout, p)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return &Rotator{clients: clients}, nil
}

// NewRotatorFrom wraps existing doers.
func NewRotatorFrom(doers ...Doer) *Rotator {
	return &Rotator{clients: doers}
}

func (r *Rotator) next() Doer {
	idx := atomic.AddUint32(&r.counter, 1)
	return r.clients[int(idx-1)%len(r.clients)]
}

func (r *Rotator) Do(req *http.Request) (*http.Response, error) {
	return r.next().Do(req)
}

// Size returns the number of underlying clients.
func (r *Rotator) Size() int {
	return len(r.clients)
}
