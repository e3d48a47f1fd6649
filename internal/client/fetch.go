package client

import (
	"bytes"
	"context"
	"io"
	"unicode/utf8"

	http "github.com/bogdanfinn/fhttp"

	"github.com/yourneighborhoodchef/pokerestock/internal/errs"
)

const (
	maxBodyBytes = 4 << 20
	sampleSize   = 200
)

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetch performs one request and reads the body. Transport failures are *errs.E with CodeNetwork;
// non-2xx statuses are returned as a Response, not an error.
func Fetch(ctx context.Context, doer Doer, source, method, url string, header http.Header, body []byte) (Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return Response{}, errs.New(source, errs.CodeInvalid, errs.WithMessage("build request"), errs.WithCause(err))
	}
	if header != nil {
		req.Header = header
	}

	resp, err := doer.Do(req)
	if err != nil {
		return Response{}, errs.New(source, errs.CodeNetwork, errs.WithMessage(method+" "+url), errs.WithCause(err))
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, errs.New(source, errs.CodeNetwork, errs.WithHTTP(resp.StatusCode),
			errs.WithMessage("read body"), errs.WithCause(err))
	}
	return Response{StatusCode: resp.StatusCode, Body: b}, nil
}

// StatusError builds the envelope for an unexpected status, quoting a body sample.
func StatusError(source string, r Response) *errs.E {
	return errs.New(source, errs.CodeUpstreamStatus, errs.WithHTTP(r.StatusCode), errs.WithMessage(Sample(r.Body)))
}

// Sample truncates body to at most 200 bytes for diagnostics, never splitting a rune.
func Sample(body []byte) string {
	if len(body) <= sampleSize {
		return string(body)
	}
	cut := sampleSize
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}
