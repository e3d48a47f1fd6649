package errs

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorFormattingIncludesFields(t *testing.T) {
	err := New("bestbuy", CodeUpstreamStatus,
		WithHTTP(403),
		WithMessage("  product page rejected  "),
		WithCause(errors.New("forbidden")),
	)

	out := err.Error()
	require.Contains(t, out, "source=bestbuy")
	require.Contains(t, out, "code=upstream_status")
	require.Contains(t, out, "http=403")
	require.Contains(t, out, `message="product page rejected"`)
	require.Contains(t, out, `cause="forbidden"`)
}

func TestUnwrapAndCodeOf(t *testing.T) {
	err := fmt.Errorf("check: %w", New("target", CodeNetwork, WithCause(io.ErrUnexpectedEOF)))

	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Equal(t, CodeNetwork, CodeOf(err))
	require.Equal(t, Code(""), CodeOf(errors.New("plain")))
}

func TestNilErrorString(t *testing.T) {
	var e *E
	require.Equal(t, "<nil>", e.Error())
}

func TestEmptySourceAndCode(t *testing.T) {
	out := New("", "").Error()
	require.Equal(t, "source=unknown code=unknown", out)
}
