package logging

import (
	"bytes"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func TestStatusJSONGoesToOut(t *testing.T) {
	var out, errOut bytes.Buffer
	l := New(&out, &errOut, true, 16)

	in := true
	l.Status(StatusMessage{Status: Restock, Product: "Box A", Retailer: "walmart", InStock: &in, Price: "$49.99"})
	l.Close()

	require.Empty(t, errOut.String())
	var msg StatusMessage
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &msg))
	require.Equal(t, Restock, msg.Status)
	require.Equal(t, "Box A", msg.Product)
	require.NotNil(t, msg.InStock)
	require.True(t, *msg.InStock)
	require.NotZero(t, msg.Timestamp)
}

func TestStatusTextGoesToErrOut(t *testing.T) {
	var out, errOut bytes.Buffer
	l := New(&out, &errOut, false, 0)

	l.Status(StatusMessage{Status: CheckFailed, Product: "Box A", Retailer: "Target", Error: "code=network"})
	l.Printf("hello %d", 42)
	l.Close()

	require.Empty(t, out.String())
	lines := strings.Split(strings.TrimSpace(errOut.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "[CHECK FAILED] Box A at Target error=code=network")
	require.Contains(t, lines[1], "hello 42")
}

func TestCloseIsIdempotentAndDropsLateLines(t *testing.T) {
	var out, errOut bytes.Buffer
	l := New(&out, &errOut, false, 4)
	l.Close()
	l.Close()
	l.Printf("late")
	require.Empty(t, errOut.String())
}

func TestFormatTextCategoriesAreDistinct(t *testing.T) {
	seen := map[string]Category{}
	for cat := range labels {
		line := FormatText(StatusMessage{Status: cat})
		prev, dup := seen[line]
		require.False(t, dup, "%s and %s render the same", cat, prev)
		seen[line] = cat
	}
	require.Equal(t, "[CUSTOM]", FormatText(StatusMessage{Status: "custom"}))
}
