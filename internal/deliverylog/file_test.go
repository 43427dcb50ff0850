package deliverylog

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileLog_AppendAll(t *testing.T) {
	dir := t.TempDir()
	l := NewFile(dir + "/")
	ctx := context.Background()

	e1 := NewEntry("a@x.com", []string{"office@x.com"}, "S1", "C1", "", map[string]string{"confirm": "a@x.com"})
	e2 := NewEntry("b@x.com", []string{"office@x.com"}, "S2", "C2", "reply@x.com", nil)

	require.NoError(t, l.Append(ctx, "contact.json", e1))
	require.NoError(t, l.Append(ctx, "contact.json", e2))

	got, err := l.All(ctx, "contact.json")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "a@x.com", got[0].From)
	require.Equal(t, "S2", got[1].Subject)
	require.Greater(t, got[0].Timestamp, float64(0))
}

func TestFileLog_MissingStoreIsEmpty(t *testing.T) {
	l := NewFile(t.TempDir() + "/")
	got, err := l.All(context.Background(), "nope.json")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFileLog_Find(t *testing.T) {
	l := NewFile(t.TempDir() + "/")
	ctx := context.Background()

	e := NewEntry("a@x.com", []string{"office@x.com"}, "S", "C", "", map[string]string{"confirm": "a@x.com"})
	require.NoError(t, l.Append(ctx, "news.json", e))

	found, err := l.Find(ctx, "news.json", "confirm", "a@x.com")
	require.NoError(t, err)
	require.True(t, found)

	found, err = l.Find(ctx, "news.json", "confirm", "other@x.com")
	require.NoError(t, err)
	require.False(t, found)
}

func TestFileLog_HistoricJSONShape(t *testing.T) {
	dir := t.TempDir()
	l := NewFile(dir + "/")
	ctx := context.Background()

	e := NewEntry("a@x.com", []string{"office@x.com"}, "S", "C", "r@x.com", map[string]string{"k": "v"})
	require.NoError(t, l.Append(ctx, "log.json", e))

	// El archivo en disco mantiene los nombres históricos de las claves.
	raw, err := os.ReadFile(dir + "/log.json")
	require.NoError(t, err)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 1)
	for _, key := range []string{"timestamp", "from", "to", "subject", "content", "reply-to", "include_vars"} {
		require.Contains(t, entries[0], key)
	}
}
