package gitutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseLog(t *testing.T) {
	out := []byte("abc123\x00Jane\x00jane@example.org\x001700000000\x00Update docs\n" +
		"broken line\n" +
		"def456\x00Joe\x00joe@example.org\x001600000000\x00Initial\n")

	commits, err := parseLog(out)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	require.Equal(t, "abc123", commits[0].Hash)
	require.Equal(t, "Update docs", commits[0].Message)
	require.True(t, commits[0].CommittedAt.Equal(time.Unix(1700000000, 0)))
	require.Equal(t, "Joe", commits[1].Author)
}

func TestParseLog_Empty(t *testing.T) {
	commits, err := parseLog([]byte("\n"))
	require.NoError(t, err)
	require.Empty(t, commits)
}

func TestParseLog_BadTimestamp(t *testing.T) {
	_, err := parseLog([]byte("a\x00b\x00c\x00notanumber\x00d\n"))
	require.Error(t, err)
}

func TestOpen_MissingDir(t *testing.T) {
	_, err := Open(context.Background(), "git", t.TempDir()+"/missing", time.Second)
	require.Error(t, err)
}
