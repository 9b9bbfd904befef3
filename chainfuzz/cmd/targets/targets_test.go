package targets

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/chainfuzz/fuzz/deserialize"
)

func TestTargets(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	doTargets(cmd, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(lines, len(deserialize.Targets()))
	require.Equal(" 0 block_header benign: format", lines[0])
	require.Equal("14 bloom_filter (exercised) benign: format", lines[14])
	require.Equal("17 ext_key benign: format,value", lines[17])
}
