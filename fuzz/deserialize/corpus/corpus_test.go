package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oasisprotocol/chainfuzz/fuzz/deserialize"
	"github.com/oasisprotocol/chainfuzz/primitives"
)

func TestGenerate(t *testing.T) {
	require := require.New(t)

	samples := Generate(3, 1)
	require.Len(samples, 3*len(deserialize.Targets())+len(edgeCases()))
	require.Equal(samples, Generate(3, 1), "generation must be deterministic")

	names := make(map[string]bool)
	for _, s := range samples {
		require.False(names[s.Name], "duplicate sample name %s", s.Name)
		names[s.Name] = true

		r := deserialize.Execute(s.Data)
		require.NotEqual(deserialize.OutcomeFault, r.Outcome, "sample %s: %v", s.Name, r.Err)
		require.EqualValues(s.Target, r.Selector, "sample %s", s.Name)
		if !strings.HasPrefix(s.Name, "edge_") {
			require.Equal(deserialize.OutcomeCompleted, r.Outcome, "sample %s: %v", s.Name, r.Err)
		}
	}
}

func TestWrite(t *testing.T) {
	require := require.New(t)

	dir := filepath.Join(t.TempDir(), "corpus")
	samples := Generate(1, 7)
	require.NoError(Write(dir, samples), "Write")

	entries, err := os.ReadDir(dir)
	require.NoError(err, "ReadDir")
	require.Len(entries, len(samples))

	data, err := os.ReadFile(filepath.Join(dir, samples[0].FileName()))
	require.NoError(err, "ReadFile")
	require.Equal(samples[0].Data, data)
}

func TestStructured(t *testing.T) {
	require := require.New(t)

	for _, s := range Generate(2, 3) {
		if strings.HasPrefix(s.Name, "edge_") {
			require.Nil(s.Structured(), "sample %s", s.Name)
			continue
		}
		data := s.Structured()
		require.EqualValues(s.Target, data[0], "sample %s", s.Name)

		raw, ok := Build(data)
		require.True(ok, "sample %s", s.Name)
		require.Equal(s.Data, raw, "sample %s: blob must rebuild the sample", s.Name)
		require.Equal(1, FuzzStructured(data), "sample %s", s.Name)
	}

	for _, data := range [][]byte{nil, {}, {byte(len(deserialize.Targets()))}, {0xff, 0x01}} {
		_, ok := Build(data)
		require.False(ok, "input %x", data)
		require.Equal(-1, FuzzStructured(data), "input %x", data)
	}

	// Short blobs are padded with zeros.
	for id := range deserialize.Targets() {
		raw, ok := Build([]byte{byte(id)})
		require.True(ok, "target %d", id)
		r := deserialize.Execute(raw)
		require.NotEqual(deserialize.OutcomeFault, r.Outcome, "target %d: %v", id, r.Err)
	}
}

func TestExtKeys(t *testing.T) {
	require := require.New(t)

	for _, s := range Generate(4, 11) {
		if strings.HasPrefix(s.Name, "edge_") {
			continue
		}
		switch s.Target {
		case deserialize.TargetExtKey:
			_, st, ok := deserialize.Frame(s.Data)
			require.True(ok, "sample %s", s.Name)
			key, err := primitives.DecodeExtKey(st)
			require.NoError(err, "sample %s", s.Name)
			require.True(key.IsPrivate(), "sample %s", s.Name)
			require.LessOrEqual(key.Depth(), uint8(1), "sample %s", s.Name)
			_, err = key.ECPrivKey()
			require.NoError(err, "sample %s", s.Name)
		case deserialize.TargetExtPubKey:
			_, st, ok := deserialize.Frame(s.Data)
			require.True(ok, "sample %s", s.Name)
			key, err := primitives.DecodeExtPubKey(st)
			require.NoError(err, "sample %s", s.Name)
			require.False(key.IsPrivate(), "sample %s", s.Name)
			_, err = key.ECPubKey()
			require.NoError(err, "sample %s: the public key must be on the curve", s.Name)
		}
	}
}

func TestWriteStructured(t *testing.T) {
	require := require.New(t)

	dir := filepath.Join(t.TempDir(), "structured")
	samples := Generate(1, 7)
	require.NoError(WriteStructured(dir, samples), "WriteStructured")

	entries, err := os.ReadDir(dir)
	require.NoError(err, "ReadDir")
	require.Len(entries, len(samples)-len(edgeCases()), "edge cases have no blob")

	data, err := os.ReadFile(filepath.Join(dir, samples[0].FileName()))
	require.NoError(err, "ReadFile")
	raw, ok := Build(data)
	require.True(ok, "Build")
	require.Equal(samples[0].Data, raw)
}

func FuzzStructuredInput(f *testing.F) {
	for _, s := range Generate(2, 0) {
		if data := s.Structured(); data != nil {
			f.Add(data)
		}
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		FuzzStructured(data)
	})
}
