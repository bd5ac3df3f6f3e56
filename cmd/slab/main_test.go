package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rawbytedev/slab"
	"github.com/rawbytedev/slab/pkg/binwire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const unitDoc = `{"hp":100,"speeds":[1.5,3.33,2.0,74.0],"children":[null,{"hp":1}]}`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := mainImpl(args, &out)
	return out.String(), err
}

func TestInspect(t *testing.T) {
	a := writeFile(t, "a.json", unitDoc)
	b := writeFile(t, "b.json", `{"name":"x"}`)
	out, err := run(t, "-log-level", "error", "inspect", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "== "+a)
	assert.Contains(t, out, "== "+b)
	assert.Contains(t, out, "float32[]")
	assert.Contains(t, out, "1.5 3.33 2 74")
	assert.Contains(t, out, "char[]")
}

func TestPackUnpack(t *testing.T) {
	in := writeFile(t, "unit.json", unitDoc)
	for _, extra := range [][]string{nil, {"-zstd"}} {
		frame := filepath.Join(t.TempDir(), "unit.slb")
		args := append([]string{"-log-level", "error", "pack"}, extra...)
		_, err := run(t, append(args, in, frame)...)
		require.NoError(t, err)

		raw, err := os.ReadFile(frame)
		require.NoError(t, err)
		h, err := binwire.ParseHeader(raw)
		require.NoError(t, err)
		assert.Equal(t, uint32(2), h.Records)
		assert.NotZero(t, h.Flags&binwire.FlagChecksum)
		assert.Equal(t, extra != nil, h.Flags&binwire.FlagZstd != 0)

		out, err := run(t, "-log-level", "error", "unpack", frame)
		require.NoError(t, err)
		assert.JSONEq(t, unitDoc, out)
	}
}

func TestDump(t *testing.T) {
	in := writeFile(t, "unit.json", unitDoc)
	out, err := run(t, "-log-level", "error", "dump", "-format", "json", in)
	require.NoError(t, err)
	var infos []slab.ContainerInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 2)

	out, err = run(t, "-log-level", "error", "dump", in)
	require.NoError(t, err)
	infos = nil
	require.NoError(t, yaml.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "children", infos[0].Fields[0].Name, "canonical order by default")

	_, err = run(t, "-log-level", "error", "dump", "-format", "xml", in)
	assert.Error(t, err)
}

func TestConfigAndUsage(t *testing.T) {
	cfg := writeFile(t, "slab.yaml", "schema:\n  canonical: false\nlog:\n  level: error\n")
	in := writeFile(t, "unit.json", unitDoc)
	out, err := run(t, "-config", cfg, "dump", in)
	require.NoError(t, err)
	var infos []slab.ContainerInfo
	require.NoError(t, yaml.Unmarshal([]byte(out), &infos))
	assert.Equal(t, "hp", infos[0].Fields[0].Name, "document order without canonicalization")

	_, err = run(t)
	assert.ErrorIs(t, err, errUsage)
	_, err = run(t, "-log-level", "error", "frob")
	assert.ErrorIs(t, err, errUsage)
	_, err = run(t, "-log-level", "loud", "inspect", in)
	assert.Error(t, err)
	_, err = run(t, "-log-level", "error", "inspect", writeFile(t, "bad.json", `[1]`))
	assert.Error(t, err)
}
