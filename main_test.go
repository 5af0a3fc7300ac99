package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Tnze/go-mc/nbt"
	"github.com/astei/anvilview/anvil"
	"github.com/astei/anvilview/config"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSection struct {
	Y           int8 `nbt:"Y"`
	BlockStates struct {
		Palette []struct {
			Name string `nbt:"Name"`
		} `nbt:"palette"`
		Data []int64 `nbt:"data"`
	} `nbt:"block_states"`
}

type testChunk struct {
	DataVersion int32         `nbt:"DataVersion"`
	Status      string        `nbt:"Status"`
	Sections    []testSection `nbt:"sections"`
}

func testWorld(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	var s testSection
	s.Y = 0
	s.BlockStates.Palette = append(s.BlockStates.Palette, struct {
		Name string `nbt:"Name"`
	}{Name: "minecraft:deepslate"})
	s.BlockStates.Data = make([]int64, 256)

	w := anvil.NewWriter()
	require.NoError(t, w.PutNBT(2, 3, testChunk{DataVersion: 819, Status: "minecraft:full", Sections: []testSection{s}}))
	path := anvil.RegionPath(dir, 2, 3)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, w.Bytes(), 0o644))

	var level struct {
		Data struct {
			LevelName   string `nbt:"LevelName"`
			DataVersion int32  `nbt:"DataVersion"`
		}
	}
	level.Data.LevelName = "Survival"
	level.Data.DataVersion = 169
	file, err := os.Create(filepath.Join(dir, "level.dat"))
	require.NoError(t, err)
	gz := gzip.NewWriter(file)
	require.NoError(t, nbt.NewEncoder(gz).Encode(level, ""))
	require.NoError(t, gz.Close())
	require.NoError(t, file.Close())
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvPath, "")
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"anvilview", "--cache-dir", t.TempDir()}, args...))
	return out.String(), err
}

func TestVersionCommands(t *testing.T) {
	out, err := run(t, "version", "schema", "1.9")
	require.NoError(t, err)
	assert.Equal(t, "169\n", out)

	out, err = run(t, "version", "release", "921")
	require.NoError(t, err)
	assert.Equal(t, "1.11.1\n", out)

	_, err = run(t, "version", "release", "latest")
	assert.Error(t, err)
}

func TestGlobalFlags(t *testing.T) {
	out, err := run(t, "--verbose", "version", "schema", "1.9")
	require.NoError(t, err)
	assert.Equal(t, "169\n", out)

	out, err = run(t, "-v")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}

func TestChunkCommand(t *testing.T) {
	dir := testWorld(t)
	out, err := run(t, "chunk", dir, "2", "3")
	require.NoError(t, err)

	var summary chunkSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 819, summary.DataVersion)
	assert.Equal(t, "1.11", summary.Release)
	assert.Equal(t, "minecraft:full", summary.Status)
	require.Len(t, summary.Slices, 1)
	assert.Equal(t, 0, summary.Slices[0].MinY)
	assert.Equal(t, map[string]int{"minecraft:deepslate": 4096}, summary.Slices[0].Palette)

	_, err = run(t, "chunk", "--dimension", "mymod:missing", dir, "2", "3")
	assert.Error(t, err)
	_, err = run(t, "chunk", dir, "2")
	assert.Error(t, err)
}

func TestRegionAndExportCommands(t *testing.T) {
	dir := testWorld(t)
	out, err := run(t, "region", dir, "0", "0")
	require.NoError(t, err)
	var summary regionSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 1, summary.Chunks)
	assert.Equal(t, []blockCount{{Name: "minecraft:deepslate", Count: 4096}}, summary.Top)

	target := filepath.Join(t.TempDir(), "world.slime")
	_, err = run(t, "export", dir, target)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Greater(t, len(data), 3)
	assert.Equal(t, []byte{0xB1, 0x0B, 0x01}, data[:3])
}

func TestLevelCommand(t *testing.T) {
	out, err := run(t, "level", testWorld(t))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Survival","schema_version":169,"release":"1.9"}`, out)
}
