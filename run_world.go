package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/astei/anvilview/export"
	"github.com/astei/anvilview/world"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func intArgs(c *cli.Context, from int, names ...string) ([]int, error) {
	if c.Args().Len() < from+len(names) {
		return nil, fmt.Errorf("expected %s", c.Command.ArgsUsage)
	}
	values := make([]int, len(names))
	for i, name := range names {
		v, err := strconv.Atoi(c.Args().Get(from + i))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		values[i] = v
	}
	return values, nil
}

type sliceSummary struct {
	Index   int            `json:"index"`
	MinY    int            `json:"min_y"`
	Bits    uint8          `json:"bits_per_entry"`
	Palette map[string]int `json:"palette"`
}

type chunkSummary struct {
	X           int            `json:"x"`
	Z           int            `json:"z"`
	DataVersion int            `json:"data_version"`
	Release     string         `json:"release,omitempty"`
	Status      string         `json:"status,omitempty"`
	Slices      []sliceSummary `json:"slices"`
	Skipped     []string       `json:"skipped,omitempty"`
}

func runChunk(c *cli.Context) error {
	env := getEnv(c)
	coords, err := intArgs(c, 1, "X", "Z")
	if err != nil {
		return err
	}
	dim, err := env.dimension(env.openWorld(c.Args().First()), c.String("dimension"))
	if err != nil {
		return err
	}

	loaded, err := dim.LoadChunk(world.ChunkCoord{X: coords[0], Z: coords[1]})
	if err != nil {
		return err
	}

	summary := chunkSummary{
		X:           coords[0],
		Z:           coords[1],
		DataVersion: loaded.DataVersion,
		Status:      loaded.Status,
	}
	if !c.Bool("offline") && loaded.DataVersion != 0 {
		summary.Release = env.releaseName(c.Context, loaded.DataVersion)
	}
	layout := dim.Layout()
	for i, sub := range loaded.Subchunks {
		if sub == nil {
			continue
		}
		slice := sliceSummary{
			Index:   i,
			MinY:    (layout.MinSection + i) * 16,
			Bits:    sub.Blocks.BitsPerEntry(),
			Palette: make(map[string]int),
		}
		counts := sub.Blocks.Count()
		for j, state := range sub.Blocks.Palette() {
			slice.Palette[state.String()] += counts[j]
		}
		summary.Slices = append(summary.Slices, slice)
	}
	for _, skipped := range loaded.Skipped {
		summary.Skipped = append(summary.Skipped, fmt.Sprintf("slice %d: %v", skipped.Index, skipped.Err))
	}
	return printJSON(env.w, summary)
}

type regionSummary struct {
	Region      string       `json:"region"`
	Chunks      int          `json:"chunks"`
	BlockStates int          `json:"block_states"`
	Skipped     int          `json:"skipped_slices"`
	Top         []blockCount `json:"top_blocks"`
}

type blockCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func runRegion(c *cli.Context) error {
	env := getEnv(c)
	coords, err := intArgs(c, 1, "RX", "RZ")
	if err != nil {
		return err
	}
	w := env.openWorld(c.Args().First())
	dim, err := env.dimension(w, c.String("dimension"))
	if err != nil {
		return err
	}

	n, err := dim.LoadRegion(c.Context, coords[0], coords[1])
	if err != nil {
		return err
	}

	summary := regionSummary{
		Region:      fmt.Sprintf("r.%d.%d.mca", coords[0], coords[1]),
		Chunks:      n,
		BlockStates: w.BlockTable().Len(),
	}
	byName := make(map[string]int)
	for _, pos := range dim.Loaded() {
		loaded, _ := dim.Chunk(pos)
		summary.Skipped += len(loaded.Skipped)
		for _, sub := range loaded.Subchunks {
			if sub == nil {
				continue
			}
			counts := sub.Blocks.Count()
			for i, state := range sub.Blocks.Palette() {
				byName[state.Name().String()] += counts[i]
			}
		}
	}
	for name, count := range byName {
		summary.Top = append(summary.Top, blockCount{Name: name, Count: count})
	}
	sort.Slice(summary.Top, func(i, j int) bool {
		if summary.Top[i].Count != summary.Top[j].Count {
			return summary.Top[i].Count > summary.Top[j].Count
		}
		return summary.Top[i].Name < summary.Top[j].Name
	})
	if len(summary.Top) > 10 {
		summary.Top = summary.Top[:10]
	}
	return printJSON(env.w, summary)
}

func runExport(c *cli.Context) error {
	env := getEnv(c)
	if c.Args().Len() < 2 {
		return fmt.Errorf("expected %s", c.Command.ArgsUsage)
	}
	dim, err := env.dimension(env.openWorld(c.Args().Get(0)), c.String("dimension"))
	if err != nil {
		return err
	}

	var regions []world.ChunkCoord
	for _, spec := range c.StringSlice("region") {
		rx, rz, ok := strings.Cut(spec, ",")
		x, errX := strconv.Atoi(strings.TrimSpace(rx))
		z, errZ := strconv.Atoi(strings.TrimSpace(rz))
		if !ok || errX != nil || errZ != nil {
			return fmt.Errorf("invalid region %q, expected RX,RZ", spec)
		}
		regions = append(regions, world.ChunkCoord{X: x, Z: z})
	}
	if len(regions) == 0 {
		if regions, err = dim.Regions(); err != nil {
			return err
		}
	}

	for _, r := range regions {
		n, err := dim.LoadRegion(c.Context, r.X, r.Z)
		if err != nil {
			env.log.Warn("unable to read region", zap.Stringer("region", r), zap.Error(err))
			continue
		}
		env.log.Info("loaded region", zap.Stringer("region", r), zap.Int("chunks", n))
	}

	out, err := os.Create(c.Args().Get(1))
	if err != nil {
		return err
	}
	if err := export.WriteSlime(out, dim); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	env.log.Info("exported", zap.String("path", c.Args().Get(1)), zap.Int("chunks", len(dim.Loaded())))
	return nil
}

func runLevel(c *cli.Context) error {
	env := getEnv(c)
	if c.Args().Len() < 1 {
		return fmt.Errorf("expected %s", c.Command.ArgsUsage)
	}
	level, err := env.openWorld(c.Args().First()).Level()
	if err != nil {
		return err
	}

	out := struct {
		Name          string `json:"name"`
		SchemaVersion int    `json:"schema_version"`
		Version       string `json:"version,omitempty"`
		Release       string `json:"release,omitempty"`
		LastPlayed    string `json:"last_played,omitempty"`
	}{
		Name:          level.LevelName,
		SchemaVersion: level.SchemaVersion(),
		Version:       level.Version.Name,
	}
	if level.LastPlayed > 0 {
		out.LastPlayed = level.LastPlayedTime().UTC().Format(time.RFC3339)
	}
	if !c.Bool("offline") {
		out.Release = env.releaseName(c.Context, out.SchemaVersion)
	}
	return printJSON(env.w, out)
}
