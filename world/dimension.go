package world

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/astei/anvilview/anvil"
	"github.com/astei/anvilview/chunk"
	"github.com/astei/anvilview/resource"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dimension holds the chunks loaded so far for one dimension. Chunks are inserted once and never evicted.
type Dimension struct {
	ID   resource.Location
	MinY int
	MaxY int

	world  *World
	chunks sync.Map // ChunkCoord -> *chunk.Chunk
}

// Layout returns the vertical slice layout of the dimension.
func (d *Dimension) Layout() chunk.Layout {
	return chunk.LayoutFor(d.MinY, d.MaxY)
}

// SaveDir returns the directory holding the dimension's region folder.
func (d *Dimension) SaveDir() string {
	switch d.ID {
	case Overworld:
		return d.world.path
	case TheNether:
		return filepath.Join(d.world.path, "DIM-1")
	case TheEnd:
		return filepath.Join(d.world.path, "DIM1")
	default:
		return filepath.Join(d.world.path, "dimensions", d.ID.Namespace, d.ID.Name)
	}
}

// Chunk returns a loaded chunk.
func (d *Dimension) Chunk(pos ChunkCoord) (*chunk.Chunk, bool) {
	c, ok := d.chunks.Load(pos)
	if !ok {
		return nil, false
	}
	return c.(*chunk.Chunk), true
}

// LoadChunk returns the chunk at pos, reading it from its region file if it is not loaded yet. Region and
// document errors fail the whole chunk; malformed slices are dropped individually. Concurrent loads of
// the same chunk may both read it, the first stored result wins.
func (d *Dimension) LoadChunk(pos ChunkCoord) (*chunk.Chunk, error) {
	if c, ok := d.Chunk(pos); ok {
		return c, nil
	}

	c, err := d.readChunk(pos)
	if err != nil {
		d.world.metrics.ChunkLoaded(d.ID.String(), "error")
		return nil, err
	}
	d.world.metrics.ChunkLoaded(d.ID.String(), "ok")
	d.world.metrics.SlicesSkipped(len(c.Skipped))
	for _, skipped := range c.Skipped {
		d.world.log.Debug("dropped malformed slice",
			zap.String("dimension", d.ID.String()),
			zap.Stringer("chunk", pos),
			zap.Int("slice", skipped.Index),
			zap.Error(skipped.Err))
	}

	actual, loaded := d.chunks.LoadOrStore(pos, c)
	if loaded {
		c.Release(d.world.blocks)
	}
	return actual.(*chunk.Chunk), nil
}

func (d *Dimension) readChunk(pos ChunkCoord) (*chunk.Chunk, error) {
	path := anvil.RegionPath(d.SaveDir(), pos.X, pos.Z)
	region, err := anvil.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open region for chunk %s: %w", pos, err)
	}
	defer region.Close()

	root, err := region.ReadChunk(pos.X, pos.Z)
	if err != nil {
		return nil, fmt.Errorf("could not read chunk %s in %s: %w", pos, path, err)
	}
	return chunk.Build(root, d.Layout(), d.world.blocks), nil
}

// Loaded returns the coordinates of every loaded chunk, sorted by z then x.
func (d *Dimension) Loaded() []ChunkCoord {
	var coords []ChunkCoord
	d.chunks.Range(func(key, _ any) bool {
		coords = append(coords, key.(ChunkCoord))
		return true
	})
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Z != coords[j].Z {
			return coords[i].Z < coords[j].Z
		}
		return coords[i].X < coords[j].X
	})
	return coords
}

// Regions lists the region files present in the dimension's region folder.
func (d *Dimension) Regions() ([]ChunkCoord, error) {
	regionDir := filepath.Join(d.SaveDir(), "region")
	entries, err := os.ReadDir(regionDir)
	if err != nil {
		return nil, err
	}

	var regions []ChunkCoord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mca") {
			continue
		}
		var rx, rz int
		if _, err := fmt.Sscanf(entry.Name(), "r.%d.%d.mca", &rx, &rz); err != nil {
			d.world.log.Debug("ignoring region file", zap.String("name", entry.Name()), zap.Error(err))
			continue
		}
		regions = append(regions, ChunkCoord{X: rx, Z: rz})
	}
	return regions, nil
}

// LoadRegion loads every chunk that exists in region (rx, rz). Chunks that fail to load are logged and
// skipped; the number of chunks loaded is returned.
func (d *Dimension) LoadRegion(ctx context.Context, rx, rz int) (int, error) {
	originX, originZ := rx*anvil.RegionWidth, rz*anvil.RegionWidth
	region, err := anvil.Open(anvil.RegionPath(d.SaveDir(), originX, originZ))
	if err != nil {
		return 0, err
	}
	var present []ChunkCoord
	for x := 0; x < anvil.RegionWidth; x++ {
		for z := 0; z < anvil.RegionWidth; z++ {
			if region.ChunkExists(x, z) {
				present = append(present, ChunkCoord{X: originX + x, Z: originZ + z})
			}
		}
	}
	region.Close()

	var (
		mu     sync.Mutex
		loaded int
	)
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(8)
	for _, pos := range present {
		pos := pos
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := d.LoadChunk(pos); err != nil {
				d.world.log.Warn("unable to read chunk",
					zap.String("dimension", d.ID.String()),
					zap.Stringer("chunk", pos),
					zap.Error(err))
				return nil
			}
			mu.Lock()
			loaded++
			mu.Unlock()
			return nil
		})
	}
	err = group.Wait()
	return loaded, err
}
