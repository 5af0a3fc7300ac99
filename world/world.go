// Package world is the registry of dimensions and their loaded chunks for one save directory.
package world

import (
	"fmt"
	"sort"
	"sync"

	"github.com/astei/anvilview/block"
	"github.com/astei/anvilview/metrics"
	"github.com/astei/anvilview/resource"
	"go.uber.org/zap"
)

var (
	Overworld = resource.Minecraft("overworld")
	TheNether = resource.Minecraft("the_nether")
	TheEnd    = resource.Minecraft("the_end")
)

// ChunkCoord identifies a chunk column in a dimension.
type ChunkCoord struct {
	X int
	Z int
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("%d,%d", c.X, c.Z)
}

type World struct {
	path    string
	blocks  *block.Table
	log     *zap.Logger
	metrics *metrics.Metrics

	mu         sync.RWMutex
	dimensions map[resource.Location]*Dimension
}

type Option func(*World)

func WithLogger(log *zap.Logger) Option {
	return func(w *World) { w.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *World) { w.metrics = m }
}

// WithBlockTable shares an interning table between worlds.
func WithBlockTable(table *block.Table) Option {
	return func(w *World) { w.blocks = table }
}

// New creates a world rooted at path with the overworld, the nether and the end registered. Nothing is
// read from disk until chunks are loaded.
func New(path string, opts ...Option) *World {
	w := &World{
		path:       path,
		blocks:     block.NewTable(),
		log:        zap.NewNop(),
		dimensions: make(map[resource.Location]*Dimension),
	}
	for _, opt := range opts {
		opt(w)
	}

	// Build height tops out at 320. Some tools use 384 here, which adds four slices that never hold blocks.
	w.AddDimension(Overworld, -64, 320)
	w.AddDimension(TheNether, 0, 256)
	w.AddDimension(TheEnd, 0, 256)
	return w
}

func (w *World) Path() string             { return w.path }
func (w *World) BlockTable() *block.Table { return w.blocks }

// AddDimension registers a dimension spanning [minY, maxY). If the id is already registered the existing
// dimension is returned unchanged.
func (w *World) AddDimension(id resource.Location, minY, maxY int) *Dimension {
	w.mu.Lock()
	defer w.mu.Unlock()

	if dim, ok := w.dimensions[id]; ok {
		return dim
	}
	dim := &Dimension{ID: id, MinY: minY, MaxY: maxY, world: w}
	w.dimensions[id] = dim
	return dim
}

// Dimension returns a registered dimension.
func (w *World) Dimension(id resource.Location) (*Dimension, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	dim, ok := w.dimensions[id]
	return dim, ok
}

// Dimensions returns the registered dimension ids in sorted order.
func (w *World) Dimensions() []resource.Location {
	w.mu.RLock()
	ids := make([]resource.Location, 0, len(w.dimensions))
	for id := range w.dimensions {
		ids = append(ids, id)
	}
	w.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}
