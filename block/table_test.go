package block

import (
	"sync"
	"testing"

	"github.com/astei/anvilview/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func log(axis string) Value {
	return Value{
		Name:       resource.Minecraft("oak_log"),
		Properties: map[resource.Location]resource.Location{resource.Minecraft("axis"): resource.Minecraft(axis)},
	}
}

func TestInternDeduplicates(t *testing.T) {
	table := NewTable()
	a := table.Intern(log("y"))
	b := table.Intern(log("y"))
	c := table.Intern(log("x"))

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 2, table.Refs(a))
	assert.True(t, a.Equal(log("y")))
	assert.False(t, a.Equal(log("x")))
}

func TestHashIgnoresPropertyOrder(t *testing.T) {
	v1 := Value{Name: resource.Minecraft("chest"), Properties: map[resource.Location]resource.Location{}}
	v2 := Value{Name: resource.Minecraft("chest"), Properties: map[resource.Location]resource.Location{}}
	keys := []string{"facing", "type", "waterlogged"}
	vals := []string{"north", "single", "false"}
	for i := range keys {
		v1.Properties[resource.Minecraft(keys[i])] = resource.Minecraft(vals[i])
		v2.Properties[resource.Minecraft(keys[len(keys)-1-i])] = resource.Minecraft(vals[len(vals)-1-i])
	}
	assert.Equal(t, v1.Hash(), v2.Hash())
	assert.NotEqual(t, v1.Hash(), Value{Name: resource.Minecraft("chest")}.Hash())
}

func TestRelease(t *testing.T) {
	table := NewTable()
	a := table.Intern(log("z"))
	table.Intern(log("z"))

	table.Release(a)
	assert.Equal(t, 1, table.Len())
	table.Release(a)
	assert.Equal(t, 0, table.Len())

	b := table.Intern(log("z"))
	assert.NotSame(t, a, b)
	assert.Equal(t, 1, table.Refs(b))

	table.Release(a)
	table.Release(nil)
	assert.Equal(t, 1, table.Len())
}

func TestConcurrentIntern(t *testing.T) {
	table := NewTable()
	var wg sync.WaitGroup
	results := make([]*State, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = table.Intern(log("y"))
		}(i)
	}
	wg.Wait()

	for _, s := range results {
		require.Same(t, results[0], s)
	}
	assert.Equal(t, 64, table.Refs(results[0]))
}

func TestStateAccessors(t *testing.T) {
	table := NewTable()
	s := table.Intern(Value{
		Name: resource.Minecraft("oak_stairs"),
		Properties: map[resource.Location]resource.Location{
			resource.Minecraft("half"):   resource.Minecraft("top"),
			resource.Minecraft("facing"): resource.Minecraft("east"),
		},
	})

	assert.Equal(t, "minecraft:oak_stairs[facing=east,half=top]", s.String())
	v, ok := s.Property(resource.Minecraft("half"))
	assert.True(t, ok)
	assert.Equal(t, resource.Minecraft("top"), v)
	_, ok = s.Property(resource.Minecraft("shape"))
	assert.False(t, ok)
	assert.True(t, s.Equal(s.Value()))
	assert.Len(t, s.Properties(), 2)
}
