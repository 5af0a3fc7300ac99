package world

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Tnze/go-mc/nbt"
	"github.com/klauspost/compress/gzip"
)

// NoDataVersion is reported for saves written before data versions existed.
const NoDataVersion = 99

type levelRoot struct {
	Data LevelData
}

// LevelData is the subset of level.dat the viewer needs.
type LevelData struct {
	LevelName   string `nbt:"LevelName"`
	DataVersion int32  `nbt:"DataVersion"`
	LastPlayed  int64  `nbt:"LastPlayed"`

	Version struct {
		ID       int32  `nbt:"Id"`
		Name     string `nbt:"Name"`
		Series   string `nbt:"Series"`
		Snapshot byte   `nbt:"Snapshot"`
	} `nbt:"Version"`
}

// SchemaVersion returns the save's data version, or NoDataVersion when the save predates them.
func (l *LevelData) SchemaVersion() int {
	if l.DataVersion == 0 {
		return NoDataVersion
	}
	return int(l.DataVersion)
}

// LastPlayedTime converts LastPlayed, stored in milliseconds since the epoch.
func (l *LevelData) LastPlayedTime() time.Time {
	return time.UnixMilli(l.LastPlayed)
}

// ReadLevel decodes the gzip-compressed level.dat of a save directory.
func ReadLevel(savePath string) (*LevelData, error) {
	file, err := os.Open(filepath.Join(savePath, "level.dat"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stream, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("could not read level.dat: %w", err)
	}
	defer stream.Close()

	var root levelRoot
	if _, err = nbt.NewDecoder(stream).Decode(&root); err != nil {
		return nil, fmt.Errorf("could not deserialize level.dat: %w", err)
	}
	return &root.Data, nil
}

// Level reads the world's level.dat.
func (w *World) Level() (*LevelData, error) {
	return ReadLevel(w.path)
}
