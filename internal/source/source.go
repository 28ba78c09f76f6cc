// Package source reads raw map records out of a Minecraft world directory.
// Two dialects exist: Java edition keeps one gzipped NBT file per map, while
// Bedrock dedicated servers keep map records inside the world's LevelDB
// store. The rest of the pipeline never sees the difference.
package source

import (
	"context"
	"fmt"
)

// RawMap is one undecoded map record: the game-assigned id, an epoch hint
// (0 when the dialect has none), and the parsed NBT tree of the record.
type RawMap struct {
	ID        int32
	EpochHint int64
	Tree      map[string]any
}

// Source yields all map records found in a world.
type Source interface {
	// Name identifies the dialect in logs.
	Name() string
	// Maps reads every map record. Records that cannot be read are logged
	// and left out of the slice; an error here means the source itself is
	// unreadable.
	Maps(ctx context.Context) ([]RawMap, error)
}

// New returns the adapter for a world type ("java" or "bds").
func New(worldType, worldDir string) (Source, error) {
	switch worldType {
	case "java":
		return &Java{Dir: worldDir}, nil
	case "bds":
		return &Bedrock{Dir: worldDir}, nil
	}
	return nil, fmt.Errorf("unsupported world type %q (want java or bds)", worldType)
}
