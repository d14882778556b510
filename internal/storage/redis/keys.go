package redis

import (
	"fmt"
	"strconv"

	"github.com/mcoot/shapesync/internal/model"
)

// Key prefix for all shapesync data
const keyPrefix = "shapesync"

// playersKey returns the hash holding every player record, keyed by stable ID
func playersKey() string {
	return fmt.Sprintf("%s:players", keyPrefix)
}

// playerField returns the hash field for a stable ID
func playerField(id model.StableID) string {
	return strconv.FormatUint(uint64(id), 10)
}
