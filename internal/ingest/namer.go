package ingest

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// GenerateKey builds a collision-resistant storage key from an original
// filename: "{unix-millis}_{random 0-999}.{lowercased extension}". The
// extension is everything after the last '.' in the name; names without
// one produce a key without an extension.
//
// Uniqueness is probabilistic: two keys generated in the same millisecond
// collide with probability ~1/1000. The object store's create-only write
// path turns such a collision into a visible error rather than an
// overwrite, so no existence check is performed here.
func GenerateKey(name string) string {
	key := fmt.Sprintf("%d_%d", time.Now().UnixMilli(), rand.Intn(1000))
	if ext := Extension(name); ext != "" {
		key += "." + ext
	}
	return key
}

// Extension returns the lowercased substring after the last '.' of a
// filename, or "" when it has none.
func Extension(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return strings.ToLower(name[i+1:])
	}
	return ""
}
