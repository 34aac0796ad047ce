package cache

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// VersionMarker returns a cheap freshness marker for an attachment built from
// what the wiki reports about it. It changes when the name, the reported
// version or the byte size change; a replaced file that keeps all three is
// not noticed.
func VersionMarker(filename string, version int, size int64) string {
	return marker(filename + ":" + strconv.Itoa(version) + ":" + strconv.FormatInt(size, 10))
}

// URLVersionMarker returns the freshness marker of an externally hosted image.
func URLVersionMarker(url string) string {
	return marker(url)
}

func marker(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}
