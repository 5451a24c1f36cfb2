package keys

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// notation dictionary for key formats:
	// ix  = route index snapshot
	// All keys are lowercase; segments are separated by ":"
	// <...> = variable segment

	IndexSnapshotKey    = "ix:%s:%s" // ix:<name>:<version>
	IndexSnapshotPrefix = "ix:%s:"   // ix:<name>:
	IndexRootPrefix     = "ix:"
	IndexVersion        = "%020d-%06d" // <unix nanos>-<seq>

	// padding widths (fixed for lexicographic ordering)
	TSPadWidth  = 20
	SeqPadWidth = 6

	// system keys
	SystemVersionKey    = "system:version"
	SystemInProgressKey = "system:migration_in_progress"
)

// ValidateName rejects names that would break key parsing.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("index name is empty")
	}
	if strings.ContainsAny(name, ": \t\n") {
		return fmt.Errorf("index name %q must not contain ':' or whitespace", name)
	}
	return nil
}

// GenIndexVersion renders a sortable version from ts and seq.
func GenIndexVersion(ts time.Time, seq uint64) string {
	return fmt.Sprintf(IndexVersion, ts.UnixNano(), seq%1_000_000)
}

func GenIndexSnapshotKey(name, version string) string {
	return fmt.Sprintf(IndexSnapshotKey, name, version)
}

func GenIndexSnapshotPrefix(name string) string {
	return fmt.Sprintf(IndexSnapshotPrefix, name)
}

// ParseIndexSnapshotKey splits a snapshot key into name and version.
func ParseIndexSnapshotKey(key string) (name, version string, err error) {
	if !strings.HasPrefix(key, IndexRootPrefix) {
		return "", "", fmt.Errorf("not an index snapshot key: %q", key)
	}
	rest := strings.TrimPrefix(key, IndexRootPrefix)
	i := strings.LastIndex(rest, ":")
	if i <= 0 || i == len(rest)-1 {
		return "", "", fmt.Errorf("malformed index snapshot key: %q", key)
	}
	return rest[:i], rest[i+1:], nil
}

// ParseIndexVersion returns the timestamp encoded in version.
func ParseIndexVersion(version string) (time.Time, error) {
	ts, _, ok := strings.Cut(version, "-")
	if !ok || len(ts) != TSPadWidth {
		return time.Time{}, fmt.Errorf("malformed index version: %q", version)
	}
	n, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed index version: %q", version)
	}
	return time.Unix(0, n).UTC(), nil
}
