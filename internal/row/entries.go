package row

import "bytes"

var (
	// EntrySeparator separates several logical entries in one cell.
	EntrySeparator = []byte("; ")
	// LineSeparator separates entries placed on separate lines of one cell.
	LineSeparator = []byte("\n")
)

// Entries splits a payload into its non-empty, trimmed logical entries.
func Entries(payload []byte) [][]byte {
	if len(payload) == 0 {
		return nil
	}
	var out [][]byte
	for _, line := range bytes.Split(payload, LineSeparator) {
		for _, e := range bytes.Split(line, EntrySeparator) {
			e = bytes.TrimSpace(e)
			if len(e) != 0 {
				out = append(out, e)
			}
		}
	}
	return out
}
