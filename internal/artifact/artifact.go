// Package artifact implements the scroll registry: metadata records for
// user-owned binary files, the flat-file repository behind them, and the
// service that keeps the managed on-disk copies in step with the metadata.
package artifact

import (
	"strconv"
	"time"
)

// TimeLayout is the persisted upload-timestamp format: local wall time at
// seconds precision, no zone.
const TimeLayout = "2006-01-02T15:04:05"

// Artifact is a scroll: metadata plus a managed copy of the uploaded file.
// ID and UploadedAt are immutable after creation.
type Artifact struct {
	ID            string
	Name          string
	Owner         string
	FilePath      string
	UploadedAt    time.Time
	UploadCount   int
	DownloadCount int
}

// codec maps artifacts onto delimited lines:
//
//	id|name|owner|filePath|uploadTimestamp|uploadCount|downloadCount
//
// Legacy lines carrying only the first 4 fields are accepted; the timestamp
// defaults to now and both counters to 0. A counter or timestamp that fails
// to parse gets the same defaults rather than aborting the load.
type codec struct{}

func (codec) Key(a Artifact) string {
	return a.ID
}

func (codec) Encode(a Artifact) []string {
	return []string{
		a.ID,
		a.Name,
		a.Owner,
		a.FilePath,
		a.UploadedAt.Format(TimeLayout),
		strconv.Itoa(a.UploadCount),
		strconv.Itoa(a.DownloadCount),
	}
}

func (codec) Decode(fields []string) (Artifact, bool) {
	if len(fields) < 4 {
		return Artifact{}, false
	}
	a := Artifact{
		ID:         fields[0],
		Name:       fields[1],
		Owner:      fields[2],
		FilePath:   fields[3],
		UploadedAt: time.Now().Truncate(time.Second),
	}
	if len(fields) >= 5 {
		// ParseInLocation so a formatted local wall time round-trips exactly.
		if parsed, err := time.ParseInLocation(TimeLayout, fields[4], time.Local); err == nil {
			a.UploadedAt = parsed
		}
	}
	if len(fields) >= 6 {
		a.UploadCount = parseCount(fields[5])
	}
	if len(fields) >= 7 {
		a.DownloadCount = parseCount(fields[6])
	}
	return a, true
}

func parseCount(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
