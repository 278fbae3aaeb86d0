package source

import (
	"context"
	"errors"
	"strconv"
)

// Ordinal layout of a process row.
const (
	FieldClass = iota
	FieldUID
	FieldPID
	FieldName
	FieldUTime
	FieldSTime
	FieldCUTime
	FieldCSTime
	FieldUptime
	NumFields
)

// Ordinal layout of the system aggregate row.
const (
	SystemLabel = iota
	SystemIdle
	SystemUptime
	NumSystemFields
)

const systemLabel = "cpu"

var (
	// ErrNoDataSource is returned when the counters cannot be read at all.
	// An empty scan is not an error.
	ErrNoDataSource = errors.New("no data source")
	ErrInvalidRow   = errors.New("invalid row")
)

// Filter selects a process and attaches the classification code the
// source cannot know by itself.
type Filter struct {
	PID            int32 `json:"pid"`
	UID            int32 `json:"uid"`
	Classification int32 `json:"classification"`
}

// Request describes one scan. An empty Filters list discovers every process.
// With All set, processes outside Filters are returned as well, classified 0.
type Request struct {
	Filters []Filter
	All     bool
}

func (r Request) discover() bool {
	return r.All || len(r.Filters) == 0
}

func (r Request) index() map[int32]Filter {
	idx := make(map[int32]Filter, len(r.Filters))
	for _, f := range r.Filters {
		idx[f.PID] = f
	}

	return idx
}

// Row is a flat list of ordinal fields.
type Row []string

// Rows is the result of a scan. Rows[0] is always the system aggregate row.
type Rows []Row

type Source interface {
	// Scan reads one pass of process accounting counters.
	Scan(ctx context.Context, req Request) (Rows, error)
}

// SystemRow builds the aggregate row from total and idle ticks.
func SystemRow(idle, uptime int64) Row {
	return Row{systemLabel, strconv.FormatInt(idle, 10), strconv.FormatInt(uptime, 10)}
}

// ProcessRow builds a process row in ordinal layout.
func ProcessRow(class, uid, pid int32, name string, utime, stime, cutime, cstime, uptime int64) Row {
	return Row{
		strconv.FormatInt(int64(class), 10),
		strconv.FormatInt(int64(uid), 10),
		strconv.FormatInt(int64(pid), 10),
		name,
		strconv.FormatInt(utime, 10),
		strconv.FormatInt(stime, 10),
		strconv.FormatInt(cutime, 10),
		strconv.FormatInt(cstime, 10),
		strconv.FormatInt(uptime, 10),
	}
}

// IsSystem reports whether r is a well formed aggregate row.
func (r Row) IsSystem() bool {
	return len(r) >= NumSystemFields && r[SystemLabel] == systemLabel
}

// Int parses the field at i. Missing or malformed fields are reported as ErrInvalidRow.
func (r Row) Int(i int) (int64, error) {
	if i < 0 || i >= len(r) {
		return 0, ErrInvalidRow
	}
	v, err := strconv.ParseInt(r[i], 10, 64)
	if err != nil {
		return 0, errors.Join(ErrInvalidRow, err)
	}

	return v, nil
}

// Int32 is Int narrowed to int32.
func (r Row) Int32(i int) (int32, error) {
	v, err := r.Int(i)
	if err != nil {
		return 0, err
	}

	return int32(v), nil
}

// Field returns the field at i or an empty string.
func (r Row) Field(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}

	return r[i]
}
