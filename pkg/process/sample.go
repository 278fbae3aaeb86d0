package process

import (
	"math"
	"strconv"

	"github.com/absmach/guardian/pkg/source"
)

// Importance tiers reported for managed processes. Lower is more important.
const (
	ImportanceForeground  int32 = 100
	ImportancePerceptible int32 = 130
	ImportanceVisible     int32 = 200
	ImportanceService     int32 = 300
	ImportanceBackground  int32 = 400
	ImportanceEmpty       int32 = 500
)

// Kind separates processes the system classifies from native ones.
type Kind uint8

const (
	Unmanaged Kind = iota
	Managed
)

func (k Kind) String() string {
	switch k {
	case Managed:
		return "managed"
	default:
		return "unmanaged"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Counter holds the previous and the current value of a monotonic counter.
type Counter [2]int64

// rotate shifts the current value into slot 0 and writes v as the current
// value. The first observation fills both slots so its delta is zero.
func (c *Counter) rotate(v int64, first bool) {
	if first {
		c[0], c[1] = v, v
		return
	}
	c[0], c[1] = c[1], v
}

// Delta is the change between the previous and the current value.
func (c Counter) Delta() int64 {
	return c[1] - c[0]
}

// System is the aggregate CPU accounting row.
type System struct {
	Uptime Counter `json:"uptime"`
	Idle   Counter `json:"idle"`

	updates int
}

// Update rotates the system counters from an aggregate row.
func (s *System) Update(row source.Row) error {
	if !row.IsSystem() {
		return source.ErrInvalidRow
	}
	uptime, err := row.Int(source.SystemUptime)
	if err != nil {
		return err
	}
	idle, err := row.Int(source.SystemIdle)
	if err != nil {
		return err
	}
	first := s.updates == 0
	s.Uptime.rotate(uptime, first)
	s.Idle.rotate(idle, first)
	s.updates++

	return nil
}

// Usage is the system wide CPU usage over the last cycle.
func (s System) Usage() float64 {
	uptime := s.Uptime.Delta()

	return percent(uptime, uptime-s.Idle.Delta())
}

// Sample is one process observed across scan cycles.
type Sample struct {
	PID            int32   `json:"pid"`
	UID            int32   `json:"uid"`
	Name           string  `json:"name"`
	Kind           Kind    `json:"kind"`
	Classification int32   `json:"classification"`
	Uptime         Counter `json:"uptime"`
	UTime          Counter `json:"utime"`
	STime          Counter `json:"stime"`
	CUTime         Counter `json:"cutime"`
	CSTime         Counter `json:"cstime"`

	updates int
}

// Update merges a raw row into the sample, rotating the delta slots.
// Rows with fewer than the ordinal process fields are rejected.
func (s *Sample) Update(row source.Row) error {
	if len(row) < source.NumFields {
		return source.ErrInvalidRow
	}

	var vals [source.NumFields]int64
	for _, i := range []int{source.FieldClass, source.FieldUID, source.FieldPID, source.FieldUTime, source.FieldSTime, source.FieldCUTime, source.FieldCSTime, source.FieldUptime} {
		v, err := row.Int(i)
		if err != nil {
			return err
		}
		vals[i] = v
	}

	s.PID = int32(vals[source.FieldPID])
	s.UID = int32(vals[source.FieldUID])
	s.Classification = int32(vals[source.FieldClass])
	s.Kind = Unmanaged
	if s.Classification > 0 {
		s.Kind = Managed
	}
	s.Name = row.Field(source.FieldName)

	first := s.updates == 0
	s.UTime.rotate(vals[source.FieldUTime], first)
	s.STime.rotate(vals[source.FieldSTime], first)
	s.CUTime.rotate(vals[source.FieldCUTime], first)
	s.CSTime.rotate(vals[source.FieldCSTime], first)
	s.Uptime.rotate(vals[source.FieldUptime], first)
	s.updates++

	return nil
}

// Label is the name shown for the sample.
func (s *Sample) Label() string {
	if s.Kind == Unmanaged && s.Name == "" {
		return "[" + strconv.Itoa(int(s.PID)) + "]"
	}

	return s.Name
}

// Usage is the CPU usage of the process over the last cycle, relative to
// the system counters of the same cycle.
func (s *Sample) Usage(sys System) float64 {
	uptime := (sys.Uptime[1] - s.Uptime[1]) - (sys.Uptime[0] - s.Uptime[0])
	busy := (s.UTime[1] + s.STime[1]) - (s.UTime[0] + s.STime[0])
	idle := uptime - busy

	return percent(uptime, uptime-idle)
}

// AverageUsage is the CPU usage of the process over its whole lifetime.
func (s *Sample) AverageUsage(sys System) float64 {
	uptime := sys.Uptime[1] - s.Uptime[1]
	busy := s.UTime[1] + s.STime[1]
	if uptime <= 0 || busy <= 0 {
		return 0
	}

	return clamp(math.Round(10000*float64(busy)/float64(uptime)) / 100)
}

// Perceptible reports whether terminating the process would be noticed.
// Unmanaged processes carry no tier and are never perceptible.
func (s *Sample) Perceptible() bool {
	if s.Classification <= 0 {
		return false
	}

	switch s.Classification {
	case ImportanceForeground, ImportanceVisible, ImportancePerceptible:
		return true
	default:
		return false
	}
}

// Important reports whether the process is in a tier protected from CPU
// checks while the device is in use.
func (s *Sample) Important(interactive bool) bool {
	if !interactive {
		return false
	}

	switch s.Classification {
	case ImportanceForeground, ImportanceVisible, ImportancePerceptible:
		return true
	default:
		return false
	}
}

func percent(total, used int64) float64 {
	if total <= 0 || used <= 0 {
		return 0
	}

	return clamp(math.Round(1000*float64(used)/float64(total)) / 10)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
