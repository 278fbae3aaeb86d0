package source

import (
	"context"
	"fmt"
	"math"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/process"
)

// userHZ is the tick rate the ordinal rows are expressed in.
const userHZ = 100

type psSource struct{}

// NewGopsutil returns a Source backed by gopsutil. It works on every
// platform gopsutil supports; child times are not available and are 0.
func NewGopsutil() Source {
	return &psSource{}
}

func (s *psSource) Scan(ctx context.Context, req Request) (Rows, error) {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDataSource, err)
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: empty cpu times", ErrNoDataSource)
	}
	t := times[0]
	total := t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal
	rows := Rows{SystemRow(ticks(t.Idle+t.Iowait), ticks(total))}

	boot, err := host.BootTimeWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDataSource, err)
	}

	procs, err := s.processes(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDataSource, err)
	}

	filters := req.index()
	for _, p := range procs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := psRow(ctx, p, filters[p.Pid].Classification, int64(boot))
		if err != nil {
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func (s *psSource) processes(ctx context.Context, req Request) ([]*process.Process, error) {
	if req.discover() {
		return process.ProcessesWithContext(ctx)
	}

	procs := make([]*process.Process, 0, len(req.Filters))
	for _, f := range req.Filters {
		p, err := process.NewProcessWithContext(ctx, f.PID)
		if err != nil {
			continue
		}
		procs = append(procs, p)
	}

	return procs, nil
}

func psRow(ctx context.Context, p *process.Process, class int32, boot int64) (Row, error) {
	times, err := p.TimesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return nil, err
	}
	if cmdline, err := p.CmdlineSliceWithContext(ctx); err == nil && len(cmdline) > 0 {
		name = ProcessName(name, []byte(cmdline[0]))
	}

	uid := int32(-1)
	if uids, err := p.UidsWithContext(ctx); err == nil && len(uids) > 0 {
		uid = uids[0]
	}

	created, err := p.CreateTimeWithContext(ctx)
	if err != nil {
		return nil, err
	}

	// Start time in ticks since boot, as /proc/<pid>/stat reports it.
	start := (created/1000 - boot) * userHZ

	return ProcessRow(class, uid, p.Pid, name, ticks(times.User), ticks(times.System), 0, 0, start), nil
}

func ticks(seconds float64) int64 {
	return int64(math.Round(seconds * userHZ))
}
