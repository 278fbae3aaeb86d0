//go:build linux

package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const defaultProcRoot = "/proc"

// Offsets into the /proc/<pid>/stat fields following the comm field.
const (
	statUTime     = 11
	statSTime     = 12
	statCUTime    = 13
	statCSTime    = 14
	statStartTime = 19
)

type procFS struct {
	root string
}

// NewProcFS returns a Source reading the proc filesystem mounted at root.
// An empty root means /proc.
func NewProcFS(root string) Source {
	if root == "" {
		root = defaultProcRoot
	}

	return &procFS{root: root}
}

func (p *procFS) Scan(ctx context.Context, req Request) (Rows, error) {
	idle, uptime, err := p.readSystem()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDataSource, err)
	}

	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDataSource, err)
	}

	filters := req.index()
	discover := req.discover()

	rows := Rows{SystemRow(idle, uptime)}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pid, err := strconv.ParseInt(entry.Name(), 10, 32)
		if err != nil || !entry.IsDir() {
			continue
		}

		f, listed := filters[int32(pid)]
		if !listed && !discover {
			continue
		}

		row, err := p.readProcess(int32(pid), f.Classification)
		if err != nil {
			// The process exited between listing and reading.
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func (p *procFS) readSystem() (idle, uptime int64, err error) {
	f, err := os.Open(filepath.Join(p.root, "stat"))
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}

		parts := strings.Fields(line)[1:]
		for i, part := range parts {
			v, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return 0, 0, err
			}
			uptime += v
			// idle and iowait
			if i == 3 || i == 4 {
				idle += v
			}
		}

		return idle, uptime, nil
	}
	if err := sc.Err(); err != nil {
		return 0, 0, err
	}

	return 0, 0, errors.New("missing aggregate cpu line")
}

func (p *procFS) readProcess(pid, class int32) (Row, error) {
	dir := filepath.Join(p.root, strconv.Itoa(int(pid)))

	b, err := os.ReadFile(filepath.Join(dir, "stat"))
	if err != nil {
		return nil, err
	}

	s := string(b)
	lp := strings.IndexByte(s, '(')
	rp := strings.LastIndexByte(s, ')')
	if lp < 0 || rp < lp || rp+2 > len(s) {
		return nil, ErrInvalidRow
	}
	comm := s[lp+1 : rp]

	fields := strings.Fields(s[rp+2:])
	if len(fields) <= statStartTime {
		return nil, ErrInvalidRow
	}

	values := make([]int64, 0, 5)
	for _, idx := range []int{statUTime, statSTime, statCUTime, statCSTime, statStartTime} {
		v, err := strconv.ParseInt(fields[idx], 10, 64)
		if err != nil {
			return nil, ErrInvalidRow
		}
		values = append(values, v)
	}

	cmdline, _ := os.ReadFile(filepath.Join(dir, "cmdline"))
	name := ProcessName(comm, cmdline)

	return ProcessRow(class, p.readUID(dir), pid, name, values[0], values[1], values[2], values[3], values[4]), nil
}

func (p *procFS) readUID(dir string) int32 {
	b, err := os.ReadFile(filepath.Join(dir, "status"))
	if err == nil {
		for _, line := range bytes.Split(b, []byte{'\n'}) {
			if !bytes.HasPrefix(line, []byte("Uid:")) {
				continue
			}
			parts := strings.Fields(string(line[len("Uid:"):]))
			if len(parts) > 0 {
				if uid, err := strconv.ParseInt(parts[0], 10, 32); err == nil {
					return int32(uid)
				}
			}
		}
	}

	var st unix.Stat_t
	if err := unix.Stat(dir, &st); err != nil {
		return -1
	}

	return int32(st.Uid)
}
