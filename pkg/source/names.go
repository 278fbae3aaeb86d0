package source

import (
	"bytes"
	"strings"
)

const argSeparator = "--"

// ProcessName resolves a display name from the comm field and the raw
// cmdline. The kernel truncates comm, so the first cmdline argument wins
// when present. Kernel threads have no cmdline and keep comm.
func ProcessName(comm string, cmdline []byte) string {
	if i := bytes.IndexByte(cmdline, 0); i >= 0 {
		cmdline = cmdline[:i]
	}
	line := strings.TrimSpace(string(cmdline))
	if line == "" {
		return comm
	}

	if name := fixName(line); name != "" {
		return name
	}

	return comm
}

// fixName strips the path and the attached arguments from a command line
// such as "/system/bin/binary--command-args" or "com.example.app/worker".
func fixName(name string) string {
	if i := strings.Index(name, argSeparator); i >= 0 {
		name = name[:i]
	}

	slash := strings.IndexByte(name, '/')
	switch {
	case slash > 0:
		return name[:slash]
	case slash == 0:
		return name[strings.LastIndexByte(name, '/')+1:]
	default:
		return name
	}
}
