//go:build linux

package sysinfo

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

func rawAvailableMemory() (uint64, error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var memFree, buffers, cached uint64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		var target *uint64
		switch fields[0] {
		case "MemFree:":
			target = &memFree
		case "Buffers:":
			target = &buffers
		case "Cached:":
			target = &cached
		default:
			continue
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		*target = kb * 1024
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return memFree + buffers + cached, nil
}

func rawMaxMapCount() (uint64, error) {
	data, err := os.ReadFile("/proc/sys/vm/max_map_count")
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
}

// rawMajorFaults parses /proc/self/stat's majflt field (the 12th field
// of the line, the 10th after the process name, which itself may contain
// spaces, so scanning resumes after the last ')').
func rawMajorFaults() (uint64, error) {
	data, err := os.ReadFile("/proc/self/stat")
	if err != nil {
		return 0, err
	}
	s := string(data)
	paren := strings.LastIndexByte(s, ')')
	if paren < 0 || paren+2 >= len(s) {
		return 0, ErrUnsupported
	}
	fields := strings.Fields(s[paren+2:])
	const majfltField = 9 // 0-indexed, counting from the state field that follows "pid (comm)"
	if len(fields) <= majfltField {
		return 0, ErrUnsupported
	}
	return strconv.ParseUint(fields[majfltField], 10, 64)
}
