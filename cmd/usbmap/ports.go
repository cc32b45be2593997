package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parsePorts reads selection indices written as "1,2,3", "5-7" or separate
// arguments. Duplicates are kept once, in first-seen order.
func parsePorts(args []string) ([]int, error) {
	var out []int
	seen := make(map[int]bool)
	add := func(n int) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}

	for _, arg := range args {
		for _, field := range strings.Split(arg, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			lo, hi, isRange := strings.Cut(field, "-")
			if !isRange {
				n, err := strconv.Atoi(field)
				if err != nil {
					return nil, fmt.Errorf("%q is not a port number", field)
				}
				add(n)
				continue
			}
			from, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("%q is not a port range", field)
			}
			to, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil || to < from {
				return nil, fmt.Errorf("%q is not a port range", field)
			}
			for n := from; n <= to; n++ {
				add(n)
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no ports given")
	}
	return out, nil
}
