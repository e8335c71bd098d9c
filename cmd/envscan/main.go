// Command envscan reports which environment variables look like they
// encode this process's rank, grounded on original_source/findrankvars.c.
// The original polls every MPI process and reduces each variable's
// classification (NOT_RANK/GOOD_ENOUGH/IS_RANK) across ranks via
// MPI_Bcast+MPI_Reduce; without a real multi-process runtime to poll,
// envscan instead classifies the current process's own environment
// against a --rank value the caller supplies (typically read from a
// scheduler's own per-task environment variable beforehand), the same
// single-process granularity original_source/jumbomem's --rankvar
// inspects one process at a time to discover.
//
// Author: momentics <momentics@gmail.com>
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
)

type rankLikelihood int

const (
	notRank rankLikelihood = iota
	goodEnough
	isRank
)

func classify(value string, rank int) rankLikelihood {
	n, err := strconv.Atoi(value)
	if err != nil {
		return notRank
	}
	if n == rank {
		if rank == 0 {
			return goodEnough
		}
		return isRank
	}
	return notRank
}

func main() {
	rank := flag.Int("rank", 0, "this process's expected rank, to match against candidate environment variables")
	flag.Parse()

	type hit struct {
		key  string
		kind rankLikelihood
	}
	var hits []hit
	for _, kv := range os.Environ() {
		key, value, ok := splitEnv(kv)
		if !ok {
			continue
		}
		if k := classify(value, *rank); k != notRank {
			hits = append(hits, hit{key, k})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].key < hits[j].key })

	if len(hits) == 0 {
		fmt.Println("[none]")
		return
	}
	for _, h := range hits {
		switch h.kind {
		case goodEnough:
			fmt.Printf("%-40s (defined only on rank 0)\n", h.key)
		case isRank:
			fmt.Printf("%-40s (matches rank %d)\n", h.key, *rank)
		}
	}
}

func splitEnv(kv string) (key, value string, ok bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], true
		}
	}
	return "", "", false
}
