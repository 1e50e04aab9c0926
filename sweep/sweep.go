// Package sweep runs a batch of independent tag-memory configurations
// against their own trace files concurrently, giving each one its own
// *tagcache.TagMemory as the concurrency/resource model requires (TagMemory
// state is never safe to share across goroutines). It does not aggregate
// results into CSV or any other presentation format — that remains out of
// scope, same as in the original dodo.py sweep script this replaces.
package sweep

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/CTSRD-CHERI/tagcache"
	"github.com/CTSRD-CHERI/tagcache/trace"
)

// Job is one point in a configuration sweep: a named TagMemory
// configuration replayed against one trace file.
type Job struct {
	Name      string
	Config    tagcache.MemoryConfig
	TracePath string
}

// Result is the outcome of running one Job: either a final report or an
// error. A bad trace file in one job must never take down unrelated jobs,
// so Err is carried per-result rather than causing Run to abort.
type Result struct {
	Name   string
	Report string
	Err    error
}

// Run executes every job concurrently and returns results in the same
// order as jobs. Each job gets its own TagMemory; nothing is shared between
// goroutines.
func Run(jobs []Job) []Result {
	results := make([]Result, len(jobs))

	var wg sync.WaitGroup
	wg.Add(len(jobs))
	for i, job := range jobs {
		go func(i int, job Job) {
			defer wg.Done()
			results[i] = runOne(job)
		}(i, job)
	}
	wg.Wait()

	return results
}

// runOne replays job.TracePath against a fresh TagMemory built from
// job.Config, forwarding only size==64 rows (the external wire format's
// rule, per SPEC_FULL §6), and returns its final Report.
func runOne(job Job) Result {
	f, err := os.Open(job.TracePath)
	if err != nil {
		return Result{Name: job.Name, Err: fmt.Errorf("sweep: %s: %w", job.Name, err)}
	}
	defer f.Close()

	mem := tagcache.NewTagMemory(job.Config)

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	for {
		fields, err := r.Read()
		if err != nil {
			break
		}
		rec, err := trace.ParseRecord(fields)
		if err != nil {
			continue
		}
		if rec.Size != 64 {
			continue
		}
		mem.PutReq(trace.ToRequest(rec))
	}

	return Result{Name: job.Name, Report: mem.Report()}
}

// ParseTableStruct parses a comma-separated list of grouping factors (the
// same format cmd/tagsim accepts for -tag-cache-struct) into a TableStruct.
func ParseTableStruct(s string) ([]int, error) {
	if s == "" {
		return nil, fmt.Errorf("sweep: empty table struct")
	}
	var out []int
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			v, err := strconv.Atoi(s[start:i])
			if err != nil {
				return nil, fmt.Errorf("sweep: bad table struct element %q: %w", s[start:i], err)
			}
			out = append(out, v)
			start = i + 1
		}
	}
	return out, nil
}
