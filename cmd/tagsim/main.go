// Command tagsim replays a CSV memory-access trace through a tagcache.TagMemory
// and prints periodic reports, mirroring the flag set and replay loop of the
// original simulateTags.py driver this tool replaces.
package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/CTSRD-CHERI/tagcache"
	"github.com/CTSRD-CHERI/tagcache/trace"
)

var (
	inputPath       = flag.String("input", "", "path to the CSV trace file (required)")
	verbose         = flag.Bool("verbose", false, "enable debug logging")
	reportPeriods   = flag.Int("report-periods", 0, "number of periodic reports to print (0: unlimited)")
	reportPeriod    = flag.Int("report-period", 100000, "number of requests between reports")
	cacheSize       = flag.Int("tag-cache-size", 1<<16, "tag cache size in bytes")
	cacheAssoc      = flag.Int("tag-cache-assoc", 4, "tag cache associativity")
	cacheLineSize   = flag.Int("tag-cache-line-size", 1024, "tag cache line size in bits")
	tableStruct     = flag.String("tag-cache-struct", "0,256", "comma-separated table grouping factors, index 0 is an unused sentinel")
	spatialTemporal = flag.Bool("tag-cache-count-spatial-temporal", false, "track spatial vs temporal hit classification")
	memStart        = flag.Uint64("memory-start-addr", 1<<31, "base byte address of the simulated window")
	memSize         = flag.Uint64("memory-size", 1<<29, "simulated window size in bytes")
	emptyLeafOpt    = flag.Bool("tag-cache-create-destroy-empty", false, "skip memory traffic for lines created/destroyed all-zero")
	nonDirtyWrites  = flag.Bool("tag-cache-non-dirty-writes", false, "do not mark a line dirty when the write does not change its value")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *inputPath == "" {
		logger.Error("missing required flag", "flag", "-input")
		os.Exit(1)
	}

	structFields := strings.Split(*tableStruct, ",")
	ts := make([]int, len(structFields))
	for i, f := range structFields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			logger.Error("invalid -tag-cache-struct element", "value", f, "error", err)
			os.Exit(1)
		}
		ts[i] = v
	}

	cfg := tagcache.MemoryConfig{
		Cache: tagcache.CacheConfig{
			Size:            *cacheSize,
			Assoc:           *cacheAssoc,
			LineSize:        *cacheLineSize,
			SpatialTemporal: *spatialTemporal,
		},
		TableStruct:    ts,
		MemStart:       *memStart,
		MemSize:        *memSize,
		EmptyLeafOpt:   *emptyLeafOpt,
		NonDirtyWrites: *nonDirtyWrites,
		Logger:         logger,
	}

	if err := run(cfg, *inputPath, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

// run owns the replay loop: read each trace row, forward only 64-byte
// accesses to the memory model (the original's own filtering rule), and
// print a report every reportPeriod requests, stopping after reportPeriods
// reports if that limit is positive.
func run(cfg tagcache.MemoryConfig, path string, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("tagsim: opening trace: %w", err)
	}
	defer f.Close()

	mem := tagcache.NewTagMemory(cfg)
	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1

	var count, reports int
	for {
		fields, err := r.Read()
		if err != nil {
			break
		}

		rec, err := trace.ParseRecord(fields)
		if err != nil {
			logger.Debug("skipping malformed row", "error", err)
			continue
		}
		if rec.Size != 64 {
			continue
		}

		mem.PutReq(trace.ToRequest(rec))
		count++

		if count%*reportPeriod == 0 {
			fmt.Println(mem.Report())
			reports++
			if *reportPeriods > 0 && reports >= *reportPeriods {
				return nil
			}
		}
	}

	fmt.Println(mem.Report())
	return nil
}
