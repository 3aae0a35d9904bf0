package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/pos-checkout/internal/domain/inventory"
)

const bloomFPR = 0.001

// scanStats counts lines per outcome for one import.
type scanStats struct {
	Lines     int
	Unknown   int
	Malformed int
}

// tally accumulates stock counts from several files.
type tally struct {
	known *bloom.BloomFilter

	mu     sync.Mutex
	counts map[string]int
	stats  scanStats
}

// newTally returns a tally that only keeps lines for productIDs (subject to
// the filter's false positive rate; the database drops the rest).
func newTally(productIDs []string) *tally {
	n := uint(len(productIDs))
	if n == 0 {
		n = 1
	}
	f := bloom.NewWithEstimates(n, bloomFPR)
	for _, id := range productIDs {
		f.AddString(id)
	}
	return &tally{known: f, counts: make(map[string]int)}
}

// parseLine parses "<productID>,<quantity>". Tabs also separate fields.
func parseLine(line string) (productID string, qty int, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", 0, false
	}
	id, raw, found := strings.Cut(line, ",")
	if !found {
		id, raw, found = strings.Cut(line, "\t")
	}
	if !found {
		return "", 0, false
	}
	id = strings.TrimSpace(id)
	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id == "" || qty < 0 || qty > inventory.MaxQuantity {
		return "", 0, false
	}
	return id, qty, true
}

// scan reads one stocktake stream and merges it into the tally. Quantities
// for the same product are summed across lines and files, capped at
// inventory.MaxQuantity.
func (t *tally) scan(ctx context.Context, r io.Reader) error {
	local := make(map[string]int)
	var stats scanStats

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		stats.Lines++

		id, qty, ok := parseLine(line)
		if !ok {
			stats.Malformed++
			continue
		}
		if !t.known.TestString(id) {
			stats.Unknown++
			continue
		}
		local[id] = min(local[id]+qty, inventory.MaxQuantity)
	}
	if err := sc.Err(); err != nil {
		return errors.Wrap(err, "scan")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for id, qty := range local {
		t.counts[id] = min(t.counts[id]+qty, inventory.MaxQuantity)
	}
	t.stats.Lines += stats.Lines
	t.stats.Unknown += stats.Unknown
	t.stats.Malformed += stats.Malformed
	return nil
}

// scanFile opens a gzip-compressed stocktake file and scans it.
func (t *tally) scanFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	if err := t.scan(ctx, gz); err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	return nil
}

// scanFiles scans every file concurrently.
func (t *tally) scanFiles(ctx context.Context, paths []string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range paths {
		g.Go(func() error {
			return t.scanFile(ctx, p)
		})
	}
	return g.Wait()
}
