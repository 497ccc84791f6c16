// Package catalog finds cartridge images and offers the valid ones for
// selection.
//
// Discovery and reading are done by collaborators. DirLister and FileReader
// are the filesystem implementations. Files that cannot be read, or that are
// not valid cartridges, are left out of the catalog without being reported
// as errors. Only a failure of discovery as a whole is returned, and in that
// case the catalog keeps serving the list from the last successful scan.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/cart"
	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/logger"
)

// Extensions are the file extensions offered to the lister.
var Extensions = []string{".gb", ".gbc"}

// maximum number of files read at the same time during a rescan
const readConcurrency = 4

// Lister returns candidate paths for files with any of the given extensions.
type Lister interface {
	List(ctx context.Context, exts []string) ([]string, error)
}

// Reader returns the contents of a file found by the Lister.
type Reader interface {
	Read(ctx context.Context, path string) ([]byte, error)
}

// Catalog is the list of cartridges available for loading.
type Catalog struct {
	reader Reader

	crit   sync.Mutex
	lister Lister

	// bumped whenever the cache is cleared. a scan only stores its result
	// if the generation it started in is still current
	gen uint64

	// replaced whole, never modified. nil if there has been no successful
	// scan since the cache was last cleared
	cache atomic.Pointer[[]cart.Summary]

	scans singleflight.Group
}

func New(lister Lister, reader Reader) *Catalog {
	return &Catalog{lister: lister, reader: reader}
}

// Rescan discovers and reads all candidates. The result is in the order the
// lister reported the paths.
//
// If the lister fails, or no candidate could be read at all, the previous
// result (or an empty list) is returned along with the error.
//
// Concurrent calls share a single scan. The shared scan is not cancelled
// when one of the callers gives up; a cancelled caller returns the cached
// list and the context's error.
func (c *Catalog) Rescan(ctx context.Context) ([]cart.Summary, error) {
	c.crit.Lock()
	gen := c.gen
	c.crit.Unlock()

	// scans started after SetLister or ClearCache never join an older scan
	key := strconv.FormatUint(gen, 10)
	ch := c.scans.DoChan(key, func() (interface{}, error) {
		return c.scan(context.WithoutCancel(ctx), gen)
	})

	select {
	case <-ctx.Done():
		return c.Cached(), fmt.Errorf("catalog: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return c.Cached(), res.Err
		}
		return slices.Clone(res.Val.([]cart.Summary)), nil
	}
}

// Cached returns the result of the last successful scan. It never blocks
// behind a scan in progress.
func (c *Catalog) Cached() []cart.Summary {
	p := c.cache.Load()
	if p == nil {
		return []cart.Summary{}
	}
	return slices.Clone(*p)
}

// ClearCache drops the result of the last scan.
// A scan in progress when the cache is cleared does not refill it.
func (c *Catalog) ClearCache() {
	c.crit.Lock()
	defer c.crit.Unlock()
	c.clearLocked()
}

func (c *Catalog) clearLocked() {
	c.gen++
	c.cache.Store(nil)
}

// SetLister changes where cartridges are discovered. The cache is cleared.
func (c *Catalog) SetLister(l Lister) {
	c.crit.Lock()
	defer c.crit.Unlock()
	c.lister = l
	c.clearLocked()
}

func (c *Catalog) scan(ctx context.Context, gen uint64) ([]cart.Summary, error) {
	c.crit.Lock()
	lister := c.lister
	c.crit.Unlock()

	paths, err := lister.List(ctx, Extensions)
	if err != nil {
		logger.Logf("catalog", "listing: %v", err)
		return nil, fmt.Errorf("catalog: %w", err)
	}

	var candidates []string
	for _, p := range paths {
		if hasExtension(p) {
			candidates = append(candidates, p)
		}
	}

	// results are indexed by candidate so that order is kept regardless of
	// which read finishes first
	found := make([]*cart.Summary, len(candidates))
	readErrs := make([]error, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)
	for i, path := range candidates {
		g.Go(func() error {
			rom, err := c.reader.Read(gctx, path)
			if err != nil {
				logger.Logf("catalog", "skipping %s: %v", path, err)
				readErrs[i] = err
				return nil
			}
			if err := cart.Validate(rom); err != nil {
				logger.Logf("catalog", "skipping %s: %v", path, err)
				return nil
			}
			s := cart.Summarize(path, rom)
			found[i] = &s
			return nil
		})
	}
	_ = g.Wait()

	if len(candidates) > 0 && allFailed(readErrs) {
		return nil, fmt.Errorf("catalog: no file could be read: %w", errors.Join(readErrs...))
	}

	list := make([]cart.Summary, 0, len(candidates))
	for _, s := range found {
		if s != nil {
			list = append(list, *s)
		}
	}

	c.crit.Lock()
	if c.gen == gen {
		c.cache.Store(&list)
	}
	c.crit.Unlock()
	logger.Logf("catalog", "%d of %d candidates are valid cartridges", len(list), len(candidates))
	return list, nil
}

func hasExtension(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range Extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func allFailed(errs []error) bool {
	for _, err := range errs {
		if err == nil {
			return false
		}
	}
	return true
}
