package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fixturelint/internal/config"
	"fixturelint/internal/logging"
	"fixturelint/internal/world"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Cache stores encoded diagnostics by content key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key, path string, value []byte) error
}

// Runner checks many files concurrently.
type Runner struct {
	cfg     *config.Config
	scan    world.ScannerConfig
	parser  *world.PythonParser
	checker *Checker
	cache   Cache
	log     *logging.Logger

	mu       sync.Mutex
	conftest map[string]*conftestEntry
	roots    map[string]string
}

type conftestEntry struct {
	once  sync.Once
	scope Scope
	hash  string
	err   error
}

// Option configures a Runner.
type Option func(*Runner)

// WithCache makes the runner reuse results stored in c.
func WithCache(c Cache) Option {
	return func(r *Runner) { r.cache = c }
}

// NewRunner creates a Runner for cfg.
func NewRunner(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:     cfg,
		scan:    world.NewScannerConfig(cfg.World),
		parser:  world.NewPythonParser(),
		checker: NewChecker(cfg.Analysis),
		log:     logging.Get(logging.CategoryAnalysis),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run checks files and returns one result per file, in input order.
// Conftest files are parsed once per run. An unreadable file aborts the run.
func (r *Runner) Run(ctx context.Context, files []string) ([]FileResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := r.log.With("run", runID)
	log.Info("checking %d files", len(files))

	r.mu.Lock()
	r.conftest = make(map[string]*conftestEntry)
	r.roots = make(map[string]string)
	r.mu.Unlock()

	results := make([]FileResult, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	limit := r.cfg.World.MaxConcurrency
	if limit < 1 {
		limit = 1
	}
	eg.SetLimit(limit)

	for i, path := range files {
		eg.Go(func() error {
			res, err := r.checkFile(egCtx, path)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		log.Error("run failed: %v", err)
		return nil, err
	}

	summary := Summarize(results, time.Since(start))
	log.Info("checked %d files: %d diagnostics (%d cached) in %v",
		summary.Files, summary.Diagnostics, summary.Cached, summary.Duration)
	return results, nil
}

// CheckSource checks content as if it were the file at path. Conftest
// files next to path are still consulted.
func (r *Runner) CheckSource(ctx context.Context, path string, content []byte) (FileResult, error) {
	r.mu.Lock()
	if r.conftest == nil {
		r.conftest = make(map[string]*conftestEntry)
		r.roots = make(map[string]string)
	}
	r.mu.Unlock()
	return r.check(ctx, path, content)
}

func (r *Runner) checkFile(ctx context.Context, path string) (FileResult, error) {
	if err := ctx.Err(); err != nil {
		return FileResult{}, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return FileResult{}, fmt.Errorf("unable to read file %s: %w", path, err)
	}
	return r.check(ctx, path, content)
}

func (r *Runner) check(ctx context.Context, path string, content []byte) (FileResult, error) {
	result := FileResult{Path: path}

	outer, hashes := r.outerScopes(ctx, path)
	key := r.cacheKey(content, hashes)

	if r.cache != nil {
		data, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			r.log.Warn("cache lookup failed for %s: %v", path, err)
		} else if ok {
			var diags []Diagnostic
			if err := json.Unmarshal(data, &diags); err == nil {
				result.Diagnostics = diags
				result.Cached = true
				logging.AnalysisDebug("cache hit: %s", path)
				return result, nil
			}
			r.log.Warn("discarding undecodable cache entry for %s", path)
		}
	}

	mod, err := r.parser.Parse(ctx, path, content)
	if err != nil {
		return FileResult{}, err
	}
	result.Diagnostics = r.checker.CheckModule(mod, outer)
	if result.Diagnostics == nil {
		result.Diagnostics = []Diagnostic{}
	}
	logging.AnalysisDebug("checked %s: %d diagnostics", path, len(result.Diagnostics))

	if r.cache != nil {
		data, err := json.Marshal(result.Diagnostics)
		if err == nil {
			if err := r.cache.Put(ctx, key, path, data); err != nil {
				r.log.Warn("cache store failed for %s: %v", path, err)
			}
		}
	}
	return result, nil
}

// outerScopes loads the conftest fixtures that apply to path, nearest first,
// plus the content hashes of those conftest files.
func (r *Runner) outerScopes(ctx context.Context, path string) ([]Scope, []string) {
	if !r.cfg.Analysis.Conftest {
		return nil, nil
	}
	chain := world.ConftestChain(path, r.rootFor(filepath.Dir(path)))

	scopes := make([]Scope, 0, len(chain))
	hashes := make([]string, 0, len(chain))
	for _, conftest := range chain {
		entry := r.loadConftest(ctx, conftest)
		if entry.err != nil {
			r.log.Warn("ignoring conftest %s: %v", conftest, entry.err)
			continue
		}
		scopes = append(scopes, entry.scope)
		hashes = append(hashes, entry.hash)
	}
	return scopes, hashes
}

func (r *Runner) rootFor(dir string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if root, ok := r.roots[dir]; ok {
		return root
	}
	root := world.FindRoot(dir, r.scan.RootMarkers)
	r.roots[dir] = root
	return root
}

func (r *Runner) loadConftest(ctx context.Context, path string) *conftestEntry {
	r.mu.Lock()
	entry, ok := r.conftest[path]
	if !ok {
		entry = &conftestEntry{}
		r.conftest[path] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		content, err := os.ReadFile(path)
		if err != nil {
			entry.err = err
			return
		}
		mod, err := r.parser.Parse(ctx, path, content)
		if err != nil {
			entry.err = err
			return
		}
		if mod.Unparsable {
			entry.err = fmt.Errorf("syntax error near line %d", mod.ErrorLine)
			return
		}
		entry.scope = r.checker.Detector().ModuleScope(mod)
		entry.hash = hashBytes(content)
		logging.AnalysisDebug("loaded %d fixtures from %s", len(entry.scope), path)
	})
	return entry
}

func (r *Runner) cacheKey(content []byte, conftestHashes []string) string {
	h := sha256.New()
	h.Write([]byte(r.cfg.Fingerprint()))
	h.Write([]byte{0})
	h.Write(content)
	for _, c := range conftestHashes {
		h.Write([]byte{0})
		h.Write([]byte(c))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
