// Package resolver maps asset identifiers to the source files that declare
// them in their metadata sidecars.
package resolver

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/panbanda/sceneprobe/internal/fileproc"
	"github.com/panbanda/sceneprobe/pkg/analyzer"
	"github.com/panbanda/sceneprobe/pkg/source"
)

// DefaultMetaSuffix is appended to an asset path to name its sidecar.
const DefaultMetaSuffix = ".meta"

// ErrNoGUID is returned when a sidecar has no identifier line.
var ErrNoGUID = errors.New("no guid line")

var guidLine = regexp.MustCompile(`^guid: ([a-fA-F0-9]+)$`)

// ParseGUIDLine extracts the identifier from a "guid: <hex>" line. The whole
// line must match.
func ParseGUIDLine(line string) (string, bool) {
	m := guidLine.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExtractGUID returns the identifier declared by the first matching line.
func ExtractGUID(lines []string) (string, bool) {
	for _, line := range lines {
		if guid, ok := ParseGUIDLine(line); ok {
			return guid, true
		}
	}
	return "", false
}

// ReadGUID reads the sidecar at metaPath and returns its identifier as written.
func ReadGUID(src source.ContentSource, metaPath string) (string, error) {
	lines, err := source.ReadLines(src, metaPath)
	if err != nil {
		return "", err
	}
	guid, ok := ExtractGUID(lines)
	if !ok {
		return "", ErrNoGUID
	}
	return guid, nil
}

// Entry pairs an identifier with the asset that declares it.
type Entry struct {
	GUID string `json:"guid"`
	Path string `json:"path"`
}

// Index maps lower-cased identifiers to asset paths.
type Index struct {
	entries []Entry
	byGUID  map[string]string
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{byGUID: make(map[string]string)}
}

// FromEntries rebuilds an index from previously exported entries.
func FromEntries(entries []Entry) *Index {
	idx := NewIndex()
	for _, e := range entries {
		idx.add(e.GUID, e.Path)
	}
	return idx
}

// add records guid -> path unless guid is already present.
func (idx *Index) add(guid, path string) bool {
	key := strings.ToLower(guid)
	if _, exists := idx.byGUID[key]; exists {
		return false
	}
	idx.byGUID[key] = path
	idx.entries = append(idx.entries, Entry{GUID: key, Path: path})
	return true
}

// Resolve returns the asset declaring guid, compared case-insensitively.
func (idx *Index) Resolve(guid string) (string, bool) {
	path, ok := idx.byGUID[strings.ToLower(guid)]
	return path, ok
}

// Len returns the number of indexed identifiers.
func (idx *Index) Len() int {
	return len(idx.byGUID)
}

// Entries returns the indexed pairs in insertion order.
func (idx *Index) Entries() []Entry {
	out := make([]Entry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// Resolver builds identifier indexes from sidecar files.
type Resolver struct {
	src        source.ContentSource
	workers    int
	metaSuffix string
}

// Option is a functional option for configuring Resolver.
type Option func(*Resolver)

// WithSource reads sidecars and checks assets through src.
func WithSource(src source.ContentSource) Option {
	return func(r *Resolver) {
		r.src = src
	}
}

// WithWorkers bounds the number of sidecars read concurrently (0 = default).
func WithWorkers(n int) Option {
	return func(r *Resolver) {
		r.workers = n
	}
}

// WithMetaSuffix sets the sidecar suffix stripped to derive asset paths.
func WithMetaSuffix(suffix string) Option {
	return func(r *Resolver) {
		if suffix != "" {
			r.metaSuffix = suffix
		}
	}
}

// New creates a resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		src:        source.NewFilesystem(),
		metaSuffix: DefaultMetaSuffix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AssetPath derives the asset a sidecar describes by stripping the suffix,
// matched case-insensitively.
func (r *Resolver) AssetPath(metaPath string) string {
	return TrimSuffixFold(metaPath, r.metaSuffix)
}

// TrimSuffixFold returns s without suffix, compared case-insensitively. s is
// returned unchanged when it does not end in suffix.
func TrimSuffixFold(s, suffix string) string {
	if suffix == "" || len(s) < len(suffix) {
		return s
	}
	if strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return s[:len(s)-len(suffix)]
	}
	return s
}

// MetaPath names the sidecar of an asset.
func (r *Resolver) MetaPath(assetPath string) string {
	return assetPath + r.metaSuffix
}

// LookupGUID reads the identifier of an asset from its own sidecar.
func (r *Resolver) LookupGUID(assetPath string) (string, error) {
	return ReadGUID(r.src, r.MetaPath(assetPath))
}

type sidecar struct {
	guid  string
	asset string
	ok    bool
}

// Build indexes every sidecar in metaFiles. Sidecars are visited in sorted
// path order and the first sidecar declaring an identifier wins. A sidecar
// is indexed only when it declares an identifier and its asset exists.
// Unreadable sidecars are skipped and reported in the returned errors.
func (r *Resolver) Build(ctx context.Context, metaFiles []string) (*Index, *fileproc.ProcessingErrors) {
	sorted := make([]string, len(metaFiles))
	copy(sorted, metaFiles)
	sort.Strings(sorted)

	tick := analyzer.StartStage(ctx, "index", len(sorted))

	parsed, errs := fileproc.ForEachFile(ctx, sorted, r.workers, func(path string) (sidecar, error) {
		lines, err := source.ReadLines(r.src, path)
		if err != nil {
			return sidecar{}, err
		}
		guid, ok := ExtractGUID(lines)
		if !ok {
			return sidecar{}, nil
		}
		asset := r.AssetPath(path)
		return sidecar{guid: guid, asset: asset, ok: r.src.Exists(asset)}, nil
	}, fileproc.ProgressFunc(tick))

	idx := NewIndex()
	for _, s := range parsed {
		if s.ok {
			idx.add(s.guid, s.asset)
		}
	}
	return idx, errs
}
