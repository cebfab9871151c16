// Package geo reads the FSA boundary file and indexes its features by the
// region code used in the case records.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"

	"github.com/okian/covidash/pkg/logger"
	"github.com/okian/covidash/pkg/metrics"
)

// KeyProperty is the feature property holding the FSA code.
const KeyProperty = "CFSAUID"

// Region summarises one boundary feature. Coordinates are in the file's
// units (degrees for the city file), and Area is in those units squared.
type Region struct {
	FSA      string     `json:"fsa"`
	Bounds   [4]float64 `json:"bounds"` // minX, minY, maxX, maxY
	Centroid [2]float64 `json:"centroid"`
	Area     float64    `json:"area"`
}

// Boundaries is the decoded boundary collection. It is read-only after Parse.
type Boundaries struct {
	raw     []byte
	regions map[string]Region
	codes   []string
	bounds  *geom.Bounds
}

// Raw returns the file as read; the map trace fetches it verbatim.
func (b *Boundaries) Raw() []byte { return b.raw }

// Len returns the number of features.
func (b *Boundaries) Len() int { return len(b.codes) }

// Regions returns a summary per feature in file order.
func (b *Boundaries) Regions() []Region {
	out := make([]Region, len(b.codes))
	for i, code := range b.codes {
		out[i] = b.regions[code]
	}
	return out
}

// Extent returns the bounding box of all features as minX, minY, maxX, maxY,
// or zeros when there are none.
func (b *Boundaries) Extent() [4]float64 {
	if b == nil {
		return [4]float64{}
	}
	return boxOf(b.bounds)
}

// Missing returns the codes from fsas without a boundary, sorted and distinct.
func (b *Boundaries) Missing(fsas []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, f := range fsas {
		if _, ok := b.regions[f]; ok {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

type collection struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

// Parse decodes a GeoJSON FeatureCollection. Every feature needs a geometry
// and a non-empty, unique CFSAUID property.
func Parse(data []byte) (*Boundaries, error) {
	var fc collection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: decode collection: %w", ErrBoundaryUnavailable, err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: expected FeatureCollection, got %q", ErrBoundaryUnavailable, fc.Type)
	}

	b := &Boundaries{
		raw:     data,
		regions: make(map[string]Region, len(fc.Features)),
		codes:   make([]string, 0, len(fc.Features)),
		bounds:  geom.NewBounds(geom.XY),
	}
	for i, rawFeature := range fc.Features {
		var f geojson.Feature
		if err := json.Unmarshal(rawFeature, &f); err != nil {
			return nil, fmt.Errorf("%w: feature %d: %w", ErrBoundaryUnavailable, i, err)
		}
		region, err := regionOf(&f)
		if err != nil {
			return nil, fmt.Errorf("%w: feature %d: %w", ErrBoundaryUnavailable, i, err)
		}
		if _, dup := b.regions[region.FSA]; dup {
			return nil, fmt.Errorf("%w: feature %d: duplicate %s %q", ErrBoundaryUnavailable, i, KeyProperty, region.FSA)
		}
		b.regions[region.FSA] = region
		b.codes = append(b.codes, region.FSA)
		b.bounds.Extend(f.Geometry)
	}
	return b, nil
}

func regionOf(f *geojson.Feature) (Region, error) {
	code, _ := f.Properties[KeyProperty].(string)
	if code == "" {
		return Region{}, fmt.Errorf("missing %s property", KeyProperty)
	}
	if f.Geometry == nil {
		return Region{}, fmt.Errorf("%s %q has no geometry", KeyProperty, code)
	}

	r := Region{FSA: code, Bounds: boxOf(f.Geometry.Bounds())}
	if c, err := xy.Centroid(f.Geometry); err == nil && len(c) >= 2 {
		r.Centroid = [2]float64{c[0], c[1]}
	}
	if a, ok := f.Geometry.(interface{ Area() float64 }); ok {
		r.Area = math.Abs(a.Area())
	}
	return r, nil
}

func boxOf(b *geom.Bounds) [4]float64 {
	if b == nil || b.Min(0) > b.Max(0) {
		return [4]float64{}
	}
	return [4]float64{b.Min(0), b.Min(1), b.Max(0), b.Max(1)}
}

// FileSource loads boundaries from a local file.
type FileSource struct {
	path string
	log  logger.Logger
}

// Option configures a FileSource.
type Option func(*FileSource)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(s *FileSource) {
		if log != nil {
			s.log = log
		}
	}
}

// NewFileSource returns a source reading path.
func NewFileSource(path string, opts ...Option) *FileSource {
	s := &FileSource{path: path, log: logger.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("geo")
	return s
}

// Load reads and parses the file.
func (s *FileSource) Load(ctx context.Context) (*Boundaries, error) {
	start := time.Now()
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.log.Error(ctx, "boundary file read failed", logger.String("path", s.path), logger.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrBoundaryUnavailable, err)
	}
	b, err := Parse(data)
	if err != nil {
		s.log.Error(ctx, "boundary file malformed", logger.String("path", s.path), logger.Error(err))
		return nil, err
	}

	metrics.RecordDatasetLoad("boundaries", float64(time.Since(start).Milliseconds()))
	metrics.UpdateDatasetRegions(b.Len())
	s.log.Info(ctx, "boundaries loaded", logger.String("path", s.path), logger.Int("regions", b.Len()))
	return b, nil
}
