// Package diagnostics renders registration runs for human inspection: a
// GeoJSON export of the iteration trajectory and aligned footprint, plus
// SVG/PNG convergence charts.
package diagnostics

import (
	"fmt"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"

	"github.com/kwv/photoicp/icp"
)

// IterationSample is the accumulated global translation after one Step, used
// to build the trajectory LineString (x, y plane projection of t).
type IterationSample struct {
	Iteration int
	T         icp.Vec3
}

// TrajectoryFeatureCollection builds a GeoJSON FeatureCollection with one
// LineString feature tracing the accumulated translation across iterations
// and one Point feature per sample, carrying the iteration index as a
// property. Coordinates are in the same millimetre space as the clouds.
func TrajectoryFeatureCollection(samples []IterationSample, simplifyTolerance float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if len(samples) == 0 {
		return fc
	}

	line := make(orb.LineString, len(samples))
	for i, s := range samples {
		line[i] = orb.Point{s.T.X, s.T.Y}
	}
	if simplifyTolerance > 0 {
		if simplified, ok := simplify.DouglasPeucker(simplifyTolerance).Simplify(line.Clone()).(orb.LineString); ok {
			line = simplified
		}
	}

	trackFeature := geojson.NewFeature(line)
	trackFeature.Properties["kind"] = "trajectory"
	fc.Append(trackFeature)

	for _, s := range samples {
		pointFeature := geojson.NewFeature(orb.Point{s.T.X, s.T.Y})
		pointFeature.Properties["kind"] = "iteration"
		pointFeature.Properties["iteration"] = s.Iteration
		fc.Append(pointFeature)
	}

	return fc
}

// FootprintPolygon returns the convex hull, in the cloud's XY plane, of a
// registered cloud's geometry, a coarse footprint suitable for overlaying
// the aligned moving cloud against the fixed cloud in a viewer.
func FootprintPolygon(c icp.Cloud) *geojson.Feature {
	if c.Len() == 0 {
		return nil
	}

	points := make([]orb.Point, c.Len())
	for i := 0; i < c.Len(); i++ {
		p := c.At(i)
		points[i] = orb.Point{float64(p[0]), float64(p[1])}
	}

	hull := convexHull(points)
	if len(hull) < 3 {
		return nil
	}
	if hull[0] != hull[len(hull)-1] {
		hull = append(hull, hull[0])
	}

	feature := geojson.NewFeature(orb.Polygon{orb.Ring(hull)})
	feature.Properties["kind"] = "footprint"
	return feature
}

// WriteFeatureCollection marshals fc as GeoJSON and writes it to path.
func WriteFeatureCollection(path string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("diagnostics: marshaling feature collection: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("diagnostics: writing %s: %w", path, err)
	}
	return nil
}

// convexHull computes the 2-D convex hull via Andrew's monotone chain,
// returning points in counter-clockwise order with no closing duplicate.
func convexHull(points []orb.Point) []orb.Point {
	if len(points) < 3 {
		out := make([]orb.Point, len(points))
		copy(out, points)
		return out
	}

	sorted := make([]orb.Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] != sorted[j][0] {
			return sorted[i][0] < sorted[j][0]
		}
		return sorted[i][1] < sorted[j][1]
	})

	cross := func(o, a, b orb.Point) float64 {
		return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
	}

	n := len(sorted)
	hull := make([]orb.Point, 0, 2*n)

	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	lower := len(hull) + 1
	for i := n - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	return hull[:len(hull)-1]
}
