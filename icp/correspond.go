package icp

import (
	"context"
	"runtime"

	"github.com/kwv/photoicp/icp/rbc"
)

// correspondenceIndex wraps the rbc collaborator with the photogeometric
// projection the core's distance metric uses, keeping the rbc
// package itself metric-agnostic per its doc comment.
type correspondenceIndex struct {
	idx          *rbc.Index
	colourWeight float64
}

// buildCorrespondenceIndex builds the RBC over F's representatives and
// landmarks, done once per frame pair at Init.
func buildCorrespondenceIndex(reps, landmarks Cloud, colourWeight float64) (*correspondenceIndex, error) {
	repPts := projectCloud(reps, colourWeight)
	lmPts := projectCloud(landmarks, colourWeight)
	idx, err := rbc.Build(repPts, lmPts, runtime.GOMAXPROCS(0))
	if err != nil {
		return nil, newStageError(StageRBC, err)
	}
	return &correspondenceIndex{idx: idx, colourWeight: colourWeight}, nil
}

// query returns, for each landmark in queries, the (distance, id) of its
// approximate nearest neighbour in F's landmarks.
func (c *correspondenceIndex) query(ctx context.Context, queries Cloud) ([]Correspondence, error) {
	qPts := projectCloud(queries, c.colourWeight)
	results, err := c.idx.Query(ctx, qPts)
	if err != nil {
		return nil, newStageError(StageRBC, err)
	}
	out := make([]Correspondence, len(results))
	for i, r := range results {
		out[i] = Correspondence{Dist: r.Dist, ID: r.ID}
	}
	return out, nil
}

func projectCloud(c Cloud, colourWeight float64) []rbc.Point {
	out := make([]rbc.Point, c.Len())
	for i := range out {
		p := c.At(i)
		out[i] = rbc.Point{p[0], p[1], p[2], float32(colourScalar(p, colourWeight))}
	}
	return out
}
