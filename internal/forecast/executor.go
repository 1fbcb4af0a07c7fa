package forecast

import (
	"time"

	"ForePull/internal/dataset"
)

// trainSpan captures the time range an adapter was fitted on. All alignment
// decisions are made against it.
type trainSpan struct {
	start time.Time
	end   time.Time
	freq  time.Duration
	n     int
}

func newTrainSpan(p *dataset.Panel) trainSpan {
	return trainSpan{start: p.StartTime(), end: p.EndTime(), freq: p.Freq(), n: p.Len()}
}

// alignment maps positions of a requested forecast index onto the trained
// history (in-sample) and the future horizon (out-of-sample, 1-based steps).
type alignment struct {
	inSample  [][2]int // requested position, train position
	outSample [][2]int // requested position, future step
	maxStep   int
}

// align classifies every requested timestamp. Timestamps must sit on the
// trained time grid; a range that the model cannot reach at all yields an
// AlignmentError.
func (tr trainSpan) align(index []time.Time, segment string) (*alignment, error) {
	al := &alignment{}
	for i, ts := range index {
		diff := ts.Sub(tr.start)
		if diff < 0 {
			return nil, &AlignmentError{Segment: segment, Reason: "requested timestamps precede the trained history"}
		}
		if diff%tr.freq != 0 {
			return nil, &AlignmentError{Segment: segment, Reason: "requested timestamps are not on the trained time grid"}
		}
		pos := int(diff / tr.freq)
		if pos < tr.n {
			al.inSample = append(al.inSample, [2]int{i, pos})
			continue
		}
		step := pos - tr.n + 1
		al.outSample = append(al.outSample, [2]int{i, step})
		if step > al.maxStep {
			al.maxStep = step
		}
	}
	if len(al.inSample) == 0 && len(al.outSample) == 0 {
		return nil, &AlignmentError{Segment: segment, Reason: "empty forecast range"}
	}
	return al, nil
}

// predictAligned produces point predictions (and quantile paths when
// requested) for one segment, positioned exactly as the requested index.
//
// Out-of-sample cells always come from a single full-horizon Predict call
// sliced by step, so a prefix, suffix or interior-gap request is numerically
// identical to the matching slice of the full-range forecast. In-sample cells
// come from the in-sample re-prediction capability and leave no cell unset.
func predictAligned(model SeriesModel, al *alignment, opts Options, segment string, indexLen int) ([]float64, map[float64][]float64, error) {
	points := dataset.NaNs(indexLen)

	if len(al.outSample) > 0 {
		full, err := model.Predict(al.maxStep)
		if err != nil {
			return nil, nil, err
		}
		for _, pair := range al.outSample {
			points[pair[0]] = full[pair[1]-1]
		}
	}
	if len(al.inSample) > 0 {
		isp, ok := model.(InSamplePredictor)
		if !ok {
			return nil, nil, &CapabilityError{Model: model.Name(), Capability: "in-sample re-prediction", Segment: segment}
		}
		fitted, err := isp.PredictInSample()
		if err != nil {
			return nil, nil, err
		}
		for _, pair := range al.inSample {
			points[pair[0]] = fitted[pair[1]]
		}
	}

	if !opts.PredictionInterval {
		return points, nil, nil
	}

	quantiles := opts.quantiles()
	paths := make(map[float64][]float64, len(quantiles))
	for _, q := range quantiles {
		paths[q] = dataset.NaNs(indexLen)
	}
	if len(al.outSample) > 0 {
		qp, ok := model.(QuantilePredictor)
		if !ok {
			return nil, nil, &CapabilityError{Model: model.Name(), Capability: "prediction intervals", Segment: segment}
		}
		fullPaths, err := qp.PredictQuantiles(al.maxStep, quantiles)
		if err != nil {
			return nil, nil, err
		}
		for _, q := range quantiles {
			for _, pair := range al.outSample {
				paths[q][pair[0]] = fullPaths[q][pair[1]-1]
			}
		}
	}
	if len(al.inSample) > 0 {
		qp, ok := model.(InSampleQuantilePredictor)
		if !ok {
			return nil, nil, &CapabilityError{Model: model.Name(), Capability: "in-sample prediction intervals", Segment: segment}
		}
		fittedPaths, err := qp.PredictInSampleQuantiles(quantiles)
		if err != nil {
			return nil, nil, err
		}
		for _, q := range quantiles {
			for _, pair := range al.inSample {
				paths[q][pair[0]] = fittedPaths[q][pair[1]]
			}
		}
	}
	return points, paths, nil
}

// placeForecast writes point and quantile columns of one segment into the
// output panel in place.
func placeForecast(p *dataset.Panel, segment string, points []float64, paths map[float64][]float64) error {
	if err := p.SetColumn(segment, dataset.TargetFeature, points); err != nil {
		return err
	}
	for q, path := range paths {
		if err := p.SetColumn(segment, dataset.QuantileFeature(q), path); err != nil {
			return err
		}
	}
	return nil
}
