package remote

import (
	"context"
	"fmt"
	"strconv"

	"ForePull/internal/forecast"
	"ForePull/pkg/config"
)

// Model wraps a model hosted by an external service (Python, GPU box) behind
// the SeriesModel contract. Fit uploads the history and keeps the returned
// model id; Predict and PredictQuantiles call back with that id.
type Model struct {
	base    *HTTPServiceBase
	name    string
	modelID string
	fitted  bool
}

// NewModel creates a client for the named remote model.
func NewModel(cfg *config.Config, name string) *Model {
	return &Model{base: NewHTTPServiceBase(cfg), name: name}
}

func (m *Model) Name() string { return "remote:" + m.name }

type fitReq struct {
	Model  string    `json:"model"`
	Values []float64 `json:"values"`
}

type fitResp struct {
	ModelID string `json:"model_id"`
}

func (m *Model) Fit(values []float64) error {
	var resp fitResp
	err := m.base.PostJSONWithRetry(context.Background(), "/fit", fitReq{Model: m.name, Values: values}, &resp, 3)
	if err != nil {
		return fmt.Errorf("remote fit %s: %w", m.name, err)
	}
	if resp.ModelID == "" {
		return fmt.Errorf("remote fit %s: empty model id", m.name)
	}
	m.modelID = resp.ModelID
	m.fitted = true
	return nil
}

type predictReq struct {
	ModelID   string    `json:"model_id"`
	Steps     int       `json:"steps"`
	Quantiles []float64 `json:"quantiles,omitempty"`
}

type predictResp struct {
	Points []float64            `json:"points"`
	Paths  map[string][]float64 `json:"paths,omitempty"`
}

func (m *Model) Predict(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, &forecast.NotFittedError{Entity: m.Name()}
	}
	var resp predictResp
	err := m.base.PostJSONWithRetry(context.Background(), "/predict", predictReq{ModelID: m.modelID, Steps: steps}, &resp, 3)
	if err != nil {
		return nil, fmt.Errorf("remote predict %s: %w", m.name, err)
	}
	if len(resp.Points) != steps {
		return nil, fmt.Errorf("remote predict %s: got %d points, want %d", m.name, len(resp.Points), steps)
	}
	return resp.Points, nil
}

func (m *Model) PredictQuantiles(steps int, quantiles []float64) (map[float64][]float64, error) {
	if !m.fitted {
		return nil, &forecast.NotFittedError{Entity: m.Name()}
	}
	var resp predictResp
	err := m.base.PostJSONWithRetry(context.Background(), "/predict_quantiles",
		predictReq{ModelID: m.modelID, Steps: steps, Quantiles: quantiles}, &resp, 3)
	if err != nil {
		return nil, fmt.Errorf("remote predict quantiles %s: %w", m.name, err)
	}
	paths := make(map[float64][]float64, len(resp.Paths))
	for key, path := range resp.Paths {
		q, err := strconv.ParseFloat(key, 64)
		if err != nil {
			return nil, fmt.Errorf("remote predict quantiles %s: bad quantile key %q", m.name, key)
		}
		if len(path) != steps {
			return nil, fmt.Errorf("remote predict quantiles %s: got %d points for %s, want %d", m.name, len(path), key, steps)
		}
		paths[q] = path
	}
	return paths, nil
}

// RegisterModel makes a remote model available in the series model registry
// under "remote:<name>". Call once per name during wiring.
func RegisterModel(cfg *config.Config, name string) {
	forecast.Register("remote:"+name, func() forecast.SeriesModel {
		return NewModel(cfg, name)
	})
}

var _ forecast.SeriesModel = (*Model)(nil)
var _ forecast.QuantilePredictor = (*Model)(nil)
