package models

// Requests for forecasting HTTP endpoints. Defined in domain for consistency and reuse.

type ForecastQueryRequest struct {
	Segment string `query:"segment" json:"segment" validate:"required"`
	N       int    `query:"n" json:"n" default:"100" validate:"gte=1,lte=10000"`
}

type ForecastRunRequest struct {
	Model    string  `query:"model" json:"model" default:"ar"`
	Horizon  int     `query:"horizon" json:"horizon" default:"7" validate:"gte=1,lte=365"`
	N        int     `query:"n" json:"n" default:"600" validate:"gte=8,lte=10000"`
	Freq     string  `query:"freq" json:"freq" default:"1h" validate:"oneof=1m 1h 1d"`
	Interval bool    `query:"interval" json:"interval"`
	Width    float64 `query:"width" json:"width" default:"0.95" validate:"gt=0,lt=1"`
}

type OutlierRequest struct {
	Segment string  `query:"segment" json:"segment"`
	Model   string  `query:"model" json:"model" default:"ar"`
	N       int     `query:"n" json:"n" default:"1200" validate:"gte=8,lte=10000"`
	Freq    string  `query:"freq" json:"freq" default:"1h" validate:"oneof=1m 1h 1d"`
	Width   float64 `query:"width" json:"width" default:"0.95" validate:"gt=0,lt=1"`
}
