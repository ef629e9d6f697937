package api

// PredictRequest carries a batch of feature rows. Every row must have
// exactly as many values as the loaded forest has features; nulls are
// decoded as NaN and follow the forest's default-child routing.
type PredictRequest struct {
	Rows [][]*float64 `json:"rows"`
}

type PredictResponse struct {
	ID          string      `json:"id"`
	Object      string      `json:"object"`
	Model       string      `json:"model"`
	Predictions [][]float32 `json:"predictions"`
	Rows        int         `json:"rows"`
	Groups      int         `json:"groups"`
	DurationMs  float64     `json:"duration_ms"`
}

type ModelResponse struct {
	ID             string `json:"id"`
	Object         string `json:"object"`
	Trees          int    `json:"trees"`
	Features       int    `json:"features"`
	Groups         int    `json:"groups"`
	Aggregation    string `json:"aggregation"`
	Specialization string `json:"specialization"`
	Device         string `json:"device"`
}

type ModelListResponse struct {
	Object string          `json:"object"`
	Data   []ModelResponse `json:"data"`
}

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}
