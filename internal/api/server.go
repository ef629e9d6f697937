package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/csadorf/herring/internal/inference"
	"github.com/csadorf/herring/internal/logger"
)

type Server struct {
	engine  inference.Engine
	modelID string
	log     logger.Logger
	metrics *Metrics
	clock   func() time.Time
}

func NewServer(engine inference.Engine, modelID string, log logger.Logger) *Server {
	if modelID == "" {
		modelID = "herring"
	}
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		engine:  engine,
		modelID: modelID,
		log:     log,
		metrics: NewMetrics(),
		clock:   time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/predict", s.handlePredict)
	e.GET("/v1/models", s.handleListModels)
	e.GET("/v1/models/:id", s.handleGetModel)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", s.handleMetrics)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleMetrics(c *echo.Context) error {
	s.metrics.handler().ServeHTTP(c.Response(), c.Request())
	return nil
}

func (s *Server) modelResponse() ModelResponse {
	info := s.engine.Describe()
	return ModelResponse{
		ID:             s.modelID,
		Object:         "model",
		Trees:          info.Trees,
		Features:       info.Features,
		Groups:         info.Groups,
		Aggregation:    info.Aggregation,
		Specialization: info.Specialization,
		Device:         info.Device,
	}
}

func (s *Server) handleListModels(c *echo.Context) error {
	return c.JSON(http.StatusOK, ModelListResponse{
		Object: "list",
		Data:   []ModelResponse{s.modelResponse()},
	})
}

func (s *Server) handleGetModel(c *echo.Context) error {
	id := c.Param("id")
	if id != s.modelID {
		return writeNotFound(c, fmt.Sprintf("model %q not found", id))
	}
	return c.JSON(http.StatusOK, s.modelResponse())
}

func (s *Server) handlePredict(c *echo.Context) error {
	start := s.clock()
	status := http.StatusOK
	defer func() {
		s.metrics.requests.WithLabelValues("predict", strconv.Itoa(status)).Inc()
	}()

	req, err := decodeJSON[PredictRequest](c.Request().Body)
	if err != nil {
		status = http.StatusBadRequest
		return writeBadRequest(c, err.Error())
	}
	if len(req.Rows) == 0 {
		status = http.StatusBadRequest
		return writeBadRequest(c, "rows is required and must not be empty")
	}

	features := s.engine.Describe().Features
	flat := make([]float32, 0, len(req.Rows)*features)
	for i, row := range req.Rows {
		if len(row) != features {
			status = http.StatusBadRequest
			return writeBadRequest(c, fmt.Sprintf("row %d has %d values, want %d", i, len(row), features))
		}
		for _, v := range row {
			if v == nil {
				flat = append(flat, float32(math.NaN()))
			} else {
				flat = append(flat, float32(*v))
			}
		}
	}

	res, err := s.engine.Predict(c.Request().Context(), &inference.Request{
		Rows:    flat,
		NumRows: len(req.Rows),
	})
	if err != nil {
		status = http.StatusInternalServerError
		s.log.Error("predict failed", "error", err, "rows", len(req.Rows))
		return writeServerError(c, err.Error())
	}

	preds := make([][]float32, res.Stats.Rows)
	for i := range preds {
		preds[i] = res.Predictions[i*res.Groups : (i+1)*res.Groups]
	}

	elapsed := s.clock().Sub(start)
	s.metrics.rows.Add(float64(res.Stats.Rows))
	s.metrics.latency.Observe(elapsed.Seconds())

	return c.JSON(http.StatusOK, PredictResponse{
		ID:          newPredictionID(),
		Object:      "prediction",
		Model:       s.modelID,
		Predictions: preds,
		Rows:        res.Stats.Rows,
		Groups:      res.Groups,
		DurationMs:  float64(elapsed.Microseconds()) / 1000,
	})
}
