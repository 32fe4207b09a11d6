package handler

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/your-org/chi-traffic-accidents/internal/features"
	"github.com/your-org/chi-traffic-accidents/internal/predict"
)

// AboutText is the body of the about page.
const AboutText = "This is an about page."

//go:embed templates/*.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Predictor produces estimates from form answers.
type Predictor interface {
	Fields() []predict.Field
	Predict(answers map[string]string) (predict.Result, error)
	ModelVersion() string
}

// PredictHandler serves the prediction form.
type PredictHandler struct {
	predictor Predictor
	metrics   *Metrics
	logger    *zap.Logger
}

// NewPredictHandler creates a PredictHandler. metrics may be nil.
func NewPredictHandler(p Predictor, metrics *Metrics, logger *zap.Logger) *PredictHandler {
	return &PredictHandler{predictor: p, metrics: metrics, logger: logger}
}

// RegisterRoutes registers the form routes on r.
func (h *PredictHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/predict", h.Predict)
	r.Get("/about", About)
}

type page struct {
	Fields       []predict.Field
	Answers      map[string]string
	Result       *predict.Result
	Error        string
	ModelVersion string
}

// Index renders the empty form.
func (h *PredictHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, page{Answers: map[string]string{}})
}

// Predict reads the posted answers and renders the estimate. Invalid
// answers re-render the form with the error and status 400.
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.metrics.observe(outcomeInvalid, 0)
		h.render(w, http.StatusBadRequest, page{Answers: map[string]string{}, Error: "Could not read the form."})
		return
	}
	answers := make(map[string]string, len(r.PostForm))
	for _, f := range h.predictor.Fields() {
		answers[f.Name] = r.PostForm.Get(f.Name)
	}

	res, err := h.predictor.Predict(answers)
	switch {
	case err == nil:
		h.metrics.observe(outcomeOK, res.Value)
		h.logger.Debug("prediction", zap.Float64("value", res.Value), zap.String("model_version", res.ModelVersion))
		h.render(w, http.StatusOK, page{Answers: answers, Result: &res})
	case isInputError(err):
		h.metrics.observe(outcomeInvalid, 0)
		h.render(w, http.StatusBadRequest, page{Answers: answers, Error: err.Error()})
	default:
		h.metrics.observe(outcomeError, 0)
		h.logger.Error("prediction failed", zap.Error(err))
		h.render(w, http.StatusInternalServerError, page{Answers: answers, Error: "Prediction failed."})
	}
}

func isInputError(err error) bool {
	return errors.Is(err, predict.ErrMissingAnswer) ||
		errors.Is(err, predict.ErrInvalidNumber) ||
		errors.Is(err, features.ErrUnknownCategory)
}

func (h *PredictHandler) render(w http.ResponseWriter, status int, p page) {
	p.Fields = h.predictor.Fields()
	p.ModelVersion = h.predictor.ModelVersion()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTemplate.Execute(w, p); err != nil {
		h.logger.Error("failed to render form", zap.Error(err))
	}
}

// About writes AboutText.
func About(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(AboutText))
}
