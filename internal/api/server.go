package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dunamismax/webpd/internal/config"
	"github.com/dunamismax/webpd/internal/transcode"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const contentTypeWebP = "image/webp"

type Server struct {
	logger     *zap.Logger
	apiKey     string
	transcoder transcode.Transcoder
	metrics    *metrics
	tracer     trace.Tracer
	mux        *http.ServeMux
	handler    http.Handler
}

// NewServer wires the routes. cfg is read once; handlers never consult the
// environment.
func NewServer(logger *zap.Logger, cfg config.Config, transcoder transcode.Transcoder) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		logger:     logger,
		apiKey:     cfg.APIKey,
		transcoder: transcoder,
		metrics:    newMetrics(),
		tracer:     otel.Tracer("webpd/api"),
		mux:        http.NewServeMux(),
	}
	s.routes()

	var h http.Handler = s.mux
	h = withBodyLimit(h, MaxBodyBytes)
	h = s.withAccessLog(h)
	h = s.metrics.withHTTPMetrics(h)
	h = s.withTracing(h)
	h = withRequestID(h)
	s.handler = h
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
	s.mux.HandleFunc("POST /convert", s.handleConvert)
	s.mux.HandleFunc("POST /resize/{width}/{height}", s.handleResize)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	s.convert(w, r, "convert", nil)
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	target, err := parseTarget(r.PathValue("width"), r.PathValue("height"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.convert(w, r, "resize", target)
}

func (s *Server) convert(w http.ResponseWriter, r *http.Request, operation string, target *transcode.Target) {
	if !IsAuthorized(s.apiKey, r.Header) {
		s.metrics.authRejected.WithLabelValues(operation).Inc()
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	res, err := s.transcode(r.Context(), operation, body, target)
	if err != nil {
		status, msg := classifyTranscodeError(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("transcode failed",
				zap.String("operation", operation),
				zap.Int("input_bytes", len(body)),
				zap.String("request_id", r.Header.Get(HeaderRequestID)),
				zap.Error(err),
			)
		}
		writeError(w, status, msg)
		return
	}

	w.Header().Set("Content-Type", contentTypeWebP)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

func (s *Server) transcode(ctx context.Context, operation string, body []byte, target *transcode.Target) (transcode.Result, error) {
	ctx, span := s.tracer.Start(ctx, "transcode."+operation, trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	span.SetAttributes(attribute.Int("image.input_bytes", len(body)))
	if target != nil {
		span.SetAttributes(
			attribute.Int("image.target_width", int(target.Width)),
			attribute.Int("image.target_height", int(target.Height)),
		)
	}

	start := time.Now()
	res, err := s.transcoder.Transcode(ctx, body, target)
	outcome := outcomeLabel(err)
	s.metrics.transcodeTotal.WithLabelValues(operation, outcome).Inc()
	s.metrics.transcodeDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
	s.metrics.inputBytes.WithLabelValues(operation).Add(float64(len(body)))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return transcode.Result{}, err
	}

	s.metrics.outputBytes.WithLabelValues(operation).Add(float64(len(res.Data)))
	span.SetAttributes(
		attribute.String("image.source_format", res.SourceFormat),
		attribute.Int("image.output_bytes", len(res.Data)),
		attribute.Int("image.width", res.Width),
		attribute.Int("image.height", res.Height),
	)
	span.SetStatus(codes.Ok, "transcoded")
	return res, nil
}

func parseTarget(width, height string) (*transcode.Target, error) {
	w, errW := strconv.ParseUint(width, 10, 32)
	h, errH := strconv.ParseUint(height, 10, 32)
	if errW != nil || errH != nil {
		return nil, errors.New("width and height must be unsigned integers")
	}
	return &transcode.Target{Width: uint32(w), Height: uint32(h)}, nil
}

func classifyTranscodeError(err error) (int, string) {
	switch {
	case errors.Is(err, transcode.ErrInvalidImage):
		return http.StatusBadRequest, transcode.ErrInvalidImage.Error()
	case errors.Is(err, transcode.ErrInvalidDimensions):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, transcode.ErrEncode):
		return http.StatusInternalServerError, transcode.ErrEncode.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, transcode.ErrInvalidImage):
		return "invalid_image"
	case errors.Is(err, transcode.ErrInvalidDimensions):
		return "invalid_dimensions"
	case errors.Is(err, transcode.ErrEncode):
		return "encode_error"
	default:
		return "error"
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
