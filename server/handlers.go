package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/mhpenta/creatorflow"
)

// StatusClientClosedRequest is returned when the client goes away mid-request.
const StatusClientClosedRequest = 499

const (
	maxMultipartMemory = 32 << 20
	maxJSONBody        = 1 << 20
)

type errorBody struct {
	Detail string `json:"detail"`
	Stage  string `json:"stage,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

type analyzeStyleRequest struct {
	TextSamples []string `json:"text_samples"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	writeJSON(w, status, body)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "CreatorFlow API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		s.writeRequestError(w, r, err)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	req := creatorflow.GenerationRequest{
		UserText: r.FormValue("user_text"),
		Format:   creatorflow.ParseFormat(r.FormValue("format")),
	}
	if platforms := r.FormValue("platforms"); platforms != "" {
		req.Platforms = strings.Split(platforms, ",")
	}

	ref, err := readImage(r, "file")
	if err != nil {
		s.writeRequestError(w, r, err)
		return
	}
	if ref != nil {
		req.ReferenceImage = *ref
	}

	req.ProductImage, err = readImage(r, "product_file")
	if err != nil {
		s.writeRequestError(w, r, err)
		return
	}

	result, err := s.generator.Generate(r.Context(), req)
	if err != nil {
		s.writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalyzeStyle(w http.ResponseWriter, r *http.Request) {
	var body analyzeStyleRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&body); err != nil {
		s.writeRequestError(w, r, fmt.Errorf("invalid JSON body: %w", err))
		return
	}

	profile, err := s.style.Analyze(r.Context(), body.TextSamples)
	if err != nil {
		s.writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// readImage reads an optional multipart file. A missing part returns nil.
func readImage(r *http.Request, field string) (*creatorflow.InputImage, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	defer file.Close()

	data, err := readLimited(file, creatorflow.MaxImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	return &creatorflow.InputImage{
		Data:     data,
		MIMEType: header.Header.Get("Content-Type"),
	}, nil
}

// readLimited reads at most limit+1 bytes so oversized files are still
// rejected by image validation.
func readLimited(f multipart.File, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(f, limit+1))
}

// writeRequestError answers a request that could not be decoded.
func (s *Server) writeRequestError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, errorBody{
			Detail: "request body exceeds " + strconv.FormatInt(maxErr.Limit, 10) + " bytes",
		})
		return
	}
	s.logger.WarnContext(r.Context(), "malformed request", "path", r.URL.Path, "error", err.Error())
	writeError(w, http.StatusBadRequest, errorBody{Detail: err.Error()})
}

// writePipelineError maps a pipeline failure to a status code.
func (s *Server) writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)

	var pErr *creatorflow.ProviderError
	if status == http.StatusTooManyRequests && errors.As(err, &pErr) && pErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(pErr.RetryAfter.Seconds()))))
	}
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "status", status, "stage", body.Stage, "kind", body.Kind)
	}
	writeError(w, status, body)
}

// statusFor maps errors to HTTP statuses: validation 400 (413 for oversized
// images), caller cancellation 499, and stage failures by kind: TIMEOUT 504,
// RATE_LIMITED 429, anything else 502.
func statusFor(err error) (int, errorBody) {
	body := errorBody{Detail: err.Error()}

	if errors.Is(err, context.Canceled) {
		return StatusClientClosedRequest, errorBody{Detail: "request canceled"}
	}

	var vErr *creatorflow.ValidationError
	if errors.As(err, &vErr) {
		if errors.Is(err, creatorflow.ErrImageTooLarge) {
			return http.StatusRequestEntityTooLarge, body
		}
		return http.StatusBadRequest, body
	}

	if stage, ok := creatorflow.StageOf(err); ok {
		body.Stage = string(stage)
	}
	kind := creatorflow.KindOf(err)
	body.Kind = kind.String()

	switch {
	case kind == creatorflow.KindTimeout || errors.Is(err, context.DeadlineExceeded):
		body.Kind = creatorflow.KindTimeout.String()
		return http.StatusGatewayTimeout, body
	case kind == creatorflow.KindRateLimited:
		return http.StatusTooManyRequests, body
	case body.Stage != "" || kind != "":
		return http.StatusBadGateway, body
	}
	return http.StatusInternalServerError, errorBody{Detail: "internal server error"}
}
