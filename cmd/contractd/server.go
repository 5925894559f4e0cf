package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	contracts "github.com/vivaneiona/genkit-contracts"
)

type server struct {
	x        *contracts.Extractor
	docs     contracts.TextExtractor
	opts     []func(*contracts.Options)
	maxBytes int64
	log      *slog.Logger
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Get("/fields", s.handleFields)
	r.Post("/analyze", s.handleAnalyze)
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "healthy",
		"extractor_loaded": s.x != nil,
		"tiers_available":  contracts.Tiers(),
	})
}

type fieldInfo struct {
	Key       string              `json:"key"`
	ValueType contracts.ValueType `json:"valueType"`
	FieldType contracts.FieldType `json:"fieldType"`
	Hint      string              `json:"hint"`
	Tiers     []contracts.Tier    `json:"tiers,omitempty"`
}

type categoryInfo struct {
	Key    string      `json:"key"`
	Label  string      `json:"label"`
	Fields []fieldInfo `json:"fields"`
}

func (s *server) handleFields(w http.ResponseWriter, r *http.Request) {
	tax := s.x.Taxonomy()
	cats := make([]categoryInfo, 0, len(tax.Categories()))
	pos := make(map[string]int)
	for _, c := range tax.Categories() {
		pos[c.Key] = len(cats)
		cats = append(cats, categoryInfo{Key: c.Key, Label: c.Label})
	}
	for _, d := range tax.Fields() {
		i := pos[d.Category]
		cats[i].Fields = append(cats[i].Fields, fieldInfo{
			Key:       d.Key,
			ValueType: d.ValueType,
			FieldType: d.FieldType(),
			Hint:      d.Hint,
			Tiers:     d.Tiers,
		})
	}
	tiers := make(map[contracts.Tier][]string)
	for _, t := range contracts.Tiers() {
		fs, _ := tax.Tier(t)
		tiers[t] = fs.Keys()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories":        cats,
		"tiers":             tiers,
		"max_custom_fields": contracts.MaxCustomFields,
	})
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	log := s.log.With("request_id", reqID)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)
	if err := r.ParseMultipartForm(s.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", err.Error(), reqID)
			return
		}
		writeError(w, http.StatusBadRequest, "BAD_FORM", err.Error(), reqID)
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "NO_FILE", "multipart field \"file\" is required", reqID)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "READ_FAILED", err.Error(), reqID)
		return
	}

	sel := selectionFrom(r.FormValue("tier"), r.FormValue("fields"))
	log.Info("analyze.start", "file", hdr.Filename, "bytes", len(data), "tier", sel.Label(), "custom_fields", len(sel.Fields))

	doc, err := s.docs.Extract(r.Context(), data)
	if err != nil {
		log.Warn("analyze.unreadable", "error", err)
		writeError(w, statusFor(err), codeFor(err), err.Error(), reqID)
		return
	}

	a, err := s.x.ExtractDocument(r.Context(), doc, sel, s.opts...)
	if err != nil {
		log.Warn("analyze.failed", "error", err)
		details := map[string]any{}
		if a != nil {
			details["analysis"] = a
		}
		writeErrorDetails(w, statusFor(err), codeFor(err), err.Error(), reqID, details)
		return
	}
	log.Info("analyze.ok", "found", a.Metadata.FieldsFound, "grounded", a.Metadata.FieldsGrounded, "segments", a.Metadata.SegmentCount)

	if strings.EqualFold(r.FormValue("format"), "xlsx") {
		b, err := contracts.ExportXLSX(a, s.x.Taxonomy())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "EXPORT_FAILED", err.Error(), reqID)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="analysis.xlsx"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request_id": reqID, "analysis": a})
}

// selectionFrom reads a tier name or a comma separated field list.
func selectionFrom(tier, fields string) contracts.Selection {
	var keys []string
	for _, k := range strings.Split(fields, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return contracts.Selection{Tier: contracts.Tier(strings.ToLower(strings.TrimSpace(tier))), Fields: keys}
}

func statusFor(err error) int {
	switch {
	case contracts.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, contracts.ErrUnreadablePDF):
		return http.StatusUnprocessableEntity
	case errors.Is(err, contracts.ErrExtractionUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, contracts.ErrIncomplete):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, contracts.ErrUnknownField):
		return "UNKNOWN_FIELD"
	case errors.Is(err, contracts.ErrFieldLimitExceeded):
		return "FIELD_LIMIT_EXCEEDED"
	case errors.Is(err, contracts.ErrUnknownTier):
		return "UNKNOWN_TIER"
	case errors.Is(err, contracts.ErrEmptyDocument):
		return "EMPTY_DOCUMENT"
	case contracts.IsValidationError(err):
		return "INVALID_REQUEST"
	case errors.Is(err, contracts.ErrUnsupportedMedia):
		return "UNSUPPORTED_MEDIA"
	case errors.Is(err, contracts.ErrUnreadablePDF):
		return "UNREADABLE_PDF"
	case errors.Is(err, contracts.ErrExtractionUnavailable):
		return "EXTRACTION_UNAVAILABLE"
	case errors.Is(err, contracts.ErrIncomplete):
		return "INCOMPLETE"
	}
	return "INTERNAL"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg, reqID string) {
	writeErrorDetails(w, status, code, msg, reqID, nil)
}

func writeErrorDetails(w http.ResponseWriter, status int, code, msg, reqID string, details map[string]any) {
	body := map[string]any{
		"request_id": reqID,
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	for k, v := range details {
		body[k] = v
	}
	writeJSON(w, status, body)
}
