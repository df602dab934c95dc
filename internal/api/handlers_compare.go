package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/ghostcheck/internal/diff"
	"github.com/dgallion1/ghostcheck/internal/parser"
	"github.com/dgallion1/ghostcheck/internal/review"
)

// handleCompare runs one synchronous comparison: extract the reference
// .docx and the derivative .pptx, diff their segment sets, and
// optionally forward the unmatched segments to the reviewer.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	// Two uploads per request, plus form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.cfg.MaxUploadBytes+2*1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	refRes, status, err := s.extractUpload(r, "reference", ".docx")
	if err != nil {
		jsonDocumentError(w, "reference", err, status)
		return
	}
	presRes, status, err := s.extractUpload(r, "presentation", ".pptx")
	if err != nil {
		jsonDocumentError(w, "presentation", err, status)
		return
	}

	ghosts := diff.Ghosts(refRes.Segments, presRes.Segments)
	s.log.Info("compare",
		"reference_segments", refRes.Segments.Len(),
		"presentation_segments", presRes.Segments.Len(),
		"ghost_count", len(ghosts),
	)

	resp := map[string]any{
		"match":       len(ghosts) == 0,
		"ghost_count": len(ghosts),
		"ghosts":      ghosts,
	}

	if r.FormValue("review") == "true" && len(ghosts) > 0 {
		s.reviewGhosts(r, refRes.MergedText, ghosts, resp)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// reviewGhosts runs the external review call and folds its outcome into
// the response. Review failures never fail the comparison; they come
// back as a message next to the diff results.
func (s *Server) reviewGhosts(r *http.Request, referenceText string, ghosts []string, resp map[string]any) {
	if s.cfg.DashScopeAPIKey == "" {
		resp["review_error"] = "no DashScope API key configured"
		return
	}

	candidates := ghosts
	if len(candidates) > s.cfg.MaxReviewSegments {
		candidates = candidates[:s.cfg.MaxReviewSegments]
		resp["review_truncated"] = true
		resp["notice"] = fmt.Sprintf("too many unmatched segments; only the first %d of %d were reviewed",
			s.cfg.MaxReviewSegments, len(ghosts))
	}

	prompt := review.BuildPrompt(referenceText, candidates, s.cfg.MaxContextRunes)
	verdict, err := s.reviewer.Review(r.Context(), prompt)
	if err != nil {
		resp["review_error"] = err.Error()
		return
	}
	resp["review"] = verdict

	html, err := review.RenderHTML(verdict)
	if err != nil {
		s.log.Warn("render review html", "error", err)
		return
	}
	resp["review_html"] = html
}

// extractUpload reads one uploaded file and runs the matching
// extractor. The returned status distinguishes bad requests (missing or
// mis-typed file) from unreadable documents.
func (s *Server) extractUpload(r *http.Request, field, wantExt string) (*parser.Result, int, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("%s file is required: %w", field, err)
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if strings.ToLower(filepath.Ext(filename)) != wantExt {
		return nil, http.StatusBadRequest, fmt.Errorf("%s must be a %s file, got %q", field, wantExt, filename)
	}

	extractor, err := parser.ForFile(filename)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("read %s file: %w", field, err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, http.StatusRequestEntityTooLarge,
			fmt.Errorf("%s file exceeds max size (%d bytes)", field, s.cfg.MaxUploadBytes)
	}

	res, err := extractor.Extract(bytes.NewReader(data))
	if err != nil {
		return nil, http.StatusUnprocessableEntity, err
	}
	return res, http.StatusOK, nil
}

func jsonDocumentError(w http.ResponseWriter, document string, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":    err.Error(),
		"document": document,
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
