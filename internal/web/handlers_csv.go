package web

import (
	"net/http"

	"github.com/propstack/leadbook/internal/buyer"
	"github.com/propstack/leadbook/internal/csvio"
	"github.com/propstack/leadbook/internal/logging"
)

// importResponse summarizes an import. Partial success is a normal
// terminal state: valid rows are persisted even when others fail.
type importResponse struct {
	Success  bool             `json:"success"`
	Imported int              `json:"imported"`
	Total    int              `json:"total"`
	Errors   []csvio.RowError `json:"errors"`
}

// handleImport ingests a multipart CSV upload, validating every row and
// persisting the rows that pass. Concurrent imports are bounded by the
// import limiter.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeBadRequest(w, "file too large or invalid form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "no file provided")
		return
	}
	defer file.Close()

	if err := s.importLimiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.importLimiter.Release()

	result := csvio.Import(file)

	owner := currentUser(r).ID
	logger := logging.WithFields(r.Context(), "owner_id", owner)
	logger.Info("import started", "rows", len(result.Rows), "row_errors", len(result.Errors))

	imported := 0
	// Non-nil so a clean import serializes "errors": [].
	errs := append([]csvio.RowError{}, result.Errors...)
	for _, row := range result.Rows {
		if _, err := s.store.CreateBuyer(r.Context(), row.Buyer, owner); err != nil {
			errs = append(errs, csvio.RowError{
				Row:     row.Num,
				Message: "failed to save row",
			})
			logger.Error("import row failed", "row", row.Num, "error", err)
			continue
		}
		imported++
	}

	total := len(result.Rows) + len(result.Errors)
	logger.Info("import completed", "imported", imported, "total", total)

	writeJSON(w, http.StatusOK, importResponse{
		Success:  len(errs) == 0,
		Imported: imported,
		Total:    total,
		Errors:   errs,
	})
}

// handleExport streams the caller's buyers as a CSV attachment. The
// listing filters apply; pagination does not.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := buyer.ParseFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	buyers, err := s.store.ListForExport(r.Context(), f, currentUser(r).ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="buyers.csv"`)
	if err := csvio.Export(w, buyers); err != nil {
		// Headers are already sent; log and cut the stream.
		logging.FromContext(r.Context()).Error("export write failed", "error", err)
	}
}
