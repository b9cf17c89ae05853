package api

import (
	"net/http"

	"github.com/payd-dev/payd/extension"
)

// extensionDetail is the full query view of one extension: its metadata
// and its configuration schema.
type extensionDetail struct {
	Metadata extension.Metadata `json:"metadata"`
	Fields   []extension.Field  `json:"fields"`
}

// handleListExtensions handles GET /api/v1/extensions: every registered
// extension name grouped by category, in discovery order.
func (s *Server) handleListExtensions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

// handleListCategory handles GET /api/v1/extensions/{category}. The
// response keeps the same single-entry mapping shape as the unfiltered
// listing.
func (s *Server) handleListCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := extension.ParseCategory(r.PathValue("category"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.registry.List(cat))
}

// handleGetExtension handles GET /api/v1/extensions/{category}/{name}:
// the combined metadata-plus-schema view. Absence of the category/name
// pair is a 404, not a server fault.
func (s *Server) handleGetExtension(w http.ResponseWriter, r *http.Request) {
	cat, err := extension.ParseCategory(r.PathValue("category"))
	if err != nil {
		s.fail(w, err)
		return
	}
	name := r.PathValue("name")

	meta, ok := s.registry.Metadata(cat, name)
	if !ok {
		writeError(w, http.StatusNotFound, "extension not found")
		return
	}
	fields, _ := s.registry.ConfigSchema(cat, name)
	writeJSON(w, http.StatusOK, extensionDetail{Metadata: meta, Fields: fields})
}

// handleExtensionMetadata handles
// GET /api/v1/extensions/{category}/{name}/metadata.
func (s *Server) handleExtensionMetadata(w http.ResponseWriter, r *http.Request) {
	cat, err := extension.ParseCategory(r.PathValue("category"))
	if err != nil {
		s.fail(w, err)
		return
	}
	meta, ok := s.registry.Metadata(cat, r.PathValue("name"))
	if !ok {
		writeError(w, http.StatusNotFound, "extension not found")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// handleExtensionConfig handles
// GET /api/v1/extensions/{category}/{name}/config.
func (s *Server) handleExtensionConfig(w http.ResponseWriter, r *http.Request) {
	cat, err := extension.ParseCategory(r.PathValue("category"))
	if err != nil {
		s.fail(w, err)
		return
	}
	fields, ok := s.registry.ConfigSchema(cat, r.PathValue("name"))
	if !ok {
		writeError(w, http.StatusNotFound, "extension not found")
		return
	}
	writeJSON(w, http.StatusOK, fields)
}
