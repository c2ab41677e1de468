package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/bunbetsu/internal/catalog"
	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

// maxBody bounds admin request bodies.
const maxBody = 1 << 20

func (s *Server) version(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.Version(r.Context())
	if err != nil {
		s.readFailed(w, "reading catalog version", err)
		return
	}
	setVersion(w, v)
	s.respondJSON(w, http.StatusOK, map[string]int64{"version": v})
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Items(r.Context())
	if err != nil {
		s.readFailed(w, "listing items", err)
		return
	}
	setVersion(w, snap.Version)
	s.respondJSON(w, http.StatusOK, snap.Rows)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Categories(r.Context())
	if err != nil {
		s.readFailed(w, "listing categories", err)
		return
	}
	setVersion(w, snap.Version)
	s.respondJSON(w, http.StatusOK, snap.Rows)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.readFailed(w, "searching items", err)
		return
	}
	setVersion(w, snap.Version)
	s.respondJSON(w, http.StatusOK, snap.Rows)
}

func (s *Server) categoryItems(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	snap, err := s.svc.ItemsByCategory(r.Context(), id)
	if errors.Is(err, types.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, catalog.CodeNotFound, "category not found")
		return
	}
	if err != nil {
		s.readFailed(w, "listing category items", err)
		return
	}
	setVersion(w, snap.Version)
	s.respondJSON(w, http.StatusOK, snap.Rows)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var in types.CategoryInput
	if !s.decode(w, r, &in) {
		return
	}
	s.respondResult(w, http.StatusCreated, s.svc.CreateCategory(r.Context(), in))
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var in types.CategoryInput
	if !s.decode(w, r, &in) {
		return
	}
	s.respondResult(w, http.StatusOK, s.svc.UpdateCategory(r.Context(), id, in))
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	s.respondResult(w, http.StatusOK, s.svc.DeleteCategory(r.Context(), id))
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var in types.ItemInput
	if !s.decode(w, r, &in) {
		return
	}
	s.respondResult(w, http.StatusCreated, s.svc.CreateItem(r.Context(), in))
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var in types.ItemInput
	if !s.decode(w, r, &in) {
		return
	}
	s.respondResult(w, http.StatusOK, s.svc.UpdateItem(r.Context(), id, in))
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	s.respondResult(w, http.StatusOK, s.svc.DeleteItem(r.Context(), id))
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.respondResult(w, http.StatusOK, s.svc.Reset(r.Context()))
}

// pathID parses the {id} URL parameter, writing a 400 when it is not a
// positive integer.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusBadRequest, catalog.CodeValidation, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.respondError(w, http.StatusBadRequest, catalog.CodeValidation, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) readFailed(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, catalog.CodeInternal, "the catalog could not be read, try again later")
}
