package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/pagecomposer/pkg/errors"
	"github.com/matzehuels/pagecomposer/pkg/pagemodel"
)

// maxBody bounds request bodies.
const maxBody = 1 << 20

func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.repo.Pages(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	for i := range pages {
		pages[i].HTML = ""
	}
	writeJSON(w, http.StatusOK, pagemodel.ListResponse[pagemodel.Page]{Success: true, Data: pages})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	src, err := s.repo.RenderPage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, src)
}

func (s *Server) handlePageModel(w http.ResponseWriter, r *http.Request) {
	comps, err := s.repo.PageModel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagemodel.ListResponse[pagemodel.Component]{Success: true, Data: comps})
}

func (s *Server) handleToolkit(w http.ResponseWriter, r *http.Request) {
	comps, err := s.repo.Toolkit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagemodel.ListResponse[pagemodel.Component]{Success: true, Data: comps})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	c, err := s.repo.CreateComponent(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "item"))
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("component created", "id", c.ID, "container", c.ParentID)
	writeJSON(w, http.StatusOK, pagemodel.ItemResponse[pagemodel.Component]{Success: true, Data: c})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body pagemodel.Component
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&body); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "bad update body"))
		return
	}
	if body.ID != "" && body.ID != id {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "body id %q does not match %q", body.ID, id))
		return
	}
	if err := s.repo.UpdateChildren(r.Context(), id, body.Children); err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("container updated", "id", id, "children", len(body.Children))
	writeOK(w)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	parent, id := chi.URLParam(r, "id"), chi.URLParam(r, "item")
	if err := s.repo.DeleteComponent(r.Context(), parent, id); err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("component deleted", "id", id, "container", parent)
	writeOK(w)
}

func (s *Server) handleParameters(w http.ResponseWriter, r *http.Request) {
	props, err := s.repo.Parameters(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagemodel.PropertiesResponse{Properties: props})
}

func (s *Server) handleSaveParameters(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseForm(); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "bad form"))
		return
	}
	values := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		values[k] = r.PostForm.Get(k)
	}
	id := chi.URLParam(r, "id")
	if err := s.repo.SaveParameters(r.Context(), id, values); err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("parameters saved", "id", id, "fields", len(values))
	writeOK(w)
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.repo.Documents(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "docType"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagemodel.ListResponse[pagemodel.Document]{Success: true, Data: docs})
}

func (s *Server) handleKeepAlive(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("keepalive", "site", chi.URLParam(r, "id"))
	writeOK(w)
}
