package http

import (
	"net/http"

	"projex/internal/core"
)

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	projects, err := s.deps.Queries.Landing(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().List(nonNil(projects), len(projects)).Write(w, r)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	projects, err := s.deps.Queries.ListProjects(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().List(nonNil(projects), len(projects)).Write(w, r)
}

func (s *Server) handleProjectsSummary(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	summary, err := s.deps.Queries.ProjectsSummary(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().List(nonNil(summary), len(summary)).Write(w, r)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	projectID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.deps.Queries.GetProject(r.Context(), id, projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(p).Write(w, r)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	var in core.ProjectInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Name = sanitizeInput(in.Name)
	in.Description = sanitizeInput(in.Description)

	p, err := s.deps.Projects.CreateProject(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(p).Write(w, r)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	projectID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch core.ProjectPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	sanitizePtr(patch.Name)
	sanitizePtr(patch.Description)

	p, err := s.deps.Projects.UpdateProject(r.Context(), id, projectID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(p).Write(w, r)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request, id *core.Identity) {
	projectID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Projects.DeleteProject(r.Context(), id, projectID); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(struct{}{}).Write(w, r)
}
