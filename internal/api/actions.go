package api

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/talgya/hinterland/internal/catalog"
	"github.com/talgya/hinterland/internal/engine"
	"github.com/talgya/hinterland/internal/village"
	"github.com/talgya/hinterland/internal/world"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// compileSchemas loads every request schema, keyed by action name.
func compileSchemas() (map[string]*jsonschema.Schema, error) {
	files, err := fs.Glob(schemaFS, "schemas/*.schema.json")
	if err != nil {
		return nil, err
	}
	out := make(map[string]*jsonschema.Schema, len(files))
	for _, f := range files {
		src, err := schemaFS.ReadFile(f)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(path.Base(f), ".schema.json")
		s, err := jsonschema.CompileString(path.Base(f), string(src))
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", f, err)
		}
		out[name] = s
	}
	return out, nil
}

// requestError is the body of a 400 response.
type requestError struct {
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// decode validates the body against the named schema, then unmarshals it
// into dst. It writes a 400 and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, schema string, dst any) bool {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSONStatus(w, http.StatusBadRequest, requestError{Reason: "invalid_request", Detail: "body too large"})
		return false
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		writeJSONStatus(w, http.StatusBadRequest, requestError{Reason: "invalid_json", Detail: err.Error()})
		return false
	}
	if sch, ok := s.schemas[schema]; ok {
		if err := sch.Validate(doc); err != nil {
			writeJSONStatus(w, http.StatusBadRequest, requestError{Reason: "invalid_request", Detail: err.Error()})
			return false
		}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		writeJSONStatus(w, http.StatusBadRequest, requestError{Reason: "invalid_request", Detail: err.Error()})
		return false
	}
	return true
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Village  village.ID         `json:"village"`
		Building catalog.BuildingID `json:"building"`
	}
	if !s.decode(w, r, "build", &req) {
		return
	}
	order, err := s.Eng.IssueBuildOrder(req.Village, req.Building)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, order)
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Village village.ID     `json:"village"`
		Unit    catalog.UnitID `json:"unit"`
	}
	if !s.decode(w, r, "research", &req) {
		return
	}
	order, err := s.Eng.IssueResearchOrder(req.Village, req.Unit)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, order)
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Village village.ID     `json:"village"`
		Unit    catalog.UnitID `json:"unit"`
		Count   int            `json:"count"`
	}
	if !s.decode(w, r, "train", &req) {
		return
	}
	batch, err := s.Eng.IssueTrainOrder(req.Village, req.Unit, req.Count)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, batch)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Village village.ID        `json:"village"`
		Queue   village.QueueKind `json:"queue"`
		Index   int               `json:"index"`
	}
	if !s.decode(w, r, "cancel", &req) {
		return
	}
	c, err := s.Eng.CancelQueueEntry(req.Village, req.Queue, req.Index)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, c)
}

func (s *Server) handleMission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Origin    village.ID         `json:"origin"`
		Target    village.ID         `json:"target"`
		Type      engine.MissionType `json:"type"`
		Units     village.Units      `json:"units"`
		Resources village.Resources  `json:"resources"`
	}
	if !s.decode(w, r, "mission", &req) {
		return
	}
	m, err := s.Eng.LaunchMission(req.Origin, req.Target, req.Type, req.Units, req.Resources)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, m)
}

func (s *Server) handleRecall(w http.ResponseWriter, r *http.Request) {
	var ref engine.StackRef
	if !s.decode(w, r, "recall", &ref) {
		return
	}
	m, err := s.Eng.RecallSupport(ref)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, m)
}

func (s *Server) handleExplore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	if !s.decode(w, r, "explore", &req) {
		return
	}
	created, err := s.Eng.GenerateChunk(world.Coord{X: req.X, Y: req.Y})
	if err != nil {
		writeActionError(w, err)
		return
	}
	if created == nil {
		created = []*village.Village{}
	}
	writeJSON(w, map[string]any{"created": created})
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Village village.ID `json:"village"`
		Name    string     `json:"name"`
	}
	if !s.decode(w, r, "rename", &req) {
		return
	}
	if err := s.Eng.RenameVillage(req.Village, req.Name); err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, map[string]any{"village": req.Village, "name": req.Name})
}
