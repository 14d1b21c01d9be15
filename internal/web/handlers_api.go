package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/labgen/internal/core"
)

// maxJSONBody caps API request bodies.
const maxJSONBody = 1 << 20

// randomConfigResponse is returned by GET /api/config/random.
type randomConfigResponse struct {
	Mapping *core.Mapping `json:"mapping"`
	Seed    int64         `json:"seed"`
}

// configResponse is a named saved configuration.
type configResponse struct {
	Name    string        `json:"name"`
	Mapping *core.Mapping `json:"mapping,omitempty"`
}

// saveConfigRequest is the body of POST /api/configs.
type saveConfigRequest struct {
	Name    string        `json:"name"`
	Mapping *core.Mapping `json:"mapping"`
}

// generateRequest is the body of POST /api/generate. Generation parameters
// sit at the top level and default to the form defaults. The mapping is
// taken from Mapping, else the saved configuration named by Config, else the
// default file or a random configuration sized by Random.
type generateRequest struct {
	core.GenerateParams
	Mapping    *core.Mapping       `json:"mapping,omitempty"`
	Config     string              `json:"config,omitempty"`
	Random     *core.RandomOptions `json:"random,omitempty"`
	ConfigSeed int64               `json:"config_seed,omitempty"`
	Format     string              `json:"format,omitempty"`
}

// handleRandomConfig synthesizes a random configuration. Query parameters:
// categories, tests, seed and format (json or csv).
func (s *Server) handleRandomConfig(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := core.DefaultRandomOptions()

	var errs []error
	opts.Categories, errs = queryInt(errs, q.Get("categories"), "categories", opts.Categories)
	opts.Tests, errs = queryInt(errs, q.Get("tests"), "tests", opts.Tests)
	var seed int64
	if raw := q.Get("seed"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: seed must be a whole number", core.ErrInvalidParams))
		}
		seed = v
	}
	if err := errors.Join(errs...); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if seed == 0 {
		seed = core.NewSeed()
	}

	m, err := s.service.RandomConfig(opts, seed)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	if q.Get("format") == core.FormatCSV || strings.Contains(r.Header.Get("Accept"), "text/csv") {
		writeMappingAttachment(w, r, "random_config_"+strconv.FormatInt(seed, 10)+core.ConfigExt, m)
		return
	}
	writeJSON(w, http.StatusOK, randomConfigResponse{Mapping: m, Seed: seed})
}

func queryInt(errs []error, raw, field string, fallback int) (int, []error) {
	if raw == "" {
		return fallback, errs
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: %s must be a whole number, got %q", core.ErrInvalidParams, field, raw))
	}
	return n, errs
}

// handleImportConfig parses an uploaded Category,Test CSV (multipart field
// "file"). An unusable file is not an error: the response carries the random
// fallback and a warning, as the form does.
func (s *Server) handleImportConfig(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Store.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(formMemory); err != nil {
		s.respondError(w, r, requestError(err), 0)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	res, err := s.service.ResolveMapping(r.Context(), file, core.DefaultRandomOptions(), 0)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleExportConfig converts a JSON mapping into a CSV download.
func (s *Server) handleExportConfig(w http.ResponseWriter, r *http.Request) {
	var m core.Mapping
	if err := decodeJSON(w, r, &m); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if m.Len() == 0 {
		s.respondError(w, r, core.ErrEmptyMapping, http.StatusBadRequest)
		return
	}

	name := core.Slug(r.URL.Query().Get("name"))
	writeMappingAttachment(w, r, name+core.ConfigExt, &m)
}

// handleListConfigs lists saved configuration names.
func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	names, err := s.service.ListConfigs()
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"configs": names})
}

// handleSaveConfig stores a mapping under a name. A blank name gets a
// generated one.
func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var req saveConfigRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if req.Mapping == nil || req.Mapping.Len() == 0 {
		s.respondError(w, r, core.ErrEmptyMapping, http.StatusBadRequest)
		return
	}

	name, err := s.service.SaveConfig(r.Context(), req.Name, req.Mapping)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusCreated, configResponse{Name: name})
}

// handleGetConfig returns a saved configuration as JSON, or CSV with
// ?format=csv.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	m, err := s.service.LoadConfig(name)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if r.URL.Query().Get("format") == core.FormatCSV {
		writeMappingAttachment(w, r, core.Slug(name)+core.ConfigExt, m)
		return
	}
	writeJSON(w, http.StatusOK, configResponse{Name: name, Mapping: m})
}

// handleGenerateAPI generates a dataset and returns it as CSV, XLSX or JSON.
// The dataset ID, seed and configuration source are sent as headers.
func (s *Server) handleGenerateAPI(w http.ResponseWriter, r *http.Request) {
	req := generateRequest{GenerateParams: core.DefaultParams()}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	format := req.Format
	if format == "" {
		format = core.FormatCSV
	}
	if !core.ValidFormat(format) {
		s.respondError(w, r, fmt.Errorf("%w: unknown format %q", core.ErrInvalidParams, format), http.StatusBadRequest)
		return
	}

	var (
		m      *core.Mapping
		source string
	)
	switch {
	case req.Mapping != nil && req.Mapping.Len() > 0:
		m, source = req.Mapping, "request"
	case req.Config != "":
		loaded, err := s.service.LoadConfig(req.Config)
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}
		m, source = loaded, "saved"
	default:
		opts := core.DefaultRandomOptions()
		if req.Random != nil {
			opts = *req.Random
		}
		res, err := s.service.ResolveMapping(r.Context(), nil, opts, req.ConfigSeed)
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}
		m, source = res.Mapping, string(res.Source)
	}

	d, err := s.service.Generate(r.Context(), m, req.GenerateParams)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	w.Header().Set("X-Config-Source", source)
	s.writeDataset(w, r, d, format, format != core.FormatJSON)
}

// decodeJSON decodes a capped request body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return requestError(err)
	}
	return nil
}
