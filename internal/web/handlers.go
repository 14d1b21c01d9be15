package web

import (
	"bytes"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/labgen/internal/core"
	"github.com/JonMunkholm/labgen/internal/logging"
	"github.com/JonMunkholm/labgen/internal/web/templates"
)

// resolvedMapping is the configuration a form submission works with.
type resolvedMapping struct {
	mapping *core.Mapping
	source  string
	warning string
}

// formOutcome is what an action adds to the page.
type formOutcome struct {
	notice  string
	err     error
	preview *templates.Preview
}

// handleIndex renders the empty generator form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := newFormState()
	res, err := s.resolveFormMapping(r, &st)
	s.renderForm(w, r, st, res, formOutcome{err: err})
}

// handleGenerateForm handles every button of the generator form. The
// action field selects what happens; all actions re-render the form with
// the submitted values except export_config, which downloads the mapping.
func (s *Server) handleGenerateForm(w http.ResponseWriter, r *http.Request) {
	st, err := parseForm(w, r, s.maxBody(), s.service.Limits().MaxColumns)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	action, arg, _ := strings.Cut(st.action, ":")
	switch action {
	case "add_column":
		if limit := s.service.Limits().MaxColumns; limit <= 0 || len(st.columns) < limit {
			st.columns = append(st.columns, templates.ColumnRow{Type: string(core.ColumnInt)})
		}
	case "remove_column":
		if i, err := strconv.Atoi(arg); err == nil && i >= 0 && i < len(st.columns) {
			st.columns = slices.Delete(st.columns, i, i+1)
		}
	case "new_config":
		st.configSeed = core.NewSeed()
		st.mappingCSV = ""
		st.savedConfig = ""
	}

	res, err := s.resolveFormMapping(r, &st)
	if err != nil {
		s.renderForm(w, r, st, res, formOutcome{err: err})
		return
	}

	var out formOutcome
	switch action {
	case "save_config":
		name, err := s.service.SaveConfig(r.Context(), st.configName, res.mapping)
		if err != nil {
			out.err = err
			break
		}
		st.savedConfig = name
		st.mappingCSV = ""
		res.source = "saved configuration " + name
		out.notice = "Saved configuration as " + name
	case "export_config":
		name := core.Slug(st.configName)
		writeMappingAttachment(w, r, name+core.ConfigExt, res.mapping)
		return
	case "generate":
		out = s.generatePreview(r, st, res.mapping)
	}
	s.renderForm(w, r, st, res, out)
}

// generatePreview generates the dataset and keeps its first rows.
func (s *Server) generatePreview(r *http.Request, st formState, m *core.Mapping) formOutcome {
	p, err := st.params()
	if err != nil {
		return formOutcome{err: err}
	}
	d, err := s.service.Generate(r.Context(), m, p)
	if err != nil {
		return formOutcome{err: err}
	}
	return formOutcome{preview: &templates.Preview{
		ID:       d.ID.String(),
		Seed:     d.Seed,
		Headers:  d.Headers,
		Rows:     d.Records(s.cfg.Generator.PreviewRows),
		Total:    d.Len(),
		Download: st.downloadFields(d.Seed, m),
	}}
}

// handleDownload regenerates the previewed dataset and sends it as a file.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	st, err := parseForm(w, r, s.maxBody(), s.service.Limits().MaxColumns)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	format := r.PostFormValue("format")
	if format == "" {
		format = core.FormatCSV
	}
	if format != core.FormatCSV && format != core.FormatXLSX {
		s.respondError(w, r, fmt.Errorf("%w: unsupported download format %q", core.ErrInvalidParams, format), http.StatusBadRequest)
		return
	}

	res, err := s.resolveFormMapping(r, &st)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	p, err := st.params()
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	d, err := s.service.Generate(r.Context(), res.mapping, p)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.writeDataset(w, r, d, format, true)
}

// handleDownloadConfig sends a saved configuration as CSV.
func (s *Server) handleDownloadConfig(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	m, err := s.service.LoadConfig(name)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeMappingAttachment(w, r, core.Slug(name)+core.ConfigExt, m)
}

// handleHealth reports generation slot usage and whether a default
// configuration is loaded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"generation":     s.service.LimiterStatus(),
		"default_config": s.service.Provider().Default() != nil,
	})
}

// resolveFormMapping picks the configuration for a form submission: a new
// upload, then the selected saved configuration, then the mapping carried
// over from an earlier upload, then the default file or the seeded random
// configuration. st is updated so the next render carries the choice.
func (s *Server) resolveFormMapping(r *http.Request, st *formState) (resolvedMapping, error) {
	ctx := r.Context()
	opts, err := st.randomOptions()
	if err != nil {
		return resolvedMapping{}, err
	}

	if file, hdr, err := r.FormFile("config_file"); err == nil {
		defer file.Close()
		if hdr.Size > 0 {
			res, err := s.service.ResolveMapping(ctx, file, opts, st.configSeed)
			if err != nil {
				return resolvedMapping{}, err
			}
			st.savedConfig = ""
			st.mappingCSV = ""
			if res.Source == core.SourceUpload {
				st.mappingCSV = mappingCSV(res.Mapping)
				return resolvedMapping{mapping: res.Mapping, source: "uploaded file " + hdr.Filename}, nil
			}
			return resolvedMapping{mapping: res.Mapping, source: describeSource(res), warning: res.Warning}, nil
		}
	}

	if st.savedConfig != "" {
		m, err := s.service.LoadConfig(st.savedConfig)
		if err != nil {
			return resolvedMapping{}, err
		}
		st.mappingCSV = ""
		return resolvedMapping{mapping: m, source: "saved configuration " + st.savedConfig}, nil
	}

	if st.mappingCSV != "" {
		m, err := core.ReadMapping(strings.NewReader(st.mappingCSV))
		if err == nil {
			return resolvedMapping{mapping: m, source: "uploaded file"}, nil
		}
		logging.FromContext(ctx).Warn("discarding carried mapping", "error", err)
		st.mappingCSV = ""
	}

	res, err := s.service.ResolveMapping(ctx, nil, opts, st.configSeed)
	if err != nil {
		return resolvedMapping{}, err
	}
	return resolvedMapping{mapping: res.Mapping, source: describeSource(res), warning: res.Warning}, nil
}

func describeSource(res core.Resolution) string {
	switch res.Source {
	case core.SourceDefault:
		return "default configuration file"
	case core.SourceRandom:
		return fmt.Sprintf("random configuration (%d categories, %d pairs)", res.Mapping.Len(), res.Mapping.PairCount())
	default:
		return string(res.Source)
	}
}

// renderForm writes the generator page. Errors are shown above the form
// with the status statusFor picks.
func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, st formState, res resolvedMapping, out formOutcome) {
	v := st.view()
	v.Mapping = mappingRows(res.mapping)
	v.Source = res.source
	v.Warning = res.warning
	v.Notice = out.notice
	v.Preview = out.preview

	limits := s.service.Limits()
	v.MaxRows, v.MaxSubjects, v.MaxColumns = limits.MaxRows, limits.MaxSubjects, limits.MaxColumns
	v.MaxCategories, v.MaxTests = s.service.RandomLimits()

	saved, err := s.service.ListConfigs()
	if err != nil {
		logging.FromContext(r.Context()).Warn("list saved configs", "error", err)
	}
	v.SavedConfigs = saved

	status := http.StatusOK
	if out.err != nil {
		status = statusFor(out.err)
		msg := core.MapError(out.err)
		v.Error = &templates.Alert{Message: msg.Message, Action: msg.Action, Code: msg.Code}
		if status < 500 {
			v.Error.Detail = out.err.Error()
		}
		logging.FromContext(r.Context()).Warn("form error", "action", st.action, "error", out.err, "code", msg.Code)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.IndexPage(v).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}

// writeDataset exports d into memory first so an export failure can still
// produce an error response.
func (s *Server) writeDataset(w http.ResponseWriter, r *http.Request, d *core.Dataset, format string, attachment bool) {
	var buf bytes.Buffer
	if err := s.service.Export(r.Context(), &buf, d, format); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", core.ContentType(format))
	if attachment {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, d.Filename(format)))
	}
	w.Header().Set("X-Dataset-ID", d.ID.String())
	w.Header().Set("X-Dataset-Seed", strconv.FormatInt(d.Seed, 10))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("write dataset", "error", err)
	}
}

// writeMappingAttachment sends m as a Category,Test CSV download.
func writeMappingAttachment(w http.ResponseWriter, r *http.Request, filename string, m *core.Mapping) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	if err := core.WriteMapping(w, m); err != nil {
		logging.FromContext(r.Context()).Warn("write mapping", "error", err)
	}
}

// maxBody caps form bodies: the configuration upload plus the other fields.
func (s *Server) maxBody() int64 {
	return s.cfg.Store.MaxFileSize + 1<<20
}
