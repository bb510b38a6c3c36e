package server

import (
	"net/http"
	"strconv"

	"github.com/matzehuels/schemagraph/pkg/buildinfo"
	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/errors"
	"github.com/matzehuels/schemagraph/pkg/export"
	"github.com/matzehuels/schemagraph/pkg/pipeline"
)

// Response headers describing cache use.
const (
	HeaderLayoutCache = "X-Layout-Cache"
	HeaderExportCache = "X-Export-Cache"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"build":  buildinfo.Get(),
	})
}

// requestOptions decodes pipeline options and fills display defaults.
func (s *Server) requestOptions(w http.ResponseWriter, r *http.Request) (pipeline.Options, error) {
	var opts pipeline.Options
	if err := decode(w, r, &opts); err != nil {
		return opts, err
	}
	if opts.Display == nil {
		d := s.defaults
		opts.Display = &d
	}
	return opts, nil
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := opts.ValidateForLayout(); err != nil {
		s.writeError(w, r, err)
		return
	}

	d, err := s.runner.Generate(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	hit, err := s.runner.LayoutWithCacheInfo(r.Context(), d, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	body, err := diagram.MarshalData(d)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "encode diagram"))
		return
	}
	w.Header().Set(HeaderLayoutCache, cacheStatus(hit))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.export(w, r, opts)
}

// export runs the full pipeline for one format taken from the query string
// (default svg). scale and padding query parameters override the body.
func (s *Server) export(w http.ResponseWriter, r *http.Request, opts pipeline.Options) {
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if q.Get("format") == "" {
		format, err = export.FormatSVG, nil
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.Formats = []string{string(format)}

	for name, dst := range map[string]*float64{"scale": &opts.Scale, "padding": &opts.Padding} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid %s %q", name, raw))
			return
		}
		*dst = v
	}

	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set(HeaderLayoutCache, cacheStatus(res.CacheInfo.LayoutHit))
	w.Header().Set(HeaderExportCache, cacheStatus(res.CacheInfo.ExportHit))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Artifacts[string(format)])
}

func cacheStatus(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
