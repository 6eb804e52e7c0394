// Package server exposes the compositor over HTTP: a stateless one-shot
// compose endpoint plus in-memory editing sessions with preview and export.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/nvr-ai/imgmerge/compose"
	"github.com/nvr-ai/imgmerge/config"
	"github.com/nvr-ai/imgmerge/images"
	"github.com/nvr-ai/imgmerge/profiler"
	"github.com/nvr-ai/imgmerge/session"
)

var (
	reSession       = regexp.MustCompile(`^/sessions/([0-9a-f-]{36})$`)
	reSessionImage  = regexp.MustCompile(`^/sessions/([0-9a-f-]{36})/images/([12])$`)
	reSessionImages = regexp.MustCompile(`^/sessions/([0-9a-f-]{36})/images$`)
	reSessionAction = regexp.MustCompile(`^/sessions/([0-9a-f-]{36})/(config|mode/next|state|preview|export)$`)
)

// errUploadTooLarge marks an uploaded image over the configured size limit.
var errUploadTooLarge = errors.New("upload too large")

// Server serves the composition API.
type Server struct {
	*http.Server
	settings *config.Settings
	store    *Store
	profiler *profiler.Profiler
	now      func() time.Time
}

// New creates a server listening on settings.Addr.
func New(settings *config.Settings) *Server {
	server := &Server{
		settings: settings,
		store:    NewStore(settings.ControlsHideAfter, settings.MaxOutputPixels),
		profiler: profiler.New(profiler.Options{ReportInterval: settings.StatsInterval}),
		now:      time.Now,
	}

	mux := http.NewServeMux()
	mux.Handle("/", server)

	server.Server = &http.Server{
		Addr:              settings.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server
}

// Listen serves until the server is shut down.
func (server *Server) Listen() error {
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (server *Server) Shutdown(ctx context.Context) error {
	if err := server.Server.Shutdown(ctx); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

// Store returns the session store.
func (server *Server) Store() *Store {
	return server.store
}

// Profiler returns the profiler timing decode, compose and encode work.
func (server *Server) Profiler() *profiler.Profiler {
	return server.profiler
}

func (server *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/compose" && r.Method == http.MethodPost:
		server.handleCompose(w, r)
	case path == "/stats" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, server.profiler.Stats())
	case path == "/sessions" && r.Method == http.MethodPost:
		server.handleCreateSession(w, r)
	case reSession.MatchString(path) && r.Method == http.MethodDelete:
		server.handleDeleteSession(w, reSession.FindStringSubmatch(path)[1])
	case reSessionImage.MatchString(path) && r.Method == http.MethodPut:
		m := reSessionImage.FindStringSubmatch(path)
		slot, _ := strconv.Atoi(m[2])
		server.withSession(w, m[1], func(s *session.Session) {
			server.handlePutImage(w, r, s, slot-1)
		})
	case reSessionImages.MatchString(path) && r.Method == http.MethodDelete:
		server.withSession(w, reSessionImages.FindStringSubmatch(path)[1], func(s *session.Session) {
			s.Clear()
			s.Touch(server.now())
			server.writeState(w, s)
		})
	case reSessionAction.MatchString(path):
		m := reSessionAction.FindStringSubmatch(path)
		server.withSession(w, m[1], func(s *session.Session) {
			server.handleSessionAction(w, r, s, m[2])
		})
	default:
		http.NotFound(w, r)
	}
}

func (server *Server) handleSessionAction(w http.ResponseWriter, r *http.Request, s *session.Session, action string) {
	switch {
	case action == "config" && r.Method == http.MethodPost:
		server.handleConfig(w, r, s)
	case action == "mode/next" && r.Method == http.MethodPost:
		if _, err := s.CycleMode(); err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		s.Touch(server.now())
		server.writeState(w, s)
	case action == "state" && r.Method == http.MethodGet:
		server.writeState(w, s)
	case action == "preview" && r.Method == http.MethodGet:
		server.handlePreview(w, s)
	case action == "export" && r.Method == http.MethodGet:
		server.handleExport(w, r, s)
	default:
		w.Header().Set("Allow", allowedMethod(action))
		writeErr(w, http.StatusMethodNotAllowed, errors.Errorf("method %s not allowed", r.Method))
	}
}

func allowedMethod(action string) string {
	switch action {
	case "state", "preview", "export":
		return http.MethodGet
	}
	return http.MethodPost
}

// withSession resolves id and calls fn, answering 404 for unknown sessions.
func (server *Server) withSession(w http.ResponseWriter, id string, fn func(s *session.Session)) {
	s, err := server.store.Get(id)
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	fn(s)
}

// handleCompose composes two uploaded images in one request. The multipart
// body carries files "a" and "b" and any config fields; "format" selects the
// output encoding.
func (server *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*server.settings.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(server.settings.MaxUploadBytes); err != nil {
		writeErr(w, uploadStatus(err), errors.Wrap(err, "failed to parse multipart form"))
		return
	}

	var inputs [2]image.Image
	for i, field := range []string{"a", "b"} {
		img, err := server.readFormImage(r, field)
		if err != nil {
			writeErr(w, uploadStatus(err), err)
			return
		}
		inputs[i] = img
	}

	cfg, err := applyForm(compose.DefaultConfig(), r.MultipartForm.Value)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	err = compose.CheckOutputSize(inputs[0].Bounds().Size(), inputs[1].Bounds().Size(), cfg, server.settings.MaxOutputPixels)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	format, err := server.requestFormat(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	out := compose.Compose(inputs[0], inputs[1], cfg)
	elapsed := time.Since(start)
	server.profiler.RecordDuration("compose", elapsed)
	server.profiler.RecordMetric("output_megapixels", float64(out.Bounds().Dx()*out.Bounds().Dy())/1e6)
	log.Printf("composed %s %dx%d in %s", cfg.Mode, out.Bounds().Dx(), out.Bounds().Dy(), elapsed)

	server.writeImage(w, out, format, "")
}

func (server *Server) readFormImage(r *http.Request, field string) (image.Image, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, errors.Wrapf(err, "missing image %q", field)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, server.settings.MaxUploadBytes+1))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read image %q", field)
	}
	if int64(len(data)) > server.settings.MaxUploadBytes {
		return nil, errors.Wrapf(errUploadTooLarge, "image %q exceeds %s", field, humanize.IBytes(uint64(server.settings.MaxUploadBytes)))
	}

	img, format, err := server.decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "image %q", field)
	}
	log.Printf("received %s (%s, %s, %dx%d)", header.Filename, format,
		humanize.IBytes(uint64(len(data))), img.Bounds().Dx(), img.Bounds().Dy())
	return img, nil
}

func (server *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id, _ := server.store.Create(server.now())
	log.Printf("created session %s (%d live)", id, server.store.Len())
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (server *Server) handleDeleteSession(w http.ResponseWriter, id string) {
	if err := server.store.Delete(id); err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (server *Server) handlePutImage(w http.ResponseWriter, r *http.Request, s *session.Session, slot int) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, server.settings.MaxUploadBytes))
	if err != nil {
		writeErr(w, uploadStatus(err), errors.Wrap(err, "failed to read image body"))
		return
	}

	img, format, err := server.decode(data)
	if err != nil {
		writeErr(w, uploadStatus(err), err)
		return
	}

	done := server.profiler.StartOperation("session_compose")
	err = s.SetImage(slot, img)
	done()
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	s.Touch(server.now())
	log.Printf("loaded %s into slot %d (%s)", format, slot+1, humanize.IBytes(uint64(len(data))))
	server.writeState(w, s)
}

func (server *Server) handleConfig(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if err := r.ParseForm(); err != nil {
		writeErr(w, http.StatusBadRequest, errors.Wrap(err, "failed to parse form"))
		return
	}
	cfg, err := applyForm(s.Config(), r.PostForm)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	done := server.profiler.StartOperation("session_compose")
	err = s.Apply(cfg)
	done()
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	s.Touch(server.now())
	server.writeState(w, s)
}

func (server *Server) handlePreview(w http.ResponseWriter, s *session.Session) {
	out, err := s.Result()
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	server.writeImage(w, images.Thumbnail(out, server.settings.PreviewMax), images.FormatPNG, "")
}

func (server *Server) handleExport(w http.ResponseWriter, r *http.Request, s *session.Session) {
	out, err := s.Result()
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	format, err := server.requestFormat(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	server.writeImage(w, out, format, s.ExportName(server.now(), format))
}

// uploadStatus maps a failure to read or decode an uploaded image to its HTTP
// status: 413 for oversized bodies, 415 for unrecognized image data and 400
// for anything else.
func uploadStatus(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, errUploadTooLarge), errors.Is(err, multipart.ErrMessageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, images.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	}
	return http.StatusBadRequest
}

// requestFormat reads the "format" parameter, defaulting to the configured
// export format.
func (server *Server) requestFormat(r *http.Request) (images.ImageFormat, error) {
	name := r.FormValue("format")
	if name == "" {
		return server.settings.Format, nil
	}
	format, ok := images.ParseFormat(name)
	if !ok {
		return "", errors.Wrapf(images.ErrUnsupportedFormat, "%q", name)
	}
	return format, nil
}

// writeImage encodes img and sends it. A non-empty filename marks the
// response as a download.
func (server *Server) writeImage(w http.ResponseWriter, img image.Image, format images.ImageFormat, filename string) {
	done := server.profiler.StartOperation("encode_" + string(format))
	data, err := images.EncodeBytes(img, format, server.settings.Encode)
	done()
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	server.profiler.RecordMetric("encoded_bytes", float64(len(data)))
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		log.Printf("exporting %s (%s)", filename, humanize.IBytes(uint64(len(data))))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("failed to write image response: %s", err)
	}
}

func (server *Server) decode(data []byte) (image.Image, images.ImageFormat, error) {
	defer server.profiler.StartOperation("decode")()
	return images.Decode(data)
}

func (server *Server) writeState(w http.ResponseWriter, s *session.Session) {
	writeJSON(w, http.StatusOK, s.Snapshot(server.now()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode JSON response: %s", err)
	}
}

func writeErr(w http.ResponseWriter, status int, err error) {
	log.Printf("err: %s", err.Error())
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
