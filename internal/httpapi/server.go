// Package httpapi exposes the HTTP+WS frontend: app lifecycle control,
// installation requests, reconciler triggers, and token storage, wired to
// the config/mapping stores and the supervisor/installer/reconciler
// components that actually do the work.
package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"modelstation/internal/bus"
	"modelstation/internal/config"
	"modelstation/internal/installer"
	"modelstation/internal/mapping"
	"modelstation/internal/model"
	"modelstation/internal/modeldownload"
	"modelstation/internal/modelerr"
	"modelstation/internal/reconciler"
	"modelstation/internal/supervisor"
)

// Server wires together every component the frontend dispatches to.
type Server struct {
	Config      *config.Store
	Mapping     *mapping.Store
	Supervisor  *supervisor.Supervisor
	Installer   *installer.Installer
	Reconciler  *reconciler.Reconciler
	Bus         *bus.Bus
	Downloader  modeldownload.Downloader
	Logger      *log.Logger
	TokenDir    string

	mu        sync.Mutex
	overrides map[string]model.AppConfig
	removed   map[string]bool
}

// New builds a Server with TokenDir set to /workspace/tokens.
func New(cfgStore *config.Store, mapStore *mapping.Store, sup *supervisor.Supervisor, inst *installer.Installer, rec *reconciler.Reconciler, b *bus.Bus, dl modeldownload.Downloader, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "httpapi ", log.LstdFlags|log.LUTC)
	}
	return &Server{
		Config:     cfgStore,
		Mapping:    mapStore,
		Supervisor: sup,
		Installer:  inst,
		Reconciler: rec,
		Bus:        b,
		Downloader: dl,
		Logger:     logger,
		TokenDir:   "/workspace/tokens",
		overrides:  map[string]model.AppConfig{},
		removed:    map[string]bool{},
	}
}

// Router builds the chi router exposing the full HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/status", s.handleStatus)
	r.Get("/start/{id}", s.handleStart)
	r.Get("/stop/{id}", s.handleStop)
	r.Post("/kill_all", s.handleKillAll)
	r.Post("/force_kill/{id}", s.handleForceKill)
	r.Get("/logs/{id}", s.handleLogs)
	r.Post("/install/{id}", s.handleInstall)
	r.Post("/fix_custom_nodes/{id}", s.handleFixCustomNodes)
	r.Post("/recreate_symlinks", s.handleRecreateSymlinks)
	r.Post("/create_shared_folders", s.handleCreateSharedFolders)
	r.Get("/get_model_types", s.handleGetModelTypes)
	r.Get("/get_model_folders", s.handleGetModelFolders)
	r.Get("/get_{platform}_token", s.handleGetToken)
	r.Post("/save_{platform}_token", s.handleSaveToken)
	r.Post("/download_model", s.handleDownloadModel)
	r.Post("/add_app_config", s.handleAddAppConfig)
	r.Post("/remove_app_config/{id}", s.handleRemoveAppConfig)
	r.Get("/get_bkohya_launch_url", s.handleBkohyaLaunchURL)
	r.Get("/ws", s.handleWS)

	return r
}

// loadRegistry loads the effective config and layers the in-memory
// add/remove overrides on top, since those mutations never touch disk.
func (s *Server) loadRegistry() (config.Registry, error) {
	reg, err := s.Config.Load()
	if err != nil {
		return reg, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg.Apps == nil {
		reg.Apps = map[string]model.AppConfig{}
	}
	for id, app := range s.overrides {
		reg.Apps[id] = app
	}
	for id := range s.removed {
		delete(reg.Apps, id)
	}
	return reg, nil
}

func (s *Server) resolveApp(id string) (model.AppConfig, bool, error) {
	reg, err := s.loadRegistry()
	if err != nil {
		return model.AppConfig{}, false, err
	}
	app, ok := reg.Apps[id]
	return app, ok, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if me, ok := err.(*modelerr.Error); ok {
		switch me.Kind {
		case modelerr.NotFound, modelerr.UnknownApp:
			status = http.StatusNotFound
		case modelerr.PreconditionFailed, modelerr.VersionNotAvailable:
			status = http.StatusConflict
		}
	}
	writeJSON(w, status, map[string]string{"status": "error", "message": err.Error()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	reg, err := s.loadRegistry()
	if err != nil {
		writeError(w, err)
		return
	}
	snapshots := s.Supervisor.Status()
	out := map[string]string{}
	for id := range reg.Apps {
		if snap, ok := snapshots[id]; ok {
			out[id] = string(snap.Status)
		} else {
			out[id] = string(model.ProcessStopped)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	app, ok, err := s.resolveApp(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, modelerr.New(modelerr.UnknownApp, "start", "app %q is not registered", id))
		return
	}
	usesShare := app.Kind.LaunchURLDiscovery == model.LaunchURLGradioShare
	result, err := s.Supervisor.Start(app, usesShare)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(result)})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result := s.Supervisor.Stop(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": string(result)})
}

func (s *Server) handleKillAll(w http.ResponseWriter, r *http.Request) {
	results := s.Supervisor.StopAll()
	out := make(map[string]string, len(results))
	for id, res := range results {
		out[id] = string(res)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleForceKill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	app, ok, err := s.resolveApp(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, modelerr.New(modelerr.UnknownApp, "force_kill", "app %q is not registered", id))
		return
	}
	if err := s.Supervisor.ForceKillByPort(r.Context(), app.Port); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "killed"})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, map[string]any{"logs": s.Supervisor.Logs(id)})
}

func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		VenvVersion string `json:"venv_version"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	err := s.Installer.Install(r.Context(), installer.Options{AppID: id, VenvVersion: body.VenvVersion})
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleFixCustomNodes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	app, ok, err := s.resolveApp(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok || !app.Kind.HasCustomNodes {
		writeError(w, modelerr.New(modelerr.UnknownApp, "fix_custom_nodes", "app %q does not manage custom nodes", id))
		return
	}
	if err := s.Installer.RunBashTemplate(r.Context(), app, "fix-custom_nodes"); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRecreateSymlinks(w http.ResponseWriter, r *http.Request) {
	counters, err := s.Reconciler.Reconcile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counters)
}

func (s *Server) handleCreateSharedFolders(w http.ResponseWriter, r *http.Request) {
	folders, _, err := s.Mapping.LoadSharedModelFolders(mapping.DefaultSharedModelFolders)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Reconciler.EnsureSharedFolders(folders); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetModelTypes(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(s.Mapping.Root); err != nil {
		writeJSON(w, http.StatusOK, model.SharedModelFolders{})
		return
	}
	folders, _, err := s.Mapping.LoadSharedModelFolders(mapping.DefaultSharedModelFolders)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

type folderSummary struct {
	SizeKB    int64 `json:"size_kb"`
	FileCount int   `json:"file_count"`
}

func (s *Server) handleGetModelFolders(w http.ResponseWriter, r *http.Request) {
	folders, _, err := s.Mapping.LoadSharedModelFolders(mapping.DefaultSharedModelFolders)
	if err != nil {
		writeError(w, err)
		return
	}
	out := map[string]folderSummary{}
	for modelType := range folders {
		dir := filepath.Join(s.Mapping.Root, trimFolderSuffix(modelType))
		sizeKB, _ := installer.FolderSizeKB(dir)
		count := countFiles(dir)
		out[modelType] = folderSummary{SizeKB: sizeKB, FileCount: count}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDownloadModel(w http.ResponseWriter, r *http.Request) {
	if s.Downloader == nil {
		writeError(w, modelerr.New(modelerr.NotFound, "download_model", "no model downloader is configured"))
		return
	}
	var req modeldownload.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid request body"})
		return
	}
	res, err := s.Downloader.Download(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAddAppConfig(w http.ResponseWriter, r *http.Request) {
	var app model.AppConfig
	if err := json.NewDecoder(r.Body).Decode(&app); err != nil || app.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid app config"})
		return
	}
	s.mu.Lock()
	s.overrides[app.ID] = app
	delete(s.removed, app.ID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRemoveAppConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	delete(s.overrides, id)
	s.removed[id] = true
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBkohyaLaunchURL(w http.ResponseWriter, r *http.Request) {
	snapshots := s.Supervisor.Status()
	snap, ok := snapshots["bkohya"]
	if !ok || snap.LaunchURL == "" {
		writeJSON(w, http.StatusOK, map[string]string{"mode": "local", "url": ""})
		return
	}
	mode := "local"
	if len(snap.LaunchURL) > 8 && snap.LaunchURL[:8] == "https://" {
		mode = "gradio"
	}
	writeJSON(w, http.StatusOK, map[string]string{"mode": mode, "url": snap.LaunchURL})
}

func trimFolderSuffix(modelType string) string {
	if len(modelType) >= 2 && modelType[len(modelType)-2:] == "/*" {
		return modelType[:len(modelType)-2]
	}
	return modelType
}

func countFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		count++
	}
	return count
}

// StartReconcilerTicker is a convenience wrapper so cmd/modelstation can
// start the periodic reconcile loop alongside the HTTP server.
func (s *Server) StartReconcilerTicker(ctx context.Context) {
	s.Reconciler.StartTicker(ctx, 300*time.Second)
}
