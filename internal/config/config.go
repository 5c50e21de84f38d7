// Package config implements the Config Store: it produces
// the effective AppConfig registry and CommonSettings by layering, in
// increasing precedence, code defaults, a remote JSON manifest, a local
// file override, environment variables, and a debug-settings override
// file (read only when LOCAL_DEBUG is 1, true or yes).
package config

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"modelstation/internal/jsonutil"
	"modelstation/internal/model"
)

const notFoundSentinel = "#not_found_using_code_defaults"

// Store owns the effective AppConfig registry and CommonSettings, and
// knows how to reload them on demand.
type Store struct {
	ManifestURL     string
	LocalOverride   string
	DebugOverride   string
	HTTPClient      *http.Client

	lastManifestURL string
}

// NewStore builds a Store from the standard environment variables.
func NewStore() *Store {
	return &Store{
		ManifestURL:   env("APP_CONFIGS_MANIFEST_URL", ""),
		LocalOverride: env("APP_CONFIGS_LOCAL_FILE", "/workspace/app_configs.local.json"),
		DebugOverride: env("APP_CONFIGS_DEBUG_FILE", "/workspace/app_configs.debug.json"),
		HTTPClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

// manifest is the on-the-wire shape of the remote/local JSON document.
type manifest struct {
	Common CommonSettingsJSON         `json:"common_settings"`
	Apps   map[string]model.AppConfig `json:"apps"`
}

// CommonSettingsJSON mirrors model.CommonSettings for manifest decoding,
// letting base_download_url stay optional without a pointer field.
type CommonSettingsJSON = model.CommonSettings

// Registry is the effective, merged configuration Load() returns.
type Registry struct {
	Apps           map[string]model.AppConfig
	Common         model.CommonSettings
	EffectiveURL   string // annotated with notFoundSentinel on failure
}

// Load is idempotent and callable at any time; the Installer calls it at
// the start of every install to pick up runtime edits.
func (s *Store) Load() (Registry, error) {
	reg := Registry{Apps: defaultApps(), Common: defaultCommonSettings()}

	if s.ManifestURL != "" {
		m, effURL, err := s.fetchManifest(s.ManifestURL)
		reg.EffectiveURL = effURL
		if err == nil {
			mergeManifest(&reg, m)
		}
	}

	if jsonutil.Exists(s.LocalOverride) {
		var m manifest
		if err := jsonutil.ReadFile(s.LocalOverride, &m); err == nil {
			mergeManifest(&reg, m)
		}
	}

	applyEnvOverrides(&reg)

	debug := strings.ToLower(env("LOCAL_DEBUG", ""))
	if (debug == "1" || debug == "true" || debug == "yes") && jsonutil.Exists(s.DebugOverride) {
		var m manifest
		if err := jsonutil.ReadFile(s.DebugOverride, &m); err == nil {
			mergeManifest(&reg, m)
		}
	}

	if reg.Common.BaseDownloadURL == "" {
		reg.Common.BaseDownloadURL = baseDownloadURLFrom(s.ManifestURL)
	}

	return reg, nil
}

func (s *Store) fetchManifest(url string) (manifest, string, error) {
	resp, err := s.HTTPClient.Get(url)
	if err != nil {
		return manifest{}, url + notFoundSentinel, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return manifest{}, url + notFoundSentinel, io.EOF
	}
	var m manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return manifest{}, url + notFoundSentinel, err
	}
	return m, url, nil
}

func mergeManifest(reg *Registry, m manifest) {
	if reg.Apps == nil {
		reg.Apps = map[string]model.AppConfig{}
	}
	for id, app := range m.Apps {
		app.ID = id
		reg.Apps[id] = app
	}
	if m.Common.BaseDownloadURL != "" {
		reg.Common.BaseDownloadURL = m.Common.BaseDownloadURL
	}
	if m.Common.VerifyTolerancePercent != 0 {
		reg.Common.VerifyTolerancePercent = m.Common.VerifyTolerancePercent
	}
	reg.Common.VerifyAppSize = reg.Common.VerifyAppSize || m.Common.VerifyAppSize
	reg.Common.VerifyVenvSize = reg.Common.VerifyVenvSize || m.Common.VerifyVenvSize
	reg.Common.DeleteUnverifiedAppPath = reg.Common.DeleteUnverifiedAppPath || m.Common.DeleteUnverifiedAppPath
	reg.Common.DeleteUnverifiedVenvPath = reg.Common.DeleteUnverifiedVenvPath || m.Common.DeleteUnverifiedVenvPath
}

// applyEnvOverrides honors VENV_VERSION_<APP_ID>
func applyEnvOverrides(reg *Registry) {
	for id, app := range reg.Apps {
		envKey := "VENV_VERSION_" + strings.ToUpper(id)
		if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
			app.VenvVersionDefault = v
			reg.Apps[id] = app
		}
	}
}

// baseDownloadURLFrom derives a default base_download_url from the
// directory portion of the manifest URL, with a trailing slash.
func baseDownloadURLFrom(manifestURL string) string {
	manifestURL = strings.TrimSuffix(manifestURL, notFoundSentinel)
	if manifestURL == "" {
		return ""
	}
	dir := path.Dir(manifestURL)
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return dir
}

func defaultCommonSettings() model.CommonSettings {
	return model.CommonSettings{
		VerifyAppSize:          true,
		VerifyVenvSize:         true,
		VerifyTolerancePercent: 5,
	}
}

// defaultApps returns the code-default registry (empty; every deployment
// supplies its own manifest). Kept as a named function, not a literal, so
// a future default catalog has a single place to grow.
func defaultApps() map[string]model.AppConfig {
	return map[string]model.AppConfig{}
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// EnvInt reads an integer environment variable, falling back to def on
// absence or parse failure.
func EnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
