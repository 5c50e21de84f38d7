// Package mapping implements the Mapping Store: the three
// on-disk JSON documents describing the model-type catalog, app install
// locations, and the type->app path mapping. A document is read if
// present; otherwise the code default is written (unless suppressed) and
// returned. Writes never clobber an existing file.
package mapping

import (
	"fmt"
	"path/filepath"
	"strings"

	"modelstation/internal/jsonutil"
	"modelstation/internal/model"
)

// Store reads/writes the three mapping documents rooted at a shared directory.
type Store struct {
	Root           string // shared root, e.g. /workspace/shared_models
	Hidden         bool   // MAKE_MAPPING_FILES_HIDDEN
	AllowSeedWrite bool   // debug flag gating default-file creation
}

func (s *Store) filename(base string) string {
	if s.Hidden {
		return "." + base + ".json"
	}
	return base + ".json"
}

func (s *Store) path(base string) string {
	return filepath.Join(s.Root, s.filename(base))
}

// LoadResult reports whether the returned document came from disk or a
// freshly seeded default, per the Store's "(loaded_from_file?, dict)"
// contract.
type LoadResult struct {
	LoadedFromFile bool
}

// LoadSharedModelFolders reads _shared_model_folders.json, seeding the
// code default if absent.
func (s *Store) LoadSharedModelFolders(defaults model.SharedModelFolders) (model.SharedModelFolders, LoadResult, error) {
	out := model.SharedModelFolders{}
	res, err := s.loadOrSeed(s.path("_shared_model_folders"), &out, defaults)
	return out, res, err
}

// LoadAppInstallDirs reads _app_install_dirs.json, seeding the code
// default if absent.
func (s *Store) LoadAppInstallDirs(defaults model.AppInstallDirs) (model.AppInstallDirs, LoadResult, error) {
	out := model.AppInstallDirs{}
	res, err := s.loadOrSeed(s.path("_app_install_dirs"), &out, defaults)
	return out, res, err
}

// LoadSharedModelAppMap reads _shared_model_app_map.json, seeding the code
// default if absent.
func (s *Store) LoadSharedModelAppMap(defaults model.SharedModelAppMap) (model.SharedModelAppMap, LoadResult, error) {
	out := model.SharedModelAppMap{}
	res, err := s.loadOrSeed(s.path("_shared_model_app_map"), &out, defaults)
	return out, res, err
}

func (s *Store) loadOrSeed(path string, out any, defaults any) (LoadResult, error) {
	if jsonutil.Exists(path) {
		if err := jsonutil.ReadFile(path, out); err != nil {
			return LoadResult{}, err
		}
		return LoadResult{LoadedFromFile: true}, nil
	}
	if !s.AllowSeedWrite {
		copyDefaults(out, defaults)
		return LoadResult{}, nil
	}
	if err := jsonutil.WriteFile(path, defaults, 0o644); err != nil {
		return LoadResult{}, err
	}
	copyDefaults(out, defaults)
	return LoadResult{}, nil
}

// copyDefaults assigns through the three supported map-typed out pointers;
// the three mapping documents are all map types, so a tiny type switch
// avoids a reflection dependency.
func copyDefaults(out any, defaults any) {
	switch o := out.(type) {
	case *model.SharedModelFolders:
		*o = defaults.(model.SharedModelFolders)
	case *model.AppInstallDirs:
		*o = defaults.(model.AppInstallDirs)
	case *model.SharedModelAppMap:
		*o = defaults.(model.SharedModelAppMap)
	}
}

// Validate checks cross-mapping invariants: every app_name used in
// SharedModelAppMap must exist in AppInstallDirs, and every top-level
// model_type must exist in SharedModelFolders.
func Validate(folders model.SharedModelFolders, dirs model.AppInstallDirs, appMap model.SharedModelAppMap) []error {
	var errs []error
	for modelType, apps := range appMap {
		baseType := strings.TrimSuffix(modelType, "/*")
		if _, ok := folders[modelType]; !ok {
			if _, ok2 := folders[baseType]; !ok2 {
				// a grouped type nested under a declared folder, e.g.
				// "LLM/Meta-Llama-3.1-8B" under the declared "LLM" folder,
				// is valid even without its own SharedModelFolders entry.
				topSegment := strings.SplitN(baseType, "/", 2)[0]
				if _, ok3 := folders[topSegment]; !ok3 {
					errs = append(errs, invalidMappingf("model_type %q is not declared in SharedModelFolders", modelType))
				}
			}
		}
		for appName := range apps {
			if _, ok := dirs[appName]; !ok {
				errs = append(errs, invalidMappingf("app %q used by model_type %q is not declared in AppInstallDirs", appName, modelType))
			}
		}
	}
	return errs
}

func invalidMappingf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
