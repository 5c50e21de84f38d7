// Package modeldownload defines the collaborator boundary for pulling
// individual model files from external catalogs (CivitAI, Hugging Face)
// into the shared model store. The catalog-specific logic is out of scope
// here; this package only fixes the shape a real implementation plugs into.
package modeldownload

import "context"

// Request is the decoded body of POST /download_model.
type Request struct {
	Source     string `json:"source"` // "civitai" or "huggingface"
	ModelID    string `json:"model_id"`
	VersionID  string `json:"version_id,omitempty"`
	ModelType  string `json:"model_type"`
	Filename   string `json:"filename,omitempty"`
}

// Result reports where the downloaded file ended up.
type Result struct {
	Status   string `json:"status"`
	DestPath string `json:"dest_path,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Downloader fetches a single model file into the shared store, where the
// reconciler will pick it up and link it into every mapped app on its next
// pass. Left unimplemented in this module; wire a concrete client in.
type Downloader interface {
	Download(ctx context.Context, req Request) (Result, error)
}
