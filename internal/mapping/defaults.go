package mapping

import "modelstation/internal/model"

// DefaultSharedModelFolders is the code-default model-type catalog seeded
// into _shared_model_folders.json the first time it's missing. Mirrors the
// original installer's SHARED_MODEL_FOLDERS dict.
var DefaultSharedModelFolders = model.SharedModelFolders{
	"ckpt":             "Model Checkpoint (Full model including a CLIP and VAE model)",
	"clip":             "CLIP Model (used together with UNET models)",
	"controlnet":       "ControlNet model (Canny, Depth, Hed, OpenPose, Union-Pro, etc.)",
	"embeddings":       "Embedding (aka Textual Inversion) Model",
	"hypernetworks":    "HyperNetwork Model",
	"insightface":      "InsightFace Model",
	"ipadapters":       "ControlNet IP-Adapter Model",
	"ipadapters/xlabs": "IP-Adapter from XLabs-AI",
	"LLM":              "LLM (aka Large-Language Model) is folder mapped (1 folder per model), append '/*' in the map",
	"loras":            "LoRA (aka Low-Ranking Adaption) Model",
	"loras/xlabs":      "LoRA Model from XLabs-AI",
	"loras/flux":       "LoRA Model trained on Flux.1 Dev or Flux.1 Schnell",
	"reactor":          "Reactor Model",
	"reactor/faces":    "Reactor Face Model",
	"unet":             "UNET Model Checkpoint (need separate CLIP and VAE Models)",
	"upscale_models":   "Upscaling Model (based on ESRGAN)",
	"vae":              "VAE En-/Decoder Model",
	"vae-approx":       "Approximate VAE Model",
}

// DefaultAppInstallDirs is the code-default app_name -> app_install_dir
// catalog, mirroring APP_INSTALL_DIRS.
var DefaultAppInstallDirs = model.AppInstallDirs{
	"A1111":    "/workspace/stable-diffusion-webui",
	"Forge":    "/workspace/stable-diffusion-webui-forge",
	"ComfyUI":  "/workspace/ComfyUI",
	"kohya_ss": "/workspace/kohya_ss",
	"CUSTOM1":  "/workspace/joy-caption-batch",
}

// DefaultSharedModelAppMap is the code-default model_type -> app_name ->
// app-relative destination path catalog, mirroring SHARED_MODEL_APP_MAP
// including its grouping rules ("loras/xlabs", "loras/flux", ...) and its
// one folder-symlink rule ("LLM/Meta-Llama-3.1-8B/*").
var DefaultSharedModelAppMap = model.SharedModelAppMap{
	"ckpt": {
		"ComfyUI":  "/models/checkpoints",
		"A1111":    "/models/Stable-diffusion",
		"Forge":    "/models/Stable-diffusion",
		"kohya_ss": "/models",
	},
	"clip": {
		"ComfyUI": "/models/clip",
		"A1111":   "/models/text_encoder",
		"Forge":   "/models/text_encoder",
	},
	"controlnet": {
		"ComfyUI": "/models/controlnet",
		"A1111":   "/models/ControlNet",
		"Forge":   "/models/ControlNet",
	},
	"embeddings": {
		"ComfyUI": "/models/embeddings",
		"A1111":   "/embeddings",
		"Forge":   "/embeddings",
	},
	"hypernetworks": {
		"ComfyUI": "/models/hypernetworks",
		"A1111":   "/models/hypernetworks",
		"Forge":   "/models/hypernetworks",
	},
	"insightface": {
		"ComfyUI": "/models/insightface",
		"A1111":   "/models/insightface",
		"Forge":   "/models/insightface",
	},
	"ipadapters": {
		"ComfyUI": "/models/ipadapter/",
		"A1111":   "/extensions/sd-webui-controlnet/models",
		"Forge":   "/extensions/sd-webui-controlnet/models",
	},
	"ipadapters/xlabs": {
		"ComfyUI": "/models/xlabs/ipadapters",
		"A1111":   "/extensions/sd-webui-controlnet/models",
		"Forge":   "/extensions/sd-webui-controlnet/models",
	},
	"loras": {
		"ComfyUI": "/models/loras",
		"A1111":   "/models/Lora",
		"Forge":   "/models/Lora",
	},
	"loras/xlabs": {
		"ComfyUI": "/models/loras/xlabs",
		"A1111":   "/models/Lora",
		"Forge":   "/models/Lora",
	},
	"loras/flux": {
		"ComfyUI": "/models/loras/flux",
		"A1111":   "/models/Lora",
		"Forge":   "/models/Lora",
	},
	"reactor": {
		"ComfyUI": "/models/reactor",
		"A1111":   "/models/reactor",
		"Forge":   "/models/reactor",
	},
	"reactor/faces": {
		"ComfyUI": "/models/reactor/faces",
		"A1111":   "/models/reactor",
		"Forge":   "/models/reactor",
	},
	"unet": {
		"ComfyUI":  "/models/unet",
		"A1111":    "/models/Stable-diffusion",
		"Forge":    "/models/Stable-diffusion",
		"kohya_ss": "/models",
	},
	"upscale_models": {
		"ComfyUI": "/models/upscale_models",
		"A1111":   "/models/ESRGAN",
		"Forge":   "/models/ESRGAN",
	},
	"vae": {
		"ComfyUI": "/models/vae",
		"A1111":   "/models/VAE",
		"Forge":   "/models/VAE",
	},
	"vae-approx": {
		"ComfyUI": "/models/vae_approx",
		"A1111":   "/models/VAE-approx",
		"Forge":   "/models/VAE-approx",
	},
	"LLM/Meta-Llama-3.1-8B/*": {
		"ComfyUI": "/models/LLM/Meta-Llama-3.1-8B/*",
		"CUSTOM1": "/model/*",
	},
}
