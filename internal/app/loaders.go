package app

import (
	"github.com/vk/pubgrid/internal/config"
	"github.com/vk/pubgrid/internal/hcl_adapter"
)

// configFileNames is the search order inside a configuration directory.
var configFileNames = []string{
	"pubgrid.hcl",
	"pubgrid.yaml",
	"pubgrid.yml",
	"pubgrid.json",
	"pubgrid.toml",
}

// coreLoaders maps a file extension to the loader that reads it.
func coreLoaders() map[string]config.Loader {
	doc := config.NewDocumentLoader()
	return map[string]config.Loader{
		".hcl":  hcl_adapter.NewLoader(),
		".json": doc,
		".yaml": doc,
		".yml":  doc,
		".toml": doc,
	}
}
