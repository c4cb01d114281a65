// Package builtin registers the loaders that ship with docqa.
package builtin

import (
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/loaders/docx"
	"github.com/custodia-labs/docqa/internal/loaders/html"
	"github.com/custodia-labs/docqa/internal/loaders/markdown"
	"github.com/custodia-labs/docqa/internal/loaders/pdf"
	"github.com/custodia-labs/docqa/internal/loaders/plaintext"
)

// Loaders returns one instance of every built-in loader.
func Loaders() []driven.Loader {
	return []driven.Loader{
		plaintext.New(),
		markdown.New(),
		html.New(),
		pdf.New(),
		docx.New(),
	}
}

// RegisterDefaults adds every built-in loader to registry.
func RegisterDefaults(registry driven.LoaderRegistry) {
	for _, l := range Loaders() {
		registry.Register(l)
	}
}
