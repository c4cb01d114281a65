// Package loaders provides implementations of the Loader interface for
// various document formats. Each loader knows how to extract text from
// files with specific extensions.
//
// Loaders are registered with an explicit LoaderRegistry at startup; see
// RegisterDefaults in the builtin package.
package loaders
