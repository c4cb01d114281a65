// Package file provides file-based implementations of driven port interfaces.
// These adapters read and write the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML or YAML pipeline configuration with .env and environment overlays
//   - PromptStore: user-editable prompt text with embedded defaults
package file
