// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Loader: Extracts documents from one file format
//   - LoaderRegistry: Selects the loader for a path
//   - PostProcessor: Splits documents into chunks
//   - EmbeddingService: Generates vector embeddings
//   - VectorIndex: Stores vectors and ranks them by similarity
//   - LLMService: Generates answers from prompts
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - IndexStore: Persists indexes. Without it every run starts empty.
//   - PromptStore: Custom prompt text. Without it built-in prompts are used.
//   - ConfigStore: File configuration. Without it defaults apply.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, loader, or post-processor package
package driven
