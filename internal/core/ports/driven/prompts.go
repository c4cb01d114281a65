package driven

// PromptStore provides access to prompt templates.
// Implementations may load prompts from files or fall back to built-in text.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names return an error; missing files fall back to the default.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptAnswerInstruction is the instruction placed before the retrieved
	// context. It has no format placeholders.
	PromptAnswerInstruction = "answer_instruction"
)
