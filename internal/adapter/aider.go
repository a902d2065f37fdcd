package adapter

func init() {
	// aider writes human-readable text, not an event stream. The
	// pipeline runs in degraded mode for it: total output bytes only.
	Register(&Descriptor{
		ID:          "aider",
		DisplayName: "Aider",
		Command:     "aider",
		Models: []string{
			"sonnet",
			"gpt-4o",
			"deepseek",
		},
		DefaultModel: "sonnet",
		Format:       FormatPlain,
		BuildArgs: func(model, resumeHandle, prompt string) []string {
			args := []string{
				"aider",
				"--yes-always",
				"--no-stream",
				"--model", model,
			}
			if resumeHandle != "" {
				args = append(args, "--restore-chat-history")
			}
			return append(args, "--message", prompt)
		},
	})
}
