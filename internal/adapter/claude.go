package adapter

func init() {
	Register(&Descriptor{
		ID:          "claude",
		DisplayName: "Claude Code",
		Command:     "claude",
		MinVersion:  "1.0.0",
		Models: []string{
			"claude-sonnet-4-5",
			"claude-opus-4-5",
			"claude-haiku-4-5",
		},
		DefaultModel: "claude-sonnet-4-5",
		Format:       FormatStream,
		BuildArgs: func(model, resumeHandle, prompt string) []string {
			args := []string{
				"claude",
				"--print",
				"--verbose",
				"--output-format", "stream-json",
				// Unattended run: the supervisor cannot answer prompts.
				"--dangerously-skip-permissions",
				"--model", model,
			}
			if resumeHandle != "" {
				args = append(args, "--resume", resumeHandle)
			}
			return append(args, prompt)
		},
	})
}
