package adapter

func init() {
	Register(&Descriptor{
		ID:          "codex",
		DisplayName: "OpenAI Codex CLI",
		Command:     "codex",
		MinVersion:  "0.20.0",
		Models: []string{
			"gpt-5-codex",
			"gpt-5",
			"o4-mini",
		},
		DefaultModel: "gpt-5-codex",
		Format:       FormatStream,
		BuildArgs: func(model, resumeHandle, prompt string) []string {
			args := []string{"codex", "exec", "--json"}
			if resumeHandle != "" {
				args = append(args, "resume", resumeHandle)
			}
			args = append(args,
				"--model", model,
				"--dangerously-bypass-approvals-and-sandbox",
			)
			return append(args, prompt)
		},
	})
}
