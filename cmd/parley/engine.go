package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/parley/pkg/inference/engine"
)

func registerBackendFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("model", "", "Model name for the chat completion backend")
	cmd.PersistentFlags().String("api-key", "", "API key for the backend (or PARLEY_API_KEY)")
	cmd.PersistentFlags().String("base-url", "", "Base URL of an OpenAI-compatible server (llama.cpp, ollama, vllm)")
	cmd.PersistentFlags().Float32("temperature", 0.7, "Sampling temperature")
	cmd.PersistentFlags().Int("max-tokens", 512, "Completion token limit per turn")
	cmd.PersistentFlags().Int("retries", 2, "Retries after transient generation failures")
	cmd.PersistentFlags().Bool("dry-run", false, "Replay scripted utterances instead of calling a backend")
}

// buildEngine returns the generation backend for one agent. In dry-run mode
// every agent replays its canned script, so whole experiments run offline.
func buildEngine(dryRunScript []string) (engine.Engine, error) {
	if viper.GetBool("dry-run") {
		return engine.NewScriptedEngine(dryRunScript...), nil
	}

	inner, err := engine.NewOpenAIEngine(engine.OpenAISettings{
		APIKey:      viper.GetString("api-key"),
		BaseURL:     viper.GetString("base-url"),
		Model:       viper.GetString("model"),
		Temperature: float32(viper.GetFloat64("temperature")),
		MaxTokens:   viper.GetInt("max-tokens"),
	})
	if err != nil {
		return nil, err
	}
	return engine.NewRetryingEngine(inner, viper.GetInt("retries")), nil
}

var soukDryRunScripts = map[string][]string{
	"Vendor": {
		"Welcome, my friend! Finest quality in the medina. Offer: MAD150.",
		"For you I make a special price. Offer: MAD120.",
		"You wound me, but I like you. Offer: MAD105.",
	},
	"Buyer": {
		"That is far too much. Counter: MAD80.",
		"Still too high for me. Counter: MAD95.",
		"[ACCEPT] MAD105 works.",
	},
}

var heistDryRunScripts = map[string][]string{
	"Viktor": {
		"[PROPOSAL] Viktor: 35%, Marco: 30%, Elena: 20%, Yuki: 15%",
		"[ACCEPT]",
	},
	"Marco": {
		"[PROPOSAL] Viktor: 30%, Marco: 35%, Elena: 20%, Yuki: 15%",
		"[ACCEPT]",
	},
	"Elena": {
		"[ACCEPT]",
		"[ACCEPT]",
	},
	"Yuki": {
		"[ACCEPT]",
		"[ACCEPT]",
	},
}
