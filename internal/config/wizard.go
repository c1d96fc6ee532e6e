package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"

	"github.com/ziadkadry99/gemchat/internal/auth"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to gemchat! Let's configure your server.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"google", "openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.LLM.Provider = ProviderType(providerStr)

	// 2. Model.
	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: DefaultModel(cfg.LLM.Provider),
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	cfg.LLM.Model = model

	// 3. Port.
	portPrompt := promptui.Prompt{
		Label:    "HTTP port",
		Default:  strconv.Itoa(cfg.Server.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	// 4. Markdown engine.
	enginePrompt := promptui.Select{
		Label: "Reply rendering",
		Items: []string{
			"simple     - bold, italics, code, links",
			"commonmark - full CommonMark with highlighting",
		},
	}
	engineIdx, _, err := enginePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("render engine: %w", err)
	}
	cfg.Render.Engine = []string{"simple", "commonmark"}[engineIdx]

	// 5. Upload directory.
	uploadPrompt := promptui.Prompt{
		Label:   "Directory for uploaded images",
		Default: cfg.Upload.Dir,
	}
	cfg.Upload.Dir, err = uploadPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 6. API key, stored in the credentials file rather than the config.
	if vars := APIKeyEnvVars(cfg.LLM.Provider); len(vars) > 0 && cfg.ResolveAPIKey() == "" {
		keyPrompt := promptui.Prompt{
			Label: fmt.Sprintf("%s API key (leave empty to use %s)", cfg.LLM.Provider, vars[0]),
			Mask:  '*',
		}
		key, err := keyPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("api key: %w", err)
		}
		if key != "" {
			if err := auth.StoreAPIKey(string(cfg.LLM.Provider), key); err != nil {
				return nil, fmt.Errorf("storing api key: %w", err)
			}
			credPath, _ := auth.CredentialPath()
			fmt.Printf("\nAPI key saved to %s\n", credPath)
		} else {
			fmt.Printf("\nNote: Set %s in your environment or .env file before running gemchat server.\n", vars[0])
		}
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if n <= 0 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}
