package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/kris-hansen/dialogen/utils/config"
	"github.com/kris-hansen/dialogen/utils/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var listFlag bool

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure model settings",
	Long:  `Configure model settings including provider, model name, and API key`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.GetConfigPath()
		if listFlag {
			return listConfiguration(cmd.OutOrStdout(), configPath)
		}

		reader := bufio.NewReader(os.Stdin)
		readSecret := func() (string, error) {
			fd := int(os.Stdin.Fd())
			if !term.IsTerminal(fd) {
				return readLine(reader)
			}
			key, err := term.ReadPassword(fd)
			fmt.Fprintln(cmd.OutOrStdout())
			return strings.TrimSpace(string(key)), err
		}
		return configure(reader, cmd.OutOrStdout(), configPath, readSecret)
	},
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// configure prompts for a provider, its API key, and a model, then saves
// them to configPath.
func configure(reader *bufio.Reader, out io.Writer, configPath string, readSecret func() (string, error)) error {
	cfg, err := config.LoadProvidersConfig(configPath)
	if err != nil {
		return err
	}

	registry := models.DefaultRegistry()
	var name string
	for {
		fmt.Fprintf(out, "Enter provider (%s): ", strings.Join(registry.Names(), "/"))
		tag, err := readLine(reader)
		if err != nil {
			return fmt.Errorf("error reading provider: %w", err)
		}
		name, err = registry.Canonical(tag)
		if err == nil {
			break
		}
		fmt.Fprintf(out, "Invalid provider. Please enter one of: %s\n", strings.Join(registry.Names(), ", "))
	}

	if cfg.APIKey(name) == "" {
		fmt.Fprint(out, "Enter API key: ")
		apiKey, err := readSecret()
		if err != nil {
			return fmt.Errorf("error reading API key: %w", err)
		}
		if apiKey == "" {
			return fmt.Errorf("%w for %s", models.ErrMissingAPIKey, name)
		}
		cfg.SetAPIKey(name, apiKey)
	}

	provider, err := registry.Create(name, models.Options{})
	if err != nil {
		return err
	}
	var modelName string
	for {
		fmt.Fprint(out, "Enter model name: ")
		modelName, err = readLine(reader)
		if err != nil {
			return fmt.Errorf("error reading model name: %w", err)
		}
		if provider.SupportsModel(modelName) {
			break
		}
		fmt.Fprintf(out, "Model '%s' is not served by %s\n", modelName, name)
	}

	if err := cfg.AddModelToProvider(name, config.Model{Name: modelName}); err != nil {
		fmt.Fprintf(out, "%v, keeping existing entry\n", err)
	}

	if err := config.SaveProvidersConfig(configPath, cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "Configuration saved successfully to %s!\n", configPath)
	return nil
}

func listConfiguration(out io.Writer, configPath string) error {
	cfg, err := config.LoadProvidersConfig(configPath)
	if err != nil {
		return err
	}

	if len(cfg.Providers) == 0 {
		fmt.Fprintln(out, "No providers configured.")
		return nil
	}

	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(out, "Configuration from %s:\n\n", configPath)
	fmt.Fprintln(out, "Configured Providers:")
	for _, name := range names {
		fmt.Fprintf(out, "\n%s:\n", name)
		provider := cfg.Providers[name]
		if provider == nil || len(provider.Models) == 0 {
			fmt.Fprintln(out, "  No models configured")
			continue
		}
		for _, model := range provider.Models {
			fmt.Fprintf(out, "  - %s\n", model.Name)
		}
	}
	return nil
}

func init() {
	configureCmd.Flags().BoolVar(&listFlag, "list", false, "List all configured providers and models")
	rootCmd.AddCommand(configureCmd)
}
