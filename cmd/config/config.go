package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/haritpath/pestwatch/internal/conf"
)

// Command creates the config command which prints the effective settings
// after defaults, config file, environment and flag overrides, and can
// persist them back to a config file.
func Command(settings *conf.Settings) *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or save the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if write {
				return writeConfig(settings)
			}

			data, err := yaml.Marshal(settings)
			if err != nil {
				return fmt.Errorf("marshaling settings: %w", err)
			}
			fmt.Fprint(os.Stdout, string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&write, "write", false, "Write the effective configuration to config.yaml")

	return cmd
}

func writeConfig(settings *conf.Settings) error {
	paths, err := conf.GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("resolving config paths: %w", err)
	}
	configPath := filepath.Join(paths[0], "config.yaml")

	if err := conf.SaveYAMLConfig(configPath, settings); err != nil {
		return err
	}
	fmt.Println("Saved configuration to:", configPath)
	return nil
}
