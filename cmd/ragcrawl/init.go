package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ragweb/ragcrawl/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/ragcrawl.yaml
var configTemplate embed.FS

const templatePath = "templates/ragcrawl.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a ragcrawl configuration file",
		Long: `Init writes a commented .ragcrawl configuration file to the current directory.

The file documents the default crawl limits and shows how to override
them per site, including cookies, headers and URL patterns.

Examples:
  # Create .ragcrawl in current directory
  ragcrawl init

  # Create config file at a specific path
  ragcrawl init -o myconfig.yaml

  # Force overwrite existing file
  ragcrawl init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// 0600: site entries may hold cookies and auth headers.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure per-site settings such as:")
	fmt.Fprintln(out, "  - Crawl depth, page budget and delay")
	fmt.Fprintln(out, "  - Cookies and request headers")
	fmt.Fprintln(out, "  - URL patterns to ignore or follow")

	return nil
}
