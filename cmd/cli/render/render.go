package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/slurmsync-project/slurmsync/pkg/config"
	"github.com/slurmsync-project/slurmsync/pkg/pipeline"
)

type RenderOptions struct {
	ConfigFile string
	ToDir      string
}

func NewRenderOptions() *RenderOptions {
	return &RenderOptions{}
}

func NewCmd() *cobra.Command {
	opts := NewRenderOptions()

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Fetch, parse and render the artifacts without touching the node",
		Long: `Runs the pipeline up to rendering and prints the artifacts to stdout, or
writes them into a directory with --to. No reconciliation happens and the
service controller is never invoked; this is the dry run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, opts)
		},
	}

	flags := renderCmd.Flags()
	flags.StringVar(&opts.ConfigFile, "config", "", "Path to the slurmsync config file")
	flags.StringVar(&opts.ToDir, "to", "", "Write artifacts into this directory instead of stdout")
	flags.String("source.uri", "", "URI of the declarative topology document (s3://, https://, file:// or path)")
	flags.String("paths.template-dir", "", "Directory with template overrides")
	return renderCmd
}

func runRender(cmd *cobra.Command, opts *RenderOptions) error {
	ctx := cmd.Context()

	v, err := config.NewViper(opts.ConfigFile)
	if err != nil {
		return err
	}
	for key, flag := range map[string]string{
		"Source.URI":        "source.uri",
		"Paths.TemplateDir": "paths.template-dir",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	// Rendering must never write to the state dir's diagnostic copy path
	// targets; keep everything else identical to a real pass.
	cfg.Paths.StateDir = ""

	p, err := pipeline.New(pipeline.Params{Config: cfg})
	if err != nil {
		return err
	}
	artifacts, err := p.Render(ctx)
	if err != nil {
		return err
	}

	if opts.ToDir == "" {
		for _, artifact := range artifacts {
			cmd.Printf("### %s (%s, mode %s)\n", artifact.Key, artifact.Target, artifact.Mode)
			cmd.Print(string(artifact.Content))
			cmd.Println()
		}
		return nil
	}

	if err := os.MkdirAll(opts.ToDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", opts.ToDir, err)
	}
	for _, artifact := range artifacts {
		path := filepath.Join(opts.ToDir, filepath.Base(artifact.Target))
		if err := os.WriteFile(path, artifact.Content, artifact.Mode); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		cmd.Printf("wrote %s\n", path)
	}
	return nil
}
