package main

import (
	"github.com/spf13/cobra"

	"github.com/ritzau/scenegraph/pkg/config"
)

// --- Global Command Variables ---
var (
	// cfg is loaded before any subcommand runs
	cfg *config.Config

	fmtCheck     bool
	registryJSON bool

	rootCmd = &cobra.Command{
		Use:   "scenegraph",
		Short: "Compile node-graph scene projects into React Three Fiber components",
		Long: `scenegraph validates and formats scene projects, exports each module as a
fenced source file and serves an editing API for a node-based scene editor.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			cfg = loaded
			cfg.ApplyLogging()
			return nil
		},
	}

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Write generated source for every module of the project",
		Args:  cobra.NoArgs,
		RunE:  runExport, // Defined in cmd_export.go
	}

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Report parameter and connection problems in the project",
		Args:  cobra.NoArgs,
		RunE:  runValidate, // Defined in cmd_project.go
	}

	fmtCmd = &cobra.Command{
		Use:   "fmt",
		Short: "Rewrite the project file in canonical form",
		Args:  cobra.NoArgs,
		RunE:  runFmt, // Defined in cmd_project.go
	}

	previewCmd = &cobra.Command{
		Use:   "preview",
		Short: "Print the live preview scene of a module as JSON",
		Args:  cobra.NoArgs,
		RunE:  runPreview, // Defined in cmd_project.go
	}

	registryCmd = &cobra.Command{
		Use:   "registry",
		Short: "List the available node types",
		Args:  cobra.NoArgs,
		RunE:  runRegistry, // Defined in cmd_project.go
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the editing API, optionally re-exporting on file changes",
		Args:  cobra.NoArgs,
		RunE:  runServe, // Defined in cmd_serve.go
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("project", "p", config.Defaults["project"].(string), "Project file")
	pf.StringP("adapter", "a", "", "Adapter registry document (JSON or YAML)")
	pf.StringP("module", "m", "", "Restrict to one module by name")
	pf.String("verbosity", "", "Log level: trace, debug, info, warn or error")
	pf.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	pf.Bool("json-logs", false, "Write logs as JSON")

	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("out", "o", config.Defaults["out"].(string), "Output directory")
	exportCmd.Flags().StringP("component", "c", "", "Component name override")
	exportCmd.Flags().BoolP("watch", "w", false, "Re-export when the project or adapter changes")

	rootCmd.AddCommand(validateCmd)

	rootCmd.AddCommand(fmtCmd)
	fmtCmd.Flags().BoolVar(&fmtCheck, "check", false, "Fail instead of rewriting when the file is not canonical")

	rootCmd.AddCommand(previewCmd)

	rootCmd.AddCommand(registryCmd)
	registryCmd.Flags().BoolVar(&registryJSON, "json", false, "Print definitions as JSON")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("port", config.Defaults["port"].(int), "Port for the web server")
	serveCmd.Flags().StringP("out", "o", config.Defaults["out"].(string), "Output directory for re-exports")
	serveCmd.Flags().BoolP("watch", "w", false, "Re-export when the project or adapter changes")
}
