package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ritzau/scenegraph/pkg/adapter"
	"github.com/ritzau/scenegraph/pkg/cycles"
	"github.com/ritzau/scenegraph/pkg/graph"
	"github.com/ritzau/scenegraph/pkg/output"
	"github.com/ritzau/scenegraph/pkg/preview"
	"github.com/ritzau/scenegraph/pkg/project"
	"github.com/ritzau/scenegraph/pkg/validation"
)

var (
	errFindings     = errors.New("project has validation findings")
	errNotCanonical = errors.New("project file is not in canonical form")
)

func runValidate(cmd *cobra.Command, args []string) error {
	reg := adapter.BuildRegistry(cfg.Adapter)
	p, err := project.LoadFile(cfg.Project)
	if err != nil {
		return err
	}
	modules, err := selectModules(p, cfg.Module)
	if err != nil {
		return err
	}

	var findings []validation.ValidationError
	for _, m := range modules {
		for _, f := range validation.ValidateGraph(reg, m.Graph) {
			f.Module = m.Tree.ModuleName
			findings = append(findings, f)
		}
	}

	out := cmd.OutOrStdout()
	n := output.PrintValidationReport(out, cfg.Project, len(modules), findings)
	for _, m := range modules {
		output.PrintCycles(out, m.Tree.ModuleName, cycles.FindCycles(graph.NewIndex(m.Graph)))
	}
	if n > 0 {
		return errFindings
	}
	return nil
}

func runFmt(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(cfg.Project)
	if err != nil {
		return fmt.Errorf("read project: %w", err)
	}
	p, err := project.LoadFile(cfg.Project)
	if err != nil {
		return err
	}
	formatted, err := project.Save(*p)
	if err != nil {
		return err
	}
	if string(data) == formatted+"\n" {
		return nil
	}
	if fmtCheck {
		return fmt.Errorf("%s: %w", cfg.Project, errNotCanonical)
	}
	if err := project.SaveFile(cfg.Project, *p); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "formatted %s\n", cfg.Project)
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	reg := adapter.BuildRegistry(cfg.Adapter)
	p, err := project.LoadFile(cfg.Project)
	if err != nil {
		return err
	}
	modules, err := selectModules(p, cfg.Module)
	if err != nil {
		return err
	}
	if len(modules) == 0 {
		return errors.New("project has no modules")
	}

	scene := preview.Compute(reg, modules[0].Graph)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(scene)
}

func runRegistry(cmd *cobra.Command, args []string) error {
	reg := adapter.BuildRegistry(cfg.Adapter)
	if registryJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(reg.Definitions())
	}
	output.PrintRegistry(cmd.OutOrStdout(), reg)
	return nil
}
