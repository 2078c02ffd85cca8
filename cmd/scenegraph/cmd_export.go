package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ritzau/scenegraph/pkg/adapter"
	"github.com/ritzau/scenegraph/pkg/codegen"
	"github.com/ritzau/scenegraph/pkg/ir"
	"github.com/ritzau/scenegraph/pkg/logging"
	"github.com/ritzau/scenegraph/pkg/output"
	"github.com/ritzau/scenegraph/pkg/project"
	"github.com/ritzau/scenegraph/pkg/pubsub"
	"github.com/ritzau/scenegraph/pkg/registry"
	"github.com/ritzau/scenegraph/pkg/validation"
	"github.com/ritzau/scenegraph/pkg/watcher"
)

const (
	quietPeriod = 200 * time.Millisecond
	maxWait     = 2 * time.Second
)

// exportJob describes one run of the exporter
type exportJob struct {
	reg       *registry.Registry
	outDir    string
	module    string
	component string
	stdout    io.Writer
	// publish receives every written module when set
	publish func(pubsub.ExportData)
}

// selectModules returns the module named name, or all modules when name is
// empty
func selectModules(p *ir.Project, name string) ([]ir.IRModule, error) {
	if name == "" {
		return p.Modules, nil
	}
	m, ok := p.Module(name)
	if !ok {
		return nil, fmt.Errorf("module not found: %s", name)
	}
	return []ir.IRModule{m}, nil
}

// run writes every selected module of p and returns how many files changed
func (j *exportJob) run(p *ir.Project) (int, error) {
	modules, err := selectModules(p, j.module)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, m := range modules {
		name := j.component
		if name == "" || len(modules) > 1 {
			name = codegen.ComponentName(m.Tree.ModuleName)
		}
		path := filepath.Join(j.outDir, codegen.FileName(name))
		findings := validation.ValidateGraph(j.reg, m.Graph)
		if len(findings) > 0 {
			logging.Warn("module has validation findings", "module", m.Tree.ModuleName, "count", len(findings))
		}

		src := codegen.Emit(j.reg, m, codegen.Options{ComponentName: name})
		wrote, err := codegen.WriteFile(path, src)
		data := pubsub.ExportData{
			Module:   m.Tree.ModuleName,
			Path:     path,
			Changed:  wrote,
			Findings: len(findings),
		}
		if err != nil {
			data.Error = err.Error()
			j.notify(data)
			return changed, fmt.Errorf("export %s: %w", m.Tree.ModuleName, err)
		}
		if wrote {
			changed++
		}
		output.PrintExport(j.stdout, m.Tree.ModuleName, path, wrote)
		j.notify(data)
	}
	return changed, nil
}

func (j *exportJob) notify(data pubsub.ExportData) {
	if j.publish != nil {
		j.publish(data)
	}
}

// runFile loads the project at path and exports it
func (j *exportJob) runFile(path string) error {
	p, err := project.LoadFile(path)
	if err != nil {
		j.notify(pubsub.ExportData{Module: j.module, Error: err.Error()})
		return err
	}
	changed, err := j.run(p)
	if err != nil {
		return err
	}
	logging.Info("export complete", "modules", len(p.Modules), "changed", changed)
	return nil
}

// watch re-runs the job whenever the project or adapter file changes. It
// returns when ctx is done.
func (j *exportJob) watch(ctx context.Context, projectPath, adapterPath string, onRegistry func(*registry.Registry)) error {
	fw, err := watcher.NewFileWatcher(projectPath, adapterPath)
	if err != nil {
		return err
	}
	fw.Start(ctx)

	debouncer := watcher.NewDebouncer(fw.Events(), quietPeriod, maxWait)
	debouncer.Start(ctx)

	for event := range debouncer.Output() {
		changes := watcher.AnalyzeChanges(event)
		logging.Debug("change detected", "type", event.Type, "files", len(changes.ChangedFiles))

		if changes.NeedRegistryReload {
			j.reg = adapter.BuildRegistry(adapterPath)
			if onRegistry != nil {
				onRegistry(j.reg)
			}
		}
		if changes.NeedReexport {
			// a broken save is reported and the watch goes on
			if err := j.runFile(projectPath); err != nil {
				logging.Error("re-export failed", "error", err)
			}
		}
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	if cfg.Component != "" {
		if err := codegen.CheckComponentName(cfg.Component); err != nil {
			return err
		}
	}
	job := &exportJob{
		reg:       adapter.BuildRegistry(cfg.Adapter),
		outDir:    cfg.Out,
		module:    cfg.Module,
		component: cfg.Component,
		stdout:    cmd.OutOrStdout(),
	}
	if err := job.runFile(cfg.Project); err != nil && !cfg.Watch {
		return err
	}
	if !cfg.Watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logging.Info("watching for changes", "project", cfg.Project, "adapter", cfg.Adapter)
	return job.watch(ctx, cfg.Project, cfg.Adapter, nil)
}
