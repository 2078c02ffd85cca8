package main

import (
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/scenegraph/pkg/adapter"
	"github.com/ritzau/scenegraph/pkg/ir"
	"github.com/ritzau/scenegraph/pkg/logging"
	"github.com/ritzau/scenegraph/pkg/project"
	"github.com/ritzau/scenegraph/pkg/pubsub"
	"github.com/ritzau/scenegraph/pkg/registry"
	"github.com/ritzau/scenegraph/pkg/session"
	"github.com/ritzau/scenegraph/pkg/web"
)

// openModule picks the module to edit: the configured one, the first one
// of the project, or a fresh module when there is no project file yet
func openModule(path, name string) (ir.IRModule, error) {
	p, err := project.LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if name == "" {
			name = "Main"
		}
		logging.Info("no project file, starting an empty module", "path", path, "module", name)
		return ir.NewModule(name, time.Now()), nil
	}
	if err != nil {
		return ir.IRModule{}, err
	}
	modules, err := selectModules(p, name)
	if err != nil {
		return ir.IRModule{}, err
	}
	if len(modules) == 0 {
		return ir.NewModule("Main", time.Now()), nil
	}
	return modules[0], nil
}

func runServe(cmd *cobra.Command, args []string) error {
	reg := adapter.BuildRegistry(cfg.Adapter)
	module, err := openModule(cfg.Project, cfg.Module)
	if err != nil {
		return err
	}

	server := web.NewServer(reg)
	server.SetSession(session.New(reg, module))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(ctx, cfg.Port)
	})

	if cfg.Watch {
		job := &exportJob{
			reg:       reg,
			outDir:    cfg.Out,
			module:    cfg.Module,
			component: cfg.Component,
			stdout:    cmd.OutOrStdout(),
			publish: func(data pubsub.ExportData) {
				if err := server.PublishExport(data); err != nil {
					logging.Warn("failed to publish export", "module", data.Module, "error", err)
				}
			},
		}
		g.Go(func() error {
			return job.watch(ctx, cfg.Project, cfg.Adapter, func(r *registry.Registry) {
				server.SetRegistry(r)
			})
		})
	}

	return g.Wait()
}
