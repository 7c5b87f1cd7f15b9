package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/bravo68web/gitkit/internal/application/service"
	"github.com/bravo68web/gitkit/internal/server"
	"github.com/bravo68web/gitkit/internal/transport/http/router"
)

func (r *CommandRegistry) ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the repositories below a directory over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Usage: "Directory holding the repositories"},
			&cli.IntFlag{Name: "port", Usage: "Port to listen on"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if root := cmd.String("root"); root != "" {
				r.cfg.Repos.Root = root
			}
			if port := cmd.Int("port"); port > 0 {
				r.cfg.Server.Port = port
			}

			srv, _ := r.newServer()

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
}

func (r *CommandRegistry) OpenAPICommand() *cli.Command {
	return &cli.Command{
		Name:  "openapi",
		Usage: "Print the OpenAPI document of the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to this file instead of stdout"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json or yaml", Value: "json"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, rt := r.newServer()

			w := out(cmd)
			if path := cmd.String("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return rt.Docs().Encode(w, cmd.String("format"))
		},
	}
}

func (r *CommandRegistry) newServer() (*server.Server, *router.Router) {
	srv := server.New(r.cfg, service.NewBrowseService(r.cfg, r.log), r.log)
	rt := router.NewRouter(srv)
	rt.RegisterRoutes()
	return srv, rt
}
