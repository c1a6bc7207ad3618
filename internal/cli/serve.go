package cli

import (
	"errors"
	"strings"

	"taskdeck/internal/web"

	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured store over HTTP (REST, websocket watch, live web view)",
		Long: strings.TrimSpace(`
Serve the configured store so other taskdeck processes can use it as a remote
backend (store.backend: remote). Every client sees every other client's
writes live.

Set server.apiKey (config) to require "Authorization: Bearer <key>".
`),
		Example: strings.TrimSpace(`
# Serve the local SQLite store on localhost
taskdeck serve --addr 127.0.0.1:8787
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config()
			if err != nil {
				return writeErr(cmd, err)
			}
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				listenAddr = cfg.Server.Addr
			}
			if listenAddr == "" {
				return writeErr(cmd, errors.New("serve: missing --addr"))
			}

			st, err := app.openStore(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			srv, err := web.NewServer(web.ServerConfig{
				Addr:   listenAddr,
				APIKey: cfg.Server.APIKey,
				Store:  st,
				Logger: app.log(),
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			_ = writeOut(cmd, app, envelope(map[string]any{
				"addr":    listenAddr,
				"url":     "http://" + listenAddr + "/",
				"backend": cfg.Store.Backend,
				"auth":    cfg.Server.APIKey != "",
			}))

			ctx, stop := interruptContext(cmd)
			defer stop()
			if err := srv.ListenAndServe(ctx); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr from config)")
	return cmd
}
