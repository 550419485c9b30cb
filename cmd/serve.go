package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gaurav-prasanna/gtmkit/core/generate"
	"github.com/gaurav-prasanna/gtmkit/core/store"
	"github.com/gaurav-prasanna/gtmkit/server"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the results API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default: config server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := flagAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	exporter, err := newExporter("")
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	gen, err := serveGenerator(st)
	if err != nil {
		return err
	}
	srv := server.New(st, exporter, gen, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx, addr)
}

// serveGenerator returns nil when generation is unavailable so the server
// still starts and answers 503 on the generate route.
func serveGenerator(st *store.Store) (server.Generator, error) {
	gen, err := newGenerator(st)
	switch {
	case errors.Is(err, generate.ErrMissingAPIKey):
		logger.Warn("generation disabled: no api key; POST /api/results/generate answers 503",
			zap.String("provider", cfg.Generation.Provider))
		return nil, nil
	case err != nil:
		return nil, err
	case gen == nil:
		logger.Warn("no generation provider configured; POST /api/results/generate answers 503")
		return nil, nil
	}
	return gen, nil
}
