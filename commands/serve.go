package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"grant-dashboard/handlers"
)

func addServe(topLevel *cobra.Command, o *options) {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API.",
		Example: `
grantdash serve --listen :8090
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen == "" {
				listen = o.cfg.Listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return o.serve(ctx, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Address to listen on (default from config).")

	topLevel.AddCommand(cmd)
}

func (o *options) serve(ctx context.Context, listen string) error {
	session, done, err := o.session(ctx)
	if err != nil {
		return err
	}
	defer done()

	if !o.verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	r := handlers.NewRouter(handlers.NewHandler(session, o.log.Named("http"), o.cfg.HTTPTimeout))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{Addr: listen, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		o.log.Info("Starting grants dashboard", zap.String("addr", listen), zap.String("api_url", o.cfg.APIURL))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	o.log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
