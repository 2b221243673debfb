package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/simulado/internal/billing"
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Serve the payment notification webhook",
	Long: `Serve the endpoint the payment provider calls when a payment changes.

Approved payments activate the plan named in the payment reference.
Set SIMULADO_PAYMENTS_TOKEN so payments can be looked up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = e.cfg.Webhook.Addr
		}

		handler := billing.NewWebhookHandler(e.gateway(), e.store.Accounts(), e.plans, e.log)
		srv := billing.NewServer(addr, handler, e.log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			e.log.Info("webhook listening", "addr", addr, "path", billing.WebhookPath)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			e.log.Info("webhook shutting down")
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	webhookCmd.Flags().String("addr", "", "Listen address (overrides SIMULADO_WEBHOOK_ADDR)")
}
