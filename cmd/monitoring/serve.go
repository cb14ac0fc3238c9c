package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dushixiang/monitoring/internal/migrate"
	"github.com/dushixiang/monitoring/internal/scheduler"
	"github.com/dushixiang/monitoring/internal/server"
	"github.com/dushixiang/monitoring/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, log, db, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer log.Sync()

			if err := migrate.Migrate(log, db); err != nil {
				return err
			}

			retention := scheduler.NewRetentionScheduler(service.NewRetentionService(log, db), cfg.Retention, log)
			if err := retention.Start(ctx); err != nil {
				return err
			}
			defer retention.Stop()
			if next := retention.NextRun(); !next.IsZero() {
				log.Info("下次数据清理时间", zap.Time("next", next))
			}

			srv := server.New(log, cfg, db)
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("正在关闭 HTTP 服务")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
