package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dushixiang/monitoring/internal/config"
	"github.com/dushixiang/monitoring/internal/database"
	"github.com/dushixiang/monitoring/internal/handler"
	"github.com/dushixiang/monitoring/internal/logger"
	"github.com/dushixiang/monitoring/internal/migrate"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:     "monitoring",
		Short:   "设备监控数据采集服务",
		Version: handler.Version,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径")

	rootCmd.AddCommand(newServeCmd(), newMigrateCmd(), newProfileCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap 加载配置、初始化日志并连接数据库
func bootstrap(ctx context.Context) (*config.AppConfig, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load(afero.NewOsFs(), configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	log := logger.New(cfg.Log)

	db, err := database.Open(ctx, log, cfg.Database)
	if err != nil {
		log.Error("数据库初始化失败", zap.Error(err))
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, db, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer log.Sync()
			return migrate.Migrate(log, db)
		},
	}
}
