package main

import (
	"encoding/json"
	"os"

	"github.com/dushixiang/monitoring/internal/protocol"
	"github.com/dushixiang/monitoring/internal/service"
	"github.com/spf13/cobra"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "设备管理",
	}
	cmd.AddCommand(newProfileAddCmd(), newProfileListCmd())
	return cmd
}

func newProfileAddCmd() *cobra.Command {
	var req protocol.ProfileRequest
	cmd := &cobra.Command{
		Use:   "add",
		Short: "注册设备",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, db, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer log.Sync()

			profile, err := service.NewProfileService(log, db).Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(profile)
		},
	}
	cmd.Flags().StringVar(&req.DeviceName, "name", "", "设备名称")
	cmd.Flags().StringVar(&req.ProfileKey, "key", "", "设备密钥")
	cmd.Flags().Int64Var(&req.CreateUser, "user", 0, "创建人ID")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "列出所有设备",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, db, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer log.Sync()

			profiles, err := service.NewProfileService(log, db).List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(profiles)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
