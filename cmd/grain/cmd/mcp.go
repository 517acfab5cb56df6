package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/common/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/psantana5/grain/internal/config"
	"github.com/psantana5/grain/internal/mcptools"
	"github.com/psantana5/grain/internal/shop"
	"github.com/psantana5/grain/pkg/models"
	"github.com/psantana5/grain/pkg/store"
)

var mcpEmail string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve Grain tools to an MCP client over stdio",
	Long: `Serve the board-feet and unit-price calculators, the dashboard and project
costing as MCP tools over stdio. The tools act on the shop of the user given by
--email, read straight from the configured database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, cfg *config.Config, st store.Store, log *zap.Logger) error {
			user, err := st.GetUserByEmail(ctx, models.NormalizeEmail(mcpEmail))
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no user with email %s", mcpEmail)
			}
			if err != nil {
				return err
			}

			log.Info("Serving MCP tools", zap.String("user_id", user.ID))
			s := mcptools.NewServer(shop.New(st, log.Named("shop")), user.ID, version.Version)
			return server.ServeStdio(s)
		})
	},
}

func init() {
	addDatabaseFlags(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpEmail, "email", "", "email of the user whose shop the tools read")
	_ = mcpCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(mcpCmd)
}
