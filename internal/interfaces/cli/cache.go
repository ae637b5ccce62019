package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/database/redis"
	"github.com/turtacn/Guwen-Annotator/internal/intelligence/llm"
)

func newCacheCmd() *cobra.Command {
	cache := &cobra.Command{
		Use:         "cache",
		Short:       "Manage the model response cache",
		Annotations: map[string]string{"backend": "none"},
	}
	flush := &cobra.Command{
		Use:   "flush",
		Short: "Delete every cached model answer from the shared Redis cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cc.Config.Cache
			if cfg.Backend != "redis" {
				fmt.Fprintf(cmd.OutOrStdout(), "cache backend is %s; cached answers live in the server process\n", cfg.Backend)
				return nil
			}

			client, err := redis.NewClient(&cfg.Redis, cc.Logger.Named("redis"))
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := withTimeout(cmd, cc)
			defer cancel()
			rc := llm.NewRedisResponseCache(redis.NewRedisCache(client, cc.Logger, redis.WithPrefix(cfg.KeyPrefix)), cfg.TTL)
			n, err := rc.Flush(ctx)
			if err != nil {
				return err
			}
			if cc.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]int64{"deleted": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d cached answers\n", n)
			return nil
		},
	}
	cache.AddCommand(flush)
	return cache
}
