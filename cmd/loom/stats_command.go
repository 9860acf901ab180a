package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show backend health and cache configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			backendStatus := "ok"
			if err := rt.backend.Ping(cmd.Context()); err != nil {
				backendStatus = fmt.Sprintf("unreachable: %v", err)
			}

			if asJSON {
				return writeJSON(cmd, map[string]any{
					"backend":        rt.cfg.Backend.Kind,
					"backend_status": backendStatus,
					"cache_enabled":  rt.cfg.Cache.Enabled,
					"namespace_ttls": rt.cfg.Cache.NamespaceTTLs,
					"lock_lease":     rt.cfg.LockLease().String(),
					"lock_wait":      rt.cfg.LockWait().String(),
					"workers":        rt.cfg.Processing.Workers,
					"max_attempts":   rt.cfg.Processing.MaxAttempts,
				})
			}

			rows := [][]string{
				{"Backend", rt.cfg.Backend.Kind},
				{"Backend status", backendStatus},
				{"Cache enabled", yesNo(rt.cfg.Cache.Enabled)},
				{"Lock lease", rt.cfg.LockLease().String()},
				{"Lock wait", rt.cfg.LockWait().String()},
				{"Workers", strconv.Itoa(rt.cfg.Processing.Workers)},
				{"Retry budget", strconv.Itoa(rt.cfg.Processing.MaxAttempts)},
			}
			namespaces := make([]string, 0, len(rt.cfg.Cache.NamespaceTTLs))
			for namespace := range rt.cfg.Cache.NamespaceTTLs {
				namespaces = append(namespaces, namespace)
			}
			sort.Strings(namespaces)
			for _, namespace := range namespaces {
				rows = append(rows, []string{
					"TTL " + namespace,
					rt.cfg.NamespaceTTL(namespace).String(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit stats as JSON")
	return cmd
}
