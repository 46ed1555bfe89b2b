package cmd

import (
	"context"
	"os"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/neoromantic/telegram-sync-cli/internal/apperror"
	"github.com/neoromantic/telegram-sync-cli/internal/daemon"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/account"
	"github.com/neoromantic/telegram-sync-cli/internal/domain/remote"
	"github.com/neoromantic/telegram-sync-cli/internal/store"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Control the background sync daemon",
}

// stubClientFactory stands in for the production remote transport,
// which spec §1 places out of scope for this core: the daemon wires a
// real Client here in the full product, this core only needs the
// injection seam to exist and fail loudly if ever invoked.
func stubClientFactory(ctx context.Context, acc account.Account) (remote.Client, error) {
	return nil, apperror.New(apperror.CodeNetwork, "no remote transport configured for this build")
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sync daemon in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		pidPath := cfg.Paths.PIDFilePath()
		if err := daemon.AcquireSingleInstance(pidPath); err != nil {
			return err
		}

		cacheStore, err := openCacheStore()
		if err != nil {
			return err
		}
		defer cacheStore.Close()

		accountsRepo, err := openAccountsRepo()
		if err != nil {
			return err
		}

		rt, err := daemon.NewRuntime(cfg, cacheStore, accountsRepo, stubClientFactory)
		if err != nil {
			return err
		}

		if err := rt.Start(cmd.Context()); err != nil {
			_ = daemon.ReleasePIDFile(pidPath)
			return err
		}

		printResult(map[string]any{"status": "started", "pid": os.Getpid()})
		return rt.RunForeground(cmd.Context(), pidPath)
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Signal the running daemon to shut down",
	RunE: func(cmd *cobra.Command, args []string) error {
		pidPath := cfg.Paths.PIDFilePath()
		pid, running := daemon.ReadRunningPID(pidPath)
		if !running {
			return apperror.New(apperror.CodeDaemonNotRunning, "daemon is not running")
		}
		if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
			return apperror.Wrap(apperror.CodeDaemonSignalFailed, "failed to signal daemon", err)
		}
		printResult(map[string]any{"status": "stopping", "pid": pid})
		return nil
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report daemon status",
	RunE:  runDaemonStatus,
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	pidPath := cfg.Paths.PIDFilePath()
	_, running := daemon.ReadRunningPID(pidPath)

	cacheStore, err := openCacheStore()
	if err != nil {
		return err
	}
	defer cacheStore.Close()

	statusStore, err := store.NewStatusStore(cacheStore)
	if err != nil {
		return err
	}

	snap, err := daemon.Snapshot(cmd.Context(), statusStore)
	if err != nil {
		return err
	}

	printResult(map[string]any{
		"running": running,
		"status":  snap,
	})
	return nil
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonStatusCmd)
}
