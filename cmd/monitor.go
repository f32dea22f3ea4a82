package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"qapi/internal/format"
	"qapi/internal/model"
	"qapi/internal/monitor"
)

func init() {
	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Background endpoint monitoring",
	}

	watchCmd := &cobra.Command{
		Use:   "watch [preset...]",
		Short: "Poll monitored presets and show their latest ping",
		Long: `Silently re-execute the named presets on a fixed interval and render
the latest outcome per preset. WebSocket presets are never polled.
Silent pings update only the per-preset summary; the response history is
untouched.

Presets can also come from a YAML config:

  interval: 10s
  monitors:
    - rest-jsonplaceholder-posts
    - rest-httpbin-delay`,
		Run: runMonitorWatch,
	}
	watchCmd.Flags().Duration("interval", monitor.DefaultInterval, "Tick period")
	watchCmd.Flags().String("config", "", "YAML monitor config file")

	monitorCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(monitorCmd)
}

func runMonitorWatch(cmd *cobra.Command, args []string) {
	session, archive := mustSession()
	if archive != nil {
		defer archive.Close()
	}

	interval, _ := cmd.Flags().GetDuration("interval")
	refs := args

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err := monitor.ParseConfigFile(path)
		if err != nil {
			format.PrintError(err.Error())
			os.Exit(1)
		}
		refs = append(refs, cfg.Monitors...)
		if cfg.Interval > 0 && !cmd.Flags().Changed("interval") {
			interval = cfg.Interval
		}
	}

	if len(refs) == 0 {
		format.PrintError("No presets to monitor. Pass preset ids or --config.")
		os.Exit(1)
	}

	for _, ref := range refs {
		preset, ok := session.Preset(ref)
		if !ok {
			format.PrintError(fmt.Sprintf("Preset not found: %s", ref))
			os.Exit(1)
		}
		if preset.Type == model.TypeWebSocket {
			format.PrintError(fmt.Sprintf("Skipping %s: WebSocket presets are not polled", preset.Name))
			continue
		}
		session.SetMonitoring(preset.ID, true)
	}

	if len(session.MonitorTargets()) == 0 {
		format.PrintError("Nothing to monitor")
		os.Exit(1)
	}

	sched := monitor.New(session, interval)
	sched.OnTick(func() {
		// Give in-flight pings a moment before redrawing.
		time.AfterFunc(interval/2, func() {
			fmt.Println()
			format.PrintPingTable(session.Presets(), session.LastPing, session.Monitoring)
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()

	fmt.Printf("Monitoring %d preset(s) every %s. Ctrl-C to stop.\n", len(session.MonitorTargets()), interval)
	sched.Tick(ctx)
	sched.Run(ctx)
}
