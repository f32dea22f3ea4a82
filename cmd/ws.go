package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"qapi/internal/format"
	"qapi/internal/model"
	"qapi/internal/ws"
)

func init() {
	wsCmd := &cobra.Command{
		Use:   "ws",
		Short: "WebSocket sessions",
	}

	connectCmd := &cobra.Command{
		Use:   "connect <preset>",
		Short: "Open a WebSocket session for a preset",
		Long: `Open a WebSocket session to the preset's URL. Events print as they
arrive; lines typed on stdin are sent as text frames. Ctrl-C closes the
socket and ends the session.`,
		Args: cobra.ExactArgs(1),
		Run:  runWSConnect,
	}
	connectCmd.Flags().Bool("send", false, "Send the preset's stored message after connecting")

	wsCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(wsCmd)
}

func runWSConnect(cmd *cobra.Command, args []string) {
	session, archive := mustSession()
	if archive != nil {
		defer archive.Close()
	}

	preset, ok := session.Preset(args[0])
	if !ok {
		format.PrintError(fmt.Sprintf("Preset not found: %s", args[0]))
		os.Exit(1)
	}
	if preset.Type != model.TypeWebSocket {
		format.PrintError(fmt.Sprintf("Preset %q is %s, not WebSocket", preset.Name, preset.Type))
		os.Exit(1)
	}

	manager := ws.NewManager(func(rec model.ResponseRecord) {
		session.PublishResponse(rec)
		if entries, ok := rec.Body.([]model.WSLogEntry); ok && len(entries) > 0 {
			format.PrintWSEntry(entries[0])
		}
	})
	defer manager.Close()

	if err := manager.Connect(preset); err != nil {
		format.PrintError(err.Error())
		os.Exit(1)
	}

	sendPreset, _ := cmd.Flags().GetBool("send")
	if sendPreset {
		if err := manager.Send(preset); err != nil {
			format.PrintError(err.Error())
		}
	}

	// Stdin lines go out as text frames until EOF or interrupt.
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-quit:
			return
		case line, open := <-lines:
			if !open {
				return
			}
			if line == "" {
				continue
			}
			outgoing := preset
			outgoing.WSMessage = line
			if err := manager.Send(outgoing); err != nil {
				format.PrintError(err.Error())
				return
			}
		}
	}
}
