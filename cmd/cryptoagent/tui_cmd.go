package main

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/martynov-dm/crypto-agent/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive TUI",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	// Check if daemon is running; start it in the background if not.
	if CheckHealth() != nil {
		fmt.Println("Daemon not running. Starting background service...")
		if err := startDaemon(); err != nil {
			return fmt.Errorf("failed to start daemon: %w", err)
		}
	}

	app := tui.New(apiAddr)
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func startDaemon() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	// Start "cryptoagent daemon" detached so it survives TUI exit.
	daemon := exec.Command(exe, "daemon")
	configureDaemonProc(daemon)

	// Detach stdio so the daemon does not write over the TUI screen.
	daemon.Stdin = nil
	daemon.Stdout = nil
	daemon.Stderr = nil

	if err := daemon.Start(); err != nil {
		return err
	}

	// Wait for it to become ready.
	fmt.Print("   Waiting for daemon...")
	for i := 0; i < 20; i++ {
		if CheckHealth() == nil {
			fmt.Println(" Done.")
			return nil
		}
		time.Sleep(250 * time.Millisecond)
		fmt.Print(".")
	}
	fmt.Println(" Timeout!")
	return fmt.Errorf("daemon started but API not reachable at %s", apiAddr)
}
