package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Watchdrop/internal/ui"
)

var rootCmd = &cobra.Command{
	Use:   "watchdrop",
	Short: "Watch videos together over a peer-to-peer mesh",
	Long: `Watchdrop keeps a small group watching the same video at the same
timestamp. Peers find each other through a rendezvous server, then exchange
chat, reactions, playback sync and voice directly over WebRTC data channels,
with no media server in the middle.`,
}

// Execute runs the root command.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
