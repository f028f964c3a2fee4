package main

import (
	"github.com/spf13/cobra"

	"github.com/BioHazard786/Watchdrop/internal/signaling"
)

var (
	flagName      string
	flagServerURL string
	flagSTUN      string
	flagTURN      string
	flagTURNUser  string
	flagTURNPass  string
	flagAudio     string
)

var joinCmd = &cobra.Command{
	Use:     "join <room-code>",
	Aliases: []string{"j"},
	Short:   "Join an existing watch party",
	Long: `Join a watch party by room code.

Examples:
  watchdrop join AB12CD --name ava
  watchdrop join ab12cd --name ben --server ws://party.example.com/ws`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID := signaling.CanonicalRoomID(args[0])
		if err := signaling.ValidateJoin(roomID, flagName); err != nil {
			return err
		}
		return runParty(roomID)
	},
}

var createCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"c"},
	Short:   "Start a new watch party",
	Long: `Start a new watch party with a fresh room code to share.

Examples:
  watchdrop create --name ava`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID := signaling.GenerateRoomCode()
		if err := signaling.ValidateJoin(roomID, flagName); err != nil {
			return err
		}
		return runParty(roomID)
	},
}

func addPartyFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagName, "name", "n", "", "Display name (required)")
	cmd.Flags().StringVar(&flagServerURL, "server", "", "Rendezvous server websocket URL")
	cmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	cmd.Flags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	cmd.Flags().StringVar(&flagTURNUser, "turn-user", "", "TURN username")
	cmd.Flags().StringVar(&flagTURNPass, "turn-pass", "", "TURN password")
	cmd.Flags().StringVar(&flagAudio, "audio", "", "Ogg/Opus audio stream for voice chat")
	cmd.MarkFlagRequired("name")
}

func init() {
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(createCmd)

	addPartyFlags(joinCmd)
	addPartyFlags(createCmd)
}
