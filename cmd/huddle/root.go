package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/domain"
)

type flags struct {
	name       string
	signalURL  string
	codec      string
	statusAddr string
	noAudio    bool
	noVideo    bool
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:          "huddle",
		Short:        "Headless client for multi-party video rooms",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&f.name, "name", "n", "", "display name")
	pf.StringVar(&f.signalURL, "signal", "", "signaling server websocket URL")
	pf.StringVar(&f.codec, "codec", "", "wire codec: json or msgpack")
	pf.StringVar(&f.statusAddr, "status-addr", "", "serve the local control API on this address")
	pf.BoolVar(&f.noAudio, "no-audio", false, "join without a microphone")
	pf.BoolVar(&f.noVideo, "no-video", false, "join without a camera")
	_ = root.MarkPersistentFlagRequired("name")

	root.AddCommand(&cobra.Command{
		Use:   "host",
		Short: "Create a room and join it as host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return f.run(cmd, "")
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "join <room-id>",
		Short: "Join an existing room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.run(cmd, domain.RoomID(args[0]))
		},
	})
	return root
}

// load merges command line overrides into the file and env config.
func (f *flags) load() (*config.Config, domain.Participant, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, domain.Participant{}, err
	}
	if f.signalURL != "" {
		cfg.SignalURL = f.signalURL
	}
	if f.codec != "" {
		cfg.Codec = f.codec
	}
	if f.statusAddr != "" {
		cfg.StatusAddr = f.statusAddr
	}
	if f.noAudio {
		cfg.Audio = false
	}
	if f.noVideo {
		cfg.Video = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, domain.Participant{}, err
	}
	zerolog.SetGlobalLevel(cfg.Level())

	user, err := domain.NewParticipant(f.name)
	if err != nil {
		return nil, domain.Participant{}, err
	}
	return cfg, *user, nil
}

func (f *flags) run(cmd *cobra.Command, room domain.RoomID) error {
	cfg, user, err := f.load()
	if err != nil {
		return err
	}
	s, err := newSession(cfg, user)
	if err != nil {
		return err
	}
	return s.run(cmd.Context(), room, cmd.InOrStdin(), cmd.OutOrStdout())
}
