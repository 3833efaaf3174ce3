package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/CPJKU/con-espressione/config"
	"github.com/CPJKU/con-espressione/debug"
	"github.com/CPJKU/con-espressione/midi"
	"github.com/CPJKU/con-espressione/session"
	"github.com/CPJKU/con-espressione/theme"
	"github.com/CPJKU/con-espressione/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if cfg.UI.Debug {
		debug.Enable()
		defer debug.Disable()
	}

	// Transport: fatal if the port cannot be opened
	send, err := midi.OpenOutput(cfg.MIDI.OutputPort)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Println("Available output ports:")
		for _, name := range midi.OutPortNames() {
			fmt.Printf("  %s\n", name)
		}
		os.Exit(1)
	}

	var songs []session.Song
	for _, s := range cfg.Songs {
		songs = append(songs, session.Song{Name: s.Name, Path: s.Path})
	}

	manager := session.NewManager(send, songs)
	manager.SetVelocityClamp(cfg.Playback.VelocityMin, cfg.Playback.VelocityMax)
	manager.SetDeadpan(cfg.Playback.Deadpan)
	manager.SetLiteralOverride(cfg.Playback.LiteralVelocity)
	if cfg.Playback.PollIntervalUs > 0 {
		manager.SetPollInterval(time.Duration(cfg.Playback.PollIntervalUs) * time.Microsecond)
	}
	manager.SelectSong(cfg.UI.LastSong)

	// External controller input is optional
	if cfg.MIDI.InputPort != "" {
		remote := midi.NewRemote(manager)
		if err := remote.Listen(cfg.MIDI.InputPort); err != nil {
			fmt.Printf("Controller input unavailable: %v\n", err)
		} else {
			defer remote.Close()
		}
	}

	th := theme.New(theme.DefaultPalette())

	m := tui.NewModel(manager, th)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// Stop and join the active run so the port is released cleanly
	manager.Stop()
	manager.Wait()
}
