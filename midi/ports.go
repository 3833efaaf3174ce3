package midi

import (
	"fmt"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// findOut resolves an output port by name: exact match first, then
// case-insensitive substring.
func findOut(name string) (drivers.Out, error) {
	ports := gomidi.GetOutPorts()
	for _, p := range ports {
		if p.String() == name {
			return p, nil
		}
	}
	lower := strings.ToLower(name)
	for _, p := range ports {
		if strings.Contains(strings.ToLower(p.String()), lower) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("output port %q not found", name)
}

// findIn resolves an input port by name, same matching as findOut
func findIn(name string) (drivers.In, error) {
	ports := gomidi.GetInPorts()
	for _, p := range ports {
		if p.String() == name {
			return p, nil
		}
	}
	lower := strings.ToLower(name)
	for _, p := range ports {
		if strings.Contains(strings.ToLower(p.String()), lower) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("input port %q not found", name)
}

// OpenOutput opens the named output port and returns its sender. The sender
// is owned by a single playback run at a time; concurrent use from two
// goroutines is not supported.
func OpenOutput(name string) (func(gomidi.Message) error, error) {
	port, err := findOut(name)
	if err != nil {
		return nil, err
	}
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open output %q: %w", name, err)
	}
	return send, nil
}

// OpenInput listens on the named input port, calling fn for each incoming
// message. The returned stop function releases the port.
func OpenInput(name string, fn func(gomidi.Message)) (func(), error) {
	port, err := findIn(name)
	if err != nil {
		return nil, err
	}
	stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, timestampms int32) {
		fn(msg)
	})
	if err != nil {
		return nil, fmt.Errorf("open input %q: %w", name, err)
	}
	return stop, nil
}

// OutPortNames lists the available output port names
func OutPortNames() []string {
	var names []string
	for _, p := range gomidi.GetOutPorts() {
		names = append(names, p.String())
	}
	return names
}

// InPortNames lists the available input port names
func InPortNames() []string {
	var names []string
	for _, p := range gomidi.GetInPorts() {
		names = append(names, p.String())
	}
	return names
}
