package commands

import (
	"bufio"
	"context"
	"io"
	"strings"
)

type controlCommand int

const (
	controlUnknown controlCommand = iota
	controlStart
	controlStop
	controlRefresh
	controlQuit
)

func parseControl(line string) controlCommand {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "start", "s":
		return controlStart
	case "stop", "x":
		return controlStop
	case "refresh", "r":
		return controlRefresh
	case "quit", "q", "exit":
		return controlQuit
	default:
		return controlUnknown
	}
}

// readControls parses lines from r until it is exhausted or ctx is done. Blank lines are
// skipped. The channel is closed at EOF.
func readControls(ctx context.Context, r io.Reader) <-chan controlCommand {
	out := make(chan controlCommand)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if strings.TrimSpace(scanner.Text()) == "" {
				continue
			}
			select {
			case out <- parseControl(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
