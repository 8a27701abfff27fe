package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseControl(t *testing.T) {
	cases := map[string]controlCommand{
		"start":     controlStart,
		"s":         controlStart,
		" STOP ":    controlStop,
		"x":         controlStop,
		"refresh":   controlRefresh,
		"r\r":       controlRefresh,
		"q":         controlQuit,
		"quit":      controlQuit,
		"dance":     controlUnknown,
		"start now": controlUnknown,
	}
	for line, expected := range cases {
		require.Equal(t, expected, parseControl(line), line)
	}
}

func TestReadControls(t *testing.T) {
	input := strings.NewReader("s\n\nr\nnope\nq\n")

	var got []controlCommand
	for control := range readControls(context.Background(), input) {
		got = append(got, control)
	}
	require.Equal(t, []controlCommand{controlStart, controlRefresh, controlUnknown, controlQuit}, got)
}
