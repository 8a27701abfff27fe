package main

import (
	"votetracker/cmd/votetracker/commands"
	"votetracker/lib/util/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
