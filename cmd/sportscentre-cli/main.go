package main

import (
	"context"

	"sportscentre/cmd/sportscentre-cli/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
