package main // Entry point package

import "github.com/iliyamo/crusade-registration/cmd/server/cmd"

func main() {
	cmd.Execute()
}
