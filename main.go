package main

import (
	"github.com/cachegate/cachegate/cmd"
	"github.com/cachegate/cachegate/settings"
)

func main() {
	settings.ResetSettings()
	cmd.Execute()
}
