package main

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/mrlokans/bookcatalog/internal/cli"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	cli.Execute(cli.BuildInfo{Version: Version, Commit: Commit})
}
