package main

import (
	"flag"

	"go.uber.org/fx"

	"ordertalk/internal/daemon"
)

func main() {
	configFlag := flag.String("config", "", "config file path (default ~/.ordertalk/config.toml)")
	flag.Parse()

	app := fx.New(
		daemon.Module(daemon.Params{ConfigPath: *configFlag}),
	)

	app.Run()
}
