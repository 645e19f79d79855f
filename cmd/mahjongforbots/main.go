package main

import (
	"strings"

	"github.com/alecthomas/kong"
	"github.com/lox/mahjongforbots/internal/bot"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Server  ServerCmd        `cmd:"" help:"Run the mahjong server"`
	Bot     BotCmd           `cmd:"" help:"Connect a built-in bot to a server"`
	Sim     SimCmd           `cmd:"" help:"Play bot matches in process and summarise the results"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("mahjongforbots"),
		kong.Description("Four player mahjong server for bot-vs-bot play"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version":    version,
			"strategies": strings.Join(bot.Strategies, ", "),
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
