// Package bot assembles the weather bot: it binds the conversation engine
// to Telegram commands, callbacks and message routes.
package bot

import (
	"fmt"

	"weathergram/core/bootstrap"
	coreconfig "weathergram/core/config"
	"weathergram/core/engine"
	tg "weathergram/core/telegram"
	"weathergram/core/telegram/commands"
	"weathergram/core/telegram/router"

	tele "gopkg.in/telebot.v4"
)

// App carries the wired services needed to serve Telegram updates.
type App struct {
	cfg *coreconfig.Config
	eng *engine.Engine
}

// New builds the bot application from bootstrapped infrastructure.
func New(cfg *coreconfig.Config, res *bootstrap.Result) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bot: nil config")
	}
	if res == nil || res.Engine == nil {
		return nil, fmt.Errorf("bot: missing engine")
	}
	return &App{cfg: cfg, eng: res.Engine}, nil
}

// CoreConfig exposes the embedded core configuration.
func (a *App) CoreConfig() *coreconfig.Config {
	return a.cfg
}

// TelegramRunOptions wires commands, callbacks and message routes into
// runnable bot options.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()

	reg.RegisterCommand(engine.CommandStart, commands.Command{
		Handler:     a.commandHandler(engine.CommandStart),
		Description: "Start the bot",
	})
	reg.RegisterCommand(engine.CommandHelp, commands.Command{
		Handler:     a.commandHandler(engine.CommandHelp),
		Description: "Show usage",
		Hidden:      true,
	})
	reg.RegisterCommand(engine.CommandWeather, commands.Command{
		Handler:     a.commandHandler(engine.CommandWeather),
		Description: "Get weather for a city or location",
	})

	if err := reg.RegisterCallback(engine.OptionCurrent, a.optionHandler(engine.OptionCurrent)); err != nil {
		return tg.RunOptions{}, err
	}
	if err := reg.RegisterCallback(engine.OptionForecast, a.optionHandler(engine.OptionForecast)); err != nil {
		return tg.RunOptions{}, err
	}

	reg.SetTextFallback(a.textHandler)

	routes := router.CommandRoutes(reg)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.MessageRoutes(reg, router.MessageOptions{
		Location:     a.locationHandler,
		UnknownMedia: a.mediaHandler,
	})...)

	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(a.cfg, nil),
		Routes:      routes,
	}, nil
}

func sessionKey(c tele.Context) int64 {
	if user := c.Sender(); user != nil {
		return user.ID
	}
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	return 0
}
