package bot

import (
	"bytes"
	"fmt"

	"weathergram/core/engine"
	tghelpers "weathergram/core/telegram/helpers"
	"weathergram/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

func (a *App) commandHandler(command string) tele.HandlerFunc {
	return func(c tele.Context) error {
		return a.dispatch(c, engine.CommandEvent(command))
	}
}

func (a *App) optionHandler(key string) tele.HandlerFunc {
	return func(c tele.Context) error {
		return a.dispatch(c, engine.OptionEvent(key))
	}
}

func (a *App) textHandler(c tele.Context) error {
	return a.dispatch(c, engine.TextEvent(c.Text()))
}

func (a *App) locationHandler(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Location == nil {
		return a.dispatch(c, engine.UnknownEvent())
	}
	loc := msg.Location
	return a.dispatch(c, engine.LocationEvent(float64(loc.Lat), float64(loc.Lng)))
}

func (a *App) mediaHandler(c tele.Context) error {
	return a.dispatch(c, engine.UnknownEvent())
}

// dispatch runs one engine turn for the update and delivers the reply.
func (a *App) dispatch(c tele.Context, ev engine.Event) error {
	ctx := tghelpers.BuildContext(c)

	reply, err := a.eng.Handle(ctx, sessionKey(c), ev)
	if err != nil {
		return err
	}
	return a.deliver(c, reply)
}

func (a *App) deliver(c tele.Context, reply engine.Reply) error {
	switch r := reply.(type) {
	case engine.TextReply:
		opts := &tele.SendOptions{}
		if r.HTML {
			opts.ParseMode = tele.ModeHTML
		}
		if r.RemoveKeyboard {
			opts.ReplyMarkup = keyboard.RemoveKeyboard()
		}
		return tghelpers.SendText(c, r.Text, opts)

	case engine.LocationPromptReply:
		return tghelpers.SendText(c, r.Text, &tele.SendOptions{
			ReplyMarkup: keyboard.LocationRequest(r.ButtonLabel),
		})

	case engine.OptionsReply:
		row := make([]keyboard.InlineBtn, 0, len(r.Choices))
		for _, choice := range r.Choices {
			row = append(row, keyboard.InlineBtn{Text: choice.Label, Unique: choice.Key})
		}
		return tghelpers.SendText(c, r.Text, &tele.SendOptions{
			ReplyMarkup: keyboard.InlineButtonsRows(row),
		})

	case engine.ImageReply:
		photo := &tele.Photo{File: tele.FromReader(bytes.NewReader(r.PNG))}
		return tghelpers.SendPhoto(c, photo, keyboard.RemoveKeyboard())

	case nil:
		return nil

	default:
		return fmt.Errorf("bot: unsupported reply type %T", reply)
	}
}
