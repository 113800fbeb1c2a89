package router

import (
	"time"

	tg "weathergram/core/telegram"
	"weathergram/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MessageOptions declares the handlers the message routes dispatch to.
type MessageOptions struct {
	Location     tele.HandlerFunc
	UnknownMedia tele.HandlerFunc
}

// MessageRoutes builds handlers for plain text, shared locations and
// unclassified media. Text that matches a registered command (including
// aliases) runs its command handler; everything else goes to the
// registry's text fallback.
func MessageRoutes(reg *tg.Registry, opts MessageOptions) []tg.Route {
	textHandler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "text", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	locationHandler := func(c tele.Context) error {
		start := time.Now()
		if opts.Location != nil {
			return handleWithSummary(c, "location", start, "", "", func() error {
				return opts.Location(c)
			})
		}
		logHandlerSummary(c, "location", start, "skip", "ok", nil)
		return nil
	}

	mediaHandler := func(c tele.Context) error {
		start := time.Now()
		if opts.UnknownMedia != nil {
			return handleWithSummary(c, "unexpected_media", start, "", "", func() error {
				return opts.UnknownMedia(c)
			})
		}
		logHandlerSummary(c, "unexpected_media", start, "skip", "ok", nil)
		return nil
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(textHandler)},
		{Endpoint: tele.OnLocation, Handler: wrap(locationHandler)},
		{Endpoint: tele.OnMedia, Handler: wrap(mediaHandler)},
	}
}
