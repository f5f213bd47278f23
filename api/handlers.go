package api

import (
	"bytes"
	"net/http"

	"github.com/OdyseeTeam/gondola/admin"
	"github.com/OdyseeTeam/gondola/internal/metrics"
	"github.com/OdyseeTeam/gondola/pages"
	"github.com/OdyseeTeam/gondola/pkg/logging"
	"github.com/OdyseeTeam/gondola/playback"

	"github.com/valyala/fasthttp"
)

const (
	logCtxField = "log"
	contentHTML = "text/html; charset=utf-8"
)

func (s *APIServer) requestLogger(ctx *fasthttp.RequestCtx) logging.KVLogger {
	if ll, ok := ctx.UserValue(logCtxField).(logging.KVLogger); ok {
		return ll
	}
	return s.log
}

// redirect sets Location verbatim, fasthttp's own Redirect would make it absolute.
func redirect(ctx *fasthttp.RequestCtx, location string, status int) {
	ctx.Response.Header.Set(fasthttp.HeaderLocation, location)
	ctx.SetStatusCode(status)
}

func setPlayMode(ctx *fasthttp.RequestCtx, mode playback.Mode) {
	c := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(c)
	c.SetKey(playback.CookieName)
	c.SetValue(mode.CookieValue())
	c.SetPath("/")
	ctx.Response.Header.SetCookie(c)
}

func permanentRedirect(location string) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		redirect(ctx, location, http.StatusPermanentRedirect)
	}
}

func (s *APIServer) handleIndex(ctx *fasthttp.RequestCtx) {
	redirect(ctx, "/"+s.defaultVideo, http.StatusPermanentRedirect)
}

func (s *APIServer) handleRandom(ctx *fasthttp.RequestCtx) {
	s.redirectRandom(ctx, "/")
}

func (s *APIServer) handleRandomRaw(ctx *fasthttp.RequestCtx) {
	s.redirectRandom(ctx, pages.VideoPathPrefix)
}

func (s *APIServer) redirectRandom(ctx *fasthttp.RequestCtx, prefix string) {
	setPlayMode(ctx, playback.Random)
	id, err := s.picker.Pick(s.catalog.Snapshot())
	if err != nil {
		s.requestLogger(ctx).Error("cannot pick a random video", "err", err)
		metrics.Redirects.WithLabelValues("home").Inc()
		redirect(ctx, "/", http.StatusTemporaryRedirect)
		return
	}
	metrics.Redirects.WithLabelValues("random").Inc()
	redirect(ctx, prefix+id, http.StatusTemporaryRedirect)
}

func (s *APIServer) handleNext(ctx *fasthttp.RequestCtx) {
	previous, _ := ctx.UserValue("previous").(string)
	setPlayMode(ctx, playback.Sequential)
	next, ok := playback.Next(s.catalog.Snapshot(), previous)
	if !ok {
		s.requestLogger(ctx).Info("next requested for unknown video", "previous", previous)
		metrics.Redirects.WithLabelValues("home").Inc()
		redirect(ctx, "/", http.StatusTemporaryRedirect)
		return
	}
	metrics.Redirects.WithLabelValues("next").Inc()
	redirect(ctx, "/"+next, http.StatusTemporaryRedirect)
}

func (s *APIServer) handleList(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType(contentHTML)
	ctx.SetBody(s.listing.Page())
}

func (s *APIServer) handleVideo(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("name").(string)
	s.catalog.IncrementViews(id)
	metrics.ViewsServed.Inc()

	snap := s.catalog.Snapshot()
	v, ok := snap.Get(id)
	if !ok {
		v.ID = id
	}
	next, _ := playback.Next(snap, id)
	text, announced := s.state.Announcement()

	buf := &bytes.Buffer{}
	err := s.renderer.Video(buf, pages.VideoPage{
		Video:        v,
		Next:         next,
		Mode:         playback.ModeFromCookie(ctx.Request.Header.Cookie(playback.CookieName)),
		Count:        snap.Len(),
		Announcement: text,
		Announced:    announced,
		Style:        s.state.Style(),
	})
	if err != nil {
		s.requestLogger(ctx).Error("cannot render video page", "id", id, "err", err)
		ctx.Error(fasthttp.StatusMessage(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ctx.SetContentType(contentHTML)
	ctx.SetBody(buf.Bytes())
}

func (s *APIServer) handleFiles(ctx *fasthttp.RequestCtx) {
	fp, _ := ctx.UserValue("filepath").(string)
	if hasParentSegment(fp) {
		s.requestLogger(ctx).Warn("path traversal attempt", "path", fp)
		ctx.Error(fasthttp.StatusMessage(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	s.files(ctx)
}

// handleShell serves the admin console. The submitted key never leaves this function.
func (s *APIServer) handleShell(ctx *fasthttp.RequestCtx) {
	out := pages.ShellPage{Result: admin.MsgNoCommand}
	if ctx.IsPost() {
		res := s.shell.Run(string(ctx.FormValue("act")), string(ctx.FormValue("key")))
		out = pages.ShellPage{Result: res.Message, Ran: res.Ran}
	}

	buf := &bytes.Buffer{}
	if err := s.renderer.Shell(buf, out); err != nil {
		s.requestLogger(ctx).Error("cannot render shell page", "err", err)
		ctx.Error(fasthttp.StatusMessage(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ctx.SetContentType(contentHTML)
	ctx.SetBody(buf.Bytes())
}

func (s *APIServer) handleUnknown(ctx *fasthttp.RequestCtx) {
	metrics.UnknownRoutes.Inc()
	s.requestLogger(ctx).Info("unknown route accessed",
		"method", string(ctx.Method()),
		"path", string(ctx.Path()),
		"user_agent", string(ctx.UserAgent()),
	)
	redirect(ctx, "/", http.StatusTemporaryRedirect)
}
