package api

import (
	crand "crypto/rand"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/OdyseeTeam/gondola/admin"
	"github.com/OdyseeTeam/gondola/catalog"
	"github.com/OdyseeTeam/gondola/internal/metrics"
	"github.com/OdyseeTeam/gondola/listing"
	"github.com/OdyseeTeam/gondola/pages"
	"github.com/OdyseeTeam/gondola/pkg/logging"
	"github.com/OdyseeTeam/gondola/pkg/timer"
	"github.com/OdyseeTeam/gondola/playback"

	"github.com/fasthttp/router"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	filesPrefix = "/files"
	robotsPath  = filesPrefix + "/misc/robots.txt"
	faviconPath = filesPrefix + "/favicon/128.png"
)

// APIServer ties HTTP routes together and allows to start/shutdown the web server.
type APIServer struct {
	*Configuration
	httpServer *fasthttp.Server
	files      fasthttp.RequestHandler
}

type Configuration struct {
	debug        bool
	addr         string
	filesPath    string
	defaultVideo string

	catalog  *catalog.Catalog
	picker   *playback.Picker
	renderer *pages.Renderer
	listing  *listing.Cache
	state    *admin.State
	shell    *admin.Shell
	log      logging.KVLogger
}

func Configure() *Configuration {
	return &Configuration{
		addr:         "127.0.0.1:50801",
		filesPath:    "files",
		defaultVideo: "FrontPage.webm",
		picker:       playback.NewPicker(),
		state:        admin.NewState(),
		log:          logging.NoopKVLogger{},
	}
}

func (c *Configuration) Debug(debug bool) *Configuration {
	c.debug = debug
	return c
}

func (c *Configuration) Addr(addr string) *Configuration {
	c.addr = addr
	return c
}

// FilesPath is the directory served under /files.
func (c *Configuration) FilesPath(p string) *Configuration {
	c.filesPath = p
	return c
}

// DefaultVideo is the id / redirects to.
func (c *Configuration) DefaultVideo(id string) *Configuration {
	c.defaultVideo = id
	return c
}

func (c *Configuration) Catalog(cat *catalog.Catalog) *Configuration {
	c.catalog = cat
	return c
}

func (c *Configuration) Picker(p *playback.Picker) *Configuration {
	c.picker = p
	return c
}

func (c *Configuration) Renderer(r *pages.Renderer) *Configuration {
	c.renderer = r
	return c
}

func (c *Configuration) Listing(l *listing.Cache) *Configuration {
	c.listing = l
	return c
}

func (c *Configuration) State(s *admin.State) *Configuration {
	c.state = s
	return c
}

func (c *Configuration) Shell(s *admin.Shell) *Configuration {
	c.shell = s
	return c
}

func (c *Configuration) Log(l logging.KVLogger) *Configuration {
	c.log = l
	return c
}

func NewServer(cfg *Configuration) *APIServer {
	r := router.New()
	s := &APIServer{
		Configuration: cfg,
		httpServer: &fasthttp.Server{
			Name:    "gondola",
			Handler: metricsMiddleware(traversalMiddleware(requestLogMiddleware(r.Handler, cfg.log), cfg.log)),
		},
	}
	fs := &fasthttp.FS{
		Root:        cfg.filesPath,
		PathRewrite: fasthttp.NewPathSlashesStripper(1),
		PathNotFound: func(ctx *fasthttp.RequestCtx) {
			cfg.log.Warn("request for non-existent file", "path", string(ctx.Path()))
			ctx.Error(fasthttp.StatusMessage(http.StatusNotFound), http.StatusNotFound)
		},
	}
	s.files = fs.NewRequestHandler()

	r.GET("/", s.handleIndex)
	r.GET("/random", s.handleRandom)
	r.GET("/random-raw", s.handleRandomRaw)
	r.GET("/next/{previous}", s.handleNext)
	r.GET("/list", s.handleList)
	r.GET(filesPrefix+"/{filepath:*}", s.handleFiles)
	r.GET("/robots.txt", permanentRedirect(robotsPath))
	r.GET("/favicon.ico", permanentRedirect(faviconPath))
	r.GET("/shell", s.handleShell)
	r.POST("/shell", s.handleShell)
	r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))
	r.GET("/{name}", s.handleVideo)
	r.NotFound = s.handleUnknown
	r.HandleMethodNotAllowed = false

	if !s.debug {
		r.PanicHandler = s.handlePanic
	}
	return s
}

func (s *APIServer) Handler() fasthttp.RequestHandler {
	return s.httpServer.Handler
}

func (s *APIServer) Addr() string {
	return s.addr
}

func (s *APIServer) URL() string {
	return "http://" + s.addr
}

func (s *APIServer) Start() error {
	s.log.Info("listening", "bind", s.addr, "files_path", s.filesPath, "debug", s.debug)
	return s.httpServer.ListenAndServe(s.addr)
}

func (s *APIServer) Shutdown() error {
	s.log.Info("shutting down...")
	return s.httpServer.Shutdown()
}

func (s *APIServer) handlePanic(ctx *fasthttp.RequestCtx, p interface{}) {
	ctx.SetStatusCode(http.StatusInternalServerError)
	s.log.Error("panicked", "url", ctx.Request.URI().String(), "panic", p)
}

func metricsMiddleware(h fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		t := timer.Start()
		h(ctx)
		metrics.HTTPRequests.WithLabelValues(fmt.Sprintf("%v", ctx.Response.StatusCode())).Observe(t.Duration())
	}
}

// requestLogMiddleware tags every request with a ULID reference, available to
// handlers through requestLogger.
func requestLogMiddleware(h fasthttp.RequestHandler, log logging.KVLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ref := ulid.MustNew(ulid.Timestamp(time.Now()), crand.Reader).String()
		ll := logging.AddLogRef(log, ref)
		ctx.SetUserValue(logCtxField, ll)
		t := timer.Start()
		h(ctx)
		ll.Debug("request served",
			"method", string(ctx.Method()),
			"path", string(ctx.Path()),
			"status", ctx.Response.StatusCode(),
			"duration", t.String(),
		)
	}
}

// traversalMiddleware rejects any request whose raw path climbs up a directory,
// before routing normalizes it away and before any file is opened.
func traversalMiddleware(h fasthttp.RequestHandler, log logging.KVLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if hasParentSegment(string(ctx.URI().PathOriginal())) {
			log.Warn("path traversal attempt", "path", string(ctx.URI().PathOriginal()))
			ctx.Error(fasthttp.StatusMessage(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h(ctx)
	}
}

func hasParentSegment(p string) bool {
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}
