package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"gatemaster/internal/app"
	"gatemaster/internal/config"
	"gatemaster/internal/infra/api"
	"gatemaster/internal/infra/file"
	"gatemaster/internal/infra/memory"
	redisstore "gatemaster/internal/infra/redis"
	"gatemaster/internal/logger"
	"gatemaster/internal/render"
	"gatemaster/internal/shell"
	"gatemaster/internal/validator"
)

// deps is everything a command needs, built once per invocation.
type deps struct {
	cfg      config.Config
	log      zerolog.Logger
	session  *app.AuthSession
	gateway  *api.Gateway
	catalog  *app.CatalogService
	shell    *shell.Shell
	validate *validator.Validator
	render   *render.Renderer
	in       *bufio.Reader
	tty      *os.File // stdin when it is a terminal
	out      io.Writer

	closers []func() error
}

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func buildDeps(ctx context.Context, opts *options, s streams) (*deps, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.apiURL != "" {
		cfg.API.BaseURL = opts.apiURL
	}
	level := cfg.Log.Level
	if opts.verbose {
		level = "debug"
	}
	log := logger.Setup(level, cfg.Log.Format, s.err)

	d := &deps{
		cfg:      cfg,
		log:      log,
		shell:    shell.New(shell.DefaultRoutes),
		validate: validator.New(),
		in:       bufio.NewReader(s.in),
		out:      s.out,
	}
	if f, ok := s.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		d.tty = f
	}

	cacheTTL := config.Duration(cfg.Cache.TTL, 5*time.Minute)
	var (
		store app.TokenStorage
		cache app.ViewCache
	)
	switch cfg.Session.Store {
	case "redis":
		client, err := redisstore.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, client.Close)
		store = redisstore.NewTokenStore(client, cfg.Redis.KeyPrefix)
		cache = redisstore.NewViewCache(client, cfg.Redis.KeyPrefix, cacheTTL)
	case "memory":
		store = memory.NewTokenStore()
		cache = memory.NewViewCache(cacheTTL)
	default:
		store = file.NewTokenStore(cfg.Session.Path)
		cache = memory.NewViewCache(cacheTTL)
	}

	// The gateway reads the token from the session, which needs the gateway
	// as its token API.
	d.gateway = api.NewGateway(cfg.API.BaseURL, config.Duration(cfg.API.Timeout, 15*time.Second),
		api.TokenFunc(func() string { return d.session.AccessToken() }), log)
	d.session = app.NewAuthSession(store, d.gateway, log,
		config.Duration(cfg.Session.RefreshInterval, app.DefaultRefreshInterval))
	d.catalog = app.NewCatalogService(d.gateway, cache)

	log.Debug().
		Str("api", cfg.API.BaseURL).
		Str("store", cfg.Session.Store).
		Msg("dependencies ready")
	return d, nil
}

// start restores the session; protected routes also run the initial refresh.
func (d *deps) start(ctx context.Context, protected bool) error {
	var err error
	if protected {
		err = d.session.Init(ctx)
	} else {
		err = d.session.Restore(ctx)
	}
	if err != nil {
		return err
	}
	colour := false
	if f, ok := d.out.(*os.File); ok {
		colour = render.ColorEnabled(f)
	}
	d.render = render.New(d.out, d.session.Theme(), colour)
	return nil
}

func (d *deps) close() {
	for _, c := range d.closers {
		if err := c(); err != nil {
			d.log.Debug().Err(err).Msg("close")
		}
	}
}
