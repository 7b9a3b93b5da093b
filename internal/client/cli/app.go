package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/boilerbudget/internal/client/client"
	"github.com/dmitrijs2005/boilerbudget/internal/client/config"
	"github.com/dmitrijs2005/boilerbudget/internal/client/gate"
	"github.com/dmitrijs2005/boilerbudget/internal/client/identity"
	"github.com/dmitrijs2005/boilerbudget/internal/client/onboarding"
	"github.com/dmitrijs2005/boilerbudget/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/boilerbudget/internal/client/services"
	"github.com/dmitrijs2005/boilerbudget/internal/client/session"
	"github.com/dmitrijs2005/boilerbudget/internal/filex"
	"github.com/dmitrijs2005/boilerbudget/internal/logging"
	"github.com/dmitrijs2005/boilerbudget/internal/models"
	"github.com/dmitrijs2005/boilerbudget/internal/telemetry"
)

type Mode string

const (
	ModeUnknown Mode = ""
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Session is the part of session.Controller the screens drive.
type Session interface {
	Start(ctx context.Context)
	State() session.State
	SignIn(ctx context.Context) error
	SignOut(ctx context.Context) error
	RefreshProfile(ctx context.Context) error
}

// Accounts is the part of identity.Provider the app uses directly.
type Accounts interface {
	Restore(ctx context.Context) error
	Register(ctx context.Context) error
	Reload(ctx context.Context) error
}

// ProfileWriter writes onboarding answers and profile edits.
type ProfileWriter interface {
	onboarding.Writer
	UpdateProfile(ctx context.Context, id *models.Identity, u models.ProfileUpdate) error
}

// Backend is the part of client.Client used outside the session.
type Backend interface {
	Ping(ctx context.Context) error
	AvatarUploadURL(ctx context.Context) (string, string, error)
}

var (
	_ Session  = (*session.Controller)(nil)
	_ Accounts = (*identity.Provider)(nil)
	_ Backend  = (*client.GRPCClient)(nil)
)

type App struct {
	session  Session
	router   *gate.Router
	accounts Accounts
	writer   ProfileWriter
	backend  Backend
	console  *Console
	logger   logging.Logger
	http     *http.Client
	now      func() time.Time

	onlineCheckInterval time.Duration
	requestTimeout      time.Duration
	closers             []func(context.Context) error

	mu   sync.Mutex
	mode Mode

	wizard     *onboarding.Wizard
	lastRender string
}

// NewApp wires the client: local database, gRPC backend, identity
// provider, session controller and router. The app reads commands from in
// and writes screens to out.
func NewApp(ctx context.Context, c *config.Config, in io.Reader, out io.Writer) (*App, error) {
	a := &App{
		console:             NewConsole(in, out),
		http:                &http.Client{Timeout: c.RequestTimeout},
		now:                 time.Now,
		onlineCheckInterval: c.OnlineCheckInterval,
		requestTimeout:      c.RequestTimeout,
	}

	logOut := io.Writer(os.Stderr)
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		logOut = f
		a.closers = append(a.closers, func(context.Context) error { return f.Close() })
	}
	a.logger = logging.New(logOut, logging.FormatText, c.LogLevel).With("app", "client")

	shutdownTraces, err := telemetry.Setup(ctx, "boilerbudget-client", c.OTelEndpoint)
	if err != nil {
		a.logger.Warn(ctx, "tracing disabled", "error", err)
	} else {
		a.closers = append(a.closers, shutdownTraces)
	}

	if err := filex.EnsureParentDir(c.DatabasePath); err != nil {
		return nil, err
	}
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		a.logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })

	api, err := client.NewGRPCClient(c.ServerEndpointAddr, client.WithRequestTimeout(c.RequestTimeout))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return api.Close() })

	provider := identity.NewProvider(api, metadata.NewSQLiteRepository(db), a.console, a.logger)
	api.SetTokenListener(provider.PersistTokens)

	ctrl, err := session.NewController(provider, api,
		session.WithLogger(a.logger),
		session.WithFetchTimeout(c.RequestTimeout),
	)
	if err != nil {
		return nil, err
	}

	a.session = ctrl
	a.accounts = provider
	a.backend = api
	a.writer = services.NewProfileWriter(api, a.logger)
	a.router = gate.NewRouter(ctrl, gate.RouteDashboard, a.logger)
	return a, nil
}

// Run restores the stored session and serves commands until the user
// quits, the input ends or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.close()

	a.session.Start(ctx)
	a.router.Start(ctx)

	if err := a.accounts.Restore(ctx); err != nil {
		a.logger.Warn(ctx, "restoring session", "error", err)
		a.console.Println(warnStyle.Render("The server is unreachable and there is no saved session on this device."))
	}

	if a.onlineCheckInterval > 0 {
		go a.StartOnlineStatusWatcher(ctx, a.onlineCheckInterval)
	}

	a.console.Println(titleStyle.Render("BoilerBudget") + " (type 'help' for commands)")
	return a.repl(ctx)
}

func (a *App) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn(ctx, "shutdown", "error", err)
		}
	}
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(ctx, "connectivity changed", "mode", string(mode))
	}
}

// checkOnline pings the backend once and records the result.
func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.backend.Ping(ctx); err != nil {
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}

// StartOnlineStatusWatcher pings the backend every interval until ctx is
// done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}
