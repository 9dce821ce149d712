package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/meditrack/internal/common"
	"github.com/dmitrijs2005/meditrack/internal/logging"
	"github.com/dmitrijs2005/meditrack/internal/models"
	"github.com/dmitrijs2005/meditrack/internal/notify"
	"github.com/dmitrijs2005/meditrack/internal/services"
)

// MedicationService is the controller surface the CLI uses.
type MedicationService interface {
	Initialize(ctx context.Context) error
	Session() models.Session
	SetSession(ctx context.Context, email, token string)
	ClearSession(ctx context.Context)
	List(ctx context.Context) ([]models.Medication, error)
	Create(ctx context.Context, in services.MedicationInput) (models.Medication, error)
	Edit(ctx context.Context, id int64, in services.MedicationInput) error
	Delete(ctx context.Context, id int64) error
	AddListener(l notify.Listener) notify.ListenerID
	RemoveListener(id notify.ListenerID)
}

// UserService is the account surface the CLI uses.
type UserService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ResetPassword(ctx context.Context, email, newPassword string) error
	VerifyToken(token string) (string, error)
}

// getSimpleText, getPassword and getOptionalText are indirections used to
// facilitate testing.
var (
	getSimpleText   = GetSimpleText
	getPassword     = GetPassword
	getOptionalText = GetOptionalText
)

type App struct {
	meds   MedicationService
	users  UserService
	logger logging.Logger
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(meds MedicationService, users UserService, in io.Reader, out io.Writer, logger logging.Logger) *App {
	return &App{
		meds:   meds,
		users:  users,
		logger: logger.With("component", "cli"),
		reader: bufio.NewReader(in),
		out:    out,
	}
}

func (a *App) isLoggedIn() bool {
	return a.meds.Session().Active()
}

func (a *App) status() string {
	if s := a.meds.Session(); s.Active() {
		return s.Email
	}
	return "guest"
}

// restoreSession drops a persisted session whose token no longer verifies.
func (a *App) restoreSession(ctx context.Context) {
	s := a.meds.Session()
	if !s.Active() {
		return
	}
	email, err := a.users.VerifyToken(s.Token)
	if err == nil && email == s.Email {
		printlnFn("Logged in as", s.Email)
		return
	}
	a.logger.Info(ctx, "dropping persisted session", "email", s.Email, "err", err)
	a.meds.ClearSession(ctx)
	printlnFn("Your session has expired, please log in again.")
}

func (a *App) onChange(_ context.Context, e notify.Event) {
	fmt.Fprintf(a.out, "* medication #%d %s\n", e.MedicationID, e.Kind)
}

// Run initializes storage, restores the session and serves the REPL until
// the user exits or input ends.
func (a *App) Run(ctx context.Context) error {
	if err := a.meds.Initialize(ctx); err != nil {
		return err
	}
	a.restoreSession(ctx)

	id := a.meds.AddListener(a.onChange)
	defer a.meds.RemoveListener(id)

	printlnFn("Welcome to MediTrack (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader)
	return nil
}

// describe turns service errors into messages for the user.
func describe(err error) string {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, common.ErrPermissionDenied):
		return "you do not have permission to change this medication"
	case errors.Is(err, common.ErrNotFound):
		return "not found"
	case errors.Is(err, common.ErrAlreadyExists):
		return "an account with this email already exists"
	case errors.Is(err, common.ErrUnauthorized):
		return "invalid email or password"
	case errors.Is(err, common.ErrBackendUnavailable):
		return "storage is unavailable, try again later"
	default:
		return err.Error()
	}
}
