package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/meditrack/internal/common"
	"github.com/dmitrijs2005/meditrack/internal/config"
	"github.com/dmitrijs2005/meditrack/internal/kv"
	"github.com/dmitrijs2005/meditrack/internal/logging"
	"github.com/dmitrijs2005/meditrack/internal/repositories/medications"
	"github.com/dmitrijs2005/meditrack/internal/repositories/users"
	"github.com/dmitrijs2005/meditrack/internal/services"
	"github.com/dmitrijs2005/meditrack/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	meds  *services.MedicationService
	users *services.UserService
	out   *bytes.Buffer
}

// newHarness wires real services over an in-memory store and routes all
// prompts and output into one buffer. Passwords are read from the input
// as if it were piped.
func newHarness(t *testing.T) *harness {
	t.Helper()

	oldTerm := isTerminal
	isTerminal = func(int) bool { return false }
	t.Cleanup(func() { isTerminal = oldTerm })

	store := kv.NewMemoryStore()
	repo := medications.NewRepository(storage.NewBlobBackend(store, logging.Nop()), logging.Nop())
	cfg := &config.Config{SecretKey: "k", SessionTTL: time.Hour}

	h := &harness{
		meds:  services.NewMedicationService(repo, store, logging.Nop()),
		users: services.NewUserService(users.NewBlobRepository(store), cfg, logging.Nop()),
		out:   &bytes.Buffer{},
	}

	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) { return fmt.Fprintln(h.out, a...) }
	t.Cleanup(func() { printlnFn = origPrint })
	return h
}

func (h *harness) run(t *testing.T, lines ...string) string {
	t.Helper()
	h.out.Reset()
	app := NewApp(h.meds, h.users, strings.NewReader(strings.Join(lines, "\n")+"\n"), h.out, logging.Nop())
	require.NoError(t, app.Run(context.Background()))
	return h.out.String()
}

func TestCLI_RegisterAddListLogout(t *testing.T) {
	h := newHarness(t)

	out := h.run(t,
		"register", "Ann", "a@x.com", "secret1",
		"add", "Paracetamol", "500 mg", "Every 8 hours", "08:00", "",
		"list",
		"whoami",
		"logout",
		"whoami",
		"exit",
	)

	assert.Contains(t, out, "Welcome, Ann!")
	assert.Contains(t, out, "* medication #1 created")
	assert.Contains(t, out, "Added #1 Paracetamol, 500 mg, Every 8 hours, from 08:00")
	assert.Contains(t, out, "meditrack (a@x.com)> ")
	assert.Contains(t, out, "Logged out")
	assert.Contains(t, out, "Not logged in")
	assert.False(t, h.meds.Session().Active())
}

func TestCLI_CrossTenantEditRejected(t *testing.T) {
	h := newHarness(t)

	h.run(t,
		"register", "Ann", "a@x.com", "secret1",
		"add", "Paracetamol", "500 mg", "Every 8 hours", "", "",
		"logout",
		"register", "Bob", "b@x.com", "secret2",
		"list",
		"exit",
	)

	out := h.run(t,
		"edit", "1", "Hacked", "1 g", "hourly", "", "",
		"delete", "#1",
		"exit",
	)
	assert.Contains(t, out, "Logged in as b@x.com")
	assert.Equal(t, 2, strings.Count(out, "Error: you do not have permission to change this medication"))

	h.meds.SetSession(context.Background(), "a@x.com", "")
	list, err := h.meds.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Paracetamol", list[0].Name)
}

func TestCLI_EditKeepsDefaults(t *testing.T) {
	h := newHarness(t)

	out := h.run(t,
		"register", "Ann", "a@x.com", "secret1",
		"add", "Paracetamol", "500 mg", "Every 8 hours", "", "",
		"edit", "1", "", "1 g", "", "", "with water",
		"list",
		"exit",
	)

	assert.Contains(t, out, "Updated #1")
	assert.Contains(t, out, "#1 Paracetamol, 1 g, Every 8 hours (with water)")
	assert.Contains(t, out, "* medication #1 updated")
}

func TestCLI_ValidationAndBadInput(t *testing.T) {
	h := newHarness(t)

	out := h.run(t,
		"add", "", "500 mg", "daily", "", "",
		"delete", "abc",
		"delete", "99",
		"list",
		"exit",
	)

	assert.Contains(t, out, "Error: validation: name: is required")
	assert.Contains(t, out, `Error: invalid id "abc"`)
	assert.Contains(t, out, "Error: not found")
	assert.Contains(t, out, "No medications yet")
}

func TestCLI_LoginFailureAndRecover(t *testing.T) {
	h := newHarness(t)
	_, err := h.users.Register(context.Background(), "Ann", "a@x.com", "secret1")
	require.NoError(t, err)

	out := h.run(t,
		"login", "a@x.com", "wrong-pass",
		"recover", "nobody@x.com",
		"recover", "A@x.com", "brand-new",
		"login", "a@x.com", "brand-new",
		"exit",
	)

	assert.Contains(t, out, "Error: invalid email or password")
	assert.Contains(t, out, "Error: not found")
	assert.Contains(t, out, "Account found for Ann")
	assert.Contains(t, out, "Password updated")
	assert.Contains(t, out, "Logged in as a@x.com")
	assert.Equal(t, "a@x.com", h.meds.Session().Email)
}

func TestCLI_DuplicateRegistration(t *testing.T) {
	h := newHarness(t)
	_, err := h.users.Register(context.Background(), "Ann", "a@x.com", "secret1")
	require.NoError(t, err)

	out := h.run(t, "register", "Other", "a@x.com", "secret2", "exit")
	assert.Contains(t, out, "Error: an account with this email already exists")
	assert.False(t, h.meds.Session().Active())
}

func TestCLI_ExpiredSessionIsDropped(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.meds.Initialize(context.Background()))
	h.meds.SetSession(context.Background(), "a@x.com", "not-a-token")

	out := h.run(t, "whoami", "exit")
	assert.Contains(t, out, "Your session has expired")
	assert.Contains(t, out, "Not logged in")
	assert.False(t, h.meds.Session().Active())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "validation: name: is required", describe(common.NewValidationError("name", "is required")))
	assert.Equal(t, "storage is unavailable, try again later", describe(fmt.Errorf("x: %w", common.ErrBackendUnavailable)))
	assert.Equal(t, "boom", describe(fmt.Errorf("boom")))
}
