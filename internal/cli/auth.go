package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/meditrack/internal/common"
)

// Register creates an account and logs straight into it.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter your name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, "Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if _, err := a.users.Register(ctx, name, email, string(password)); err != nil {
		return err
	}
	res, err := a.users.Login(ctx, email, string(password))
	if err != nil {
		return err
	}
	a.meds.SetSession(ctx, res.User.Email, res.Token)

	fmt.Fprintf(a.out, "Welcome, %s!\n", res.User.Name)
	return nil
}

// Login prompts for credentials and makes the account the current session.
// The password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, "Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.users.Login(ctx, email, string(password))
	if err != nil {
		return err
	}
	a.meds.SetSession(ctx, res.User.Email, res.Token)

	fmt.Fprintf(a.out, "Logged in as %s\n", res.User.Email)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	a.meds.ClearSession(ctx)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) WhoAmI(_ context.Context) error {
	if s := a.meds.Session(); s.Active() {
		fmt.Fprintln(a.out, s.Email)
	} else {
		fmt.Fprintln(a.out, "Not logged in")
	}
	return nil
}

// Recover looks the account up by email and sets a new password.
func (a *App) Recover(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter the email of your account", a.out)
	if err != nil {
		return err
	}
	u, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Account found for %s\n", u.Name)

	password, err := getPassword(a.reader, "Enter new password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.users.ResetPassword(ctx, u.Email, string(password)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password updated, you can log in now")
	return nil
}
