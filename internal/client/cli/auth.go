package cli

import (
	"context"

	"github.com/dmitrijs2005/permitsync/internal/client/models"
	"github.com/dmitrijs2005/permitsync/internal/common"
)

// getSimpleText and getPassword are indirections so tests can script input.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

// Register prompts for the account fields and creates the account online.
// Registration is never queued.
func (a *App) Register(ctx context.Context) error {
	email, err := GetRequiredText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	first, err := getSimpleText(a.reader, "First name", a.out)
	if err != nil {
		return err
	}
	last, err := getSimpleText(a.reader, "Last name", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.service.Register(ctx, models.RegisterInput{
		Email:     email,
		Password:  string(password),
		FirstName: first,
		LastName:  last,
	})
	if err != nil {
		return a.report(err)
	}

	a.println("Welcome,", u.DisplayName())
	return a.report(nil)
}

// Login authenticates against the server. When the server is unreachable the
// facade falls back to the cached account for the same email.
func (a *App) Login(ctx context.Context) error {
	email, err := GetRequiredText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, outcome, err := a.service.Login(ctx, email, string(password))
	if err != nil {
		a.log.Info(ctx, "login unsuccessful", "email", email, "err", err)
		return a.report(err)
	}

	a.log.Info(ctx, "login successful", "user", u.ID, "outcome", outcome)
	a.println("Signed in as", u.DisplayName(), "("+outcome.String()+")")
	return a.report(nil)
}

// Logout clears the cached session, data and queue.
func (a *App) Logout(ctx context.Context) error {
	if err := a.service.Logout(ctx); err != nil {
		return a.report(err)
	}
	a.println("Signed out.")
	return nil
}
