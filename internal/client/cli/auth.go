package cli

import (
	"context"
	"os"

	"github.com/dmitrijs2005/todokeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Signup prompts for a name, email and password and attempts to create a
// new account. On success the session switches to the new user straight
// away. A taken email is reported to the user, not returned as an error.
//
// The password buffer is wiped before returning; the literal password still
// ends up in the local store, which is the documented storage format.
func (a *App) Signup(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", os.Stdout)
	if err != nil {
		return err
	}

	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if !a.session.Signup(ctx, name, email, string(password)) {
		printlnFn("An account with this email already exists.")
		return nil
	}

	printlnFn("Welcome, " + name + "!")
	return nil
}

// Login prompts for credentials and tries to authenticate. Failure is
// reported with a single generic message: whether the email was unknown or
// the password wrong is deliberately not revealed.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if !a.session.Login(ctx, email, string(password)) {
		printlnFn("Invalid email or password.")
		return nil
	}

	printlnFn("Welcome back, " + a.session.Current().Name + "!")
	return nil
}

// Logout clears the session. The todos stay in the local store and show up
// again on the next login.
func (a *App) Logout(ctx context.Context) error {
	a.session.Logout(ctx)
	printlnFn("Logged out.")
	return nil
}
