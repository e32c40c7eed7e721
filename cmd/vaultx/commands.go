package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Anish-ai/vaultx"
	"github.com/Anish-ai/vaultx/client"
	"github.com/Anish-ai/vaultx/config"
	"golang.org/x/term"
)

var errAbandoned = errors.New("verification abandoned")

type app struct {
	sessions   vaultx.SessionStore
	api        *client.Client
	controller *vaultx.Controller
	onboarding *vaultx.Onboarding

	// stdin is the raw input; passwords are read from it without echo when
	// it is a terminal
	stdin io.Reader
	in    *bufio.Reader
	out   io.Writer
}

func newApp(cfg *config.Config, logger *slog.Logger, in io.Reader, out io.Writer) (*app, error) {
	sessions, err := openSessions(cfg)
	if err != nil {
		return nil, err
	}
	api := newAPIClient(cfg, sessions, logger)
	return &app{
		sessions:   sessions,
		api:        api,
		controller: vaultx.NewController(api, sessions, vaultx.WithLogger(logger)),
		onboarding: vaultx.NewOnboarding(api, sessions, logger),
		stdin:      in,
		in:         bufio.NewReader(in),
		out:        out,
	}, nil
}

func (a *app) run(ctx context.Context, command string) error {
	switch command {
	case "signup":
		return a.signup(ctx)
	case "login":
		return a.login(ctx)
	case "profile":
		return a.profile(ctx)
	case "forgot-password":
		return a.forgotPassword(ctx)
	case "status":
		return a.status(ctx)
	case "logout":
		return a.logout()
	}
	return fmt.Errorf("unknown command %q", command)
}

func (a *app) signup(ctx context.Context) error {
	email, err := a.prompt("Email: ")
	if err != nil {
		return err
	}
	password, err := a.promptPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := a.promptPassword("Confirm password: ")
	if err != nil {
		return err
	}

	if err := a.controller.BeginSignup(ctx, email, password, confirm); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Account created. Check your email for a verification code.")

	if err := a.verify(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Email verified.")

	if a.controller.Next() != vaultx.NextCompleteProfile {
		return nil
	}
	answer, err := a.prompt("Complete your profile now? [Y/n] ")
	if err != nil {
		return err
	}
	if strings.EqualFold(answer, "n") || strings.EqualFold(answer, "no") {
		fmt.Fprintln(a.out, "Run 'vaultx profile' to finish later.")
		return nil
	}
	return a.profile(ctx)
}

func (a *app) login(ctx context.Context) error {
	email, err := a.prompt("Email: ")
	if err != nil {
		return err
	}
	password, err := a.promptPassword("Password: ")
	if err != nil {
		return err
	}

	if err := a.controller.BeginLogin(ctx, email, password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "A verification code has been sent to your email.")

	if err := a.verify(ctx); err != nil {
		return err
	}

	session := a.controller.Session()
	if session != nil && session.User != nil {
		fmt.Fprintf(a.out, "Logged in as %s.\n", displayName(session.User))
	} else {
		fmt.Fprintln(a.out, "Logged in.")
	}
	return nil
}

// verify reads codes until one is accepted. "r" resends, "q" gives up.
func (a *app) verify(ctx context.Context) error {
	pending := a.controller.Pending()
	if pending == nil {
		return errors.New("no verification in progress")
	}

	for {
		line, err := a.prompt(fmt.Sprintf("Code sent to %s (r: resend, q: quit): ", pending.Email))
		if err != nil {
			return err
		}

		switch strings.ToLower(line) {
		case "q":
			a.controller.Reset()
			return errAbandoned
		case "r":
			if err := a.controller.ResendOTP(ctx); err != nil {
				a.report(err)
			} else {
				fmt.Fprintln(a.out, "A new code has been sent.")
			}
			continue
		}

		if !a.controller.Paste(line) {
			fmt.Fprintln(a.out, "Please enter a valid 6-digit code.")
			continue
		}
		if err := a.controller.SubmitOTP(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			a.report(err)
			continue
		}
		return nil
	}
}

func (a *app) profile(ctx context.Context) error {
	var form vaultx.ProfileForm
	fields := []struct {
		label string
		dst   *string
	}{
		{"Full name: ", &form.Name},
		{"Phone: ", &form.Phone},
		{"Address: ", &form.Address},
		{"Date of birth (YYYY-MM-DD): ", &form.DateOfBirth},
		{fmt.Sprintf("Account type [%s]: ", vaultx.DefaultAccountType), &form.AccountType},
		{"Initial balance: ", &form.InitialBalance},
		{fmt.Sprintf("Currency [%s]: ", vaultx.DefaultCurrency), &form.Currency},
	}
	for _, f := range fields {
		v, err := a.prompt(f.label)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	_, account, err := a.onboarding.CompleteProfile(ctx, form)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Profile and account created.")
	if account != nil && account.AccountNumber != "" {
		fmt.Fprintf(a.out, "Account %s (%s) opened with %.2f %s.\n",
			account.AccountNumber, account.Type, account.Balance, account.Currency)
	}
	return nil
}

func (a *app) forgotPassword(ctx context.Context) error {
	email, err := a.prompt("Email: ")
	if err != nil {
		return err
	}
	if err := a.controller.ForgotPassword(ctx, email); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Check your email for a link to reset your password.")
	return nil
}

func (a *app) status(ctx context.Context) error {
	session, err := a.api.CheckSession(ctx)
	switch {
	case errors.Is(err, vaultx.ErrNoSession):
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	case errors.Is(err, vaultx.ErrSessionExpired):
		fmt.Fprintln(a.out, "Session expired. Please log in again.")
		return nil
	case err != nil:
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s.\n", displayName(session.User))
	if !session.ExpiresAt.IsZero() {
		fmt.Fprintf(a.out, "Session expires %s.\n", session.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func (a *app) logout() error {
	if err := a.controller.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a line without echo on a terminal. Piped input goes
// through prompt.
func (a *app) promptPassword(label string) (string, error) {
	f, ok := a.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return a.prompt(label)
	}
	fmt.Fprint(a.out, label)
	password, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(a.out)
	if err != nil {
		return "", err
	}
	return string(password), nil
}

func (a *app) report(err error) {
	var herr *vaultx.HandshakeError
	if errors.As(err, &herr) {
		fmt.Fprintln(a.out, herr.Error())
		return
	}
	fmt.Fprintln(a.out, "Error:", err)
}

func displayName(user *vaultx.UserProfile) string {
	if user == nil {
		return "unknown user"
	}
	if user.Name != "" {
		return fmt.Sprintf("%s <%s>", user.Name, user.Email)
	}
	return user.Email
}
