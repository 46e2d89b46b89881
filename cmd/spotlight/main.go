// cmd/spotlight is the terminal client for the Spotlight API.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Shivanand-hulikatti/spotlight/internal/app"
	"github.com/Shivanand-hulikatti/spotlight/internal/client"
	"github.com/Shivanand-hulikatti/spotlight/internal/config"
	"github.com/Shivanand-hulikatti/spotlight/internal/model"
	"github.com/Shivanand-hulikatti/spotlight/internal/normalize"
	"github.com/Shivanand-hulikatti/spotlight/internal/render"
	"github.com/Shivanand-hulikatti/spotlight/internal/search"
)

const usage = `Usage: spotlight <command> [flags]

Commands:
  events     list events (-q, -type, -genre, -sort, -city, -state, -from, -to)
  submit     submit an event (see spotlight submit -h)
  register   create an account and sign in
  login      sign in
  logout     sign out
  whoami     show the signed-in user
  mine       list your events with totals
  delete ID  delete one of your events
`

type cli struct {
	api  *client.Client
	ctrl *app.Controller
	in   *bufio.Reader
	out  io.Writer
}

type command func(ctx context.Context, c *cli, args []string) error

var commands = map[string]command{
	"events":   runEvents,
	"submit":   runSubmit,
	"register": runRegister,
	"login":    runLogin,
	"logout":   runLogout,
	"whoami":   runWhoami,
	"mine":     runMine,
	"delete":   runDelete,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	sessionFile := cfg.Client.SessionFile
	if sessionFile == "" {
		sessionFile = client.DefaultSessionFile()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.New(cfg.Client.APIURL, cfg.Client.Timeout, client.FileTokens{Path: sessionFile})
	if err := api.Restore(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not restore session: %v\n", err)
	}
	ctrl := app.NewController(api, api)
	defer ctrl.Close()

	c := &cli{api: api, ctrl: ctrl, in: bufio.NewReader(os.Stdin), out: os.Stdout}
	err = cmd(ctx, c, os.Args[2:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", describe(err))
		stop()
		os.Exit(1)
	}
}

// describe turns an error into the message shown to the user.
func describe(err error) string {
	var verr *normalize.ValidationError
	var apiErr *client.APIError
	switch {
	case errors.As(err, &verr):
		return "\n  " + strings.Join(verr.Errors, "\n  ")
	case errors.Is(err, model.ErrUnauthenticated):
		return "not signed in; run: spotlight login"
	case errors.As(err, &apiErr):
		return apiErr.Message
	default:
		return err.Error()
	}
}

func (c *cli) prompt(label string) (string, error) {
	fmt.Fprint(c.out, label)
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func runEvents(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	term := fs.String("q", "", "search name, city, state, genre and description")
	typ := fs.String("type", "", "exact event type")
	genre := fs.String("genre", "", "exact genre")
	sortBy := fs.String("sort", "date", "date, name or city")
	city := fs.String("city", "", "city contains")
	state := fs.String("state", "", "state contains")
	from := fs.String("from", "", "earliest date (YYYY-MM-DD)")
	to := fs.String("to", "", "latest date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	err := c.ctrl.Load(ctx, model.ListFilter{City: *city, State: *state, DateFrom: *from, DateTo: *to})
	if err != nil {
		return err
	}
	found := c.ctrl.Search(search.Criteria{Term: *term, Type: *typ, Genre: *genre, Sort: search.ParseSortKey(*sortBy)})
	if err := render.Text(c.out, render.Cards(found), render.StateOf(true, len(found))); err != nil {
		return err
	}
	if len(found) > 0 {
		fmt.Fprintf(c.out, "\n%d event(s)\n", len(found))
	}
	return nil
}

func runSubmit(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fields := []struct{ key, flag, help string }{
		{model.FieldName, "name", "event name"},
		{model.FieldVenueName, "venue", "venue name"},
		{model.FieldCity, "city", "city"},
		{model.FieldState, "state", "state"},
		{model.FieldDate, "date", "date (YYYY-MM-DD)"},
		{model.FieldTime, "time", "start time (HH:MM)"},
		{model.FieldType, "type", strings.Join(model.EventTypes, ", ")},
		{model.FieldGenre, "genre", "genre"},
		{model.FieldDescription, "description", "description"},
		{model.FieldContactEmail, "email", "contact email"},
		{model.FieldContactPhone, "phone", "contact phone"},
		{model.FieldWebsite, "website", "website (http:// or https://)"},
	}
	values := make(map[string]*string, len(fields))
	for _, f := range fields {
		values[f.key] = fs.String(f.flag, "", f.help)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	form := app.NewForm()
	for k, v := range values {
		form.Set(k, *v)
	}
	c.ctrl.OnPhase(func(p app.Phase) {
		if p == app.PhasePersisting {
			fmt.Fprintln(c.out, "Submitting...")
		}
	})

	out := c.ctrl.Submit(ctx, form)
	switch out.Phase {
	case app.PhaseSucceeded:
		fmt.Fprintf(c.out, "%s [%s]\n", form.Notice, out.Event.ID)
		return nil
	case app.PhaseRejected:
		return &normalize.ValidationError{Errors: form.Errors}
	case app.PhaseUnauthenticated:
		fmt.Fprintln(c.out, form.Notice)
		return model.ErrUnauthenticated
	case app.PhaseFailed:
		return errors.New(form.Notice)
	default:
		return out.Err
	}
}

func runRegister(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.fill(password, "Password: "); err != nil {
		return err
	}
	user, err := c.api.Register(ctx, *name, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Welcome, %s!\n", user.Name)
	return nil
}

func runLogin(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "email address (prompted when empty)")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.fill(email, "Email: "); err != nil {
		return err
	}
	if err := c.fill(password, "Password: "); err != nil {
		return err
	}
	user, err := c.api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Signed in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func (c *cli) fill(v *string, label string) error {
	if *v != "" {
		return nil
	}
	s, err := c.prompt(label)
	*v = s
	return err
}

func runLogout(ctx context.Context, c *cli, _ []string) error {
	if c.api.Current() == nil {
		fmt.Fprintln(c.out, "Not signed in.")
		return nil
	}
	if err := c.api.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Signed out.")
	return nil
}

func runWhoami(_ context.Context, c *cli, _ []string) error {
	u := c.ctrl.Snapshot().User
	if u == nil {
		fmt.Fprintln(c.out, "Not signed in.")
		return nil
	}
	fmt.Fprintf(c.out, "%s <%s>\n", u.Name, u.Email)
	return nil
}

func runMine(ctx context.Context, c *cli, _ []string) error {
	d, err := c.ctrl.Dashboard(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d total, %d upcoming\n\n", d.Total, d.Upcoming)
	if d.Total == 0 {
		fmt.Fprintln(c.out, "You have not submitted any events yet.")
		return nil
	}
	return render.Text(c.out, render.Cards(d.Events), render.Results)
}

func runDelete(ctx context.Context, c *cli, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: spotlight delete ID")
	}
	confirm := func(ev model.Event) bool {
		answer, err := c.prompt(fmt.Sprintf("Delete %q on %s? [y/N] ", ev.Name, render.FormatDate(ev.Date)))
		return err == nil && strings.EqualFold(answer, "y")
	}
	err := c.ctrl.DeleteOwn(ctx, args[0], confirm)
	switch {
	case errors.Is(err, app.ErrCancelled):
		fmt.Fprintln(c.out, "Cancelled.")
		return nil
	case errors.Is(err, model.ErrForbidden):
		return errors.New("you can only delete events you created")
	case errors.Is(err, model.ErrNotFound):
		return errors.New("event not found")
	case err != nil:
		return err
	}
	fmt.Fprintln(c.out, "Event deleted.")
	return nil
}
