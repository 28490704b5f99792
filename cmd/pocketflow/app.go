package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"pocketflow/internal/cli"
	"pocketflow/internal/client"
	"pocketflow/internal/config"
	"pocketflow/internal/core"
	"pocketflow/internal/dashboard"
	"pocketflow/internal/log"
)

type app struct {
	cfg    *config.Config
	logger *log.Logger
	in     *bufio.Reader
	out    io.Writer
}

func newApp(in io.Reader, out io.Writer) (*app, error) {
	cli.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	lc := log.DefaultConfig()
	lc.Level = log.ParseLevel(cfg.LogLevel)
	lc.Format = cfg.LogFormat
	lc.Component = log.ComponentClient
	lc.Output = os.Stderr
	return &app{cfg: cfg, logger: log.New(lc), in: bufio.NewReader(in), out: out}, nil
}

func (a *app) registry() *CommandRegistry {
	r := NewCommandRegistry(a.out)
	r.Register(&Command{
		Name:        "list",
		Description: "Show your records and the balance",
		Usage:       "pocketflow list [--user ID]",
		Run:         a.runList,
	})
	r.Register(&Command{
		Name:        "add",
		Description: "Add a record",
		Usage:       "pocketflow add [--user ID] --desc TEXT --amount N --category C --payment P [--date YYYY-MM-DD]",
		Examples: []string{
			`pocketflow add --desc Paycheck --amount 100 --category Salary --payment "Bank Transfer"`,
			`pocketflow add --desc Groceries --amount -20,50 --category Food --payment Cash`,
		},
		Run: a.runAdd,
	})
	r.Register(&Command{
		Name:        "edit",
		Description: "Change one cell of a record",
		Usage:       "pocketflow edit [--user ID] <row|id> <column> <value>",
		Examples:    []string{"pocketflow edit 1 amount -20", `pocketflow edit 2 "Payment Method" Cash`},
		Run:         a.runEdit,
	})
	r.Register(&Command{
		Name:        "delete",
		Description: "Delete a record",
		Usage:       "pocketflow delete [--user ID] [--yes] <row|id>",
		Run:         a.runDelete,
	})
	r.Register(&Command{
		Name:        "balance",
		Description: "Print the total of all your records",
		Usage:       "pocketflow balance [--user ID]",
		Run:         a.runBalance,
	})
	r.Register(&Command{
		Name:        "options",
		Description: "List the available categories and payment methods",
		Usage:       "pocketflow options",
		Run: func(*Command, []string) error {
			d, err := a.dashboard(client.Session{}, nil)
			if err != nil {
				return err
			}
			return d.RenderOptions(a.out)
		},
	})
	return r
}

func userFlag(fs *flag.FlagSet) *string {
	return fs.String("user", os.Getenv("POCKETFLOW_USER"), "owner id (defaults to $POCKETFLOW_USER)")
}

func (a *app) dashboard(s client.Session, confirm dashboard.ConfirmFunc) (*dashboard.Dashboard, error) {
	api, err := client.NewHTTPClient(a.cfg.APIBaseURL, a.cfg.ClientTimeout, client.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	opts := []dashboard.Option{dashboard.WithLogger(a.logger)}
	if confirm != nil {
		opts = append(opts, dashboard.WithConfirm(confirm))
	}
	notifier := dashboard.NewWriterNotifier(a.out)
	return dashboard.New(client.NewCache(api, a.logger), s, dashboard.LoadOptions(a.cfg.OptionsDir), notifier, opts...), nil
}

// open loads the owner's records and returns the ready dashboard.
func (a *app) open(ctx context.Context, user string, confirm dashboard.ConfirmFunc) (*dashboard.Dashboard, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, errors.New("an owner is required: pass --user or set POCKETFLOW_USER")
	}
	d, err := a.dashboard(client.Session{OwnerID: user}, confirm)
	if err != nil {
		return nil, err
	}
	if err := d.Refresh(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// context bounds one command: a load plus one mutation.
func (a *app) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*a.cfg.ClientTimeout+time.Second)
}

func (a *app) runList(c *Command, args []string) error {
	fs := c.NewFlagSet(a.out)
	user := userFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx, cancel := a.context()
	defer cancel()
	d, err := a.open(ctx, *user, nil)
	if err != nil {
		return err
	}
	return d.Render(a.out)
}

func (a *app) runAdd(c *Command, args []string) error {
	fs := c.NewFlagSet(a.out)
	user := userFlag(fs)
	var f dashboard.Form
	fs.StringVar(&f.Date, "date", time.Now().Format("2006-01-02"), "record date (YYYY-MM-DD)")
	fs.StringVar(&f.Description, "desc", "", "description")
	fs.StringVar(&f.Amount, "amount", "", "signed amount, negative for expenses")
	fs.StringVar(&f.Category, "category", "", "category")
	fs.StringVar(&f.PaymentMethod, "payment", "", "payment method")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx, cancel := a.context()
	defer cancel()
	d, err := a.open(ctx, *user, nil)
	if err != nil {
		return err
	}
	if _, err := d.Submit(ctx, f); err != nil {
		return err
	}
	return d.Render(a.out)
}

func (a *app) runEdit(c *Command, args []string) error {
	fs := c.NewFlagSet(a.out)
	user := userFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		fs.Usage()
		return errors.New("edit needs a row or id, a column and a value")
	}
	col, err := dashboard.ParseColumn(fs.Arg(1))
	if err != nil {
		return err
	}
	ctx, cancel := a.context()
	defer cancel()
	d, err := a.open(ctx, *user, nil)
	if err != nil {
		return err
	}
	id, err := resolve(d, fs.Arg(0))
	if err != nil {
		return err
	}
	if _, err := d.Edit(ctx, id, col, fs.Arg(2)); err != nil {
		return err
	}
	return d.Render(a.out)
}

func (a *app) runDelete(c *Command, args []string) error {
	fs := c.NewFlagSet(a.out)
	user := userFlag(fs)
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("delete needs a row or id")
	}
	var confirm dashboard.ConfirmFunc
	if !*yes {
		confirm = a.ask
	}
	ctx, cancel := a.context()
	defer cancel()
	d, err := a.open(ctx, *user, confirm)
	if err != nil {
		return err
	}
	id, err := resolve(d, fs.Arg(0))
	if err != nil {
		return err
	}
	if err := d.Delete(ctx, id); err != nil {
		if errors.Is(err, dashboard.ErrCancelled) {
			return nil
		}
		return err
	}
	return d.Render(a.out)
}

func (a *app) runBalance(c *Command, args []string) error {
	fs := c.NewFlagSet(a.out)
	user := userFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx, cancel := a.context()
	defer cancel()
	d, err := a.open(ctx, *user, nil)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "Total Monthly Balance: $%s\n", d.Balance())
	return err
}

func (a *app) ask(r core.FinancialRecord) bool {
	label := r.ID
	if r.Description != "" {
		label = fmt.Sprintf("%q (%s)", r.Description, core.FormatAmount(r.Amount))
	}
	fmt.Fprintf(a.out, "Delete %s? [y/N] ", label)
	line, _ := a.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// resolve maps a 1-based row number from the rendered table, or a record
// id, to the record id.
func resolve(d *dashboard.Dashboard, ref string) (string, error) {
	records := d.Records()
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(records) {
		return records[n-1].ID, nil
	}
	for _, r := range records {
		if r.ID == ref {
			return r.ID, nil
		}
	}
	return "", fmt.Errorf("no record %q in your list", ref)
}
