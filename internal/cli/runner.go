package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/server"
	"github.com/Makepad-fr/tada/internal/store"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
	"github.com/Makepad-fr/tada/internal/store/sqlitestore"
	"github.com/Makepad-fr/tada/internal/todolist"
	"github.com/Makepad-fr/tada/internal/tui"
	"github.com/Makepad-fr/tada/internal/ui"
)

// Exit codes returned by Run.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Remote is the todo resource the subcommands talk to. *api.Client
// satisfies it.
type Remote interface {
	todolist.Remote
	Get(ctx context.Context, id string) (model.Todo, error)
}

// Options carry the resolved configuration and the process streams.
type Options struct {
	Config *config.Config
	Stdout io.Writer
	Stderr io.Writer
	Logger *log.Logger // diagnostics for one-shot subcommands

	// Remote replaces the HTTP client built from Config.APIURL.
	Remote Remote
}

type runner struct {
	ctx context.Context
	cfg *config.Config
	p   *ui.Printer
	log *log.Logger
	opt Options
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, opt Options) int {
	if opt.Config == nil {
		opt.Config = config.Default()
	}
	if opt.Stdout == nil {
		opt.Stdout = os.Stdout
	}
	if opt.Stderr == nil {
		opt.Stderr = os.Stderr
	}
	if opt.Logger == nil {
		opt.Logger = log.New(io.Discard)
	}
	r := &runner{
		ctx: ctx,
		cfg: opt.Config,
		p:   ui.NewPrinter(opt.Stdout, opt.Stderr, opt.Config.Theme),
		log: opt.Logger,
		opt: opt,
	}

	if len(args) == 0 {
		PrintHelp(opt.Stderr)
		return ExitUsage
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(opt.Stdout)
		return ExitOK
	case "ls":
		return r.doBrowse()
	case "print":
		return r.doPrint(a)
	case "add":
		return r.doAdd(a)
	case "done":
		return r.withIndex("done", a, r.doToggle)
	case "edit":
		return r.doEdit(a)
	case "rm":
		return r.withIndex("rm", a, r.doRemove)
	case "show":
		return r.withIndex("show", a, r.doShow)
	case "serve":
		return r.doServe(a)
	}

	r.p.Fail("unknown subcommand: " + cmd)
	fmt.Fprintln(opt.Stderr)
	PrintHelp(opt.Stderr)
	return ExitUsage
}

// PrintHelp writes the usage text to w.
func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `tada - a terminal client for your todo list

Usage:
  tada [global flags] <subcommand> [args]

Subcommands:
  ls                            Browse and edit todos interactively
  print                         Print todos with counts and progress
  add [-d text] <title...>      Add a new todo (title can be multiple words)
  done <index>                  Toggle completion of the todo at 1-based index
  edit [-d text] <index> <title...>
                                Change the title (and description) of a todo
  rm <index>                    Delete the todo at 1-based index
  show <index>                  Show every field of one todo
  serve [-addr] [-store] [-db]  Run a local todo server

Global flags:
  -config path   config file (default ~/.tada/config.toml and .tada.toml)
  -api url       API base URL (env TADA_API_URL, default %s)
  -group         group printed output by pending/done
  -theme name    classic, neon or mono
  -log-level     debug, info, warn or error

Examples:
  tada add -d "2 litres" Buy milk
  tada print -group
  tada done 2
  tada serve -store sqlite
`, config.DefaultAPIURL)
}

// -------------- plumbing ----------------

func (r *runner) remote() (Remote, error) {
	if r.opt.Remote != nil {
		return r.opt.Remote, nil
	}
	return api.New(r.cfg.APIURL, api.WithTimeout(r.cfg.Timeout))
}

// controller returns a controller holding the freshly loaded collection.
func (r *runner) controller() (*todolist.Controller, Remote, bool) {
	remote, err := r.remote()
	if err != nil {
		r.p.Fail(err.Error())
		return nil, nil, false
	}
	ctl := todolist.New(remote, todolist.WithLogger(r.log), todolist.WithContext(r.ctx))
	if err := ctl.Do(ctl.Load()); err != nil {
		r.p.Fail("load: " + err.Error())
		return nil, nil, false
	}
	return ctl, remote, true
}

func (r *runner) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(r.opt.Stderr)
	return fs
}

func parseIndex(cmd, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: not a number: %s", cmd, s)
	}
	return n, nil
}

// withIndex parses the single <index> argument, loads the collection and
// hands the selected todo to fn.
func (r *runner) withIndex(cmd string, a []string, fn func(*todolist.Controller, Remote, model.Todo) int) int {
	if len(a) != 1 {
		r.p.Fail("usage: tada " + cmd + " <index>")
		return ExitUsage
	}
	n, err := parseIndex(cmd, a[0])
	if err != nil {
		r.p.Fail(err.Error())
		return ExitUsage
	}
	ctl, remote, ok := r.controller()
	if !ok {
		return ExitFailure
	}
	t, code := r.lookup(ctl, n)
	if code != ExitOK {
		return code
	}
	return fn(ctl, remote, t)
}

func (r *runner) lookup(ctl *todolist.Controller, userIndex int) (model.Todo, int) {
	t, ok := ctl.At(userIndex - 1)
	if !ok {
		r.p.Fail(fmt.Sprintf("index out of range: have %d, got %d", ctl.Len(), userIndex))
		r.p.Hint("Hint: run `tada print` to see valid indexes")
		return model.Todo{}, ExitUsage
	}
	return t, ExitOK
}

// -------------- subcommand impls ----------------

func (r *runner) doBrowse() int {
	f, err := logging.OpenFile(r.cfg.Log.File)
	if err != nil {
		r.p.Fail(err.Error())
		return ExitFailure
	}
	defer f.Close()

	logger := logging.New(f, logging.Options{
		Level:           r.cfg.Log.Level,
		Format:          r.cfg.Log.Format,
		ReportTimestamp: true,
	})
	remote, err := r.remote()
	if err != nil {
		r.p.Fail(err.Error())
		return ExitFailure
	}
	ctl := todolist.New(remote, todolist.WithLogger(logger), todolist.WithContext(r.ctx))
	if err := tui.Run(ctl); err != nil {
		r.p.Fail("tui: " + err.Error())
		return ExitFailure
	}
	return ExitOK
}

func (r *runner) doPrint(a []string) int {
	fs := r.flagSet("print")
	group := fs.Bool("group", r.cfg.Group, "group output by pending/done")
	if err := fs.Parse(a); err != nil {
		return ExitUsage
	}
	ctl, _, ok := r.controller()
	if !ok {
		return ExitFailure
	}
	lines := r.p.ListLines(ctl.Todos(), *group)
	lines = append(lines, "", r.p.C(r.p.Theme.Muted, "Tip: add with `tada add \"Buy milk\"`"))
	r.p.Panel(lines)
	return ExitOK
}

func (r *runner) doAdd(a []string) int {
	fs := r.flagSet("add")
	desc := fs.String("d", "", "description")
	if err := fs.Parse(a); err != nil {
		return ExitUsage
	}
	if fs.NArg() == 0 {
		r.p.Fail("usage: tada add [-d description] <title...>")
		return ExitUsage
	}
	draft := model.Draft{Title: strings.TrimSpace(strings.Join(fs.Args(), " ")), Description: *desc}
	if draft.Blank() {
		r.p.Fail("add: empty title")
		return ExitUsage
	}

	remote, err := r.remote()
	if err != nil {
		r.p.Fail(err.Error())
		return ExitFailure
	}
	ctl := todolist.New(remote, todolist.WithLogger(r.log), todolist.WithContext(r.ctx))
	ctl.SetDraft(draft)
	if err := ctl.Do(ctl.Create()); err != nil {
		r.p.Fail("add: " + err.Error())
		return ExitFailure
	}
	t, _ := ctl.At(0)
	r.p.OK(fmt.Sprintf("added %q", t.Title))
	return ExitOK
}

func (r *runner) doToggle(ctl *todolist.Controller, _ Remote, t model.Todo) int {
	if err := ctl.Do(ctl.ToggleComplete(t)); err != nil {
		r.p.Fail("done: " + err.Error())
		return ExitFailure
	}
	if got, _ := ctl.Find(t.ID); got.Completed {
		r.p.OK(fmt.Sprintf("completed %q", got.Title))
	} else {
		r.p.OK(fmt.Sprintf("reopened %q", got.Title))
	}
	return ExitOK
}

func (r *runner) doEdit(a []string) int {
	fs := r.flagSet("edit")
	desc := fs.String("d", "", "new description (unchanged when omitted)")
	if err := fs.Parse(a); err != nil {
		return ExitUsage
	}
	if fs.NArg() < 2 {
		r.p.Fail("usage: tada edit [-d description] <index> <title...>")
		return ExitUsage
	}
	n, err := parseIndex("edit", fs.Arg(0))
	if err != nil {
		r.p.Fail(err.Error())
		return ExitUsage
	}
	title := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
	if title == "" {
		r.p.Fail("edit: empty title")
		return ExitUsage
	}
	descSet := false
	fs.Visit(func(f *flag.Flag) { descSet = descSet || f.Name == "d" })

	ctl, _, ok := r.controller()
	if !ok {
		return ExitFailure
	}
	t, code := r.lookup(ctl, n)
	if code != ExitOK {
		return code
	}
	ctl.BeginEdit(t)
	buf, _ := ctl.Editing()
	if descSet {
		buf.Description = *desc
	}
	ctl.SetEditFields(title, buf.Description)
	if err := ctl.Do(ctl.SaveEdit()); err != nil {
		r.p.Fail("edit: " + err.Error())
		return ExitFailure
	}
	r.p.OK(fmt.Sprintf("updated %q", title))
	return ExitOK
}

func (r *runner) doRemove(ctl *todolist.Controller, _ Remote, t model.Todo) int {
	if err := ctl.Do(ctl.Delete(t.ID)); err != nil {
		r.p.Fail("rm: " + err.Error())
		return ExitFailure
	}
	r.p.OK(fmt.Sprintf("removed %q", t.Title))
	return ExitOK
}

func (r *runner) doShow(_ *todolist.Controller, remote Remote, t model.Todo) int {
	got, err := remote.Get(r.ctx, t.ID)
	if err != nil {
		if api.IsNotFound(err) {
			r.p.Fail("show: todo " + t.ID + " no longer exists")
			return ExitFailure
		}
		r.p.Fail("show: " + err.Error())
		return ExitFailure
	}
	status := "pending"
	if got.Completed {
		status = "completed"
	}
	lines := []string{
		r.p.C(r.p.Theme.Title, got.Title),
		"",
		"ID:          " + got.ID,
		"Status:      " + status,
		"Description: " + got.Description,
		"Created:     " + got.CreatedAt.String(),
		"Updated:     " + got.UpdatedAt.String(),
	}
	r.p.Panel(lines)
	return ExitOK
}

func (r *runner) doServe(a []string) int {
	sc := r.cfg.Server
	fs := r.flagSet("serve")
	fs.StringVar(&sc.Addr, "addr", sc.Addr, "listen address")
	fs.StringVar(&sc.Store, "store", sc.Store, "storage backend: json or sqlite")
	fs.StringVar(&sc.DB, "db", sc.DB, "database path (default "+config.DefaultJSONDB+" or "+config.DefaultSQLiteDB+")")
	if err := fs.Parse(a); err != nil {
		return ExitUsage
	}
	if fs.NArg() != 0 {
		r.p.Fail("usage: tada serve [-addr addr] [-store json|sqlite] [-db path]")
		return ExitUsage
	}

	st, err := openStore(sc)
	if err != nil {
		r.p.Fail(err.Error())
		if errors.Is(err, errUnknownStore) {
			return ExitUsage
		}
		return ExitFailure
	}
	defer st.Close()

	r.log.Info("serving todos", "store", sc.Store, "db", sc.DBPath())
	srv := server.New(st, server.Options{AllowOrigins: sc.AllowOrigins, Logger: r.log})
	if err := srv.ListenAndServe(r.ctx, sc.Addr); err != nil {
		r.p.Fail("serve: " + err.Error())
		return ExitFailure
	}
	return ExitOK
}

var errUnknownStore = errors.New("unknown store")

func openStore(sc config.ServerConfig) (store.Store, error) {
	switch sc.Store {
	case "json":
		return jsonstore.Open(sc.DBPath())
	case "sqlite":
		return sqlitestore.Open(sc.DBPath())
	}
	return nil, fmt.Errorf("%w %q: want json or sqlite", errUnknownStore, sc.Store)
}
