package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"github.com/oklog/ulid/v2"

	"github.com/kazz187/tasktracker/internal/config"
	"github.com/kazz187/tasktracker/internal/output"
	"github.com/kazz187/tasktracker/internal/task"
	"github.com/kazz187/tasktracker/internal/task/repositoryimpl"
	"github.com/kazz187/tasktracker/pkg/cerr"
	"github.com/kazz187/tasktracker/pkg/clog"
	"github.com/kazz187/tasktracker/pkg/panicerr"
	"github.com/kazz187/tasktracker/pkg/storage"
)

type cli struct {
	app    *kingpin.Application
	file   *string
	format *string

	addCmd         *kingpin.CmdClause
	addDescription *string

	updateCmd         *kingpin.CmdClause
	updateID          *int
	updateDescription *string
	updateStatus      *string
	updateHasDesc     bool
	updateHasStatus   bool

	markCmd    *kingpin.CmdClause
	markID     *int
	markStatus *string

	deleteCmd *kingpin.CmdClause
	deleteID  *int

	listCmd    *kingpin.CmdClause
	listStatus *string
	listWatch  *bool
	listOutput *string

	fmtCmd  *kingpin.CmdClause
	fmtDiff *bool
}

func newCLI() *cli {
	c := &cli{}
	statuses := strings.Join(task.StatusNames(), ", ")

	c.app = kingpin.New("tasktracker", "Track personal tasks in a local file")
	c.file = c.app.Flag("file", "Task file; the extension selects the format (.json, .yaml, .yml, .toml)").Short('f').String()
	c.format = c.app.Flag("format", "Task file format, overriding the file extension").Enum(repositoryimpl.CodecNames...)

	c.addCmd = c.app.Command("add", "Add a new task")
	c.addDescription = c.addCmd.Arg("description", "Task description").Required().String()

	c.updateCmd = c.app.Command("update", "Update the description and/or status of a task")
	c.updateID = c.updateCmd.Arg("id", "Task ID").Required().Int()
	c.updateDescription = c.updateCmd.Flag("description", "New description").Short('d').IsSetByUser(&c.updateHasDesc).String()
	c.updateStatus = c.updateCmd.Flag("status", "New status ("+statuses+")").Short('s').IsSetByUser(&c.updateHasStatus).String()

	c.markCmd = c.app.Command("mark", "Set the status of a task")
	c.markID = c.markCmd.Arg("id", "Task ID").Required().Int()
	c.markStatus = c.markCmd.Arg("status", "New status ("+statuses+")").Required().String()

	c.deleteCmd = c.app.Command("delete", "Delete a task")
	c.deleteID = c.deleteCmd.Arg("id", "Task ID").Required().Int()

	c.listCmd = c.app.Command("list", "List tasks")
	c.listStatus = c.listCmd.Flag("status", "Only list tasks with this status ("+statuses+")").Short('s').String()
	c.listWatch = c.listCmd.Flag("watch", "Print the list again whenever the task file changes").Short('w').Bool()
	c.listOutput = c.listCmd.Flag("output", "Output format").Short('o').Default("text").Enum("text", "json")

	c.fmtCmd = c.app.Command("fmt", "Rewrite the task file in canonical form")
	c.fmtDiff = c.fmtCmd.Flag("diff", "Print a diff instead of rewriting the file").Short('d').Bool()

	return c
}

type runner struct {
	stdout io.Writer
	stderr io.Writer
	color  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	r := &runner{
		stdout: os.Stdout,
		stderr: os.Stderr,
		color:  !color.NoColor,
	}
	code := r.run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit status.
func (r *runner) run(ctx context.Context, args []string) int {
	c := newCLI()
	terminated := -1
	c.app.UsageWriter(r.stdout)
	c.app.ErrorWriter(r.stderr)
	c.app.Terminate(func(code int) {
		if terminated < 0 {
			terminated = code
		}
	})

	command, err := c.app.Parse(args)
	if terminated >= 0 {
		// --help and --version
		return terminated
	}
	if err != nil {
		fmt.Fprintf(r.stderr, "%s: error: %s, try --help\n", c.app.Name, err)
		return cerr.ExitUserError
	}

	env, err := config.LoadEnv()
	if err != nil {
		output.NewPrinter(r.stderr, output.WithColor(r.color)).Error(err.Error())
		return cerr.ExitUserError
	}
	useColor := r.color && !env.NoColor

	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(r.stderr, clog.WithLevel(level), clog.WithColor(useColor))
	} else {
		handler = slog.NewJSONHandler(r.stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	ctx = clog.ContextWithSlog(ctx)
	clog.AddInvocation(ctx, command, ulid.Make().String())

	stdout := output.NewPrinter(r.stdout, output.WithColor(useColor))
	stderr := output.NewPrinter(r.stderr, output.WithColor(useColor))

	err = panicerr.Run(func() error {
		app, err := openApp(ctx, env, *c.file, *c.format)
		if err != nil {
			return err
		}
		app.out = stdout
		return c.dispatch(ctx, command, app)
	})

	code := cerr.Extract(ctx, err)
	if err == nil {
		return code.ExitCode()
	}
	slog.Log(ctx, code.Level().SlogLevel(), "command failed", "code", code.String())
	if stack := cerr.StackOf(err); stack != "" {
		slog.DebugContext(ctx, "error stack", clog.StackAttributeKey, stack)
	}
	stderr.Error(cerr.Message(err))
	return code.ExitCode()
}

// app holds what the command handlers operate on.
type app struct {
	service    *task.Service
	repository *repositoryimpl.FileRepository
	storage    storage.Storage
	out        *output.Printer
}

func openApp(ctx context.Context, env *config.Env, file, format string) (*app, error) {
	var store storage.Storage
	switch env.StorageEnv.Type {
	case config.StorageTypeS3:
		s, err := storage.NewS3Storage(ctx, env.S3Bucket, env.S3Prefix, env.S3Region)
		if err != nil {
			return nil, cerr.NewError(cerr.Internal, "cannot open S3 storage", err)
		}
		store = s
		slog.DebugContext(ctx, "using S3 storage", "bucket", env.S3Bucket, "prefix", env.S3Prefix)
	default:
		s, err := storage.NewLocalStorage(env.BaseDir, storage.WithLockTimeout(env.LockTimeout))
		if err != nil {
			return nil, cerr.NewError(cerr.Internal, "cannot open local storage", err)
		}
		store = s
		slog.DebugContext(ctx, "using local storage", "base_dir", env.BaseDir)
	}

	if file == "" {
		file = env.File
	}
	clog.AddTaskFile(ctx, file)
	var opts []repositoryimpl.Option
	if !env.Lock {
		opts = append(opts, repositoryimpl.WithoutLock())
	}
	if format != "" {
		codec, err := repositoryimpl.CodecByName(format)
		if err != nil {
			return nil, cerr.NewError(cerr.InvalidArgument, err.Error(), nil)
		}
		opts = append(opts, repositoryimpl.WithCodec(codec))
	}
	repo, err := repositoryimpl.NewFileRepository(store, file, opts...)
	if err != nil {
		return nil, err
	}

	return &app{
		service:    task.NewService(repo),
		repository: repo,
		storage:    store,
	}, nil
}
