package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/kazz187/tasktracker/internal/task"
	"github.com/kazz187/tasktracker/internal/watch"
	"github.com/kazz187/tasktracker/pkg/cerr"
	"github.com/kazz187/tasktracker/pkg/storage"
)

func (c *cli) dispatch(ctx context.Context, command string, a *app) error {
	switch command {
	case c.addCmd.FullCommand():
		return a.add(ctx, *c.addDescription)
	case c.updateCmd.FullCommand():
		var req task.UpdateTaskRequest
		if c.updateHasDesc {
			req.Description = c.updateDescription
		}
		if c.updateHasStatus {
			status, err := parseStatus(*c.updateStatus)
			if err != nil {
				return err
			}
			req.Status = &status
		}
		if req.Description == nil && req.Status == nil {
			return cerr.NewError(cerr.InvalidArgument, "nothing to update: pass --description and/or --status", nil)
		}
		return a.update(ctx, *c.updateID, req)
	case c.markCmd.FullCommand():
		status, err := parseStatus(*c.markStatus)
		if err != nil {
			return err
		}
		return a.mark(ctx, *c.markID, status)
	case c.deleteCmd.FullCommand():
		return a.delete(ctx, *c.deleteID)
	case c.listCmd.FullCommand():
		var status task.Status
		if *c.listStatus != "" {
			s, err := parseStatus(*c.listStatus)
			if err != nil {
				return err
			}
			status = s
		}
		if *c.listWatch {
			return a.watchList(ctx, status, *c.listOutput)
		}
		return a.list(ctx, status, *c.listOutput)
	case c.fmtCmd.FullCommand():
		return a.format(ctx, *c.fmtDiff)
	default:
		return cerr.NewError(cerr.Internal, fmt.Sprintf("unhandled command %q", command), nil)
	}
}

func parseStatus(s string) (task.Status, error) {
	status, err := task.ParseStatus(s)
	if err != nil {
		return "", cerr.NewError(cerr.InvalidArgument, err.Error(), nil)
	}
	return status, nil
}

func (a *app) add(ctx context.Context, description string) error {
	t, err := a.service.Add(ctx, description)
	if err != nil {
		return err
	}
	a.out.Line("Task %d added: %s", t.ID, t.Description)
	return nil
}

func (a *app) update(ctx context.Context, id int, req task.UpdateTaskRequest) error {
	t, err := a.service.Update(ctx, id, req)
	if err != nil {
		return err
	}
	a.out.Line("Task %d updated.", t.ID)
	return nil
}

func (a *app) mark(ctx context.Context, id int, status task.Status) error {
	t, err := a.service.MarkStatus(ctx, id, status)
	if err != nil {
		return err
	}
	a.out.Line("Task %d marked as %s.", t.ID, t.Status)
	return nil
}

func (a *app) delete(ctx context.Context, id int) error {
	removed, err := a.service.Delete(ctx, id)
	if err != nil {
		return err
	}
	if removed {
		a.out.Line("Task %d deleted.", id)
	} else {
		a.out.Line("Task %d not found, nothing deleted.", id)
	}
	return nil
}

func (a *app) list(ctx context.Context, status task.Status, format string) error {
	seq, count, err := a.service.List(ctx, status)
	if err != nil {
		return err
	}
	if format == "json" {
		return a.out.JSON(seq)
	}
	a.out.List(seq, count)
	return nil
}

// watchList prints the list and then prints it again after every change
// to the task file until ctx is canceled. A file that fails to load while
// it is being edited is reported and watching continues.
func (a *app) watchList(ctx context.Context, status task.Status, format string) error {
	resolver, ok := a.storage.(storage.Resolver)
	if !ok {
		return cerr.NewError(cerr.InvalidArgument, "--watch is only supported with local storage", nil)
	}
	path := resolver.Resolve(a.repository.Path())

	if err := a.list(ctx, status, format); err != nil {
		return err
	}
	err := watch.File(ctx, path, func() {
		a.out.Line("\n--- %s ---", time.Now().Format(time.TimeOnly))
		if err := a.list(ctx, status, format); err != nil {
			slog.WarnContext(ctx, "failed to reload task file", "error", err)
			a.out.Line("(%s)", cerr.Message(err))
		}
	})
	if err != nil {
		return cerr.NewError(cerr.Internal, "cannot watch the task file", err)
	}
	return nil
}

func (a *app) format(ctx context.Context, diff bool) error {
	before, after, err := a.service.Format(ctx, diff)
	if err != nil {
		return err
	}
	path := a.repository.Path()
	switch {
	case before == nil:
		a.out.Line("No task file at %s.", path)
	case string(before) == string(after):
		a.out.Line("%s is already formatted.", path)
	case diff:
		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(before)),
			B:        difflib.SplitLines(string(after)),
			FromFile: path,
			ToFile:   path + " (formatted)",
			Context:  3,
		})
		if err != nil {
			return cerr.NewError(cerr.Internal, "cannot compute diff", err)
		}
		a.out.Line("%s", strings.TrimSuffix(text, "\n"))
	default:
		a.out.Line("Formatted %s.", path)
	}
	return nil
}
