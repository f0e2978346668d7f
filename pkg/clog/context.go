package clog

import (
	"context"
	"maps"
	"sync"
)

// Attribute keys set by the CLI. AttributesHandler adds every attribute
// stored on the context to each record logged with it.
const (
	ErrorAttributeKey      = "error.message"
	StackAttributeKey      = "error.stack"
	CommandAttributeKey    = "command"
	InvocationAttributeKey = "invocation_id"
	TaskFileAttributeKey   = "task_file"
)

type attributeSet struct {
	mu    sync.RWMutex
	attrs map[string]any
}

type attributeSetKey struct{}

// ContextWithSlog returns a context that AddAttribute can write to.
func ContextWithSlog(ctx context.Context) context.Context {
	return context.WithValue(ctx, attributeSetKey{}, &attributeSet{
		attrs: make(map[string]any),
	})
}

func attributesFrom(ctx context.Context) *attributeSet {
	set, _ := ctx.Value(attributeSetKey{}).(*attributeSet)
	return set
}

// AddAttribute is a no-op on a context not created by ContextWithSlog.
func AddAttribute(ctx context.Context, key string, value any) {
	set := attributesFrom(ctx)
	if set == nil {
		return
	}
	set.mu.Lock()
	defer set.mu.Unlock()
	set.attrs[key] = value
}

func GetAttribute[T any](ctx context.Context, key string) T {
	var zero T
	set := attributesFrom(ctx)
	if set == nil {
		return zero
	}
	set.mu.RLock()
	defer set.mu.RUnlock()
	v, ok := set.attrs[key].(T)
	if !ok {
		return zero
	}
	return v
}

// GetAttributes returns a copy of the attributes, or nil.
func GetAttributes(ctx context.Context) map[string]any {
	set := attributesFrom(ctx)
	if set == nil {
		return nil
	}
	set.mu.RLock()
	defer set.mu.RUnlock()
	return maps.Clone(set.attrs)
}

// AddInvocation tags the context with the command being run and an id
// unique to this run.
func AddInvocation(ctx context.Context, command, invocationID string) {
	AddAttribute(ctx, CommandAttributeKey, command)
	AddAttribute(ctx, InvocationAttributeKey, invocationID)
}

func AddTaskFile(ctx context.Context, path string) {
	AddAttribute(ctx, TaskFileAttributeKey, path)
}

func AddError(ctx context.Context, err error) {
	AddAttribute(ctx, ErrorAttributeKey, err)
}
