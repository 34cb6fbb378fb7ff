// blog/dispatch.go
package blog

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Request is one named operation with its argument bag and an optional list
// of relation fields to expand on the result.
type Request struct {
	Operation string         `json:"operation"`
	Args      map[string]any `json:"args"`
	Expand    []string       `json:"expand"`
}

// Response carries either a typed result or a typed failure, never both.
type Response struct {
	Data  any      `json:"data,omitempty"`
	Error *OpError `json:"error,omitempty"`
}

// Dispatcher binds operation names to handlers over an injected store and
// token codec. It holds no mutable state; the same instance serves every
// request.
type Dispatcher struct {
	store  Store
	codec  *TokenCodec
	logger *slog.Logger
	ops    map[string]*operation
}

func NewDispatcher(store Store, codec *TokenCodec, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:  store,
		codec:  codec,
		logger: logger,
		ops:    buildOperations(),
	}
}

// Dispatch runs a single operation for the caller identified by ident (nil
// for anonymous). Argument validation runs before the identity guard, and the
// guard runs before any store access. Failures stay local to this operation.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, ident *Identity) Response {
	op, ok := d.ops[req.Operation]
	if !ok {
		return Response{Error: invalidOperationErr(req.Operation)}
	}
	args, err := validateArgs(op, req.Args)
	if err != nil {
		return Response{Error: err}
	}
	if op.requireAuth && ident == nil {
		return Response{Error: authRequiredErr()}
	}
	result, runErr := op.run(d, ctx, args, ident)
	if runErr == nil && len(req.Expand) > 0 && op.entity != "" && result != nil {
		result, runErr = d.expand(ctx, op.entity, result, req.Expand)
	}
	if runErr != nil {
		if oe, ok := AsOpError(runErr); ok {
			return Response{Error: oe}
		}
		// Store-native and other unexpected errors are logged here and
		// surfaced only as an opaque internal failure.
		d.logger.Error("operation failed", "operation", op.name, "error", runErr)
		return Response{Error: internalErr()}
	}
	return Response{Data: result}
}

func validateArgs(op *operation, raw map[string]any) (Args, *OpError) {
	args := make(Args, len(op.args))
	for _, spec := range op.args {
		v, present := raw[spec.name]
		if !present {
			if spec.required {
				return nil, validationErr("argument %q is required", spec.name)
			}
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, validationErr("argument %q must be a string", spec.name)
		}
		if s == "" && spec.required {
			return nil, validationErr("argument %q is required", spec.name)
		}
		args[spec.name] = s
	}
	for name := range raw {
		if !knownArg(op, name) {
			return nil, validationErr("unknown argument %q for operation %q", name, op.name)
		}
	}
	return args, nil
}

func knownArg(op *operation, name string) bool {
	for _, spec := range op.args {
		if spec.name == name {
			return true
		}
	}
	return false
}

// expand resolves the requested relation fields of a result through the
// static resolver table. Relations not named in fields are never fetched.
func (d *Dispatcher) expand(ctx context.Context, entity string, result any, fields []string) (any, error) {
	b, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	switch v := generic.(type) {
	case map[string]any:
		return d.expandDoc(ctx, entity, Doc(v), fields)
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			doc, ok := item.(map[string]any)
			if !ok {
				return nil, validationErr("cannot expand relations on operation result")
			}
			expanded, err := d.expandDoc(ctx, entity, Doc(doc), fields)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded)
		}
		return out, nil
	default:
		return nil, validationErr("cannot expand relations on operation result")
	}
}

func (d *Dispatcher) expandDoc(ctx context.Context, entity string, parent Doc, fields []string) (Doc, error) {
	for _, field := range fields {
		fn := relations[entity][field]
		if fn == nil {
			return nil, validationErr("unknown relation %q for %s", field, entity)
		}
		val, err := fn(ctx, d.store, parent)
		if err != nil {
			return nil, err
		}
		parent[field] = val
	}
	return parent, nil
}
