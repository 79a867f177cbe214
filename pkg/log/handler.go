package log

import (
	"context"
	"log/slog"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrFmtHandler decorates records whose ErrAttrKey attribute holds an
// error. It adds the cockroachdb/errors stack trace under
// StacktraceAttrKey and the first non-wrapper error type of the chain
// (e.g. "ValidationError") under ErrorTypeKey.
type ErrFmtHandler struct {
	handler slog.Handler
}

// WrapByErrFmtHandler wraps handler with ErrFmtHandler.
func WrapByErrFmtHandler(handler slog.Handler) slog.Handler {
	return &ErrFmtHandler{handler: handler}
}

func (eh *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return eh.handler.Enabled(ctx, l)
}

func (eh *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	var logged error
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		logged, _ = attr.Value.Any().(error)
		return false
	})
	if logged == nil {
		return eh.handler.Handle(ctx, r)
	}

	out := r.Clone()
	if st := stacktrace(logged); st != "" {
		out.AddAttrs(slog.String(StacktraceAttrKey, st))
	}
	if name := errorType(logged); name != "" {
		out.AddAttrs(slog.String(ErrorTypeKey, name))
	}
	return eh.handler.Handle(ctx, out)
}

func (eh *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithAttrs(attrs)}
}

func (eh *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithGroup(g)}
}

// stacktrace returns the innermost stack recorded by cockroachdb/errors.
func stacktrace(err error) string {
	if details := errors.GetSafeDetails(err).SafeDetails; len(details) > 0 {
		return details[0]
	}
	if st := errors.GetReportableStackTrace(err); st != nil && len(st.Frames) > 0 {
		var b strings.Builder
		for i := len(st.Frames) - 1; i >= 0; i-- {
			f := st.Frames[i]
			b.WriteString(f.Function)
			b.WriteString("\n\t")
			b.WriteString(f.AbsPath)
			b.WriteByte('\n')
		}
		return b.String()
	}
	return ""
}

// errorType walks the chain and names the first error that is not one of
// the cockroachdb wrappers (withstack, errutil, ...).
func errorType(err error) string {
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		t := reflect.TypeOf(e)
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		if strings.HasPrefix(t.PkgPath(), "github.com/cockroachdb/errors") {
			continue
		}
		return t.Name()
	}
	return ""
}
