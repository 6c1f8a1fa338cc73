package session

import "context"

type ctxKey string

const subjectKey ctxKey = "articleui.subject"

// WithSubject stores the token subject (the username) in context.
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey, sub)
}

// SubjectFromCtx fetches the token subject stored by the guard.
func SubjectFromCtx(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey).(string)

	return sub, ok && sub != ""
}
