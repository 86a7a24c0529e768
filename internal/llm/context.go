package llm

import "context"

type labelsKey struct{}

// labels tag a request for the analysis event log.
type labels struct {
	purpose string
	userID  string
}

func labelsFrom(ctx context.Context) labels {
	l, _ := ctx.Value(labelsKey{}).(labels)
	return l
}

// WithPurpose names what a request is for, e.g. "study-plan".
func WithPurpose(ctx context.Context, purpose string) context.Context {
	l := labelsFrom(ctx)
	l.purpose = purpose
	return context.WithValue(ctx, labelsKey{}, l)
}

// PurposeFrom returns the purpose set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if p := labelsFrom(ctx).purpose; p != "" {
		return p
	}
	return "unknown"
}

// WithUser records the learner a request is made for.
func WithUser(ctx context.Context, userID string) context.Context {
	l := labelsFrom(ctx)
	l.userID = userID
	return context.WithValue(ctx, labelsKey{}, l)
}

func UserFrom(ctx context.Context) string {
	return labelsFrom(ctx).userID
}
