package llm

import "context"

type purposeKey struct{}

// WithPurpose labels the context with what the request is for, e.g.
// "answer-judgment". The logging decorator picks it up.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom reads the purpose label back out of the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey{}).(string); ok {
		return v
	}
	return "unlabeled"
}
