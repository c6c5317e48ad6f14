package core

import "context"

type requestInfoKey struct{}

// RequestInfo identifies who asked for an operation. It is copied into the
// export history.
type RequestInfo struct {
	Requester string // client IP for HTTP requests
	UserAgent string
}

// WithRequestInfo attaches info to ctx.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFrom returns the info attached by WithRequestInfo, or the zero
// value.
func RequestInfoFrom(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info
}
