package domain

import "context"

type clientKey struct{}

type client struct {
	ipAddress string
	userAgent string
}

// WithClient attaches the caller address and user agent to ctx.
func WithClient(ctx context.Context, ipAddress, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, client{ipAddress: ipAddress, userAgent: userAgent})
}

func ClientFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	c, _ := ctx.Value(clientKey{}).(client)
	return c.ipAddress, c.userAgent
}
