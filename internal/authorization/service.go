package authorization

import "context"

// Service decides whether an admin actor may perform action on object.
type Service interface {
	Authorize(ctx context.Context, actor string, role string, object string, action string) error
}
