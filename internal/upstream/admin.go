package upstream

import (
	"context"
	"fmt"
)

// AdminOperation is one of the remote corpus maintenance endpoints.
type AdminOperation string

const (
	OpPopulateConfluence AdminOperation = "confluence"
	OpPopulateMarkdown   AdminOperation = "markdown"
	OpReset              AdminOperation = "reset"
)

var adminPaths = map[AdminOperation]string{
	OpPopulateConfluence: "/database/populate",
	OpPopulateMarkdown:   "/database/populate-md",
	OpReset:              "/database/reset",
}

type adminRequest struct{}

// RunAdminOperation triggers a corpus maintenance operation upstream and
// returns the service's status message, or a generic completion message when
// the service sent none.
func (c *Client) RunAdminOperation(ctx context.Context, token string, op AdminOperation) (string, error) {
	path, ok := adminPaths[op]
	if !ok {
		return "", fmt.Errorf("unknown admin operation %q", op)
	}

	fallbackErr := fmt.Sprintf("%s operation failed", op)
	raw, err := c.post(ctx, token, path, adminRequest{}, fallbackErr)
	if err != nil {
		return "", err
	}
	return extractMessage(raw, fmt.Sprintf("%s operation completed successfully", op)), nil
}
