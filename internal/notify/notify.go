// Package notify defines the audit channel the retirement protocol posts
// transaction summaries and archived sessions to.
package notify

import (
	"context"
	"errors"
)

// MessageID identifies a posted message in the channel.
type MessageID int64

// ErrRejected means the channel refused the request. Retrying the same
// request will not help.
var ErrRejected = errors.New("notification rejected")

// Channel is the audit channel. Transient failures wrap
// sentinel.ErrUnavailable; permanent ones wrap ErrRejected.
type Channel interface {
	PostMessage(ctx context.Context, text string) (MessageID, error)
	PostDocument(ctx context.Context, filename string, data []byte, caption string) error
}
