package ports

import "context"

// EmailSender delivers transactional email best-effort. A send failure must
// never roll back the operation that requested it.
type EmailSender interface {
	Send(ctx context.Context, to, subject, html, text string) error
}
