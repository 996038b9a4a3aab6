package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lumioapp/auth-service/internal/ports"
)

// QueueKey is the Redis list used as the outbound mail queue.
const QueueKey = "auth:mail:queue"

// DefaultMaxQueueSize caps the queue so a dead SMTP server cannot grow it
// without bound. 0 = unlimited.
const DefaultMaxQueueSize int64 = 1000

// ErrQueueFull is returned by Send when the queue has reached its size cap.
var ErrQueueFull = errors.New("mail queue full")

// emailJob is the serialized payload pushed onto the queue.
type emailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`
}

// QueuedMailer enqueues email jobs to Redis so request handlers return
// immediately without waiting for SMTP. StartWorker drains the queue
// asynchronously; callers are unaware of the async dispatch.
type QueuedMailer struct {
	inner        ports.EmailSender
	rdb          *redis.Client
	maxQueueSize int64
}

func NewQueuedMailer(inner ports.EmailSender, rdb *redis.Client, maxSize int64) *QueuedMailer {
	return &QueuedMailer{inner: inner, rdb: rdb, maxQueueSize: maxSize}
}

var _ ports.EmailSender = (*QueuedMailer)(nil)

// enqueueScript atomically checks the queue length and pushes the job only if
// under the cap. Returns 1 if enqueued, 0 if rejected.
// KEYS[1] = queue key, ARGV[1] = max size (0 = skip check), ARGV[2] = payload.
var enqueueScript = redis.NewScript(`
local max = tonumber(ARGV[1])
if max > 0 and redis.call('LLEN', KEYS[1]) >= max then
    return 0
end
redis.call('RPUSH', KEYS[1], ARGV[2])
return 1
`)

// Send serializes the message and appends it to the Redis queue.
func (q *QueuedMailer) Send(ctx context.Context, to, subject, html, text string) error {
	data, err := json.Marshal(emailJob{To: to, Subject: subject, HTML: html, Text: text})
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}
	ok, err := enqueueScript.Run(ctx, q.rdb, []string{QueueKey}, q.maxQueueSize, data).Int64()
	if err != nil {
		return fmt.Errorf("enqueue email job: %w", err)
	}
	if ok == 0 {
		return ErrQueueFull
	}
	return nil
}

// StartWorker drains the mail queue in a loop, dispatching each job to the
// inner sender. Blocks until ctx is cancelled; call in a goroutine.
func (q *QueuedMailer) StartWorker(ctx context.Context) {
	for {
		// BLPop blocks up to 2s then returns redis.Nil, which keeps the loop
		// responsive to ctx cancellation without busy-spinning.
		res, err := q.rdb.BLPop(ctx, 2*time.Second, QueueKey).Result()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			slog.Error("mail worker: queue pop failed", "err", err)
			continue
		}
		// res[0] = key name, res[1] = payload
		var job emailJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			slog.Error("mail worker: bad job payload", "err", err)
			continue
		}
		if err := q.inner.Send(ctx, job.To, job.Subject, job.HTML, job.Text); err != nil {
			// Logged and dropped; no retry in v1.
			slog.Error("mail worker: send failed", "to", job.To, "err", err)
		}
	}
}
