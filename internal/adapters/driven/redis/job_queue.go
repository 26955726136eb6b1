package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.JobQueue = (*JobQueue)(nil)

// Key layout under the prefix:
//
//	job:<id>              hash with the job fields
//	job:<id>:warnings     list of optional-stage warnings
//	doc:<doc>:<type>      id of the document's job for that type
//	jobs:seq              enqueue counter, the FIFO order
//	jobs:pending          zset of pending ids by seq
//	jobs:processing       zset of processing ids by started_at (ms)
//	jobs:all              zset of every id by seq
//	jobs:status:<status>  set of ids per status
//
// Every state change runs as one Lua script, so each is a single atomic
// compare-and-swap on the job's status.
type JobQueue struct {
	client       redis.UniversalClient
	prefix       string
	pollInterval time.Duration
}

// NewJobQueue creates a Redis-backed job queue.
func NewJobQueue(client redis.UniversalClient) *JobQueue {
	return &JobQueue{
		client:       client,
		prefix:       DefaultPrefix,
		pollInterval: 250 * time.Millisecond,
	}
}

const timeLayout = time.RFC3339Nano

// enqueueScript returns {created, id}.
// KEYS[1] doc pointer; ARGV prefix, document id, type, new id, created_at
var enqueueScript = redis.NewScript(`
local prefix = ARGV[1]
local existing = redis.call('GET', KEYS[1])
if existing then
	local key = prefix .. 'job:' .. existing
	local status = redis.call('HGET', key, 'status')
	if status == 'pending' or status == 'processing' then
		return {0, existing}
	end
	if status then
		redis.call('DEL', key, key .. ':warnings')
		redis.call('SREM', prefix .. 'jobs:status:' .. status, existing)
		redis.call('ZREM', prefix .. 'jobs:all', existing)
	end
end
local id = ARGV[4]
local seq = redis.call('INCR', prefix .. 'jobs:seq')
redis.call('HSET', prefix .. 'job:' .. id,
	'id', id, 'document_id', ARGV[2], 'job_type', ARGV[3], 'status', 'pending',
	'current_step', '', 'progress', 0, 'created_at', ARGV[5], 'seq', seq)
redis.call('ZADD', prefix .. 'jobs:pending', seq, id)
redis.call('ZADD', prefix .. 'jobs:all', seq, id)
redis.call('SADD', prefix .. 'jobs:status:pending', id)
redis.call('SET', KEYS[1], id)
return {1, id}
`)

// claimScript pops the oldest pending id and marks it processing.
// ARGV prefix, started_at, started_at in ms
var claimScript = redis.NewScript(`
local prefix = ARGV[1]
while true do
	local ids = redis.call('ZRANGE', prefix .. 'jobs:pending', 0, 0)
	if #ids == 0 then
		return false
	end
	local id = ids[1]
	redis.call('ZREM', prefix .. 'jobs:pending', id)
	local key = prefix .. 'job:' .. id
	if redis.call('HGET', key, 'status') == 'pending' then
		redis.call('HSET', key, 'status', 'processing', 'started_at', ARGV[2])
		redis.call('SMOVE', prefix .. 'jobs:status:pending', prefix .. 'jobs:status:processing', id)
		redis.call('ZADD', prefix .. 'jobs:processing', ARGV[3], id)
		return id
	end
end
`)

// transitionScript returns 'ok', 'missing' or 'invalid'.
// ARGV prefix, id, next, allowed (comma separated), time field, time,
// has error message ('1'/'0'), error message
var transitionScript = redis.NewScript(`
local prefix = ARGV[1]
local id = ARGV[2]
local key = prefix .. 'job:' .. id
local status = redis.call('HGET', key, 'status')
if not status then
	return 'missing'
end
local allowed = false
for s in string.gmatch(ARGV[4], '[^,]+') do
	if s == status then
		allowed = true
	end
end
if not allowed then
	return 'invalid'
end
redis.call('HSET', key, 'status', ARGV[3], ARGV[5], ARGV[6])
if ARGV[7] == '1' then
	redis.call('HSET', key, 'error_message', ARGV[8])
end
if ARGV[3] == 'completed' then
	redis.call('HSET', key, 'progress', 100)
end
redis.call('SMOVE', prefix .. 'jobs:status:' .. status, prefix .. 'jobs:status:' .. ARGV[3], id)
redis.call('ZREM', prefix .. 'jobs:pending', id)
redis.call('ZREM', prefix .. 'jobs:processing', id)
return 'ok'
`)

// updateScript applies field updates when the status is one of the allowed.
// ARGV prefix, id, allowed, step, progress, warning ('' for none)
var updateScript = redis.NewScript(`
local key = ARGV[1] .. 'job:' .. ARGV[2]
local status = redis.call('HGET', key, 'status')
if not status then
	return 'missing'
end
local allowed = false
for s in string.gmatch(ARGV[3], '[^,]+') do
	if s == status then
		allowed = true
	end
end
if not allowed then
	return 'invalid'
end
if ARGV[6] ~= '' then
	redis.call('RPUSH', key .. ':warnings', ARGV[6])
else
	redis.call('HSET', key, 'current_step', ARGV[4], 'progress', ARGV[5])
end
return 'ok'
`)

func (q *JobQueue) jobKey(id string) string {
	return q.prefix + "job:" + id
}

func (q *JobQueue) docKey(documentID string, jobType domain.JobType) string {
	return q.prefix + "doc:" + documentID + ":" + string(jobType)
}

// Enqueue implements driven.JobQueue.
func (q *JobQueue) Enqueue(ctx context.Context, documentID string, jobType domain.JobType) (*domain.Job, bool, error) {
	job := domain.NewJob(documentID, jobType)

	res, err := enqueueScript.Run(ctx, q.client,
		[]string{q.docKey(documentID, jobType)},
		q.prefix, documentID, string(jobType), job.ID, job.CreatedAt.Format(timeLayout),
	).Slice()
	if err != nil {
		return nil, false, fmt.Errorf("enqueue job: %w", err)
	}
	if len(res) != 2 {
		return nil, false, fmt.Errorf("enqueue job: unexpected reply %v", res)
	}

	created, _ := res[0].(int64)
	id, _ := res[1].(string)
	if created == 1 {
		return job, true, nil
	}

	existing, err := q.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Claim implements driven.JobQueue.
func (q *JobQueue) Claim(ctx context.Context) (*domain.Job, error) {
	now := time.Now()
	id, err := claimScript.Run(ctx, q.client, nil, q.prefix, now.Format(timeLayout), now.UnixMilli()).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return q.Get(ctx, id)
}

// ClaimWithTimeout implements driven.JobQueue by polling.
func (q *JobQueue) ClaimWithTimeout(ctx context.Context, timeout time.Duration) (*domain.Job, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()

	for {
		job, err := q.Claim(ctx)
		if err != nil || job != nil {
			return job, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, nil
		case <-ticker.C:
		}
	}
}

func scriptResult(reply string) error {
	switch reply {
	case "ok":
		return nil
	case "missing":
		return domain.ErrNotFound
	case "invalid":
		return domain.ErrInvalidTransition
	}
	return fmt.Errorf("unexpected script reply %q", reply)
}

func joinStatuses(statuses []domain.JobStatus) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func (q *JobQueue) transition(ctx context.Context, jobID string, next domain.JobStatus, field string, message *string) error {
	hasMessage, msg := "0", ""
	if message != nil {
		hasMessage, msg = "1", *message
	}

	reply, err := transitionScript.Run(ctx, q.client, nil,
		q.prefix, jobID, string(next), joinStatuses(domain.SourcesFor(next)),
		field, time.Now().Format(timeLayout), hasMessage, msg,
	).Text()
	if err != nil {
		return fmt.Errorf("update job %s: %w", jobID, err)
	}
	return scriptResult(reply)
}

// ReportProgress implements driven.JobQueue.
func (q *JobQueue) ReportProgress(ctx context.Context, jobID, step string, percent int) error {
	reply, err := updateScript.Run(ctx, q.client, nil,
		q.prefix, jobID, "pending,processing", step, domain.ClampProgress(percent), "",
	).Text()
	if err != nil {
		return fmt.Errorf("report progress: %w", err)
	}
	return scriptResult(reply)
}

// AddWarning implements driven.JobQueue.
func (q *JobQueue) AddWarning(ctx context.Context, jobID, warning string) error {
	if warning == "" {
		return nil
	}
	reply, err := updateScript.Run(ctx, q.client, nil,
		q.prefix, jobID, "processing", "", 0, warning,
	).Text()
	if err != nil {
		return fmt.Errorf("add warning: %w", err)
	}
	return scriptResult(reply)
}

// Complete implements driven.JobQueue.
func (q *JobQueue) Complete(ctx context.Context, jobID string) error {
	return q.transition(ctx, jobID, domain.JobStatusCompleted, "completed_at", nil)
}

// Fail implements driven.JobQueue.
func (q *JobQueue) Fail(ctx context.Context, jobID, message string) error {
	return q.transition(ctx, jobID, domain.JobStatusFailed, "failed_at", &message)
}

// Cancel implements driven.JobQueue.
func (q *JobQueue) Cancel(ctx context.Context, jobID string) error {
	return q.transition(ctx, jobID, domain.JobStatusCancelled, "cancelled_at", nil)
}

// Get implements driven.JobQueue.
func (q *JobQueue) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	jobs, err := q.load(ctx, []string{jobID})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, domain.ErrNotFound
	}
	return jobs[0], nil
}

// load fetches jobs in one pipeline, skipping ids that no longer exist.
func (q *JobQueue) load(ctx context.Context, ids []string) ([]*domain.Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := q.client.Pipeline()
	fields := make([]*redis.MapStringStringCmd, len(ids))
	warnings := make([]*redis.StringSliceCmd, len(ids))
	for i, id := range ids {
		fields[i] = pipe.HGetAll(ctx, q.jobKey(id))
		warnings[i] = pipe.LRange(ctx, q.jobKey(id)+":warnings", 0, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load jobs: %w", err)
	}

	jobs := make([]*domain.Job, 0, len(ids))
	for i := range ids {
		m := fields[i].Val()
		if len(m) == 0 {
			continue
		}
		job, err := parseJob(m)
		if err != nil {
			return nil, err
		}
		if w := warnings[i].Val(); len(w) > 0 {
			job.Warnings = w
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func parseJob(m map[string]string) (*domain.Job, error) {
	job := &domain.Job{
		ID:          m["id"],
		DocumentID:  m["document_id"],
		Type:        domain.JobType(m["job_type"]),
		Status:      domain.JobStatus(m["status"]),
		CurrentStep: m["current_step"],
	}
	if p, err := strconv.Atoi(m["progress"]); err == nil {
		job.Progress = p
	}
	if msg, ok := m["error_message"]; ok {
		job.ErrorMessage = &msg
	}

	created, err := time.Parse(timeLayout, m["created_at"])
	if err != nil {
		return nil, fmt.Errorf("parse created_at of job %s: %w", job.ID, err)
	}
	job.CreatedAt = created

	for field, dst := range map[string]**time.Time{
		"started_at":   &job.StartedAt,
		"completed_at": &job.CompletedAt,
		"failed_at":    &job.FailedAt,
		"cancelled_at": &job.CancelledAt,
	} {
		raw, ok := m[field]
		if !ok {
			continue
		}
		t, err := time.Parse(timeLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s of job %s: %w", field, job.ID, err)
		}
		*dst = &t
	}
	return job, nil
}

// LatestForDocument implements driven.JobQueue.
func (q *JobQueue) LatestForDocument(ctx context.Context, documentID string) (*domain.Job, error) {
	id, err := q.client.Get(ctx, q.docKey(documentID, domain.JobTypeFullProcessing)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return q.Get(ctx, id)
}

// List implements driven.JobQueue.
func (q *JobQueue) List(ctx context.Context, filter domain.JobFilter) ([]*domain.Job, error) {
	var ids []string
	var err error
	if filter.Status != "" {
		ids, err = q.client.SMembers(ctx, q.prefix+"jobs:status:"+string(filter.Status)).Result()
	} else {
		ids, err = q.client.ZRevRange(ctx, q.prefix+"jobs:all", 0, -1).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	jobs, err := q.load(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := jobs[:0]
	for _, job := range jobs {
		if filter.DocumentID == "" || job.DocumentID == filter.DocumentID {
			out = append(out, job)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

// FailStale implements driven.JobQueue. Each job is failed by its own
// compare-and-swap, so a job that finishes meanwhile is left alone.
func (q *JobQueue) FailStale(ctx context.Context, cutoff time.Time, message string) ([]*domain.Job, error) {
	ids, err := q.client.ZRangeByScore(ctx, q.prefix+"jobs:processing", &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("find stale jobs: %w", err)
	}

	var failed []*domain.Job
	for _, id := range ids {
		err := q.Fail(ctx, id, message)
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return failed, err
		}
		job, err := q.Get(ctx, id)
		if err != nil {
			return failed, err
		}
		failed = append(failed, job)
	}
	return failed, nil
}

// Stats implements driven.JobQueue.
func (q *JobQueue) Stats(ctx context.Context) (*domain.QueueStats, error) {
	statuses := []domain.JobStatus{
		domain.JobStatusPending,
		domain.JobStatusProcessing,
		domain.JobStatusCompleted,
		domain.JobStatusFailed,
		domain.JobStatusCancelled,
	}

	pipe := q.client.Pipeline()
	counts := make([]*redis.IntCmd, len(statuses))
	for i, s := range statuses {
		counts[i] = pipe.SCard(ctx, q.prefix+"jobs:status:"+string(s))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	stats := &domain.QueueStats{}
	for i, s := range statuses {
		stats.Add(s, counts[i].Val())
	}
	return stats, nil
}

// Ping implements driven.JobQueue.
func (q *JobQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close implements driven.JobQueue. The client belongs to the caller.
func (q *JobQueue) Close() error {
	return nil
}
