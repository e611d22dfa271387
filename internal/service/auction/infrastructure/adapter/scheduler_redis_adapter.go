// internal/service/auction/infrastructure/adapter/scheduler_redis_adapter.go
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"gavel/internal/pkg/redis"
	"gavel/internal/service/auction/domain/port"
)

const (
	scheduleScriptName = "schedule_job"
	popDueScriptName   = "pop_due_jobs"
	ackScriptName      = "ack_job"
	reclaimScriptName  = "reclaim_jobs"
	cancelScriptName   = "cancel_auction_jobs"

	pendingKey  = "gavel:jobs:pending"  // ZSET，score = 到期时间戳(毫秒)，member = 去重键
	payloadKey  = "gavel:jobs:payload"  // HASH，field = 去重键，value = 任务 JSON
	inflightKey = "gavel:jobs:inflight" // ZSET，score = 租约到期时间戳(毫秒)

	// leaseDuration 是弹出任务后到确认投递的租约窗口。轮询器崩溃时
	// 租约到期的任务会被搬回待执行队列，代价是多投一次而不是丢任务。
	leaseDuration = 30 * time.Second
)

// SchedulerRedisAdapter 是 port.JobScheduler 接口的 Redis 实现。
// 排队中的任务放在一个按到期时间排序的 ZSET 里，member 就是 (type, auction)
// 去重键：对同键再次 ZADD 只会更新 score，天然就是"顶替而非追加"，
// 这正是 penny 拍卖连续出价只保留最新结束任务所依赖的原语。
//
// 到期任务不直接删除：先搬进带租约的 in-flight ZSET，投递成功后 Ack 清账，
// 租约过期则由 ReclaimExpired 搬回待执行队列重投。
type SchedulerRedisAdapter struct {
	redisClient *redis.Client
	now         func() time.Time
}

// NewSchedulerRedisAdapter 创建调度器适配器，创建时加载所需 Lua 脚本。
func NewSchedulerRedisAdapter(redisClient *redis.Client) (*SchedulerRedisAdapter, error) {
	scripts := map[string]string{
		scheduleScriptName: scheduleScript,
		popDueScriptName:   popDueScript,
		ackScriptName:      ackScript,
		reclaimScriptName:  reclaimScript,
		cancelScriptName:   cancelScript,
	}
	for name, content := range scripts {
		if err := redisClient.LoadScriptFromContent(name, content); err != nil {
			return nil, fmt.Errorf("failed to load %s script: %w", name, err)
		}
	}
	return &SchedulerRedisAdapter{redisClient: redisClient, now: time.Now}, nil
}

// ScheduleAt 实现去重调度：同键的排队任务被本次调度顶替。
func (a *SchedulerRedisAdapter) ScheduleAt(ctx context.Context, job port.Job, at time.Time) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "failed to marshal job payload")
	}
	keys := []string{pendingKey, payloadKey, inflightKey}
	args := []interface{}{job.DedupKey(), at.UnixMilli(), string(payload)}
	if _, err := a.redisClient.RunScript(ctx, scheduleScriptName, keys, args...); err != nil {
		return errors.Wrap(err, "scheduler failed to run schedule script")
	}
	return nil
}

// ScheduleNow 立即入队。
func (a *SchedulerRedisAdapter) ScheduleNow(ctx context.Context, job port.Job) error {
	return a.ScheduleAt(ctx, job, a.now())
}

// CancelForAuction 撤销某场拍卖仍在排队的生命周期任务。
// 通知类任务带收件人后缀，只在结拍后产生，不在取消范围内。
func (a *SchedulerRedisAdapter) CancelForAuction(ctx context.Context, auctionID uuid.UUID) error {
	members := []interface{}{}
	for _, t := range []port.JobType{port.JobStartAuction, port.JobFinishAuction, port.JobStartReminder} {
		members = append(members, port.Job{Type: t, AuctionID: auctionID}.DedupKey())
	}
	keys := []string{pendingKey, payloadKey, inflightKey}
	if _, err := a.redisClient.RunScript(ctx, cancelScriptName, keys, members...); err != nil {
		return errors.Wrap(err, "scheduler failed to run cancel script")
	}
	return nil
}

// PopDue 原子地把至多 limit 个到期任务搬进 in-flight 并返回，由轮询器调用。
// 每个返回的任务都必须在投递成功后调用 Ack，否则租约到期会被重投。
func (a *SchedulerRedisAdapter) PopDue(ctx context.Context, now time.Time, limit int) ([]port.Job, error) {
	keys := []string{pendingKey, payloadKey, inflightKey}
	leaseExpiry := now.Add(leaseDuration).UnixMilli()
	result, err := a.redisClient.RunScript(ctx, popDueScriptName, keys, now.UnixMilli(), limit, leaseExpiry)
	if err != nil {
		return nil, errors.Wrap(err, "scheduler failed to run pop-due script")
	}
	raw, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected result type from pop-due script: %T", result)
	}

	jobs := make([]port.Job, 0, len(raw))
	for _, item := range raw {
		payload, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected payload type from pop-due script: %T", item)
		}
		var job port.Job
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal job payload")
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Ack 确认一个已成功投递的任务，结束其租约。
// 同键任务已被重新调度（又回到了待执行队列）时保留载荷，只清租约。
func (a *SchedulerRedisAdapter) Ack(ctx context.Context, job port.Job) error {
	keys := []string{inflightKey, pendingKey, payloadKey}
	if _, err := a.redisClient.RunScript(ctx, ackScriptName, keys, job.DedupKey()); err != nil {
		return errors.Wrap(err, "scheduler failed to run ack script")
	}
	return nil
}

// ReclaimExpired 把租约过期仍未确认的任务搬回待执行队列，返回搬回的数量。
// 轮询器每个周期调用一次，兜住"弹出之后、投递确认之前"崩溃的窗口。
func (a *SchedulerRedisAdapter) ReclaimExpired(ctx context.Context, now time.Time) (int, error) {
	keys := []string{inflightKey, pendingKey}
	result, err := a.redisClient.RunScript(ctx, reclaimScriptName, keys, now.UnixMilli())
	if err != nil {
		return 0, errors.Wrap(err, "scheduler failed to run reclaim script")
	}
	reclaimed, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected result type from reclaim script: %T", result)
	}
	return int(reclaimed), nil
}

var scheduleScript = `
-- KEYS[1]: 排队任务 ZSET
-- KEYS[2]: 任务载荷 HASH
-- KEYS[3]: in-flight ZSET
-- ARGV[1]: 去重键
-- ARGV[2]: 到期时间戳(毫秒)
-- ARGV[3]: 任务 JSON

-- ZADD 对已存在 member 只更新 score，配合覆盖载荷即是顶替语义。
-- 同键任务若还在 in-flight，新调度接管它：旧投递完成后的 Ack 不会再清载荷
redis.call('zadd', KEYS[1], ARGV[2], ARGV[1])
redis.call('hset', KEYS[2], ARGV[1], ARGV[3])
redis.call('zrem', KEYS[3], ARGV[1])
return 1
`

var popDueScript = `
-- KEYS[1]: 排队任务 ZSET
-- KEYS[2]: 任务载荷 HASH
-- KEYS[3]: in-flight ZSET
-- ARGV[1]: 当前时间戳(毫秒)
-- ARGV[2]: 一次最多弹出的任务数
-- ARGV[3]: 租约到期时间戳(毫秒)

-- 到期任务搬进 in-flight 而不是删除，载荷保留到 Ack，保证至少一次投递
local due = redis.call('zrangebyscore', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
local payloads = {}
for _, member in ipairs(due) do
    redis.call('zrem', KEYS[1], member)
    local payload = redis.call('hget', KEYS[2], member)
    if payload then
        redis.call('zadd', KEYS[3], ARGV[3], member)
        table.insert(payloads, payload)
    end
end
return payloads
`

var ackScript = `
-- KEYS[1]: in-flight ZSET
-- KEYS[2]: 排队任务 ZSET
-- KEYS[3]: 任务载荷 HASH
-- ARGV[1]: 去重键

redis.call('zrem', KEYS[1], ARGV[1])
-- 同键任务已被重新调度时载荷归新任务所有，不能清
if redis.call('zscore', KEYS[2], ARGV[1]) == false then
    redis.call('hdel', KEYS[3], ARGV[1])
end
return 1
`

var reclaimScript = `
-- KEYS[1]: in-flight ZSET
-- KEYS[2]: 排队任务 ZSET
-- ARGV[1]: 当前时间戳(毫秒)

local expired = redis.call('zrangebyscore', KEYS[1], '-inf', ARGV[1])
for _, member in ipairs(expired) do
    redis.call('zrem', KEYS[1], member)
    redis.call('zadd', KEYS[2], ARGV[1], member)
end
return #expired
`

var cancelScript = `
-- KEYS[1]: 排队任务 ZSET
-- KEYS[2]: 任务载荷 HASH
-- KEYS[3]: in-flight ZSET
-- ARGV: 要撤销的去重键列表

local removed = 0
for _, member in ipairs(ARGV) do
    removed = removed + redis.call('zrem', KEYS[1], member)
    redis.call('zrem', KEYS[3], member)
    redis.call('hdel', KEYS[2], member)
end
return removed
`
