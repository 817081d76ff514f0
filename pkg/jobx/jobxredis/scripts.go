package jobxredis

import "github.com/redis/go-redis/v9"

// Every script receives the key prefix as ARGV[1] and derives the
// index keys from it:
//
//	<p>:job:<id>       hash with the job fields
//	<p>:due            pending ids scored by run_at
//	<p>:claimed        running ids scored by claimed_at
//	<p>:finished       terminal ids scored by updated_at
//	<p>:idx:all        every id scored by created_at
//	<p>:idx:<status>   ids per status scored by created_at
//
// Keys are built inside the scripts rather than passed as KEYS, so the
// store needs a single-node client. Redis Cluster is not supported.

var insertScript = redis.NewScript(`
local p, id = ARGV[1], ARGV[2]
local key = p .. ':job:' .. id
if redis.call('EXISTS', key) == 1 then return 0 end
redis.call('HSET', key,
  'id', id, 'type', ARGV[3], 'payload', ARGV[4], 'status', 'pending',
  'run_at', ARGV[5], 'attempts', ARGV[6], 'max_attempts', ARGV[7],
  'last_error', '', 'claimed_at', '', 'created_at', ARGV[8], 'updated_at', ARGV[9])
redis.call('ZADD', p .. ':due', ARGV[5], id)
redis.call('ZADD', p .. ':idx:all', ARGV[8], id)
redis.call('ZADD', p .. ':idx:pending', ARGV[8], id)
return 1
`)

var claimScript = redis.NewScript(`
local p, id, now = ARGV[1], ARGV[2], ARGV[3]
local key = p .. ':job:' .. id
if redis.call('HGET', key, 'status') ~= 'pending' then return 0 end
if tonumber(redis.call('HGET', key, 'run_at')) > tonumber(now) then return 0 end
local created = redis.call('HGET', key, 'created_at')
redis.call('HINCRBY', key, 'attempts', 1)
redis.call('HSET', key, 'status', 'running', 'claimed_at', now, 'updated_at', now)
redis.call('ZREM', p .. ':due', id)
redis.call('ZADD', p .. ':claimed', now, id)
redis.call('ZREM', p .. ':idx:pending', id)
redis.call('ZADD', p .. ':idx:running', created, id)
return redis.call('HGETALL', key)
`)

// finishScript moves a running job held by attempt ARGV[3] to ARGV[4].
// ARGV[6] is the new last_error, or the sentinel "\0" to keep it;
// ARGV[7] is the run_at for a retry.
var finishScript = redis.NewScript(`
local p, id, attempt, to, now = ARGV[1], ARGV[2], ARGV[3], ARGV[4], ARGV[5]
local key = p .. ':job:' .. id
if redis.call('HGET', key, 'status') ~= 'running' then return 0 end
if redis.call('HGET', key, 'attempts') ~= attempt then return 0 end
local created = redis.call('HGET', key, 'created_at')
redis.call('HSET', key, 'status', to, 'claimed_at', '', 'updated_at', now)
if ARGV[6] ~= '\0' then redis.call('HSET', key, 'last_error', ARGV[6]) end
redis.call('ZREM', p .. ':claimed', id)
redis.call('ZREM', p .. ':idx:running', id)
redis.call('ZADD', p .. ':idx:' .. to, created, id)
if to == 'pending' then
  redis.call('HSET', key, 'run_at', ARGV[7])
  redis.call('ZADD', p .. ':due', ARGV[7], id)
else
  redis.call('ZADD', p .. ':finished', now, id)
end
return 1
`)

// cancelScript returns "ok" on success, the blocking status otherwise,
// or "" when the job does not exist.
var cancelScript = redis.NewScript(`
local p, id, now = ARGV[1], ARGV[2], ARGV[3]
local key = p .. ':job:' .. id
local status = redis.call('HGET', key, 'status')
if not status then return '' end
if status ~= 'pending' then return status end
local created = redis.call('HGET', key, 'created_at')
redis.call('HSET', key, 'status', 'cancelled', 'updated_at', now)
redis.call('ZREM', p .. ':due', id)
redis.call('ZREM', p .. ':idx:pending', id)
redis.call('ZADD', p .. ':idx:cancelled', created, id)
redis.call('ZADD', p .. ':finished', now, id)
return 'ok'
`)

var reapScript = redis.NewScript(`
local p, before, now, msg = ARGV[1], ARGV[2], ARGV[3], ARGV[4]
local ids = redis.call('ZRANGEBYSCORE', p .. ':claimed', '-inf', '(' .. before)
local requeued, failed = 0, 0
for _, id in ipairs(ids) do
  local key = p .. ':job:' .. id
  local attempts = tonumber(redis.call('HGET', key, 'attempts'))
  local max = tonumber(redis.call('HGET', key, 'max_attempts'))
  local created = redis.call('HGET', key, 'created_at')
  redis.call('ZREM', p .. ':claimed', id)
  redis.call('ZREM', p .. ':idx:running', id)
  redis.call('HSET', key, 'claimed_at', '', 'updated_at', now, 'last_error', msg)
  if attempts < max then
    redis.call('HSET', key, 'status', 'pending', 'run_at', now)
    redis.call('ZADD', p .. ':due', now, id)
    redis.call('ZADD', p .. ':idx:pending', created, id)
    requeued = requeued + 1
  else
    redis.call('HSET', key, 'status', 'failed')
    redis.call('ZADD', p .. ':finished', now, id)
    redis.call('ZADD', p .. ':idx:failed', created, id)
    failed = failed + 1
  end
end
return {requeued, failed}
`)

var pruneScript = redis.NewScript(`
local p, before = ARGV[1], ARGV[2]
local ids = redis.call('ZRANGEBYSCORE', p .. ':finished', '-inf', '(' .. before)
for _, id in ipairs(ids) do
  local key = p .. ':job:' .. id
  local status = redis.call('HGET', key, 'status')
  if status then redis.call('ZREM', p .. ':idx:' .. status, id) end
  redis.call('ZREM', p .. ':idx:all', id)
  redis.call('ZREM', p .. ':finished', id)
  redis.call('DEL', key)
end
return #ids
`)
