package queue

import "github.com/redis/go-redis/v9"

// Each job move between lists runs as one script so a failed call leaves the
// job where it was.

// KEYS: delayed, wait, job hash. ARGV: id, status field, waiting status.
var promoteScript = redis.NewScript(`
if redis.call("ZREM", KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[3], ARGV[2], ARGV[3])
redis.call("LPUSH", KEYS[2], ARGV[1])
return 1
`)

// KEYS: active, wait, job hash, lock. ARGV: id, status field, waiting status,
// stalled count field.
var requeueStalledScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[4]) == 1 then
	return 0
end
if redis.call("LREM", KEYS[1], 1, ARGV[1]) == 0 then
	return 0
end
redis.call("HINCRBY", KEYS[3], ARGV[4], 1)
redis.call("HSET", KEYS[3], ARGV[2], ARGV[3])
redis.call("RPUSH", KEYS[2], ARGV[1])
return 1
`)

// KEYS: failed, wait, job hash. ARGV: id, status field, waiting status,
// attempts field, failed reason field, finished on field.
// Returns -1 for an unknown job and 0 when the job is not in the failed list.
var retryScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[3]) == 0 then
	return -1
end
if redis.call("LREM", KEYS[1], 1, ARGV[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[3], ARGV[2], ARGV[3], ARGV[4], 0, ARGV[5], "")
redis.call("HDEL", KEYS[3], ARGV[6])
redis.call("LPUSH", KEYS[2], ARGV[1])
return 1
`)
