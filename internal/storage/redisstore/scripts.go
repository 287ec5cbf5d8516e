package redisstore

import "github.com/redis/go-redis/v9"

// The conditional updates the engine depends on run as Lua scripts so the
// read-check-write cycle is atomic on the Redis side. Each script returns
// the updated document, or an error reply carrying the domain error type.

// incrementFilledScript: KEYS[1] = job key, KEYS[2] = open-jobs zset.
// ARGV[1] = labourer id, ARGV[2] = timestamp (RFC3339), ARGV[3] = job id.
var incrementFilledScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return redis.error_reply('NOT_FOUND: job missing')
end
local job = cjson.decode(raw)
if job['labourers_filled'] >= job['labourers_required'] then
  return redis.error_reply('CAPACITY_EXCEEDED: job at capacity')
end
job['labourers_filled'] = job['labourers_filled'] + 1
local accepted = job['accepted_labourers']
if type(accepted) ~= 'table' then
  accepted = {}
end
table.insert(accepted, {labourer_id = ARGV[1], accepted_at = ARGV[2]})
job['accepted_labourers'] = accepted
job['updated_at'] = ARGV[2]
raw = cjson.encode(job)
redis.call('SET', KEYS[1], raw)
if job['labourers_filled'] >= job['labourers_required'] then
  redis.call('ZREM', KEYS[2], ARGV[3])
end
return raw
`)

// updateJobScript rewrites contractor-editable fields while preserving the
// counter fields, which only move through incrementFilledScript.
// KEYS[1] = job key. ARGV[1] = replacement document.
var updateJobScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return redis.error_reply('NOT_FOUND: job missing')
end
local old = cjson.decode(raw)
local job = cjson.decode(ARGV[1])
job['labourers_filled'] = old['labourers_filled']
job['accepted_labourers'] = old['accepted_labourers']
raw = cjson.encode(job)
redis.call('SET', KEYS[1], raw)
return raw
`)

// setJobActiveScript: KEYS[1] = job key. ARGV[1] = "1" or "0".
var setJobActiveScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return redis.error_reply('NOT_FOUND: job missing')
end
local job = cjson.decode(raw)
job['is_active'] = ARGV[1] == '1'
raw = cjson.encode(job)
redis.call('SET', KEYS[1], raw)
return raw
`)

// repairFilledScript overwrites the counter with a value recomputed from
// accepted applications. KEYS[1] = job key, KEYS[2] = open-jobs zset.
// ARGV[1] = filled count, ARGV[2] = accepted list JSON, ARGV[3] = job id,
// ARGV[4] = timestamp.
var repairFilledScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return redis.error_reply('NOT_FOUND: job missing')
end
local job = cjson.decode(raw)
job['labourers_filled'] = tonumber(ARGV[1])
local accepted = cjson.decode(ARGV[2])
if next(accepted) == nil then
  job['accepted_labourers'] = nil
else
  job['accepted_labourers'] = accepted
end
job['updated_at'] = ARGV[4]
raw = cjson.encode(job)
redis.call('SET', KEYS[1], raw)
if job['labourers_filled'] >= job['labourers_required'] then
  redis.call('ZREM', KEYS[2], ARGV[3])
end
return raw
`)

// upsertAvailabilityScript creates or replaces the single active record for
// one (labourer, day) slot. A replacement keeps the original id and creation
// time, so a repeated declaration never spawns a duplicate.
// KEYS[1] = slot key, KEYS[2] = active-by-date zset, KEYS[3] = labourer set.
// ARGV[1] = record JSON, ARGV[2] = date score, ARGV[3] = record key prefix.
var upsertAvailabilityScript = redis.NewScript(`
local doc = cjson.decode(ARGV[1])
local created = 1
local existing = redis.call('GET', KEYS[1])
if existing then
  local old = cjson.decode(existing)
  doc['id'] = old['id']
  doc['created_at'] = old['created_at']
  created = 0
end
local raw = cjson.encode(doc)
redis.call('SET', KEYS[1], raw)
redis.call('SET', ARGV[3] .. doc['id'], raw)
redis.call('ZADD', KEYS[2], ARGV[2], doc['id'])
redis.call('SADD', KEYS[3], doc['id'])
return {created, raw}
`)

// transitionAvailabilityScript moves a record between statuses. A record no
// longer in the expected status is a no-op, which keeps the expiry sweep
// idempotent. KEYS[1] = record key, KEYS[2] = active-by-date zset.
// ARGV[1] = from, ARGV[2] = to, ARGV[3] = record id, ARGV[4] = slot prefix.
var transitionAvailabilityScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return redis.error_reply('NOT_FOUND: availability record missing')
end
local doc = cjson.decode(raw)
if doc['status'] ~= ARGV[1] then
  return {0, raw}
end
doc['status'] = ARGV[2]
raw = cjson.encode(doc)
redis.call('SET', KEYS[1], raw)
if ARGV[1] == 'active' then
  local day = string.sub(doc['date'], 1, 10)
  redis.call('DEL', ARGV[4] .. doc['labourer_id'] .. ':' .. day)
  redis.call('ZREM', KEYS[2], ARGV[3])
end
return {1, raw}
`)

// appendMatchesScript appends matchedJobs audit entries, skipping jobs the
// record already carries, and refreshes the active slot copy when present.
// KEYS[1] = record key, KEYS[2] unused (reserved). ARGV[1] = matches JSON,
// ARGV[2] = slot prefix.
var appendMatchesScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return redis.error_reply('NOT_FOUND: availability record missing')
end
local doc = cjson.decode(raw)
local matched = doc['matched_jobs']
if type(matched) ~= 'table' then
  matched = {}
end
local seen = {}
for _, m in ipairs(matched) do
  seen[m['job_id']] = true
end
local added = 0
for _, m in ipairs(cjson.decode(ARGV[1])) do
  if not seen[m['job_id']] then
    table.insert(matched, m)
    seen[m['job_id']] = true
    added = added + 1
  end
end
if next(matched) ~= nil then
  doc['matched_jobs'] = matched
end
raw = cjson.encode(doc)
redis.call('SET', KEYS[1], raw)
if doc['status'] == 'active' then
  local day = string.sub(doc['date'], 1, 10)
  local slot = ARGV[2] .. doc['labourer_id'] .. ':' .. day
  if redis.call('EXISTS', slot) == 1 then
    redis.call('SET', slot, raw)
  end
end
return added
`)

// transitionApplicationScript enforces the write-once-terminal status.
// KEYS[1] = application key. ARGV[1] = from, ARGV[2] = to, ARGV[3] = time.
var transitionApplicationScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return redis.error_reply('NOT_FOUND: application missing')
end
local app = cjson.decode(raw)
if app['status'] ~= ARGV[1] then
  return redis.error_reply('ALREADY_FINALIZED: application status is terminal')
end
app['status'] = ARGV[2]
app['decided_at'] = ARGV[3]
raw = cjson.encode(app)
redis.call('SET', KEYS[1], raw)
return raw
`)
