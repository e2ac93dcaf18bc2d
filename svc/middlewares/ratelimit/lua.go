package ratelimit

import "github.com/redis/go-redis/v9"

// the first key is the key which to store the ratelimit
// the second key is the stream that ban actions are published to
// the first argument is burst, which is the amount of tokens in the bucket
// the second argument is rate, which is number of tokens which are returned to the bucket
// the third argument is period, which is the time period for accounting
// the fourth argument is cost, the price of the request
var LuaAllowN = redis.NewScript(luaAllowNScript)

// slightly modified version of the scripts from here
// https://github.com/rwz/redis-gcra/blob/master/vendor/perform_gcra_ratelimit.lua
//
// on rejection it publishes a ban to the stream instead of just answering.
// duplicate bans are possible while the ban propagates to the directories,
// which is fine, applying a ban twice is a no-op.

var luaAllowNScript = `
-- this script has side-effects, so it requires replicate commands mode
redis.replicate_commands()

local rate_limit_key = KEYS[1]
local stream_key = KEYS[2]
local burst = ARGV[1]
local rate = ARGV[2]
local period = ARGV[3]
local cost = tonumber(ARGV[4])

local emission_interval = period / rate
local increment = emission_interval * cost
local burst_offset = emission_interval * burst

-- redis returns time as an array containing two integers: seconds of the epoch
-- time (10 digits) and microseconds (6 digits). for convenience we need to convert them to a floating point number.
-- the resulting number is 16 digits,
-- bordering on the limits of a 64-bit double-precision floating point number.
local now = redis.call("TIME")

-- reduce to millisecond precision so the number stays small. floating point
-- error does not matter here, usage is applied async and imprecise anyway.
now = (now[1]) + (math.floor(now[2] / 1000) / 1000)

local tat = redis.call("GET", rate_limit_key)

if not tat then
  tat = now
else
  tat = tonumber(tat)
end

tat = math.max(tat, now)

local new_tat = tat + increment
local allow_at = new_tat - burst_offset

local diff = now - allow_at
local remaining = diff / emission_interval

-- here the rate limit is hit
if remaining < 0 then
  local reset_after = tat - now
  local retry_after = diff * -1
  redis.call("XADD", stream_key, "*", "user", rate_limit_key, "action", "ban", "until", tostring(math.ceil(tat)))
  return {
    0, -- allowed
    0, -- remaining
    tostring(retry_after),
    tostring(reset_after),
  }
end

local reset_after = new_tat - now
if reset_after > 0 then
  redis.call("SET", rate_limit_key, new_tat, "EX", math.ceil(reset_after))
end
local retry_after = -1
return {cost, remaining, tostring(retry_after), tostring(reset_after)}
`
