// Package redisstore implements the storage contracts over Redis. Documents
// are JSON values under typed keys; the conditional updates the capacity and
// upsert invariants depend on run as server-side Lua scripts; secondary
// indexes are ZSETs and SETs maintained alongside the documents. Index reads
// always re-check the document, so a stale index entry can cause extra reads
// but never a wrong answer.
package redisstore

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
)

const (
	jobKeyPrefix     = "job:"
	openJobsKey      = "jobs:open"
	jobsByDayPrefix  = "jobs:day:"
	availRecPrefix   = "avail:rec:"
	availSlotPrefix  = "avail:slot:"
	availByDateKey   = "avail:active"
	availByLabPrefix = "avail:labourer:"
	appKeyPrefix     = "app:rec:"
	appPairPrefix    = "app:pair:"
	appsByJobPrefix  = "app:job:"
	reminderPrefix   = "reminder:"
	tokensKey        = "user:push_tokens"
)

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// mapScriptErr translates error replies produced by the Lua scripts into
// the domain taxonomy.
func mapScriptErr(err error, op string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "NOT_FOUND"):
		return errors.NotFound(op, err)
	case strings.Contains(msg, "CAPACITY_EXCEEDED"):
		return errors.CapacityExceeded(op, err)
	case strings.Contains(msg, "ALREADY_FINALIZED"):
		return errors.AlreadyFinalized(op, err)
	default:
		return errors.Internal(op, err)
	}
}

func isNil(err error) bool {
	return err == redis.Nil
}

// jsonArray encodes v, guaranteeing "[]" rather than "null" for empty input
// so the Lua side always sees an array.
func jsonArray(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return "[]", nil
	}
	return string(data), nil
}
