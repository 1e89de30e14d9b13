package common

import (
	"strconv"

	"github.com/teemow/odoocal/internal/tools/batch"
)

// targetArgs are the arguments naming the record a tool acts on, in order
// of preference.
var targetArgs = []string{"partner_id", "event_id", "record_id"}

// GetTargetFromArgs returns the record id the tool call targets, or "".
func GetTargetFromArgs(args map[string]any) string {
	for _, name := range targetArgs {
		v, ok := args[name]
		if !ok {
			continue
		}
		if id, err := batch.ParseID(v, name); err == nil {
			return strconv.FormatInt(id, 10)
		}
	}
	return ""
}

// GetInt64 returns the integer argument name. ok is false when the argument
// is absent.
func GetInt64(args map[string]any, name string) (id int64, ok bool, err error) {
	v, present := args[name]
	if !present || v == nil {
		return 0, false, nil
	}
	id, err = batch.ParseID(v, name)
	if err != nil {
		return 0, true, err
	}
	return id, true, nil
}

// RequireInt64 is like GetInt64 but fails when the argument is absent.
func RequireInt64(args map[string]any, name string) (int64, error) {
	id, ok, err := GetInt64(args, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return batch.ParseID(nil, name)
	}
	return id, nil
}

// GetBool returns the boolean argument name, false when absent or not a
// boolean.
func GetBool(args map[string]any, name string) bool {
	b, _ := args[name].(bool)
	return b
}
