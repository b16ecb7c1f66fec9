package routable

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// idKey normalises an identity value so the same record is found whether its
// id arrives as int64, string or []byte. UUIDs are keyed by their canonical form.
// Zero is a valid identity here; only isEmptyID treats it as "no parent".
func idKey(v interface{}) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case uuid.UUID:
		return val.String(), true
	case [16]byte:
		return uuid.UUID(val).String(), true
	case []byte:
		if len(val) == 0 {
			return "", false
		}
		if len(val) == 16 {
			if id, err := uuid.FromBytes(val); err == nil {
				return id.String(), true
			}
		}
		return scalarString(string(val)), true
	case string:
		if val == "" {
			return "", false
		}
		return scalarString(val), true
	default:
		return segmentValue(v), true
	}
}

func scalarString(s string) string {
	if len(s) == 36 {
		if id, err := uuid.Parse(s); err == nil {
			return id.String()
		}
	}
	return s
}

// segmentValue renders a field value as a path segment
func segmentValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		if val {
			return "1"
		}
		return "0"
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case uuid.UUID:
		return val.String()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// isEmptyID reports whether a parent reference points nowhere
func isEmptyID(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == "" || val == "0"
	case []byte:
		return len(val) == 0 || string(val) == "0"
	case int:
		return val == 0
	case int32:
		return val == 0
	case int64:
		return val == 0
	case uint:
		return val == 0
	case uint64:
		return val == 0
	case float64:
		return val == 0
	case bool:
		return !val
	case uuid.UUID:
		return val == uuid.Nil
	default:
		return false
	}
}

// isTruthy reports whether a marker field (home, link) is set
func isTruthy(v interface{}) bool {
	return !isEmptyID(v)
}
