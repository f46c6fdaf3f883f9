package repository

import (
	"time"
)

// Row values arrive typed from the in-memory store and loosely typed from the
// database driver, so the converters below normalize both shapes.

func rowString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return ""
	}
}

func rowStringPtr(v any) *string {
	if v == nil {
		return nil
	}
	s := rowString(v)
	if s == "" {
		return nil
	}
	return &s
}

func rowIntPtr(v any) *int {
	switch val := v.(type) {
	case nil:
		return nil
	case int:
		return &val
	case int32:
		i := int(val)
		return &i
	case int64:
		i := int(val)
		return &i
	default:
		return nil
	}
}

func rowFloatPtr(v any) *float64 {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		return &val
	case float32:
		f := float64(val)
		return &f
	default:
		return nil
	}
}

func rowTime(v any) time.Time {
	if t, ok := v.(time.Time); ok {
		return t
	}
	return time.Time{}
}
