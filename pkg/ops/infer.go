package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowforge/redisrun/pkg/kv"
	"github.com/spf13/cast"
)

// ValueType is the resolved Redis primitive a read or write targets. It is
// an explicit enumeration so an unrecoverable inference failure is a
// distinct, testable error rather than a silent string fallback.
type ValueType int

const (
	// TypeNone means the key is absent or stored in an unsupported
	// representation; reads yield no result, which is not an error.
	TypeNone ValueType = iota
	TypeString
	TypeHash
	TypeList
	TypeSet
)

// TypeAutomatic is the sentinel type tag requesting inference.
const TypeAutomatic = "automatic"

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeHash:
		return "hash"
	case TypeList:
		return "list"
	case TypeSet:
		return "set"
	default:
		return "none"
	}
}

func parseTypeTag(tag string) (ValueType, bool) {
	switch tag {
	case "string":
		return TypeString, true
	case "hash":
		return TypeHash, true
	case "list":
		return TypeList, true
	case "set", "sets":
		return TypeSet, true
	default:
		return TypeNone, false
	}
}

// resolveReadType determines which primitive a read must target. An explicit
// tag is used directly; the automatic sentinel triggers TYPE introspection
// against the key. An unknown or unsupported introspected type resolves to
// TypeNone.
func resolveReadType(ctx context.Context, store kv.Store, key, tag string) (ValueType, error) {
	if tag != "" && tag != TypeAutomatic {
		vt, ok := parseTypeTag(tag)
		if !ok {
			return TypeNone, &ParameterError{Name: "keyType", Reason: fmt.Sprintf("unknown type %q", tag)}
		}
		return vt, nil
	}

	stored, err := store.Type(ctx, key)
	if err != nil {
		return TypeNone, err
	}
	vt, ok := parseTypeTag(stored)
	if !ok {
		return TypeNone, nil
	}
	return vt, nil
}

// readValue fetches the key according to the resolved type: scalar fetch for
// strings, full field map for hashes, full range for lists, full member set
// for sets. The second return reports whether a value was found.
func readValue(ctx context.Context, store kv.Store, key string, vt ValueType) (any, bool, error) {
	switch vt {
	case TypeString:
		value, err := store.Get(ctx, key)
		if err == kv.ErrNotFound {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return value, true, nil

	case TypeHash:
		fields, err := store.HGetAll(ctx, key)
		if err == kv.ErrNotFound {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		out := make(map[string]any, len(fields))
		for field, value := range fields {
			out[field] = value
		}
		return out, true, nil

	case TypeList:
		values, err := store.LRange(ctx, key, 0, -1)
		if err != nil {
			return nil, false, err
		}
		return values, true, nil

	case TypeSet:
		members, err := store.SMembers(ctx, key)
		if err != nil {
			return nil, false, err
		}
		return members, true, nil

	default:
		return nil, false, nil
	}
}

// inferWriteType resolves the primitive a write targets. An explicit tag is
// used directly; the automatic sentinel infers from the shape of the value:
// a primitive scalar writes a string, an ordered sequence a list, any other
// structured value a hash. There is no inference path to the set primitive;
// callers must request it explicitly.
func inferWriteType(tag string, value any) (ValueType, error) {
	if tag != "" && tag != TypeAutomatic {
		vt, ok := parseTypeTag(tag)
		if !ok {
			return TypeNone, &ParameterError{Name: "keyType", Reason: fmt.Sprintf("unknown type %q", tag)}
		}
		return vt, nil
	}

	switch value.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return TypeString, nil
	case []any, []string:
		return TypeList, nil
	case map[string]any, map[string]string:
		return TypeHash, nil
	default:
		return TypeNone, &ParameterError{Name: "value", Reason: "cannot infer a key type from the value shape"}
	}
}

// writeValue performs a typed write. mode qualifies the write as "nx" (only
// if absent) or "xx" (only if present); an unmet condition comes back as an
// unsuccessful SetResult, never an error. A positive ttl on a non-string
// type is applied with a separate EXPIRE call after the write; write and
// expiration are not atomic there, which is an accepted limitation.
func writeValue(ctx context.Context, store kv.Store, key string, vt ValueType, value any, ttl time.Duration, mode string, jsonValues bool) (SetResult, error) {
	ok := SetResult{Success: true, Operation: "set", Key: key}

	if mode != "" && mode != "nx" && mode != "xx" {
		return ok, &ParameterError{Name: "mode", Reason: fmt.Sprintf("unknown write mode %q", mode)}
	}

	if vt == TypeString {
		text, err := cast.ToStringE(value)
		if err != nil {
			return ok, &ParameterError{Name: "value", Reason: "value is not representable as a string"}
		}
		switch mode {
		case "":
			return ok, store.Set(ctx, key, text, ttl)
		case "nx":
			stored, err := store.SetNX(ctx, key, text, ttl)
			if err != nil {
				return ok, err
			}
			if !stored {
				return conditionNotMet(key, ReasonKeyAlreadyExists), nil
			}
			return ok, nil
		case "xx":
			stored, err := store.SetXX(ctx, key, text, ttl)
			if err != nil {
				return ok, err
			}
			if !stored {
				return conditionNotMet(key, ReasonKeyDoesNotExist), nil
			}
			return ok, nil
		}
	}

	// Conditional writes on non-string types use an EXISTS precheck. The
	// check and the write are not atomic; accepted for the same reason the
	// trailing EXPIRE is.
	if mode != "" {
		count, err := store.Exists(ctx, key)
		if err != nil {
			return ok, err
		}
		switch mode {
		case "nx":
			if count > 0 {
				return conditionNotMet(key, ReasonKeyAlreadyExists), nil
			}
		case "xx":
			if count == 0 {
				return conditionNotMet(key, ReasonKeyDoesNotExist), nil
			}
		default:
			return ok, &ParameterError{Name: "mode", Reason: fmt.Sprintf("unknown write mode %q", mode)}
		}
	}

	switch vt {
	case TypeList:
		values, err := stringSlice(value)
		if err != nil {
			return ok, err
		}
		if _, err := store.Del(ctx, key); err != nil {
			return ok, err
		}
		if len(values) > 0 {
			if _, err := store.RPush(ctx, key, values...); err != nil {
				return ok, err
			}
		}

	case TypeHash:
		fields, err := hashFields(value, jsonValues)
		if err != nil {
			return ok, err
		}
		if _, err := store.HSet(ctx, key, fields); err != nil {
			return ok, err
		}

	case TypeSet:
		members, err := stringSlice(value)
		if err != nil {
			return ok, err
		}
		if _, err := store.Del(ctx, key); err != nil {
			return ok, err
		}
		if len(members) > 0 {
			if _, err := store.SAdd(ctx, key, members...); err != nil {
				return ok, err
			}
		}

	default:
		return ok, &ParameterError{Name: "keyType", Reason: "no resolvable key type for write"}
	}

	if ttl > 0 {
		if _, err := store.Expire(ctx, key, ttl); err != nil {
			return ok, err
		}
	}
	return ok, nil
}

func conditionNotMet(key, reason string) SetResult {
	message := fmt.Sprintf("key %q already exists", key)
	if reason == ReasonKeyDoesNotExist {
		message = fmt.Sprintf("key %q does not exist", key)
	}
	return SetResult{
		Success:   false,
		Operation: "set",
		Key:       key,
		Reason:    reason,
		Message:   message,
	}
}

// stringSlice renders a list or set value: slices element-wise, strings as
// whitespace-separated tokens.
func stringSlice(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, e := range v {
			text, err := cast.ToStringE(e)
			if err != nil {
				encoded, jerr := json.Marshal(e)
				if jerr != nil {
					return nil, &ParameterError{Name: "value", Reason: "element is not representable as a string"}
				}
				text = string(encoded)
			}
			out[i] = text
		}
		return out, nil
	case string:
		return tokens(v), nil
	default:
		return nil, &ParameterError{Name: "value", Reason: "expected a sequence or a space-delimited string"}
	}
}

// hashFields renders a hash value. Structured maps are used directly. For
// strings, jsonValues selects between a JSON object encoding (a parse
// failure falls back to storing the raw string as a single opaque value,
// preserving backward compatibility) and a flat alternating field/value
// token sequence.
func hashFields(value any, jsonValues bool) (map[string]string, error) {
	switch v := value.(type) {
	case map[string]string:
		return v, nil

	case map[string]any:
		out := make(map[string]string, len(v))
		for field, e := range v {
			text, err := cast.ToStringE(e)
			if err != nil {
				encoded, jerr := json.Marshal(e)
				if jerr != nil {
					return nil, &ParameterError{Name: "value", Reason: fmt.Sprintf("field %q is not representable as a string", field)}
				}
				text = string(encoded)
			}
			out[field] = text
		}
		return out, nil

	case string:
		if jsonValues {
			var parsed map[string]any
			if err := json.Unmarshal([]byte(v), &parsed); err != nil {
				// Backward compatible fallback: keep the raw string as one
				// opaque value.
				return map[string]string{"value": v}, nil
			}
			return hashFields(parsed, false)
		}
		return pairs("value", tokens(v))

	default:
		return nil, &ParameterError{Name: "value", Reason: "expected an object or a string for a hash write"}
	}
}
