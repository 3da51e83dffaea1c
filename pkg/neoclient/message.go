package neoclient

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	json "github.com/nspcc-dev/go-ordered-json"
)

// ErrEmptyMessage is returned for an empty set of messages.
var ErrEmptyMessage = errors.New("no messages to execute")

// decodeCall converts {"entry_point": {"a": 1, "b": "x"}} message into
// entryPoint method call with (1, "x") arguments. Arguments follow the
// document order of the object keys.
func decodeCall(msg []byte) (string, []any, error) {
	v, err := decodeJSON(msg)
	if err != nil {
		return "", nil, err
	}
	obj, ok := v.(json.OrderedObject)
	if !ok || len(obj) != 1 {
		return "", nil, fmt.Errorf("message %s must be an object with a single entry point", msg)
	}
	if obj[0].Key == "" {
		return "", nil, errors.New("empty entry point name")
	}
	args, err := objectArgs(obj[0].Value)
	if err != nil {
		return "", nil, fmt.Errorf("entry point %q: %w", obj[0].Key, err)
	}
	return methodName(obj[0].Key), args, nil
}

// decodeArgs converts {"a": 1, "b": "x"} (or null/empty) message into a list
// of arguments.
func decodeArgs(msg []byte) ([]any, error) {
	if len(bytes.TrimSpace(msg)) == 0 {
		return nil, nil
	}
	v, err := decodeJSON(msg)
	if err != nil {
		return nil, err
	}
	return objectArgs(v)
}

func decodeJSON(msg []byte) (any, error) {
	d := json.NewDecoder(bytes.NewReader(msg))
	d.UseOrderedObject()
	d.UseNumber()

	var v any
	if err := d.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid message JSON: %w", err)
	}
	if d.More() {
		return nil, errors.New("invalid message JSON: trailing data")
	}
	return v, nil
}

func objectArgs(v any) ([]any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case json.OrderedObject:
		args := make([]any, 0, len(v))
		for i := range v {
			a, err := convertValue(v[i].Value)
			if err != nil {
				return nil, fmt.Errorf("argument %q: %w", v[i].Key, err)
			}
			args = append(args, a)
		}
		return args, nil
	default:
		return nil, fmt.Errorf("arguments must be an object, got %T", v)
	}
}

func convertValue(v any) (any, error) {
	switch v := v.(type) {
	case nil, string, bool:
		return v, nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		if b, ok := new(big.Int).SetString(v.String(), 10); ok {
			return b, nil
		}
		return nil, fmt.Errorf("non-integer number %s", v)
	case []any:
		res := make([]any, len(v))
		for i := range v {
			e, err := convertValue(v[i])
			if err != nil {
				return nil, err
			}
			res[i] = e
		}
		return res, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// methodName converts snake_case entry point into lowerCamelCase contract
// method name ("get_count" -> "getCount").
func methodName(entry string) string {
	var (
		sb    strings.Builder
		upper bool
	)
	for _, r := range entry {
		if r == '_' {
			upper = sb.Len() != 0
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
