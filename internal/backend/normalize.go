package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/insurai/portal/pkg/logger"
)

// aliases maps folded backend keys onto the folded canonical field name.
// Keys are folded before lookup, so claim_type and claimType share an entry.
var aliases = map[string]string{
	"hrid":          "assignedhrid",
	"assignedto":    "assignedhrid",
	"isread":        "readstatus",
	"read":          "readstatus",
	"reason":        "fraudreason",
	"fraudreasons":  "fraudreason",
	"claimamount":   "amount",
	"claimtitle":    "title",
	"claimtype":     "type",
	"date":          "claimdate",
	"submittedat":   "claimdate",
	"coverage":      "coverageamount",
	"premium":       "monthlypremium",
	"question":      "querytext",
	"query":         "querytext",
	"answer":        "response",
	"isavailable":   "available",
	"availability":  "available",
	"empid":         "employeeid",
	"timestamp":     "createdat",
	"policytitle":   "policyname",
	"documentlinks": "documents",
	"documenturls":  "documents",
}

// fold reduces a key to its case- and separator-insensitive form.
func fold(key string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return unicode.ToLower(r)
	}, key)
}

// canonicalKey folds a backend key and resolves known aliases.
func canonicalKey(key string) string {
	folded := fold(key)
	if alias, ok := aliases[folded]; ok {
		return alias
	}
	return folded
}

// canonicalize rewrites every map key in the payload to its canonical form.
// When two source keys collide the first non-nil value wins.
func canonicalize(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, inner := range typed {
			canonical := canonicalKey(key)
			if existing, ok := out[canonical]; ok && existing != nil {
				continue
			}
			out[canonical] = canonicalize(inner)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, inner := range typed {
			out[i] = canonicalize(inner)
		}
		return out
	default:
		return value
	}
}

// Decode normalises a raw backend JSON document into target.
func Decode(raw []byte, target any) error {
	var payload any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return fmt.Errorf("decode backend payload: %w", err)
	}
	return DecodeValue(unwrapEnvelope(payload, target), target)
}

// unwrapEnvelope strips {"data": [...]} style wrappers when a list is expected.
func unwrapEnvelope(payload any, target any) any {
	envelope, ok := payload.(map[string]any)
	if !ok {
		return payload
	}
	rv := reflect.TypeOf(target)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Slice {
		return payload
	}
	for _, key := range []string{"data", "content", "items", "results"} {
		if inner, ok := envelope[key]; ok {
			return inner
		}
	}
	return payload
}

// DecodeValue normalises an already parsed payload into target.
func DecodeValue(payload any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			decimalHook,
			timeHook,
			numberHook,
			mapstructure.StringToSliceHookFunc(";"),
		),
		MatchName: func(mapKey, fieldName string) bool {
			return mapKey == canonicalKey(fieldName)
		},
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(canonicalize(payload)); err != nil {
		return fmt.Errorf("normalize backend payload: %w", err)
	}
	return nil
}

var (
	decimalType = reflect.TypeOf(decimal.Decimal{})
	timeType    = reflect.TypeOf(time.Time{})
)

// decimalHook parses money fields. Non-numeric input becomes zero.
func decimalHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case nil:
		return decimal.Zero, nil
	case json.Number:
		return parseDecimal(v.String()), nil
	case string:
		return parseDecimal(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case decimal.Decimal:
		return v, nil
	default:
		return decimal.Zero, nil
	}
}

func parseDecimal(value string) decimal.Decimal {
	cleaned := strings.NewReplacer(",", "", "$", "", "₹", "").Replace(strings.TrimSpace(value))
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// timeHook accepts ISO timestamps, bare dates, epoch millis and the
// [y, m, d, h, min, s] arrays some Java backends emit.
func timeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType {
		return data, nil
	}
	switch v := data.(type) {
	case nil:
		return time.Time{}, nil
	case string:
		return parseTime(v)
	case json.Number:
		ms, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q", v)
		}
		return time.UnixMilli(ms).UTC(), nil
	case []any:
		return timeFromParts(v)
	default:
		return data, nil
	}
}

func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	// Unknown layouts decode as the zero time so one odd row cannot fail a list.
	logger.WithModule("backend").Debug("unrecognised time value", zap.String("value", value))
	return time.Time{}, nil
}

func timeFromParts(parts []any) (time.Time, error) {
	nums := make([]int, 6)
	for i := 0; i < len(parts) && i < len(nums); i++ {
		n, err := strconv.Atoi(fmt.Sprint(parts[i]))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time component %v", parts[i])
		}
		nums[i] = n
	}
	if nums[1] == 0 {
		nums[1] = 1
	}
	if nums[2] == 0 {
		nums[2] = 1
	}
	return time.Date(nums[0], time.Month(nums[1]), nums[2], nums[3], nums[4], nums[5], 0, time.UTC), nil
}

// numberHook converts json.Number into the numeric kind of the target field.
func numberHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	num, ok := data.(json.Number)
	if !ok {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i, err := num.Int64(); err == nil {
			return i, nil
		}
		f, err := num.Float64()
		if err != nil {
			return nil, err
		}
		return int64(f), nil
	case reflect.Float32, reflect.Float64:
		return num.Float64()
	case reflect.String:
		return num.String(), nil
	case reflect.Bool:
		return num.String() != "0", nil
	default:
		return data, nil
	}
}
