// Package transform converts values read from a source driver into the Go
// representation the ClickHouse column created for them accepts.
//
// Conversion is looked up by source type: a handful of type tags have their
// own converter, everything else is resolved through its type family. A
// conversion failure never aborts a batch; the value is replaced by its
// textual form and the failure is reported alongside.
package transform

import (
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"time"

	"db-transfer/internal/typemap"

	"github.com/araddon/dateparse"
	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// MinDateTime is the earliest instant a ClickHouse DateTime can hold. Older
// source values are clamped up to it.
var MinDateTime = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// Func converts one non-nil value.
type Func func(value any) (any, error)

// ConversionError records a value that could not be converted and was
// coerced to text instead.
type ConversionError struct {
	SourceType string
	Value      any
	Err        error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %T for %s: %v", e.Value, e.SourceType, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

var byFamily = map[typemap.Family]Func{
	typemap.Integer:  toInteger,
	typemap.Float:    toFloat,
	typemap.Decimal:  toDecimalFloat,
	typemap.Bit:      toBit,
	typemap.Date:     toTemporal,
	typemap.DateTime: toTemporal,
	typemap.String:   toText,
	typemap.Binary:   toHex,
	typemap.UUID:     toUUID,
	typemap.Unknown:  toText,
}

// byTag overrides the family converter for source types whose wire format
// is driver specific.
var byTag = map[string]Func{
	"uniqueidentifier": fromMSSQLUniqueIdentifier,
}

// For returns the converter for a source type whose column carries no size
// information. The returned Func handles nil itself.
func For(sourceType string) Func {
	return ForColumn(sourceType, typemap.Metadata{})
}

// ForColumn returns the converter for a column. Columns mapped to a
// ClickHouse Decimal get their values as the scaled integer the column
// stores, which the driver encodes without going through float64.
func ForColumn(sourceType string, meta typemap.Metadata) Func {
	tag := typemap.Normalize(sourceType)
	conv, ok := byTag[tag]
	if !ok {
		conv = byFamily[typemap.FamilyOf(tag)]
		if precision, scale, isDecimal := typemap.DecimalShape(tag, meta); isDecimal {
			conv = toScaledDecimal(precision, int32(scale))
		}
	}
	return func(value any) (any, error) {
		if value == nil {
			return nil, nil
		}
		return conv(value)
	}
}

// Convert transforms value for sourceType. On failure the textual form is
// returned together with a *ConversionError.
func Convert(value any, sourceType string) (any, error) {
	out, err := For(sourceType)(value)
	if err != nil {
		return textual(value), &ConversionError{SourceType: sourceType, Value: value, Err: err}
	}
	return out, nil
}

// Transform is Convert without the error report.
func Transform(value any, sourceType string) any {
	out, _ := Convert(value, sourceType)
	return out
}

// Row converts every cell of a row in place with per-column converters and
// returns the number of cells that fell back to text.
func Row(row []any, convs []Func) int {
	coerced := 0
	for i, v := range row {
		out, err := convs[i](v)
		if err != nil {
			out = textual(v)
			coerced++
		}
		row[i] = out
	}
	return coerced
}

func textual(value any) string {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}
	if s, err := cast.ToStringE(value); err == nil {
		return s
	}
	return fmt.Sprintf("%v", value)
}

func toInteger(value any) (any, error) {
	switch v := value.(type) {
	case []byte:
		return cast.ToInt64E(string(v))
	case string:
		return cast.ToInt64E(v)
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	}
	return value, nil
}

func toFloat(value any) (any, error) {
	switch v := value.(type) {
	case []byte:
		return cast.ToFloat64E(string(v))
	case string:
		return cast.ToFloat64E(v)
	}
	return value, nil
}

func toDecimalFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	}
	d, err := toDecimal(value)
	if err != nil {
		return nil, err
	}
	return d.InexactFloat64(), nil
}

func toDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case []byte:
		return decimal.NewFromString(string(v))
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return decimal.NewFromInt(cast.ToInt64(v)), nil
	}
	s, err := cast.ToStringE(value)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(s)
}

// toScaledDecimal produces the unscaled integer of a Decimal(precision,
// scale) column, rounded half away from zero: int32 up to precision 9,
// int64 up to 18, 16 little-endian two's complement bytes up to 38.
func toScaledDecimal(precision int64, scale int32) Func {
	return func(value any) (any, error) {
		d, err := toDecimal(value)
		if err != nil {
			return nil, err
		}
		unscaled := d.Shift(scale).Round(0).BigInt()
		switch {
		case precision <= 9:
			if !unscaled.IsInt64() || unscaled.Int64() > math.MaxInt32 || unscaled.Int64() < math.MinInt32 {
				return nil, fmt.Errorf("%s overflows Decimal32(%d)", d, scale)
			}
			return int32(unscaled.Int64()), nil
		case precision <= 18:
			if !unscaled.IsInt64() {
				return nil, fmt.Errorf("%s overflows Decimal64(%d)", d, scale)
			}
			return unscaled.Int64(), nil
		default:
			return decimal128(unscaled, d, scale)
		}
	}
}

var twoTo128 = new(big.Int).Lsh(big.NewInt(1), 128)

func decimal128(unscaled *big.Int, d decimal.Decimal, scale int32) ([]byte, error) {
	if unscaled.BitLen() > 127 {
		return nil, fmt.Errorf("%s overflows Decimal128(%d)", d, scale)
	}
	u := new(big.Int).Set(unscaled)
	if u.Sign() < 0 {
		u.Add(u, twoTo128)
	}
	out := u.FillBytes(make([]byte, 16))
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func toBit(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return uint8(1), nil
		}
		return uint8(0), nil
	case []byte:
		// MySQL BIT(1) arrives as a single raw byte.
		if len(v) == 1 && v[0] <= 1 {
			return v[0], nil
		}
		return toBit(string(v))
	}
	b, err := cast.ToBoolE(value)
	if err != nil {
		return nil, err
	}
	if b {
		return uint8(1), nil
	}
	return uint8(0), nil
}

func toTemporal(value any) (any, error) {
	var t time.Time
	switch v := value.(type) {
	case time.Time:
		t = v
	case []byte:
		parsed, err := dateparse.ParseIn(string(v), time.UTC)
		if err != nil {
			return nil, err
		}
		t = parsed
	case string:
		parsed, err := dateparse.ParseIn(v, time.UTC)
		if err != nil {
			return nil, err
		}
		t = parsed
	default:
		return nil, fmt.Errorf("unsupported temporal value %T", value)
	}
	return clamp(naive(t)), nil
}

// naive keeps the wall clock reading and drops the zone.
func naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func clamp(t time.Time) time.Time {
	if t.Before(MinDateTime) {
		return MinDateTime
	}
	return t
}

func toText(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case time.Time:
		if v.Year() <= 1 {
			// time-of-day columns come back on the zero date
			return v.Format("15:04:05.999999999"), nil
		}
		return v.Format("2006-01-02 15:04:05.999999999"), nil
	}
	return cast.ToStringE(value)
}

func toHex(value any) (any, error) {
	switch v := value.(type) {
	case []byte:
		return hex.EncodeToString(v), nil
	case string:
		return hex.EncodeToString([]byte(v)), nil
	}
	return nil, fmt.Errorf("unsupported binary value %T", value)
}

func toUUID(value any) (any, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v.String(), nil
	case [16]byte:
		return uuid.UUID(v).String(), nil
	case []byte:
		if len(v) == 16 {
			u, err := uuid.FromBytes(v)
			if err != nil {
				return nil, err
			}
			return u.String(), nil
		}
		u, err := uuid.ParseBytes(v)
		if err != nil {
			return nil, err
		}
		return u.String(), nil
	case string:
		u, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		return u.String(), nil
	}
	return nil, fmt.Errorf("unsupported uuid value %T", value)
}

// fromMSSQLUniqueIdentifier decodes SQL Server's mixed-endian GUID layout.
func fromMSSQLUniqueIdentifier(value any) (any, error) {
	var id mssql.UniqueIdentifier
	switch v := value.(type) {
	case []byte:
		if len(v) != 16 {
			return toUUID(v)
		}
		if err := id.Scan(v); err != nil {
			return nil, err
		}
	case string:
		return toUUID(v)
	default:
		if err := id.Scan(value); err != nil {
			return nil, err
		}
	}
	return toUUID(id.String())
}
