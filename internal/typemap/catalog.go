// Package typemap translates relational source column types into ClickHouse
// column types. Every lookup is pure: the same input always yields the same
// destination type and nothing is read from or written to a database.
package typemap

import (
	"database/sql"
	"fmt"
	"strings"
)

// Family groups source types that share a destination representation and a
// value conversion rule.
type Family int

const (
	Unknown Family = iota
	Integer
	Float
	Decimal
	Bit
	Date
	DateTime
	String
	Binary
	UUID
)

func (f Family) String() string {
	switch f {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Decimal:
		return "decimal"
	case Bit:
		return "bit"
	case Date:
		return "date"
	case DateTime:
		return "datetime"
	case String:
		return "string"
	case Binary:
		return "binary"
	case UUID:
		return "uuid"
	default:
		return "unknown"
	}
}

// Fallback is the destination type used for source types the catalog does
// not know.
const Fallback = "String"

// Metadata carries the size information reported by the source catalog.
type Metadata struct {
	Length    sql.NullInt64
	Precision sql.NullInt64
	Scale     sql.NullInt64
}

type entry struct {
	family  Family
	resolve func(Metadata) string
	shape   func(Metadata) (precision, scale int64, ok bool) // decimal entries only
}

func fixed(family Family, chType string) entry {
	return entry{family: family, resolve: func(Metadata) string { return chType }}
}

// MaxDecimalPrecision is the widest precision a ClickHouse Decimal column
// holds through the native protocol driver.
const MaxDecimalPrecision = 38

// decimalEntry resolves fixed point types. A zero defaultPrecision marks an
// unconstrained type (PostgreSQL numeric, Oracle NUMBER): without a declared
// precision or scale its values can carry any scale and land in Float64.
// Oracle NUMBER(*,s) declares only the scale and gets the maximum precision.
func decimalEntry(defaultPrecision, defaultScale int64) entry {
	shape := func(m Metadata) (int64, int64, bool) {
		precision, scale := defaultPrecision, defaultScale
		switch {
		case m.Precision.Valid && m.Precision.Int64 > 0:
			precision = m.Precision.Int64
			if m.Scale.Valid && m.Scale.Int64 >= 0 {
				scale = m.Scale.Int64
			}
		case defaultPrecision == 0 && m.Scale.Valid && m.Scale.Int64 >= 0:
			precision, scale = MaxDecimalPrecision, m.Scale.Int64
		}
		if precision <= 0 || precision > MaxDecimalPrecision {
			return 0, 0, false
		}
		if scale > precision {
			scale = precision
		}
		return precision, scale, true
	}
	return entry{family: Decimal, shape: shape, resolve: func(m Metadata) string {
		precision, scale, ok := shape(m)
		if !ok {
			return "Float64"
		}
		return DecimalType(precision, scale)
	}}
}

// catalog is keyed by the normalised source type tag. Spellings from SQL
// Server, MySQL, PostgreSQL (udt names) and Oracle share one table.
var catalog = map[string]entry{
	// integers
	"tinyint":   fixed(Integer, "UInt8"),
	"smallint":  fixed(Integer, "Int16"),
	"int2":      fixed(Integer, "Int16"),
	"mediumint": fixed(Integer, "Int32"),
	"int":       fixed(Integer, "Int32"),
	"integer":   fixed(Integer, "Int32"),
	"int4":      fixed(Integer, "Int32"),
	"serial":    fixed(Integer, "Int32"),
	"bigint":    fixed(Integer, "Int64"),
	"int8":      fixed(Integer, "Int64"),
	"bigserial": fixed(Integer, "Int64"),
	"year":      fixed(Integer, "Int16"),

	// bit / boolean
	"bit":     fixed(Bit, "UInt8"),
	"bool":    fixed(Bit, "UInt8"),
	"boolean": fixed(Bit, "UInt8"),

	// floating point
	"real":             fixed(Float, "Float32"),
	"float4":           fixed(Float, "Float32"),
	"binary_float":     fixed(Float, "Float32"),
	"float":            fixed(Float, "Float64"),
	"float8":           fixed(Float, "Float64"),
	"double":           fixed(Float, "Float64"),
	"double precision": fixed(Float, "Float64"),
	"binary_double":    fixed(Float, "Float64"),

	// fixed point
	"decimal":    decimalEntry(0, 0),
	"numeric":    decimalEntry(0, 0),
	"number":     decimalEntry(0, 0),
	"money":      decimalEntry(19, 4),
	"smallmoney": decimalEntry(10, 4),

	// temporal
	"date":           fixed(Date, "Date"),
	"datetime":       fixed(DateTime, "DateTime"),
	"datetime2":      fixed(DateTime, "DateTime"),
	"smalldatetime":  fixed(DateTime, "DateTime"),
	"datetimeoffset": fixed(DateTime, "DateTime"),
	"timestamp":      fixed(DateTime, "DateTime"),
	"timestamptz":    fixed(DateTime, "DateTime"),

	// character
	"char":              fixed(String, "String"),
	"nchar":             fixed(String, "String"),
	"bpchar":            fixed(String, "String"),
	"varchar":           fixed(String, "String"),
	"nvarchar":          fixed(String, "String"),
	"varchar2":          fixed(String, "String"),
	"nvarchar2":         fixed(String, "String"),
	"character":         fixed(String, "String"),
	"character varying": fixed(String, "String"),
	"text":              fixed(String, "String"),
	"ntext":             fixed(String, "String"),
	"tinytext":          fixed(String, "String"),
	"mediumtext":        fixed(String, "String"),
	"longtext":          fixed(String, "String"),
	"clob":              fixed(String, "String"),
	"nclob":             fixed(String, "String"),
	"xml":               fixed(String, "String"),
	"json":              fixed(String, "String"),
	"jsonb":             fixed(String, "String"),
	"enum":              fixed(String, "String"),
	"set":               fixed(String, "String"),
	"time":              fixed(String, "String"),

	// binary, hex encoded by the value transformer
	"binary":     fixed(Binary, "String"),
	"varbinary":  fixed(Binary, "String"),
	"image":      fixed(Binary, "String"),
	"blob":       fixed(Binary, "String"),
	"tinyblob":   fixed(Binary, "String"),
	"mediumblob": fixed(Binary, "String"),
	"longblob":   fixed(Binary, "String"),
	"bytea":      fixed(Binary, "String"),
	"raw":        fixed(Binary, "String"),
	"long raw":   fixed(Binary, "String"),
	"rowversion": fixed(Binary, "String"),

	// identifiers
	"uniqueidentifier": fixed(UUID, "String"),
	"uuid":             fixed(UUID, "String"),
}

// Normalize reduces a catalog type name to its lookup tag: lower case, no
// length suffix, time zone qualifiers folded.
func Normalize(sourceType string) string {
	t := strings.ToLower(strings.TrimSpace(sourceType))
	withTZ := strings.Contains(t, "with time zone") || strings.Contains(t, "with local time zone")
	if i := strings.IndexByte(t, '('); i >= 0 {
		rest := ""
		if j := strings.IndexByte(t[i:], ')'); j >= 0 {
			rest = t[i+j+1:]
		}
		t = strings.TrimSpace(t[:i] + rest)
	}
	t = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(t, "with local time zone"), "with time zone"))
	t = strings.TrimSpace(strings.TrimSuffix(t, "without time zone"))
	t = strings.TrimSpace(strings.TrimSuffix(t, "unsigned"))
	if t == "timestamp" && withTZ {
		return "timestamptz"
	}
	return t
}

// Map returns the ClickHouse type for a source type. Unknown source types
// map to Fallback.
func Map(sourceType string, meta Metadata) string {
	if e, ok := catalog[Normalize(sourceType)]; ok {
		return e.resolve(meta)
	}
	return Fallback
}

// Lookup is Map that also reports whether the source type was known.
func Lookup(sourceType string, meta Metadata) (string, bool) {
	e, ok := catalog[Normalize(sourceType)]
	if !ok {
		return Fallback, false
	}
	return e.resolve(meta), true
}

// DecimalShape returns the precision and scale of the ClickHouse Decimal
// column a source type maps to. ok is false when the type does not map to a
// Decimal, including fixed point types that fall back to Float64.
func DecimalShape(sourceType string, meta Metadata) (precision, scale int64, ok bool) {
	e, found := catalog[Normalize(sourceType)]
	if !found || e.shape == nil {
		return 0, 0, false
	}
	return e.shape(meta)
}

// FamilyOf classifies a source type.
func FamilyOf(sourceType string) Family {
	if e, ok := catalog[Normalize(sourceType)]; ok {
		return e.family
	}
	return Unknown
}

// DecimalType buckets a precision into the narrowest ClickHouse fixed point
// type that can hold it. Precisions wider than Decimal128 land in Float64,
// the representation the value transformer produces for this family anyway.
func DecimalType(precision, scale int64) string {
	switch {
	case precision <= 9:
		return fmt.Sprintf("Decimal32(%d)", scale)
	case precision <= 18:
		return fmt.Sprintf("Decimal64(%d)", scale)
	case precision <= 38:
		return fmt.Sprintf("Decimal128(%d)", scale)
	default:
		return "Float64"
	}
}

// Nullable wraps a destination type for a nullable source column.
func Nullable(chType string) string {
	if strings.HasPrefix(chType, "Nullable(") {
		return chType
	}
	return "Nullable(" + chType + ")"
}

// Orderable reports whether the source type can appear in an ORDER BY on
// every supported source. Large object types cannot.
func Orderable(sourceType string) bool {
	switch Normalize(sourceType) {
	case "text", "ntext", "image", "xml", "clob", "nclob", "blob", "long raw",
		"json", "sql_variant", "geography", "geometry", "hierarchyid":
		return false
	}
	return true
}
