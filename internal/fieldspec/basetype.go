package fieldspec

//go:generate go tool stringer -type=BaseType -linecomment -output=basetype_string.go

// BaseType is the scalar type named by a specification.
type BaseType int

const (
	_ BaseType = iota // zero value is invalid

	TypeInt      // int
	TypeFloat    // float
	TypeBool     // bool
	TypeStr      // str
	TypeDate     // date
	TypeTime     // time
	TypeDatetime // dt
	TypeUUID     // uuid
	TypeDict     // dict
	TypeAny      // any

	// TypeTotal is the number of base types defined.
	TypeTotal = int(iota)
)

var baseTypes = map[string]BaseType{
	"int":      TypeInt,
	"float":    TypeFloat,
	"bool":     TypeBool,
	"str":      TypeStr,
	"string":   TypeStr,
	"date":     TypeDate,
	"time":     TypeTime,
	"dt":       TypeDatetime,
	"datetime": TypeDatetime,
	"uuid":     TypeUUID,
	"dict":     TypeDict,
	"any":      TypeAny,
}

// LookupType resolves a type token, accepting aliases.
func LookupType(name string) (BaseType, bool) {
	t, ok := baseTypes[name]
	return t, ok
}

// IsValid reports whether t is one of the declared base types.
func (t BaseType) IsValid() bool {
	return t > 0 && int(t) < TypeTotal
}

// IsNumber reports whether values of t are ordered numbers.
func (t BaseType) IsNumber() bool {
	return t == TypeInt || t == TypeFloat
}

// IsTemporal reports whether values of t are time.Time.
func (t BaseType) IsTemporal() bool {
	return t == TypeDate || t == TypeTime || t == TypeDatetime
}
