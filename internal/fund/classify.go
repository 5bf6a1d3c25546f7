package fund

import "strings"

// Type is a coarse fund category inferred from the fund name.
type Type string

const (
	TypeQDII    Type = "qdii"
	TypeIndex   Type = "index"
	TypeBond    Type = "bond"
	TypeMoney   Type = "money"
	TypeRegular Type = "regular"
	// TypeUnknown marks a fund whose name could not be resolved.
	TypeUnknown Type = "unknown"
)

// Classify infers the fund type from its name. It never fails; unknown names
// are TypeRegular.
func Classify(name string) Type {
	upper := strings.ToUpper(name)
	switch {
	case strings.Contains(upper, "QDII"):
		return TypeQDII
	case strings.Contains(name, "指数"), strings.Contains(upper, "ETF"):
		return TypeIndex
	case strings.Contains(name, "债券"), strings.Contains(name, "纯债"):
		return TypeBond
	case strings.Contains(name, "货币"):
		return TypeMoney
	default:
		return TypeRegular
	}
}
