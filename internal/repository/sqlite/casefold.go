package sqlite

import (
	"database/sql/driver"
	"fmt"
	"strings"

	sqlitedriver "modernc.org/sqlite"
)

// casefold lower-cases text with full Unicode rules. SQLite's own LIKE and
// lower() only fold ASCII letters, so "Émile" would not match "émile".
const casefold = "casefold"

func init() {
	if err := sqlitedriver.RegisterDeterministicScalarFunction(casefold, 1, foldCase); err != nil {
		panic(fmt.Sprintf("register %s: %v", casefold, err))
	}
}

func foldCase(_ *sqlitedriver.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return nil, fmt.Errorf("%s: unsupported argument type %T", casefold, v)
	}
}

// likeFold matches column against a LIKE pattern ignoring case.
func likeFold(column string) string {
	return casefold + "(" + column + ") LIKE " + casefold + `(?) ESCAPE '\'`
}
