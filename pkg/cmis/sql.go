package cmis

import (
	"fmt"
	"strings"
)

var literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// QuoteLiteral returns s as a CMIS SQL string literal. The LIKE wildcards %
// and _ are kept as is.
func QuoteLiteral(s string) string {
	return "'" + literalEscaper.Replace(s) + "'"
}

// NameLikeStatement returns the statement used to find the objects of a base
// type by name pattern. Only cmis:objectId is selected: it is the one column
// that can still be read when the type of an object cannot be resolved.
func NameLikeStatement(baseType, pattern string) string {
	if baseType == "" {
		baseType = BaseObject
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s LIKE %s",
		PropObjectID, baseType, PropName, QuoteLiteral(pattern))
}
