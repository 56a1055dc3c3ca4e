package dialect

import "strings"

// GetDialect returns the appropriate Dialect implementation based on driver name.
func GetDialect(driver string) Dialect {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql":
		return &PostgresDialect{}
	case "sqlserver", "mssql":
		return &MSSQLDialect{}
	case "oracle":
		return &OracleDialect{}
	default: // mysql
		return &MysqlDialect{}
	}
}

// Supported reports whether a database/sql driver name has a dialect.
func Supported(driver string) bool {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "sqlserver", "mssql", "oracle", "mysql":
		return true
	}
	return false
}

// DriverName maps configuration aliases onto the name the driver registered
// with database/sql.
func DriverName(driver string) string {
	switch strings.ToLower(driver) {
	case "postgresql":
		return "postgres"
	case "mssql":
		return "sqlserver"
	}
	return strings.ToLower(driver)
}

// Ensure interface implementation
var _ Dialect = (*MysqlDialect)(nil)
var _ Dialect = (*PostgresDialect)(nil)
var _ Dialect = (*MSSQLDialect)(nil)
var _ Dialect = (*OracleDialect)(nil)
