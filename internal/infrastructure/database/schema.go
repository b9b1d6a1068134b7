package database

import (
	"embed"
	"fmt"
)

// Supported drivers, matching config.DatabaseConfig.Driver
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed sql/*
var ddl embed.FS

// schema returns the DDL that creates the scan tables for a driver
func schema(driver string) (string, error) {
	b, err := ddl.ReadFile("sql/" + driver + ".sql")
	if err != nil {
		return "", fmt.Errorf("no schema for driver %q: %w", driver, err)
	}
	return string(b), nil
}
