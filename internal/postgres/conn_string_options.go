package postgres

import (
	"fmt"
	"net/url"
)

const (
	defaultDatabase = "memorywall"
	defaultUserName = "postgres"
)

// DevConnStringOptions points at a local development server.
var DevConnStringOptions = &ConnStringOptions{
	Host:     "localhost",
	Port:     5432,
	UserName: defaultUserName,
	Password: "password",
	Database: defaultDatabase,
}

type ConnStringOptions struct {
	Host     string
	Port     int
	UserName string
	Password string
	// Database holds the records table. Defaults to "memorywall".
	Database string
}

func (opt *ConnStringOptions) database() string {
	if opt.Database == "" {
		return defaultDatabase
	}
	return opt.Database
}

func (opt *ConnStringOptions) GetConnString(dbName string) string {
	return opt.getConnString(dbName, false)
}

// GetDebugConnString is GetConnString with the password masked, for logs and errors.
func (opt *ConnStringOptions) GetDebugConnString(dbName string) string {
	return opt.getConnString(dbName, true)
}

func (opt *ConnStringOptions) getConnString(dbName string, hidePassword bool) string {
	password := opt.Password
	if hidePassword && password != "" {
		password = "REDACTED"
	}
	userName := opt.UserName
	if userName == "" {
		userName = defaultUserName
	}

	query := url.Values{}
	query.Set("user", userName)
	query.Set("password", password)

	u := url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", opt.Host, opt.Port),
		Path:     "/" + dbName,
		RawQuery: query.Encode(),
	}
	return u.String()
}
