package config

import (
	"fmt"
	"time"

	session "github.com/clipstream/go-session"
)

// BaseConfig is the application configuration root. go-config hydrates it
// from app.json plus environment overrides.
type BaseConfig struct {
	Name        string           `json:"name" yaml:"name"`
	Server      Server           `json:"server" yaml:"server"`
	Session     session.Settings `json:"session" yaml:"session"`
	Persistence Persistence      `json:"persistence" yaml:"persistence"`
}

func (a BaseConfig) Validate() error {
	return a.Session.Validate()
}

func (a BaseConfig) GetName() string {
	if a.Name == "" {
		return "clipstream"
	}
	return a.Name
}

func (a *BaseConfig) GetSession() session.Settings {
	return a.Session
}

func (a *BaseConfig) GetServer() Server {
	return a.Server
}

func (a *BaseConfig) GetPersistence() Persistence {
	return a.Persistence
}

type Server struct {
	Addr string `json:"addr" yaml:"addr"`
}

func (s Server) GetAddr() string {
	if s.Addr == "" {
		return ":8572"
	}
	return s.Addr
}

type Persistence struct {
	Debug                 bool   `json:"debug" yaml:"debug"`
	Driver                string `json:"driver" yaml:"driver"`
	Server                string `json:"server" yaml:"server"`
	Database              string `json:"database" yaml:"database"`
	PingTimeoutExpression string `json:"ping_timeout" yaml:"ping_timeout"`
}

func (p Persistence) GetDebug() bool {
	return p.Debug
}

func (p Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p Persistence) GetServer() string {
	return p.Server
}

func (p Persistence) GetDatabase() string {
	if p.Database == "" {
		return "file::memory:?cache=shared"
	}
	return p.Database
}

// GetDSN builds the connection string handed to sql.Open.
func (p Persistence) GetDSN() string {
	return p.GetDatabase()
}

func (p Persistence) GetOtelIdentifier() string {
	return ""
}

func (p Persistence) GetPingTimeout() time.Duration {
	if p.PingTimeoutExpression == "" {
		return 5 * time.Second
	}
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression),
		)
	}
	return dur
}
