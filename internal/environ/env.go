package environ

import (
	"os"
	"sort"
	"strings"
)

type Enver interface {
	Environ() []string
	LookupEnv(v string) (string, bool)
	Getenv(string) string
}

var _ Enver = (*osEnv)(nil)

type osEnv struct{}

// OS returns the process environment.
func OS() Enver { return osEnv{} }

func (osEnv) Environ() []string                 { return os.Environ() }
func (osEnv) LookupEnv(v string) (string, bool) { return os.LookupEnv(v) }
func (osEnv) Getenv(v string) string            { return os.Getenv(v) }

var _ Enver = (envMap)(nil)

type envMap map[string]string

// FromList builds an Enver from KEY=value entries. Entries without '='
// are stored with an empty value.
func FromList(env []string) Enver {
	m := make(envMap, len(env))
	for _, v := range env {
		if len(v) == 0 {
			continue
		}
		k, val, _ := strings.Cut(v, `=`)
		m[k] = val
	}
	return m
}

func (m envMap) LookupEnv(v string) (string, bool) {
	val, ok := m[v]
	return val, ok
}

func (m envMap) Getenv(v string) string { return m[v] }

func (m envMap) Environ() []string {
	env := make([]string, 0, len(m))
	for k, v := range m {
		env = append(env, k+`=`+v)
	}
	sort.Strings(env)
	return env
}

// IsSet reports whether the variable is present at all; like the C
// getenv() check it doesn't care about the value.
func IsSet(e Enver, name string) bool {
	if e == nil {
		return false
	}
	_, ok := e.LookupEnv(name)
	return ok
}
