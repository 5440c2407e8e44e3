package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Manager is a Node package manager.
type Manager string

const (
	ManagerNone Manager = ""
	NPM         Manager = "npm"
	Yarn        Manager = "yarn"
	PNPM        Manager = "pnpm"
	Bun         Manager = "bun"
)

// DefaultManagerOrder is pnpm-first.
var DefaultManagerOrder = []Manager{PNPM, Yarn, NPM, Bun}

var lockfiles = map[Manager][]string{
	PNPM: {"pnpm-lock.yaml"},
	Yarn: {"yarn.lock"},
	NPM:  {"package-lock.json"},
	Bun:  {"bun.lock", "bun.lockb"},
}

func (m Manager) String() string {
	if m == ManagerNone {
		return "none"
	}
	return string(m)
}

func ParseManager(s string) (Manager, error) {
	switch m := Manager(strings.ToLower(strings.TrimSpace(s))); m {
	case NPM, Yarn, PNPM, Bun:
		return m, nil
	}
	return ManagerNone, fmt.Errorf("unknown package manager %q", s)
}

// ParseManagerOrder converts policy strings into managers.
func ParseManagerOrder(names []string) ([]Manager, error) {
	if len(names) == 0 {
		return DefaultManagerOrder, nil
	}
	out := make([]Manager, 0, len(names))
	for _, n := range names {
		m, err := ParseManager(n)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Lockfiles returns the lockfile names that identify m.
func Lockfiles(m Manager) []string {
	return lockfiles[m]
}

// DetectManager probes lockfiles in order and returns the first manager
// whose lockfile exists, or ManagerNone.
func DetectManager(dir string, order []Manager) Manager {
	if len(order) == 0 {
		order = DefaultManagerOrder
	}
	for _, m := range order {
		for _, f := range lockfiles[m] {
			if _, err := os.Stat(filepath.Join(dir, f)); err == nil {
				return m
			}
		}
	}
	return ManagerNone
}

// UserAgentVar is set by npm, yarn, pnpm and bun for scripts they run,
// including npx/dlx/create entry points.
const UserAgentVar = "npm_config_user_agent"

// ManagerFromUserAgent parses values like "pnpm/9.1.0 npm/? node/v20.11.0".
func ManagerFromUserAgent(ua string) Manager {
	ua = strings.TrimSpace(ua)
	for _, m := range []Manager{Yarn, PNPM, Bun, NPM} {
		if strings.HasPrefix(ua, string(m)+"/") || ua == string(m) {
			return m
		}
	}
	return ManagerNone
}

// ManagerFromEnv reads the user agent from an env snapshot.
func ManagerFromEnv(env map[string]string) Manager {
	return ManagerFromUserAgent(env[UserAgentVar])
}
