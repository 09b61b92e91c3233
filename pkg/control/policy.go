//go:build linux

package control

import "strings"

// defaultProtected is the base-command set the policy ships with:
// shells, SSH, init systems, login and desktop session managers.
// Killing one of these usually takes the user's session with it.
var defaultProtected = []string{
	"bash", "sh", "zsh", "fish", "tcsh", "csh",
	"sshd", "ssh",
	"systemd", "init",
	"systemd-logind", "login",
	"gnome-session", "kde-session", "xfce4-session",
}

// Policy decides which processes are critical. pid 1 and the calling
// process are always protected regardless of the command set.
type Policy struct {
	protected map[string]struct{}
}

// NewPolicy builds a policy protecting the default set plus any extra
// base command names.
func NewPolicy(extra ...string) Policy {
	p := Policy{protected: make(map[string]struct{}, len(defaultProtected)+len(extra))}
	for _, name := range defaultProtected {
		p.protected[name] = struct{}{}
	}
	for _, name := range extra {
		if name = strings.TrimSpace(name); name != "" {
			p.protected[name] = struct{}{}
		}
	}
	return p
}

// Critical reports whether a process with the given pid and command line
// is protected.
func (p Policy) Critical(pid int, command string) bool {
	if pid == 1 {
		return true
	}
	name := BaseCommand(command)
	if name == "" {
		return false
	}
	if _, ok := p.protected[name]; ok {
		return true
	}
	// Prefix match catches versioned names such as "sshd:" listings.
	for prot := range p.protected {
		if strings.HasPrefix(name, prot) {
			return true
		}
	}
	return false
}

// BaseCommand extracts the bare command name from a full command line:
// the login-shell dash, any path prefix, and all arguments are stripped.
func BaseCommand(command string) string {
	cmd := strings.TrimSpace(command)
	cmd = strings.TrimPrefix(cmd, "-")
	if fields := strings.Fields(cmd); len(fields) > 0 {
		cmd = fields[0]
	} else {
		return ""
	}
	if i := strings.LastIndex(cmd, "/"); i >= 0 {
		cmd = cmd[i+1:]
	}
	return cmd
}
