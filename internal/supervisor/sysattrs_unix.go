//go:build !windows

package supervisor

import (
	"fmt"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"
)

// configureSysProcAttr detaches the child from the invoking session
// (setsid) so it survives CLI exit, and applies the run-as credential when
// one was resolved.
func configureSysProcAttr(cmd *exec.Cmd, cred *syscall.Credential) {
	attrs := &syscall.SysProcAttr{Setsid: true}
	if cred != nil {
		attrs.Credential = cred
	}
	cmd.SysProcAttr = attrs
}

// lookupCredential resolves the spec's user/group names to a
// syscall.Credential. Returns nil when no identity switch is requested.
func lookupCredential(userName, groupName string) (*syscall.Credential, error) {
	if userName == "" {
		return nil, nil
	}
	u, err := user.Lookup(userName)
	if err != nil {
		return nil, fmt.Errorf("lookup user %q: %w", userName, err)
	}
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("parse uid %q: %w", u.Uid, err)
	}
	gidStr := u.Gid
	if groupName != "" {
		g, err := user.LookupGroup(groupName)
		if err != nil {
			return nil, fmt.Errorf("lookup group %q: %w", groupName, err)
		}
		gidStr = g.Gid
	}
	gid, err := strconv.ParseUint(gidStr, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("parse gid %q: %w", gidStr, err)
	}
	return &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)}, nil
}
