// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzers

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/depscope/services/audit/risk"
)

// lifecycleHooks are the npm script hooks that execute code on the
// installing machine.
var lifecycleHooks = []string{
	"preinstall",
	"install",
	"postinstall",
	"preuninstall",
	"uninstall",
	"postuninstall",
}

// dangerousCommands are substrings whose presence in a lifecycle
// script indicates network fetch, shell invocation, payload decoding,
// destruction, persistence, or exfiltration. Matched case-insensitively.
var dangerousCommands = []string{
	// Network operations
	"curl", "wget", "nc ", "nc.traditional", "netcat", "telnet", "ftp",

	// Shell execution
	"bash -c", "/bin/sh", "/bin/bash", "sh -c", "/bin/dash",
	"eval(", "eval ", "exec(", "exec ",

	// Encoding and obfuscation
	"base64", "base32", "rot13", "atob", "btoa",

	// Windows shells
	"powershell", "cmd.exe", "cmd /c",

	// Destructive operations
	"rm -rf", "rm -fr", "del /f", "rmdir /s",
	"format ", "> /dev/", "| /dev/", "dd if=",

	// Persistence
	"crontab", "systemctl", "launchctl", "at ", "schtasks",
	"service ", "chkconfig", "update-rc.d",

	// Exfiltration
	"scp", "sftp", "rsync", "tar czf", "zip -r",

	// Process manipulation
	"kill ", "pkill", "killall", "nohup",

	// Permission changes
	"chmod +x", "chmod 777", "chown", "chgrp",

	// Ad-hoc network listeners
	"python -m http.server", "python -m simplehttpserver",
	"php -s", "ruby -run", "nc -l",
}

// maxPatternsPerHook caps how many dangerous-command findings one hook
// can emit, so a long script cannot drown out the rest of the audit.
const maxPatternsPerHook = 3

// analyzeScripts inspects the resolved version's lifecycle hooks.
//
// A hook containing a dangerous command is Critical. A hook with no
// dangerous content is still worth knowing about (it runs arbitrary
// code at install time) and is reported at Info.
func analyzeScripts(in Input) []risk.Finding {
	if in.Version == nil || len(in.Version.Scripts) == 0 {
		return nil
	}

	var findings []risk.Finding
	for _, hook := range lifecycleHooks {
		content, ok := in.Version.Scripts[hook]
		if !ok {
			continue
		}
		matched := dangerousPatterns(content)
		if len(matched) == 0 {
			findings = append(findings, risk.Finding{
				Name:        "install_script_present",
				Severity:    risk.SeverityInfo,
				Category:    risk.CategorySecurity,
				Description: fmt.Sprintf("lifecycle hook %q executes code during installation", hook),
				Evidence:    hook,
			})
			continue
		}
		if len(matched) > maxPatternsPerHook {
			matched = matched[:maxPatternsPerHook]
		}
		for _, pattern := range matched {
			findings = append(findings, risk.Finding{
				Name:        "dangerous_install_script",
				Severity:    risk.SeverityCritical,
				Category:    risk.CategorySecurity,
				Description: fmt.Sprintf("lifecycle hook %q contains dangerous command %q", hook, strings.TrimSpace(pattern)),
				Evidence:    pattern,
			})
		}
	}
	return findings
}

// dangerousPatterns returns the dangerous commands present in content,
// in list order.
func dangerousPatterns(content string) []string {
	if content == "" {
		return nil
	}
	lower := strings.ToLower(content)

	var matched []string
	for _, cmd := range dangerousCommands {
		if strings.Contains(lower, cmd) {
			matched = append(matched, cmd)
		}
	}
	return matched
}
