package server

import (
	"fmt"
	"net/http"
)

type setupStep struct {
	Title       string
	Description string
	Commands    []string
}

type setupPlatform struct {
	Name  string
	Steps []setupStep
}

type setupData struct {
	Platforms []setupPlatform
}

// setupGuide builds the client setup steps for serverURL. Titles and
// descriptions are message ids.
func setupGuide(serverURL string) []setupPlatform {
	up := fmt.Sprintf("tailscale up --login-server=%s --authkey=YOUR_PREAUTH_KEY", serverURL)
	step := func(title, os, desc string, cmds ...string) setupStep {
		return setupStep{Title: "setup." + title, Description: "setup." + os + "." + desc, Commands: cmds}
	}
	keyNote := "# Replace YOUR_PREAUTH_KEY with your actual pre-auth key"
	return []setupPlatform{
		{Name: "Linux", Steps: []setupStep{
			step("installTailscale", "linux", "installDesc",
				"# Ubuntu/Debian",
				"curl -fsSL https://tailscale.com/install.sh | sh",
				"",
				"# Fedora/RHEL",
				"sudo dnf install tailscale",
				"",
				"# Arch Linux",
				"sudo pacman -S tailscale"),
			step("startTailscale", "linux", "startDesc", "sudo systemctl enable --now tailscaled"),
			step("connect", "linux", "connectDesc", keyNote, "sudo "+up),
			step("verify", "linux", "verifyDesc", "sudo tailscale status"),
		}},
		{Name: "Windows", Steps: []setupStep{
			step("installTailscale", "windows", "installDesc",
				"# Download from: https://tailscale.com/download/windows",
				"# Or use winget:",
				"winget install Tailscale.Tailscale"),
			step("startTailscale", "windows", "startDesc",
				"# Run the installer and follow the setup wizard",
				"# Tailscale will start automatically after installation"),
			step("connect", "windows", "connectDesc", "# Open PowerShell as Administrator", keyNote, up),
			step("verify", "windows", "verifyDesc", "tailscale status"),
		}},
		{Name: "macOS", Steps: []setupStep{
			step("installTailscale", "macos", "installDesc",
				"# Using Homebrew:",
				"brew install --cask tailscale",
				"",
				"# Or download from: https://tailscale.com/download/macos"),
			step("startTailscale", "macos", "startDesc",
				"# Open Tailscale from Applications folder",
				"# Or run from terminal:",
				"open /Applications/Tailscale.app"),
			step("connect", "macos", "connectDesc", "# Open Terminal", keyNote, "sudo "+up),
			step("verify", "macos", "verifyDesc", "tailscale status"),
		}},
	}
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "setup", s.page(w, r, "setup", "setup.title", setupData{
		Platforms: setupGuide(s.cfg.ServerURL()),
	}))
}
