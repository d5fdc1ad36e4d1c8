package logstream

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

const docsURL = "https://github.com/oznu/homebridge-config-ui-x#log-viewer-configuration"

// Banners are rendered for an xterm in the browser, not for our own
// stdout, so the profile is fixed instead of detected.
var profile = termenv.ANSI

func red(s string) string {
	return profile.String(s).Foreground(profile.Color("1")).String()
}

func cyan(s string) string {
	return profile.String(s).Foreground(profile.Color("6")).String()
}

func notConfiguredNotice() string {
	return red("Cannot show logs. \"log\" option is not configured correctly in your Homebridge config.json file.\r\n\r\n") +
		cyan(fmt.Sprintf("See %s for instructions.\r\n", docsURL))
}

func startBanner(method string, argv []string) string {
	return cyan(fmt.Sprintf("Loading logs using %q method...\r\n", method)) +
		cyan(fmt.Sprintf("CMD: %s\r\n\r\n", strings.Join(argv, " ")))
}

func exitDiagnostic(argv []string, code int) string {
	return "\r\n" +
		red(fmt.Sprintf("The log tail command %q exited with code %d.\r\n", strings.Join(argv, " "), code)) +
		red(fmt.Sprintf("Please check the command in your config.json is correct. See %s\r\n\r\n", docsURL))
}

func startFailure(argv []string, err error) string {
	return "\r\n" +
		red(fmt.Sprintf("The log tail command %q could not be started: %v.\r\n", strings.Join(argv, " "), err)) +
		red(fmt.Sprintf("Please check the command in your config.json is correct. See %s\r\n\r\n", docsURL))
}
