package mediagraph

import (
	"fmt"
	"strings"
)

// Default element names used by the built-in description and expected by
// the daemon's default configuration.
const (
	DefaultSelectorName = "camera-input-selector"
	DefaultTapName      = "timing-tap"
)

// DefaultDescription returns a two-source test graph with the same shape as
// the production camera graph: each source feeds a queue into the shared
// input-selector, and the selected stream passes the timing tap on its way
// to the sink. videotestsrc stands in for the capture devices so the hub
// can run on any machine.
func DefaultDescription() string {
	return strings.Join([]string{
		fmt.Sprintf("videotestsrc is-live=true pattern=ball ! video/x-raw,width=640,height=480,framerate=30/1 ! queue ! %s.sink_0", DefaultSelectorName),
		fmt.Sprintf("videotestsrc is-live=true pattern=smpte ! video/x-raw,width=640,height=480,framerate=30/1 ! queue ! %s.sink_1", DefaultSelectorName),
		fmt.Sprintf("input-selector name=%s sync-mode=1 cache-buffers=false sync-streams=false !", DefaultSelectorName),
		fmt.Sprintf("identity name=%s silent=true !", DefaultTapName),
		"fakesink sync=false async=false",
	}, " ")
}
