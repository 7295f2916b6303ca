// Package statsview runs a local HTTP server offering runtime statistics of
// the emulator process. Underlying functionality is provided by
// "github.com/go-echarts/statsview".
//
// After launch, graphs are at localhost:12600/debug/statsview and the
// standard pprof pages at localhost:12600/debug/pprof/.
package statsview

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const (
	Address = "localhost:12600"
	url     = "/debug/statsview"
)

// Launch starts the server on its own goroutine and tells output where to
// find it.
func Launch(output io.Writer) {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(Address))
		mgr := statsview.New()
		slog.Debug("statsview: start", "addr", Address)
		mgr.Start()
	}()

	fmt.Fprintf(output, "stats server available at %s\n", URL())
}

// URL is the address of the graphs page.
func URL() string {
	return fmt.Sprintf("http://%s%s", Address, url)
}
