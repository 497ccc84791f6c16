//go:build statsview

package statsview

import (
	"context"
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"

	"github.com/FabianRolfMatthiasNoll/DeckBoy/internal/logger"
)

// DefaultAddress is used when Launch is given an empty address.
const DefaultAddress = "localhost:12700"

const path = "/debug/statsview"

// Launch serves the graphs at addr until ctx is done. The server runs in its
// own goroutine; the address is written to output once it has been started.
func Launch(ctx context.Context, addr string, output io.Writer) {
	if addr == "" {
		addr = DefaultAddress
	}
	viewer.SetConfiguration(viewer.WithAddr(addr))
	mgr := statsview.New()

	go mgr.Start()
	go func() {
		<-ctx.Done()
		mgr.Stop()
		logger.Log("statsview", "stopped")
	}()

	logger.Logf("statsview", "serving on %s%s", addr, path)
	fmt.Fprintf(output, "stats: http://%s%s\n", addr, path)
}

func Available() bool {
	return true
}
