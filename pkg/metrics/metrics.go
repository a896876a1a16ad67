package metrics

import (
	"io"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// Routes set the /metrics routes.
//
// Default prometheus handler comes with two collectors:
//   - ProcessCollector: cpu, memory and file descriptor usage as well as the
//     process start time for the given process id under the given
//     namespace...
//   - GoCollector: current go process, goroutines, GC pauses, ...
func Routes(g *echo.Group) {
	g.GET("", echo.WrapHandler(promhttp.Handler()))
}

// Dump writes the metrics of the default registry in the text exposition
// format. Only the families with a cmis prefix are written.
func Dump(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "cmis_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
