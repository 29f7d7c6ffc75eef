package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// WriteSummary prints every non-zero codec counter, one per line, sorted.
func WriteSummary(w io.Writer) error {
	RegisterMetrics()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	var lines []string
	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), "lurk_") || family.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, m := range family.GetMetric() {
			v := m.GetCounter().GetValue()
			if v == 0 {
				continue
			}
			label := ""
			for _, pair := range m.GetLabel() {
				label += fmt.Sprintf(" %s=%s", pair.GetName(), pair.GetValue())
			}
			lines = append(lines, fmt.Sprintf("%s%s %g", family.GetName(), label, v))
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
