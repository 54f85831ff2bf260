package metrics

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Sample is one gathered series flattened for display. Histograms report
// their sample count and sum; counters and gauges report Value.
type Sample struct {
	Name   string  `json:"name"             yaml:"name"`
	Labels string  `json:"labels,omitempty" yaml:"labels,omitempty"`
	Value  float64 `json:"value"            yaml:"value"`
	Count  uint64  `json:"count,omitempty"  yaml:"count,omitempty"`
}

// Snapshot gathers every series from gatherer in name then label order.
func Snapshot(gatherer prometheus.Gatherer) ([]Sample, error) {
	families, err := gatherer.Gather()
	if err != nil {
		return nil, err
	}

	var samples []Sample

	for _, family := range families {
		for _, metric := range family.GetMetric() {
			sample := Sample{
				Name:   family.GetName(),
				Labels: formatLabels(metric.GetLabel()),
			}

			switch family.GetType() {
			case dto.MetricType_COUNTER:
				sample.Value = metric.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				sample.Value = metric.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				sample.Value = metric.GetHistogram().GetSampleSum()
				sample.Count = metric.GetHistogram().GetSampleCount()
			case dto.MetricType_SUMMARY:
				sample.Value = metric.GetSummary().GetSampleSum()
				sample.Count = metric.GetSummary().GetSampleCount()
			default:
				sample.Value = metric.GetUntyped().GetValue()
			}

			samples = append(samples, sample)
		}
	}

	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].Name != samples[j].Name {
			return samples[i].Name < samples[j].Name
		}

		return samples[i].Labels < samples[j].Labels
	})

	return samples, nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		parts = append(parts, pair.GetName()+"="+pair.GetValue())
	}

	return strings.Join(parts, ",")
}
