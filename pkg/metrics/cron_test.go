package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "barcode-expiry"
	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)
	metrics.IncSkipped()

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "freshbasket_job_success_total", "job", job)
	require.NoError(t, err)
	require.Equal(t, float64(1), got)

	got, err = fetchCounterValue(mfs, "freshbasket_job_failure_total", "job", job)
	require.NoError(t, err)
	require.Equal(t, float64(1), got)

	sum, err := fetchHistogramSum(mfs, "freshbasket_job_duration_seconds", "job", job)
	require.NoError(t, err)
	require.Greater(t, sum, float64(0))

	skipped := findMetricFamily(mfs, "freshbasket_cron_cycle_skipped_total")
	require.NotNil(t, skipped)
	require.Equal(t, float64(1), skipped.GetMetric()[0].GetCounter().GetValue())
}

func TestNilRecordersAreNoops(t *testing.T) {
	var cron *CronJobMetrics
	cron.IncSuccess("x")
	NewCronJobMetrics(nil).IncFailure("x")

	var barcodes *BarcodeMetrics
	barcodes.Issued(1000)
	NewBarcodeMetrics(nil).Transitioned("used", 1)
}

func TestBarcodeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBarcodeMetrics(reg)
	m.Issued(3000)
	m.Issued(1000)
	m.Transitioned("expired", 3)
	m.Transitioned("used", 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	active, err := fetchCounterValue(mfs, "freshbasket_barcode_transitions_total", "status", "active")
	require.NoError(t, err)
	require.Equal(t, float64(2), active)

	expired, err := fetchCounterValue(mfs, "freshbasket_barcode_transitions_total", "status", "expired")
	require.NoError(t, err)
	require.Equal(t, float64(3), expired)

	_, err = fetchCounterValue(mfs, "freshbasket_barcode_transitions_total", "status", "used")
	require.Error(t, err)

	points := findMetricFamily(mfs, "freshbasket_barcode_points_issued_total")
	require.NotNil(t, points)
	require.Equal(t, float64(4000), points.GetMetric()[0].GetCounter().GetValue())
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
