package metrics

import "github.com/prometheus/client_golang/prometheus"

// BarcodeMetrics counts redemption barcode lifecycle transitions.
type BarcodeMetrics struct {
	transitions  *prometheus.CounterVec
	pointsIssued prometheus.Counter
}

func NewBarcodeMetrics(reg prometheus.Registerer) *BarcodeMetrics {
	if reg == nil {
		return &BarcodeMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "barcode_transitions_total",
		Help:      "Redemption barcode lifecycle transitions by resulting status.",
	}, []string{"status"})
	points := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "barcode_points_issued_total",
		Help:      "Loyalty points converted into barcodes.",
	})
	reg.MustRegister(transitions, points)
	return &BarcodeMetrics{transitions: transitions, pointsIssued: points}
}

// Issued records a new active barcode worth points.
func (b *BarcodeMetrics) Issued(points int64) {
	if b == nil || b.transitions == nil {
		return
	}
	b.transitions.WithLabelValues("active").Inc()
	b.pointsIssued.Add(float64(points))
}

// Transitioned records n barcodes moving into status.
func (b *BarcodeMetrics) Transitioned(status string, n int) {
	if b == nil || b.transitions == nil || n <= 0 {
		return
	}
	b.transitions.WithLabelValues(normalizeLabel(status)).Add(float64(n))
}
