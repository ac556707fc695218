package service

import (
	"github.com/prometheus/client_golang/prometheus"

	"rtodocs/internal/model"
)

// Metrics counts document lifecycle events. A nil *Metrics records nothing.
type Metrics struct {
	uploads   *prometheus.CounterVec
	decisions *prometheus.CounterVec
}

// NewMetrics registers the document counters on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documents_uploaded_total",
				Help: "Documents accepted by the registry, by document type.",
			},
			[]string{"document_type"},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documents_verifications_total",
				Help: "Verification decisions recorded, by outcome.",
			},
			[]string{"decision"},
		),
	}
	for _, c := range []prometheus.Collector{m.uploads, m.decisions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) uploaded(t model.DocumentType) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) decided(s model.Status) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(s)).Inc()
}
