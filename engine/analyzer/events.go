package analyzer

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/geoflag/geoflag/engine/domain"
	"github.com/geoflag/geoflag/pkg/natsutil"
)

// SubjectReportCompleted is the NATS subject completed reports are
// published on.
const SubjectReportCompleted = "geoflag.report.completed"

// NATSPublisher publishes completed reports as NATS events for
// downstream consumers.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

// NewNATSPublisher creates a publisher. subject defaults to
// SubjectReportCompleted.
func NewNATSPublisher(nc *nats.Conn, subject string) *NATSPublisher {
	if subject == "" {
		subject = SubjectReportCompleted
	}
	return &NATSPublisher{nc: nc, subject: subject}
}

// PublishReport emits the report with trace context attached.
func (p *NATSPublisher) PublishReport(ctx context.Context, report domain.AnalysisReport) error {
	return natsutil.Publish(ctx, p.nc, p.subject, report)
}
