// Package observability records operational counters in CloudWatch.
package observability

import (
	"context"

	"braindump/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

const metricNamespace = "BrainDump/Backend"

// CloudWatchMetrics implements ports.MetricsRecorder. Publishing is best
// effort; a failed PutMetricData is logged and dropped so metrics can never
// fail a request.
type CloudWatchMetrics struct {
	client *cloudwatch.Client
	logger *zap.Logger
}

// NewCloudWatchMetrics creates a new CloudWatchMetrics.
func NewCloudWatchMetrics(client *cloudwatch.Client, logger *zap.Logger) ports.MetricsRecorder {
	return &CloudWatchMetrics{
		client: client,
		logger: logger,
	}
}

// Count records a counter sample with the given dimensions.
func (m *CloudWatchMetrics) Count(ctx context.Context, name string, value float64, dimensions map[string]string) {
	dims := make([]types.Dimension, 0, len(dimensions))
	for k, v := range dimensions {
		dims = append(dims, types.Dimension{
			Name:  aws.String(k),
			Value: aws.String(v),
		})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(metricNamespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(name),
				Value:      aws.Float64(value),
				Unit:       types.StandardUnitCount,
				Dimensions: dims,
			},
		},
	})
	if err != nil {
		m.logger.Warn("Failed to publish metric",
			zap.Error(err),
			zap.String("metric", name),
		)
	}
}

// NoopMetrics discards all samples, used when metrics are disabled.
type NoopMetrics struct{}

// Count implements ports.MetricsRecorder.
func (NoopMetrics) Count(context.Context, string, float64, map[string]string) {}
