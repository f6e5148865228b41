package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jmurray2011/quire/internal/config"
	"github.com/jmurray2011/quire/internal/logging"
	"github.com/jmurray2011/quire/internal/outline"
)

// ErrNotConfigured is returned when publishing is requested without a bucket.
var ErrNotConfigured = errors.New("publish.bucket is not configured")

var contentTypes = map[string]string{
	".md":   "text/markdown; charset=utf-8",
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".epub": "application/epub+zip",
}

// ObjectPutter is the S3 call used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// MetricPutter is the CloudWatch call used to report totals.
type MetricPutter interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Publisher uploads compiled files under s3://Bucket/Prefix/.
type Publisher struct {
	Objects  ObjectPutter
	Metrics  MetricPutter
	Identity IdentityGetter

	Bucket    string
	Prefix    string
	Namespace string
	Logger    logging.Logger
}

// FromConfig builds a Publisher backed by real AWS clients.
func FromConfig(ctx context.Context, cfg config.Publish, logger logging.Logger) (*Publisher, error) {
	if cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}
	clients, err := NewClients(ctx, cfg.Profile, cfg.Region)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		Objects:   clients.S3,
		Metrics:   clients.Metrics,
		Identity:  clients.Identity,
		Bucket:    cfg.Bucket,
		Prefix:    cfg.Prefix,
		Namespace: cfg.MetricsNamespace,
		Logger:    logger,
	}, nil
}

func (p *Publisher) log() logging.Logger {
	return logging.OrNop(p.Logger).WithField("component", "publish")
}

// Key returns the object key for a local file.
func (p *Publisher) Key(file string) string {
	return path.Join(p.Prefix, filepath.Base(file))
}

// Publish uploads each file and returns the s3:// URIs in the same order.
func (p *Publisher) Publish(ctx context.Context, files []string) ([]string, error) {
	if p.Bucket == "" {
		return nil, ErrNotConfigured
	}
	log := p.log().WithField("bucket", p.Bucket)

	if p.Identity != nil {
		account, err := AccountID(ctx, p.Identity)
		if err != nil {
			return nil, err
		}
		log.Debug("publishing as account %s", account)
	}

	uris := make([]string, 0, len(files))
	for _, file := range files {
		key := p.Key(file)
		if err := p.upload(ctx, file, key); err != nil {
			return uris, err
		}
		uri := fmt.Sprintf("s3://%s/%s", p.Bucket, key)
		log.Info("uploaded %s", uri)
		uris = append(uris, uri)
	}
	return uris, nil
}

func (p *Publisher) upload(ctx context.Context, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer func() { _ = f.Close() }()

	input := &s3.PutObjectInput{
		Bucket: aws.String(p.Bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct, ok := contentTypes[filepath.Ext(file)]; ok {
		input.ContentType = aws.String(ct)
	}

	if _, err := p.Objects.PutObject(ctx, input); err != nil {
		return fmt.Errorf("upload %s to s3://%s/%s: %w", file, p.Bucket, key, err)
	}
	return nil
}

// ReportTotals sends the project totals as CloudWatch metrics with a Project
// dimension. It does nothing when no namespace is configured.
func (p *Publisher) ReportTotals(ctx context.Context, projectName string, t outline.Totals, at time.Time) error {
	if p.Metrics == nil || p.Namespace == "" {
		return nil
	}

	dims := []types.Dimension{{Name: aws.String("Project"), Value: aws.String(projectName)}}
	datum := func(name string, v int) types.MetricDatum {
		return types.MetricDatum{
			MetricName: aws.String(name),
			Dimensions: dims,
			Timestamp:  aws.Time(at),
			Unit:       types.StandardUnitCount,
			Value:      aws.Float64(float64(v)),
		}
	}

	_, err := p.Metrics.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(p.Namespace),
		MetricData: []types.MetricDatum{
			datum("Scenes", t.Scenes),
			datum("Words", t.Words),
			datum("OutstandingTODOs", t.TODOs),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put metric data: %w", err)
	}
	p.log().Debug("reported totals to %s", p.Namespace)
	return nil
}
