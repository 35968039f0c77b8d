package export

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	"ordersync/internal/shopify"
)

// DailyMetricsRow is one partition's worth of order aggregates, matching
// the analytics table columns.
type DailyMetricsRow struct {
	Shop            string  `parquet:"name=shop, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	MetricDate      string  `parquet:"name=metric_date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"` // YYYY-MM-DD
	OrderCount      int64   `parquet:"name=order_count, type=INT64"`
	FulfilledCount  int64   `parquet:"name=fulfilled_count, type=INT64"`
	GrossRevenue    float64 `parquet:"name=gross_revenue, type=DOUBLE"`
	TotalDiscounts  float64 `parquet:"name=total_discounts, type=DOUBLE"`
	TotalTax        float64 `parquet:"name=total_tax, type=DOUBLE"`
	AverageOrderVal float64 `parquet:"name=average_order_value, type=DOUBLE"`
}

// AggregateDaily groups orders by created-at calendar day (UTC).
func AggregateDaily(shop string, orders []shopify.Order) []DailyMetricsRow {
	byDay := map[string]*DailyMetricsRow{}
	for i := range orders {
		o := &orders[i]

		created := o.CreatedTime()
		if created.IsZero() {
			continue
		}
		day := created.UTC().Format("2006-01-02")

		row := byDay[day]
		if row == nil {
			row = &DailyMetricsRow{Shop: shop, MetricDate: day}
			byDay[day] = row
		}

		row.OrderCount++
		if o.Fulfilled() {
			row.FulfilledCount++
		}
		row.GrossRevenue += o.TotalPriceValue()
		row.TotalDiscounts += parseMoney(o.TotalDiscounts)
		row.TotalTax += parseMoney(o.TotalTax)
	}

	rows := make([]DailyMetricsRow, 0, len(byDay))
	for _, day := range sortedRowDays(byDay) {
		row := byDay[day]
		if row.OrderCount > 0 {
			row.AverageOrderVal = row.GrossRevenue / float64(row.OrderCount)
		}
		rows = append(rows, *row)
	}
	return rows
}

func parseMoney(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// YYYY-MM-DD sorts lexicographically.
func sortedRowDays(m map[string]*DailyMetricsRow) []string {
	days := make([]string, 0, len(m))
	for d := range m {
		days = append(days, d)
	}
	sort.Strings(days)
	return days
}

type MetricsWriter struct {
	s3     *s3.Client
	bucket string
	prefix string
}

func NewMetricsWriter(cfg aws.Config, bucket, prefix string) *MetricsWriter {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if prefix == "" {
		prefix = "daily_metrics/"
	}
	return &MetricsWriter{s3: s3.NewFromConfig(cfg), bucket: bucket, prefix: prefix}
}

// WriteRows writes one Parquet object per row under
// <prefix>dt=YYYY-MM-DD/shop=<shop>/part-<rand>.parquet.
func (m *MetricsWriter) WriteRows(ctx context.Context, rows []DailyMetricsRow) (int, error) {
	written := 0
	for _, row := range rows {
		key := fmt.Sprintf("%sdt=%s/shop=%s/part-%s.parquet",
			m.prefix, row.MetricDate, row.Shop, randHex(8))
		if err := m.writeOne(ctx, key, row); err != nil {
			return written, fmt.Errorf("write metrics dt=%s: %w", row.MetricDate, err)
		}
		written++
	}
	return written, nil
}

func (m *MetricsWriter) writeOne(ctx context.Context, key string, row DailyMetricsRow) error {
	localPath := filepath.Join(os.TempDir(), "daily_metrics_"+randHex(8)+".parquet")

	fw, err := local.NewLocalFileWriter(localPath)
	if err != nil {
		return fmt.Errorf("parquet file writer: %w", err)
	}

	pw, err := writer.NewParquetWriter(fw, new(DailyMetricsRow), 1)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("parquet writer: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.PageSize = 8 * 1024
	pw.CompressionType = 0

	if err := pw.Write(row); err != nil {
		_ = pw.WriteStop()
		_ = fw.Close()
		return fmt.Errorf("parquet write row: %w", err)
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return fmt.Errorf("parquet write stop: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("parquet close: %w", err)
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read parquet tmp: %w", err)
	}
	defer func() { _ = os.Remove(localPath) }()

	_, err = m.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		ACL:         s3types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

func randHex(nBytes int) string {
	b := make([]byte, nBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
