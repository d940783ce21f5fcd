package writer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	parquetwriter "github.com/xitongsys/parquet-go/writer"

	appconfig "walletflow/config"
	"walletflow/logger"
	"walletflow/models"
)

// SnapshotParquetRecord is the archived form of one snapshot row. Holdings
// collapse to a single delimited string for columnar storage.
type SnapshotParquetRecord struct {
	Wallet          string  `parquet:"name=wallet, type=BYTE_ARRAY, convertedtype=UTF8"`
	PnL             float64 `parquet:"name=pnl, type=DOUBLE"`
	Volume          float64 `parquet:"name=volume, type=DOUBLE"`
	TradeCount      int32   `parquet:"name=trade_count, type=INT32"`
	EfficiencyScore float64 `parquet:"name=efficiency_score, type=DOUBLE"`
	TradingScore    float64 `parquet:"name=trading_score, type=DOUBLE"`
	TopHoldings     string  `parquet:"name=top_holdings, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// memoryFileWriter implements the ParquetFile interface for in-memory writing.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) { return mfw, nil }
func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error)   { return mfw, nil }

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	// Write-only usage; report the current end of buffer.
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error)  { return mfw.buffer.Read(b) }
func (mfw *memoryFileWriter) Write(b []byte) (int, error) { return mfw.buffer.Write(b) }
func (mfw *memoryFileWriter) Close() error                { return nil }
func (mfw *memoryFileWriter) Bytes() []byte               { return mfw.buffer.Bytes() }

// Archiver uploads each run's snapshot to S3 as a parquet file, partitioned
// by run date, so historical runs stay queryable after the local CSV is
// overwritten.
type Archiver struct {
	config   *appconfig.Config
	s3Client *s3.Client
	log      *logger.Log
}

// NewArchiver configures the AWS SDK and S3 client. It fails when archiving
// is enabled but credentials cannot be resolved.
func NewArchiver(cfg *appconfig.Config) (*Archiver, error) {
	log := logger.GetLogger()
	ctx := context.Background()

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Storage.S3.Region)}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsConfig.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.S3.PathStyle
	})

	log.WithComponent("archiver").WithFields(logger.Fields{
		"bucket":     cfg.Storage.S3.Bucket,
		"region":     cfg.Storage.S3.Region,
		"endpoint":   cfg.Storage.S3.Endpoint,
		"path_style": cfg.Storage.S3.PathStyle,
	}).Info("archiver initialized")

	return &Archiver{
		config:   cfg,
		s3Client: s3Client,
		log:      log,
	}, nil
}

// Archive writes the snapshot as a parquet object under a date partition.
func (a *Archiver) Archive(ctx context.Context, snapshot []models.TraderMetrics, runDate time.Time) error {
	log := a.log.WithComponent("archiver")

	data, err := a.createParquetFile(snapshot)
	if err != nil {
		return fmt.Errorf("create parquet file: %w", err)
	}

	key := a.generateS3Key(runDate)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(a.config.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type":       "parquet",
			"walletflow-version": a.config.Walletflow.Version,
		},
	}

	if _, err := a.s3Client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", a.config.Storage.S3.Bucket, err)
	}
	logger.IncrementS3Upload(int64(len(data)))

	log.WithFields(logger.Fields{
		"key":       key,
		"file_size": len(data),
		"traders":   len(snapshot),
	}).Info("snapshot archived")
	return nil
}

// ArchiveLedger copies the reconciled ledger CSV next to the snapshot
// parquet, giving each run date a queryable pair.
func (a *Archiver) ArchiveLedger(ctx context.Context, ledgerPath string, runDate time.Time) error {
	data, err := os.ReadFile(ledgerPath)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}

	key := filepath.ToSlash(filepath.Join(
		a.config.Walletflow.Name,
		fmt.Sprintf("date=%s", runDate.UTC().Format("2006-01-02")),
		fmt.Sprintf("all_wallets_%s.csv", runDate.UTC().Format("20060102150405")),
	))

	input := &s3.PutObjectInput{
		Bucket:      aws.String(a.config.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	}
	if _, err := a.s3Client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", a.config.Storage.S3.Bucket, err)
	}
	logger.IncrementS3Upload(int64(len(data)))

	a.log.WithComponent("archiver").WithFields(logger.Fields{
		"key":       key,
		"file_size": len(data),
	}).Info("ledger archived")
	return nil
}

func (a *Archiver) generateS3Key(runDate time.Time) string {
	parts := []string{
		a.config.Walletflow.Name,
		fmt.Sprintf("date=%s", runDate.UTC().Format("2006-01-02")),
		fmt.Sprintf("wallet_holdings_%s_%s.parquet", runDate.UTC().Format("20060102150405"), uuid.New().String()),
	}
	return filepath.ToSlash(filepath.Join(parts...))
}

func (a *Archiver) createParquetFile(snapshot []models.TraderMetrics) ([]byte, error) {
	fw := newMemoryFileWriter()

	pw, err := parquetwriter.NewParquetWriter(fw, new(SnapshotParquetRecord), 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, m := range snapshot {
		record := SnapshotParquetRecord{
			Wallet:          m.Address,
			PnL:             m.PnL,
			Volume:          m.Volume,
			TradeCount:      int32(m.TradeCount),
			EfficiencyScore: m.EfficiencyScore,
			TradingScore:    m.TradingScore,
			TopHoldings:     strings.Join(m.TopHoldings, "|"),
		}
		if err := pw.Write(record); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return fw.Bytes(), nil
}
