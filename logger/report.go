package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type endpointStat struct {
	requests int64
	bytes    int64
}

var (
	errorsReader    int64
	errorsWriter    int64
	warnsReader     int64
	warnsWriter     int64
	traderPagesRead int64
	holdingsRead    int64
	rateLimitHits   int64
	s3Uploads       int64
	endpoints       sync.Map // map[string]*endpointStat
)

func recordWarn(component string) {
	if strings.Contains(component, "reader") {
		atomic.AddInt64(&warnsReader, 1)
	} else if strings.Contains(component, "writer") {
		atomic.AddInt64(&warnsWriter, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "reader") {
		atomic.AddInt64(&errorsReader, 1)
	} else if strings.Contains(component, "writer") {
		atomic.AddInt64(&errorsWriter, 1)
	}
}

// IncrementTraderPage records one fetched page of the gainers-losers listing.
func IncrementTraderPage(size int) {
	atomic.AddInt64(&traderPagesRead, 1)
	recordEndpoint("gainers_losers", size)
}

// IncrementHoldingsRead records one fetched wallet token list.
func IncrementHoldingsRead(size int) {
	atomic.AddInt64(&holdingsRead, 1)
	recordEndpoint("wallet_token_list", size)
}

// IncrementRateLimitHit records an upstream 429 response.
func IncrementRateLimitHit(endpoint string) {
	atomic.AddInt64(&rateLimitHits, 1)
	recordEndpoint(endpoint+"_429", 0)
}

// IncrementS3Upload records one archive object upload.
func IncrementS3Upload(size int64) {
	atomic.AddInt64(&s3Uploads, 1)
	recordEndpoint("s3_archive", int(size))
}

func recordEndpoint(name string, size int) {
	v, _ := endpoints.LoadOrStore(name, &endpointStat{})
	es := v.(*endpointStat)
	atomic.AddInt64(&es.requests, 1)
	atomic.AddInt64(&es.bytes, int64(size))
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// StartReport begins periodic logging of system and pipeline statistics.
// It exposes the internal startReport function for use by other packages.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

// ReportNow emits a single report immediately; main calls this at the end of
// a run so short batches still produce one summary line.
func ReportNow(ctx context.Context, log *Log) {
	logReport(ctx, log)
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	netStats, _ := gnet.IOCounters(false)
	endpointData := map[string]map[string]int64{}
	endpoints.Range(func(k, v any) bool {
		name := k.(string)
		es := v.(*endpointStat)
		endpointData[name] = map[string]int64{
			"requests": atomic.LoadInt64(&es.requests),
			"bytes":    atomic.LoadInt64(&es.bytes),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	bytesSent := uint64(0)
	bytesRecv := uint64(0)
	if len(netStats) > 0 {
		bytesSent = netStats[0].BytesSent
		bytesRecv = netStats[0].BytesRecv
	}

	fields := Fields{
		"errors_reader":     atomic.LoadInt64(&errorsReader),
		"errors_writer":     atomic.LoadInt64(&errorsWriter),
		"warns_reader":      atomic.LoadInt64(&warnsReader),
		"warns_writer":      atomic.LoadInt64(&warnsWriter),
		"trader_pages_read": atomic.LoadInt64(&traderPagesRead),
		"holdings_read":     atomic.LoadInt64(&holdingsRead),
		"rate_limit_hits":   atomic.LoadInt64(&rateLimitHits),
		"s3_uploads":        atomic.LoadInt64(&s3Uploads),
		"goroutines":        runtime.NumGoroutine(),
		"cpu_percent":       cpuPct,
		"memory_mb":         int64(memStats.Used) / 1024 / 1024,
		"disk_mb":           int64(diskStats.Used) / 1024 / 1024,
		"endpoints":         endpointData,
		"net_bytes_sent":    int64(bytesSent),
		"net_bytes_recv":    int64(bytesRecv),
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("DiskMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(diskStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("ReaderErrors"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_reader"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("WriterErrors"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_writer"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("ReaderWarns"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_reader"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("WriterWarns"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_writer"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("TraderPagesRead"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["trader_pages_read"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("HoldingsRead"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["holdings_read"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("RateLimitHits"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["rate_limit_hits"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("S3Uploads"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["s3_uploads"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("NetBytesSent"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesSent))},
		cwtypes.MetricDatum{MetricName: aws.String("NetBytesRecv"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesRecv))},
	)

	for name, stats := range endpointData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("EndpointRequests"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Endpoint"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["requests"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("EndpointBytes"),
				Unit:       cwtypes.StandardUnitBytes,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Endpoint"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["bytes"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
