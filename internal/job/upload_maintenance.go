package job

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/trace"

	"chartlens/internal/intake"
)

const (
	uploadSweepTick     = 10 * time.Minute
	candleRetentionTick = 24 * time.Hour
	candleRetentionDays = 365
)

// CandlePruner deletes mirrored candles older than a cutoff.
type CandlePruner interface {
	DeleteCandlesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// UploadMaintenance periodically sweeps aged chart files out of the upload
// directory and prunes the candle mirror.
type UploadMaintenance struct {
	tracer    trace.Tracer
	uploadDir string
	retention time.Duration
	pruner    CandlePruner
}

// NewUploadMaintenance wires the job. pruner may be nil when no mirror is
// configured.
func NewUploadMaintenance(tracer trace.Tracer, uploadDir string, retention time.Duration, pruner CandlePruner) *UploadMaintenance {
	return &UploadMaintenance{
		tracer:    tracer,
		uploadDir: uploadDir,
		retention: retention,
		pruner:    pruner,
	}
}

func (j *UploadMaintenance) Start(ctx context.Context) {
	if j == nil {
		<-ctx.Done()
		return
	}

	log.Println("Upload maintenance starting...")
	sweepTicker := time.NewTicker(uploadSweepTick)
	pruneTicker := time.NewTicker(candleRetentionTick)
	defer sweepTicker.Stop()
	defer pruneTicker.Stop()

	j.runSweep(ctx)
	j.runPrune(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Upload maintenance stopped")
			return
		case <-sweepTicker.C:
			j.runSweep(ctx)
		case <-pruneTicker.C:
			j.runPrune(ctx)
		}
	}
}

func (j *UploadMaintenance) runSweep(ctx context.Context) {
	if j.tracer != nil {
		_, span := j.tracer.Start(ctx, "upload-job.sweep")
		defer span.End()
	}
	count, err := intake.SweepUploads(j.uploadDir, j.retention)
	if err != nil {
		log.Printf("upload sweep error: %v", err)
		return
	}
	if count > 0 {
		log.Printf("upload sweep removed %d file(s)", count)
	}
}

func (j *UploadMaintenance) runPrune(ctx context.Context) {
	if j.pruner == nil {
		return
	}
	if j.tracer != nil {
		_, span := j.tracer.Start(ctx, "upload-job.prune-candles")
		defer span.End()
	}
	cutoff := time.Now().AddDate(0, 0, -candleRetentionDays)
	deleted, err := j.pruner.DeleteCandlesBefore(ctx, cutoff)
	if err != nil {
		log.Printf("candle prune error: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("candle prune removed %d row(s)", deleted)
	}
}
