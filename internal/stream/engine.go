package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Kamalbura/micstream/internal/audio"
	"github.com/Kamalbura/micstream/internal/config"
	"github.com/Kamalbura/micstream/internal/dsp"
	"github.com/Kamalbura/micstream/internal/metrics"
	"github.com/Kamalbura/micstream/internal/source"
)

// Publisher delivers frames to the attached consumer. Sends are only
// attempted while Attached reports true.
type Publisher interface {
	Attached() bool
	SendText(data []byte) error
	SendBinary(data []byte) error
}

// CycleResult is the outcome of processing one block
type CycleResult struct {
	Block       *audio.Block
	Features    dsp.FeatureSet
	Environment dsp.Environment
}

// TextPayload is the JSON feature frame sent before each binary block
type TextPayload struct {
	Seq       uint64 `json:"seq"`
	Timestamp int64  `json:"timestamp"`
	dsp.FeatureSet
	Environment dsp.Environment `json:"environment"`
	Waveform    []int16         `json:"waveform"`
}

// Pipeline is the fixed per-block processing chain: optional DC blocker,
// lowpass filter, feature extraction, classification
type Pipeline struct {
	lowpass             *dsp.LowpassFilter
	dcBlocker           *dsp.DCBlocker
	classifier          *dsp.Classifier
	derivativeThreshold float64
}

// NewPipeline creates the processing chain from configuration
func NewPipeline(cfg *config.Config) (*Pipeline, error) {
	lowpass, err := dsp.NewLowpassFilter(cfg.DSP.LowpassAlpha)
	if err != nil {
		return nil, fmt.Errorf("failed to create lowpass filter: %w", err)
	}

	classifier, err := dsp.NewClassifier(cfg.Classifier.CalmThreshold, cfg.Classifier.NoisyThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	p := &Pipeline{
		lowpass:             lowpass,
		classifier:          classifier,
		derivativeThreshold: cfg.Classifier.DerivativeThreshold,
	}

	if cfg.DSP.DCBlock {
		dcBlocker, err := dsp.NewDCBlocker(cfg.DSP.DCBlockR)
		if err != nil {
			return nil, fmt.Errorf("failed to create DC blocker: %w", err)
		}
		p.dcBlocker = dcBlocker
	}

	return p, nil
}

// ProcessCycle runs the chain on one block. The block's samples are
// filtered in place; features and the environment label describe the
// filtered signal.
func (p *Pipeline) ProcessCycle(block *audio.Block) CycleResult {
	if p.dcBlocker != nil {
		p.dcBlocker.Apply(block.Samples)
	}
	p.lowpass.Apply(block.Samples)

	features := dsp.ExtractFeatures(block.Samples, p.derivativeThreshold)

	return CycleResult{
		Block:       block,
		Features:    features,
		Environment: p.classifier.Classify(features),
	}
}

// EngineStats contains a snapshot of capture loop statistics
type EngineStats struct {
	CyclesTotal     uint64  `json:"cycles_total"`
	CyclesSkipped   uint64  `json:"cycles_skipped"`
	ShortReads      uint64  `json:"short_reads"`
	FramesPublished uint64  `json:"frames_published"`
	PublishErrors   uint64  `json:"publish_errors"`
	LastSeq         uint64  `json:"last_seq"`
	LastEnvironment string  `json:"last_environment"`
	LastRMS         float64 `json:"last_rms"`
	LastPeak        float64 `json:"last_peak"`
}

// Engine runs the single cooperative capture loop
type Engine struct {
	cfg       *config.Config
	source    source.Source
	pipeline  *Pipeline
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	seq   uint64
	stats EngineStats
}

// NewEngine creates a capture engine reading from src and publishing to pub
func NewEngine(cfg *config.Config, src source.Source, pub Publisher,
	logger *slog.Logger, m *metrics.Metrics) (*Engine, error) {

	pipeline, err := NewPipeline(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	return &Engine{
		cfg:       cfg,
		source:    src,
		pipeline:  pipeline,
		publisher: pub,
		logger:    logger,
		metrics:   m,
	}, nil
}

// Start launches the capture loop goroutine
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)

	e.logger.Info("Starting capture loop",
		slog.Int("sample_rate", e.cfg.Audio.SampleRate),
		slog.Int("block_size", e.cfg.Audio.BlockSize),
		slog.Duration("cycle_delay", e.cfg.Audio.GetCycleDelay()),
	)

	e.wg.Add(1)
	go e.run(ctx)
}

// Stop cancels the loop and waits for it to exit
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()

	e.logger.Info("Capture loop stopped")
}

// run is the loop body. Acquisition failures skip the cycle; publish
// failures drop the frame. Neither stops the loop.
func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	cycleDelay := e.cfg.Audio.GetCycleDelay()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cycleStart := time.Now()

		block, n, status := e.source.ReadBlock(ctx)
		if status != source.StatusOK {
			e.logger.Warn("Acquisition failed, skipping cycle",
				slog.String("status", status.String()),
			)
			e.metrics.RecordCycleSkipped(status.String())

			e.mu.Lock()
			e.stats.CyclesSkipped++
			e.mu.Unlock()

			if !e.sleep(ctx, cycleDelay) {
				return
			}
			continue
		}

		if n < e.cfg.Audio.BlockSize {
			e.metrics.RecordShortRead()
			e.mu.Lock()
			e.stats.ShortReads++
			e.mu.Unlock()
		}

		result := e.pipeline.ProcessCycle(block)

		e.mu.Lock()
		e.seq++
		seq := e.seq
		e.stats.CyclesTotal++
		e.stats.LastSeq = seq
		e.stats.LastEnvironment = result.Environment.String()
		e.stats.LastRMS = result.Features.RMS
		e.stats.LastPeak = result.Features.Peak
		e.mu.Unlock()

		e.metrics.RecordFeatures(result.Features.RMS, result.Features.Peak, result.Environment.String())

		if e.publisher.Attached() {
			e.publish(seq, result)
		}

		e.metrics.RecordCycle(time.Since(cycleStart).Seconds())

		if !e.sleep(ctx, cycleDelay) {
			return
		}
	}
}

// publish sends the text feature frame followed by the binary block.
// A failed text send drops the binary half so the consumer never sees
// an unpaired frame.
func (e *Engine) publish(seq uint64, result CycleResult) {
	payload := TextPayload{
		Seq:         seq,
		Timestamp:   time.Now().UnixMilli(),
		FeatureSet:  result.Features,
		Environment: result.Environment,
		Waveform:    result.Block.Downsample(e.cfg.Publish.WaveformPoints),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.Error("Failed to encode feature frame",
			slog.Uint64("seq", seq),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := e.publisher.SendText(data); err != nil {
		e.recordPublishError(seq, err)
		return
	}

	if err := e.publisher.SendBinary(result.Block.Bytes()); err != nil {
		e.recordPublishError(seq, err)
		return
	}

	e.metrics.RecordPublish()
	e.mu.Lock()
	e.stats.FramesPublished++
	e.mu.Unlock()
}

func (e *Engine) recordPublishError(seq uint64, err error) {
	e.logger.Warn("Failed to publish frame",
		slog.Uint64("seq", seq),
		slog.String("error", err.Error()),
	)
	e.metrics.RecordPublishError()

	e.mu.Lock()
	e.stats.PublishErrors++
	e.mu.Unlock()
}

// sleep waits for the inter-cycle delay; it returns false when the
// context was cancelled
func (e *Engine) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// GetStats returns a snapshot of capture loop statistics
func (e *Engine) GetStats() EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}
