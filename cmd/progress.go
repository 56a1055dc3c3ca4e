package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/gosuri/uiprogress"
	"go.uber.org/zap"
)

// progressReporter renders per-table progress, either as bars or as log
// lines after every batch. Update is called from the worker goroutines.
type progressReporter struct {
	mu       sync.Mutex
	progress *uiprogress.Progress
	bars     map[string]*uiprogress.Bar
	logger   *zap.Logger
}

func newProgressReporter(out io.Writer, showBars bool, logger *zap.Logger) *progressReporter {
	p := &progressReporter{logger: logger}
	if showBars {
		p.progress = uiprogress.New()
		p.progress.SetOut(out)
		p.bars = make(map[string]*uiprogress.Bar)
	}
	return p
}

func (p *progressReporter) Start() {
	if p.progress != nil {
		p.progress.Start()
	}
}

func (p *progressReporter) Stop() {
	if p.progress != nil {
		p.progress.Stop()
	}
}

func (p *progressReporter) Update(source, table string, transferred, total int64) {
	if p.progress == nil {
		p.logger.Info("progress",
			zap.String("source", source),
			zap.String("table", table),
			zap.String("rows", fmt.Sprintf("%d/%d", transferred, total)),
			zap.String("percent", fmt.Sprintf("%.1f%%", percent(transferred, total))))
		return
	}

	key := source + ":" + table
	p.mu.Lock()
	bar, ok := p.bars[key]
	if !ok {
		bar = p.progress.AddBar(int(total)).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return fmt.Sprintf("%-32s", key)
		})
		p.bars[key] = bar
	}
	p.mu.Unlock()

	_ = bar.Set(int(transferred))
}

func percent(done, total int64) float64 {
	if total <= 0 {
		return 100
	}
	return float64(done) * 100 / float64(total)
}
