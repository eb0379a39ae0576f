package tailer

import (
	"github.com/levinOo/nginx-log-exporter/internal/models"
	"github.com/levinOo/nginx-log-exporter/internal/parser"
	"go.uber.org/zap"
)

// Recorder принимает результат разбора строки.
type Recorder interface {
	Record(record models.LogRecord, enabled models.EnabledMetrics)
	RecordFailure()
}

// Processor разбирает строку и передаёт результат в Recorder.
// Реализует LineHandler.
type Processor struct {
	parser   *parser.Parser
	recorder Recorder
	enabled  models.EnabledMetrics
	logger   *zap.SugaredLogger
}

func NewProcessor(p *parser.Parser, recorder Recorder, enabled models.EnabledMetrics, logger *zap.SugaredLogger) *Processor {
	return &Processor{
		parser:   p,
		recorder: recorder,
		enabled:  enabled,
		logger:   logger,
	}
}

// HandleLine учитывает одну строку лога. Строка, которую не удалось разобрать,
// увеличивает счётчик ошибок и пишется в лог целиком.
func (p *Processor) HandleLine(line string) {
	record, err := p.parser.Parse(line)
	if err != nil {
		p.logger.Warnw("Fail to process line", "line", line, "error", err)
		p.recorder.RecordFailure()
		return
	}

	p.logger.Debugw("Parsed access log line", "record", record)
	p.recorder.Record(record, p.enabled)
}
