package tailer

import (
	"fmt"
	"strings"
)

// StartPosition определяет, откуда начинать чтение файла при подключении.
type StartPosition int

const (
	// StartEnd пропускает уже записанное содержимое и читает только новые строки.
	StartEnd StartPosition = iota
	// StartBeginning читает файл с начала, включая уже записанные строки.
	StartBeginning
)

func (p StartPosition) String() string {
	switch p {
	case StartEnd:
		return "end"
	case StartBeginning:
		return "beginning"
	default:
		return fmt.Sprintf("StartPosition(%d)", int(p))
	}
}

// ParseStartPosition разбирает значение из конфигурации: "end" или "beginning".
func ParseStartPosition(s string) (StartPosition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "end":
		return StartEnd, nil
	case "beginning", "start":
		return StartBeginning, nil
	default:
		return StartEnd, fmt.Errorf("unknown start position %q", s)
	}
}
