// Package parser разбирает строки access-лога nginx в формате combined.
//
// Формат строки:
//
//	<addr> - <user> [<time>] "<method> <path> <protocol>" <status> <bytes> "<referer>" "<agent>"
//
// Шаблон компилируется один раз в New и далее только читается,
// поэтому один Parser можно использовать из нескольких горутин.
package parser

import (
	"net/netip"
	"regexp"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/levinOo/nginx-log-exporter/internal/models"
)

const (
	rowExpr = `^(?P<remote_addr>\S+) - (?P<remote_user>.*) \[(?P<time_local>.+)\] ` +
		`"(?P<request_method>\S+) (?P<request_path>\S+) (?P<request_protocol>\S+)" ` +
		`(?P<response_status>\d\d\d) (?P<response_body_bytes_sent>\d+) ` +
		`"(?P<http_referer>[^"]+)" "(?P<http_user_agent>[^"]+)"`

	// TimeLayout соответствует формату $time_local, например 22/Jan/2021:17:24:17 +0000.
	TimeLayout = "02/Jan/2006:15:04:05 -0700"

	minStatus = 100
	maxStatus = 599
)

// Parser разбирает строки лога по фиксированному шаблону.
type Parser struct {
	re  *regexp.Regexp
	idx groupIndex
}

type groupIndex struct {
	remoteAddr, remoteUser, timeLocal     int
	method, path, protocol                int
	status, bytesSent, referer, userAgent int
}

// New компилирует шаблон строки и возвращает готовый к работе Parser.
func New() *Parser {
	re := regexp.MustCompile(rowExpr)

	return &Parser{
		re: re,
		idx: groupIndex{
			remoteAddr: re.SubexpIndex("remote_addr"),
			remoteUser: re.SubexpIndex("remote_user"),
			timeLocal:  re.SubexpIndex("time_local"),
			method:     re.SubexpIndex("request_method"),
			path:       re.SubexpIndex("request_path"),
			protocol:   re.SubexpIndex("request_protocol"),
			status:     re.SubexpIndex("response_status"),
			bytesSent:  re.SubexpIndex("response_body_bytes_sent"),
			referer:    re.SubexpIndex("http_referer"),
			userAgent:  re.SubexpIndex("http_user_agent"),
		},
	}
}

// Parse разбирает одну строку лога.
//
// Строка с некорректным UTF-8 отклоняется целиком: её поля становятся метками счётчиков.
// Поля проверяются в порядке: адрес, время, код статуса, размер ответа.
// Ошибка всегда имеет тип *ParseError, вариант определяется через errors.Is
// с одной из ошибок ErrNoMatch, ErrInvalidEncoding, ErrInvalidAddress,
// ErrInvalidTimestamp, ErrInvalidStatusCode, ErrInvalidInteger.
func (p *Parser) Parse(line string) (models.LogRecord, error) {
	if !utf8.ValidString(line) {
		return models.LogRecord{}, &ParseError{Err: ErrInvalidEncoding}
	}

	m := p.re.FindStringSubmatch(line)
	if m == nil {
		return models.LogRecord{}, &ParseError{Err: ErrNoMatch}
	}

	addr, err := netip.ParseAddr(m[p.idx.remoteAddr])
	if err != nil {
		return models.LogRecord{}, newFieldError(ErrInvalidAddress, "remote_addr", m[p.idx.remoteAddr], err)
	}

	ts, err := time.Parse(TimeLayout, m[p.idx.timeLocal])
	if err != nil {
		return models.LogRecord{}, newFieldError(ErrInvalidTimestamp, "time_local", m[p.idx.timeLocal], err)
	}

	status, err := parseStatus(m[p.idx.status])
	if err != nil {
		return models.LogRecord{}, err
	}

	sent, err := strconv.ParseUint(m[p.idx.bytesSent], 10, 64)
	if err != nil {
		return models.LogRecord{}, newFieldError(ErrInvalidInteger, "response_body_bytes_sent", m[p.idx.bytesSent], err)
	}

	return models.LogRecord{
		RemoteAddr:            addr,
		RemoteUser:            m[p.idx.remoteUser],
		TimeLocal:             ts,
		RequestMethod:         m[p.idx.method],
		RequestPath:           m[p.idx.path],
		RequestProtocol:       m[p.idx.protocol],
		ResponseStatus:        status,
		ResponseBodyBytesSent: sent,
		HTTPReferer:           m[p.idx.referer],
		HTTPUserAgent:         m[p.idx.userAgent],
	}, nil
}

// parseStatus сначала переводит код в число и только потом проверяет диапазон,
// поэтому "031" отклоняется как код 31, а не как синтаксическая ошибка.
func parseStatus(raw string) (uint16, error) {
	v, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, newFieldError(ErrInvalidInteger, "response_status", raw, err)
	}

	if v < minStatus || v > maxStatus {
		return 0, &ParseError{
			Err:    ErrInvalidStatusCode,
			Field:  "response_status",
			Value:  raw,
			Status: uint16(v),
		}
	}

	return uint16(v), nil
}
