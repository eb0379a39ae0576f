package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"
)

type flagValues struct {
	accessLog  string
	namespace  string
	addr       string
	status     bool
	code       bool
	size       bool
	start      string
	poll       time.Duration
	watch      bool
	logLevel   string
	configPath string
}

func newFlagSet(out io.Writer) (*flag.FlagSet, *flagValues) {
	fv := &flagValues{}
	def := Default()

	fs := flag.NewFlagSet("nginx-log-exporter", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintln(out, "Nginx access log to Prometheus exporter")
		fmt.Fprintln(out, "\nUsage: nginx-log-exporter [options] <access_log>")
		fmt.Fprintln(out, "\nOptions:")
		fs.PrintDefaults()
	}

	fs.StringVar(&fv.accessLog, "f", "", "access log file to attach")
	fs.StringVar(&fv.namespace, "n", def.Namespace, "Prometheus namespace to prefix metrics with")
	fs.StringVar(&fv.addr, "a", def.Addr, "bind server to this address and port")
	fs.BoolVar(&fv.status, "status", def.ResponseStatus, "count responses by status code")
	fs.BoolVar(&fv.code, "code", def.ResponseCode, "count responses by method, path, protocol and status code")
	fs.BoolVar(&fv.size, "size", def.ResponseSize, "sum response body size by method, path and protocol")
	fs.StringVar(&fv.start, "start", def.StartPosition, "where to start reading the file: end or beginning")
	fs.DurationVar(&fv.poll, "poll", def.PollInterval, "delay between reads at end of file")
	fs.BoolVar(&fv.watch, "watch", def.Watch, "wake up on file system events in addition to polling")
	fs.StringVar(&fv.logLevel, "log-level", def.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&fv.configPath, "config", "", "path to JSON config file")

	return fs, fv
}

// parseArgs разбирает флаги в любом порядке относительно пути к логу
// и возвращает этот путь. Больше одного позиционного аргумента считается ошибкой.
func parseArgs(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}

	var positional []string
	for fs.NArg() > 0 {
		positional = append(positional, fs.Arg(0))
		if err := fs.Parse(fs.Args()[1:]); err != nil {
			return "", err
		}
	}

	switch len(positional) {
	case 0:
		return "", nil
	case 1:
		return positional[0], nil
	default:
		return "", fmt.Errorf("unexpected arguments: %s", strings.Join(positional[1:], " "))
	}
}

// apply переносит в cfg только явно заданные флаги, чтобы значения по умолчанию
// не перекрывали настройки из файла.
func (fv *flagValues) apply(fs *flag.FlagSet, cfg *Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "f":
			cfg.AccessLog = fv.accessLog
		case "n":
			cfg.Namespace = fv.namespace
		case "a":
			cfg.Addr = fv.addr
		case "status":
			cfg.ResponseStatus = fv.status
		case "code":
			cfg.ResponseCode = fv.code
		case "size":
			cfg.ResponseSize = fv.size
		case "start":
			cfg.StartPosition = fv.start
		case "poll":
			cfg.PollInterval = fv.poll
		case "watch":
			cfg.Watch = fv.watch
		case "log-level":
			cfg.LogLevel = fv.logLevel
		}
	})
}
