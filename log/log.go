// Package log provides the module-scoped structured logger every package in
// this repository pulls a package-level instance from, modeled on the
// teacher's log.NewModuleLogger(module) convention.
package log

import (
	"os"

	"github.com/fatih/color"
	colorable "github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module names one of this repository's packages, used as a log field so
// entries from concurrent goroutines (gossip receivers, the miner, the
// inbox consumer) can be told apart in a single process's output.
type Module string

const (
	Node       Module = "node"
	Gossip     Module = "gossip"
	Chain      Module = "chain"
	Pool       Module = "pool"
	Accounts   Module = "accounts"
	Work       Module = "work"
	Crypto     Module = "crypto"
	Common     Module = "common"
	Storage    Module = "storage"
	Consensus  Module = "consensus"
	Metrics    Module = "metrics"
	Main       Module = "main"
)

// Logger is the key/value structured logger every package uses in place of
// fmt.Printf-built messages.
type Logger struct {
	z *zap.SugaredLogger
}

var base *zap.Logger

func init() {
	base = newBase()
}

// SetLevel adjusts the minimum emitted level for every logger created after
// this call; loggers created earlier keep referencing the shared core, so
// the change applies process-wide.
func SetLevel(level zapcore.Level) {
	atomicLevel.SetLevel(level)
}

var atomicLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

func newBase() *zap.Logger {
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "t",
		LevelKey:       "lvl",
		NameKey:        "mod",
		MessageKey:     "msg",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    colorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(colorable.NewColorable(os.Stderr)),
		atomicLevel,
	)
	return zap.New(core)
}

func colorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var c *color.Color
	switch level {
	case zapcore.DebugLevel:
		c = color.New(color.FgWhite)
	case zapcore.InfoLevel:
		c = color.New(color.FgGreen)
	case zapcore.WarnLevel:
		c = color.New(color.FgYellow)
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		c = color.New(color.FgRed)
	default:
		c = color.New(color.FgWhite)
	}
	enc.AppendString(c.Sprint(level.CapitalString()))
}

// NewModuleLogger returns a Logger tagged with the given module name.
func NewModuleLogger(m Module) *Logger {
	return &Logger{z: base.Named(string(m)).Sugar()}
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.z.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.z.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.z.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.z.Errorw(msg, kv...) }
