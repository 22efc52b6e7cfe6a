package config

import (
	"errors"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// AppName names the logger and the default data directory.
const AppName = "documenter-mcp"

type LoggingConfig struct {
	Level string `yaml:"level" validate:"required,oneof=none debug normal"`
}

// Prepare returns our standard logger writing to stderr. Stdout belongs to
// the MCP transport and is never written to.
func (conf *LoggingConfig) Prepare() (*zap.Logger, error) {
	return conf.PrepareTo(zapcore.Lock(os.Stderr))
}

// PrepareTo is Prepare with a caller supplied destination.
func (conf *LoggingConfig) PrepareTo(ws zapcore.WriteSyncer) (*zap.Logger, error) {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.EncodeLevel = zapcore.CapitalLevelEncoder

	var level zapcore.Level
	switch conf.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "normal":
		level = zapcore.InfoLevel
	case "none":
		return zap.NewNop(), nil
	default:
		return nil, errors.New("unknown logging level: " + conf.Level)
	}

	core := zapcore.NewCore(newEncoder(ec), ws, zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddCaller()).Named(AppName), nil
}

// When logging errors do not output verbose message.

type consoleEnc struct {
	zapcore.Encoder
}

func newEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return consoleEnc{zapcore.NewConsoleEncoder(cfg)}
}

func (c consoleEnc) Clone() zapcore.Encoder {
	return consoleEnc{c.Encoder.Clone()}
}

func (c consoleEnc) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	newFields := make([]zapcore.Field, 0, len(fields))
	for _, f := range fields {
		if f.Type == zapcore.ErrorType {
			e := f.Interface.(error)
			f.Interface = errors.New(e.Error())
		}
		newFields = append(newFields, f)
	}
	return c.Encoder.EncodeEntry(ent, newFields)
}
