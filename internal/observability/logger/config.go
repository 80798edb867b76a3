package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configura el logger del feed.
type Config struct {
	// Env selecciona el encoder: "prod" emite JSON, cualquier otro valor
	// usa consola con colores (dev, staging).
	Env string

	// Level es el nivel mínimo: "debug", "info", "warn" o "error".
	// Default: "info"
	Level string

	// ServiceName y Version se agregan como campos base a toda línea.
	// Opcionales.
	ServiceName string
	Version     string
}

// build construye el logger según la configuración. Nunca retorna nil:
// si la construcción falla cae a zap.NewProduction.
func build(cfg Config) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if strings.EqualFold(cfg.Env, "prod") {
		l, err = buildProd(cfg)
	} else {
		l, err = buildDev(cfg)
	}
	if err != nil {
		l, _ = zap.NewProduction()
	}
	return l
}

// buildDev arma un encoder de consola pensado para leer en una terminal:
// nivel con color, hora corta y caller abreviado. Sin stacktraces.
func buildDev(cfg Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	zcfg.DisableStacktrace = true

	l, err := zcfg.Build(zap.AddCaller(), zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return withService(l, cfg), nil
}

// buildProd arma el encoder JSON para agregadores de logs, con tiempo
// ISO8601 y stacktrace a partir de error.
func buildProd(cfg Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	l, err := zcfg.Build(
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}
	return withService(l, cfg), nil
}

// withService agrega los campos base de identidad del proceso.
func withService(l *zap.Logger, cfg Config) *zap.Logger {
	if cfg.ServiceName != "" {
		l = l.With(zap.String("service", cfg.ServiceName))
	}
	if cfg.Version != "" {
		l = l.With(zap.String("version", cfg.Version))
	}
	return l
}

// parseLevel mapea los niveles que acepta la config; cualquier valor
// desconocido cae a info.
func parseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
