package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos estándar HTTP.

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func DurationMs(v int64) zap.Field       { return zap.Int64("duration_ms", v) }

// Campos de negocio.

func AgentID(v string) zap.Field   { return zap.String("agent_id", v) }
func ClientID(v string) zap.Field  { return zap.String("client_id", v) }
func AuthReqID(v string) zap.Field { return zap.String("auth_request_id", v) }
func GrantType(v string) zap.Field { return zap.String("grant_type", v) }
func Model(v string) zap.Field     { return zap.String("model", v) }

// Campos de sistema.

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Err(err error) zap.Field      { return zap.Error(err) }
func Count(v int) zap.Field        { return zap.Int("count", v) }
func Any(k string, v any) zap.Field { return zap.Any(k, v) }
