package businessflow

import (
	"context"

	"github.com/sirupsen/logrus"
)

type metadataKey struct{}

// ClientMetadata holds caller information attached to log lines of a request
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// WithClientMetadata returns a context carrying the metadata
func WithClientMetadata(ctx context.Context, md *ClientMetadata) context.Context {
	if md == nil {
		return ctx
	}
	return context.WithValue(ctx, metadataKey{}, md)
}

// ClientMetadataFrom extracts metadata stored by WithClientMetadata
func ClientMetadataFrom(ctx context.Context) *ClientMetadata {
	md, _ := ctx.Value(metadataKey{}).(*ClientMetadata)
	return md
}

// withRequestFields decorates a logger with request-scoped fields found in ctx
func withRequestFields(ctx context.Context, logger logrus.FieldLogger) logrus.FieldLogger {
	md := ClientMetadataFrom(ctx)
	if md == nil {
		return logger
	}
	fields := logrus.Fields{"ip": md.IPAddress}
	if md.RequestID != "" {
		fields["request_id"] = md.RequestID
	}
	return logger.WithFields(fields)
}

func defaultLogger(logger logrus.FieldLogger) logrus.FieldLogger {
	if logger != nil {
		return logger
	}
	return logrus.StandardLogger()
}
