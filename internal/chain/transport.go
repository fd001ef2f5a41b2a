package chain

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

// newRetryClient builds the HTTP client carrying JSON-RPC traffic.
// retryMax defaults to zero: the endpoint itself never retries, and transport
// retries are something an operator opts into per deployment.
func newRetryClient(chainName string, retryMax int) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = retryMax
	c.RetryWaitMin = 250 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.HTTPClient.Timeout = 60 * time.Second
	c.Logger = leveledLogger{entry: logrus.WithField("chain", chainName)}
	return c
}

// StandardClient converts a retryablehttp.Client to a standard http.Client
func StandardClient(retryClient *retryablehttp.Client) *http.Client {
	return retryClient.StandardClient()
}

// leveledLogger adapts logrus to retryablehttp.LeveledLogger.
// Request lines are logged at debug so RPC URLs with keys stay out of normal logs.
type leveledLogger struct {
	entry *logrus.Entry
}

var _ retryablehttp.LeveledLogger = leveledLogger{}

func (l leveledLogger) fields(keysAndValues []interface{}) *logrus.Entry {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok || key == "url" {
			continue
		}
		f[key] = keysAndValues[i+1]
	}
	return l.entry.WithFields(f)
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Error(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Warn(msg)
}
