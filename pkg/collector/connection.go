package collector

import (
	"context"

	"github.com/httprunner/ScysCollector/internal/config"
	"github.com/httprunner/ScysCollector/internal/feishusdk"
)

// ConnectionReport is the result of a successful connection test.
type ConnectionReport struct {
	Fields []feishusdk.Field
	// Resolved maps logical field names to the remote column they would use.
	Resolved map[string]string
}

// TestConnection checks that settings can obtain a token and read the table
// schema, and reports how logical fields would map.
func TestConnection(ctx context.Context, backend SchemaBackend, settings *config.Settings) (*ConnectionReport, error) {
	sess, err := openSession(ctx, backend, settings)
	if err != nil {
		return nil, err
	}
	mapper := mapperFor(nil, settings)
	report := &ConnectionReport{Fields: sess.schema, Resolved: map[string]string{}}
	for _, logical := range LogicalFields {
		if f, ok := mapper.Resolve(logical, sess.schema); ok {
			report.Resolved[logical] = f.Name
		}
	}
	return report, nil
}
