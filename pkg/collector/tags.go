package collector

import (
	"context"

	"github.com/httprunner/ScysCollector/internal/config"
	"github.com/pkg/errors"
)

// ErrNoTagsField means the table has no column the tags field resolves to.
var ErrNoTagsField = errors.New("collector: table has no tags field")

// ListTagOptions returns the option labels of the table's tags column. A
// column that isn't multi-select yields no options.
func ListTagOptions(ctx context.Context, backend SchemaBackend, settings *config.Settings) ([]string, error) {
	sess, err := openSession(ctx, backend, settings)
	if err != nil {
		return nil, err
	}
	mapper := mapperFor(nil, settings)
	field, ok := mapper.Resolve(FieldTags, sess.schema)
	if !ok {
		return nil, ErrNoTagsField
	}
	if mapper.Table().Strategy(field.Type) != StrategyMultiSelect {
		return nil, nil
	}
	return append([]string(nil), field.Options...), nil
}
