package collector

import (
	"context"
	"strings"

	"github.com/httprunner/ScysCollector/internal/config"
	"github.com/httprunner/ScysCollector/internal/feishusdk"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrNoURLField means the table has no column the url field resolves to.
var ErrNoURLField = errors.New("collector: table has no url field")

const maxDuplicateMatches = 20

// RecordSearcher runs bitable record searches.
type RecordSearcher interface {
	SearchRecords(ctx context.Context, ref feishusdk.BitableRef, token string, opts feishusdk.SearchOptions) ([]feishusdk.BitableRow, error)
}

// SearchBackend is what Checker needs from Feishu.
type SearchBackend interface {
	TokenProvider
	SchemaFetcher
	RecordSearcher
}

// Match is an existing record found by FindByURL.
type Match struct {
	RecordID string
	Title    string
	URL      string
}

// Checker looks up records that were already collected.
type Checker struct {
	backend SearchBackend
}

func NewChecker(backend SearchBackend) *Checker {
	return &Checker{backend: backend}
}

// FindByURL returns the records whose url column contains pageURL.
func (c *Checker) FindByURL(ctx context.Context, settings *config.Settings, pageURL string) ([]Match, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return nil, errors.New("collector: url is empty")
	}
	sess, err := openSession(ctx, c.backend, settings)
	if err != nil {
		return nil, err
	}
	mapper := mapperFor(nil, settings)
	urlField, ok := mapper.Resolve(FieldURL, sess.schema)
	if !ok {
		return nil, ErrNoURLField
	}
	titleField, hasTitle := mapper.Resolve(FieldTitle, sess.schema)

	rows, err := c.backend.SearchRecords(ctx, sess.ref, sess.token, feishusdk.SearchOptions{
		Filter: feishusdk.NewFilterInfo("and", feishusdk.NewCondition(urlField.Name, "contains", pageURL)),
		Limit:  maxDuplicateMatches,
	})
	if err != nil {
		return nil, errors.Wrap(err, "collector: search existing records failed")
	}

	matches := make([]Match, 0, len(rows))
	for _, row := range rows {
		m := Match{
			RecordID: row.RecordID,
			URL:      feishusdk.BitableValueToLink(row.Fields[urlField.Name]),
		}
		if hasTitle {
			m.Title = feishusdk.BitableFieldString(row.Fields, titleField.Name)
		}
		matches = append(matches, m)
	}
	log.Debug().Str("url", pageURL).Int("matches", len(matches)).Msg("collector: duplicate check done")
	return matches, nil
}
