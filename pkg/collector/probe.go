package collector

import (
	"context"
	"time"

	"github.com/httprunner/ScysCollector/internal/config"
	"github.com/httprunner/ScysCollector/internal/feishusdk"
	"github.com/rs/zerolog/log"
)

const defaultProbeDelay = 500 * time.Millisecond

// ProbeFormat is one candidate value shape tried for a field.
type ProbeFormat struct {
	Name  string
	Value any
}

// ProbeResult reports what the probe learned about one field.
type ProbeResult struct {
	Field  string
	Remote feishusdk.Field
	// Accepted is the first format the server took; nil when none was.
	Accepted *ProbeFormat
	Tried    int
	Code     int
	Msg      string
}

// Prober writes single-field records to find which value shape each remote
// field accepts. Every accepted format leaves a real row in the table.
type Prober struct {
	backend Backend
	// Delay separates two probed fields.
	Delay time.Duration
}

// NewProber returns a Prober with the default delay.
func NewProber(backend Backend) *Prober {
	return &Prober{backend: backend, Delay: defaultProbeDelay}
}

// probeFormats lists the shapes to try for a resolved value, most likely
// first.
func probeFormats(r Resolution, table EncodingTable) []ProbeFormat {
	switch strategy := table.Strategy(r.Remote.Type); {
	case strategy == StrategyCheckbox:
		yes := false
		if s, ok := r.Value.(string); ok && s == Yes {
			yes = true
		}
		asInt := 0
		if yes {
			asInt = 1
		}
		return []ProbeFormat{
			{"bool", yes},
			{"bool_string", stringForm(yes)},
			{"raw", r.Value},
			{"int", asInt},
		}
	case (strategy == StrategyURL || r.Remote.Type == feishusdk.FieldTypeUser) &&
		(r.Field == FieldURL || r.Field == FieldFeishuLink):
		str := stringForm(r.Value)
		return []ProbeFormat{
			{"url_cell", feishusdk.URLCell{Text: str, Link: str}},
			{"raw", r.Value},
		}
	case strategy == StrategyMultiSelect:
		if list, ok := r.Value.([]string); ok {
			return []ProbeFormat{{"list", list}}
		}
	}
	return []ProbeFormat{{"raw", r.Value}}
}

// Probe tests each resolvable field of rec on its own. The timestamp field
// is skipped.
func (p *Prober) Probe(ctx context.Context, settings *config.Settings, rec Record) ([]ProbeResult, error) {
	sess, err := openSession(ctx, p.backend, settings)
	if err != nil {
		return nil, err
	}
	mapper := mapperFor(nil, settings)

	var results []ProbeResult
	for _, r := range mapper.Plan(rec, sess.schema) {
		if r.Field == FieldTimestamp {
			continue
		}
		if len(results) > 0 && p.Delay > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(p.Delay):
			}
		}
		results = append(results, p.probeField(ctx, sess, r, mapper.Table()))
	}
	return results, nil
}

func (p *Prober) probeField(ctx context.Context, sess *session, r Resolution, table EncodingTable) ProbeResult {
	result := ProbeResult{Field: r.Field, Remote: r.Remote}
	for _, format := range probeFormats(r, table) {
		res, err := p.backend.CreateRecord(ctx, sess.ref, sess.token, map[string]any{r.Remote.Name: format.Value})
		result.Tried++
		if res != nil {
			result.Code, result.Msg = res.Code, res.Msg
		}
		if err == nil && res.Success() {
			accepted := format
			result.Accepted = &accepted
			log.Info().Str("field", r.Field).Str("remote", r.Remote.Name).
				Int("type", r.Remote.Type).Str("format", format.Name).Msg("collector: probe accepted")
			return result
		}
		log.Debug().Err(err).Str("field", r.Field).Str("format", format.Name).
			Int("code", result.Code).Str("msg", result.Msg).Msg("collector: probe rejected")
	}
	return result
}
