package varnish_test

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/varnishstat-agent/pkg/config"
	"github.com/varnishstat-agent/pkg/varnish"
)

type fakeFetcher struct {
	outputs map[string]varnish.Output
	errs    map[string]error
	calls   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, instance string) (varnish.Output, error) {
	f.calls = append(f.calls, instance)
	return f.outputs[instance], f.errs[instance]
}

func okOutput(doc string) varnish.Output {
	return varnish.Output{Status: 0, Data: []byte(doc)}
}

type recordingSink struct {
	samples []varnish.Sample
	err     error
}

func (s *recordingSink) Dispatch(_ context.Context, sample varnish.Sample) error {
	if s.err != nil {
		return s.err
	}
	s.samples = append(s.samples, sample)
	return nil
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestTickSingleModeRoundTrip(t *testing.T) {
	fetcher := &fakeFetcher{outputs: map[string]varnish.Output{
		"": okOutput(`{"MAIN.uptime": {"flag": "c", "format": "i", "value": 12345}, "timestamp": {"ignored": true}}`),
	}}
	sink := &recordingSink{}
	p := varnish.NewPoller(varnish.ImplicitInstance{}, fetcher, varnish.PrefixNaming{}, sink, nil)

	report, err := p.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{""}, fetcher.calls)
	require.Len(t, sink.samples, 1)
	assert.Equal(t, varnish.Sample{
		Plugin:         "varnishstat",
		PluginInstance: "MAIN",
		Kind:           varnish.KindCounter,
		TypeInstance:   "uptime",
		Value:          "12345",
	}, sink.samples[0])
	assert.Equal(t, 1, report.Samples[""])
}

func TestTickPerInstanceVerbatimNames(t *testing.T) {
	fetcher := &fakeFetcher{outputs: map[string]varnish.Output{
		"vhost1": okOutput(`{"MAIN.sess_conn": {"flag": "g", "format": "i", "value": 7}}`),
	}}
	sink := &recordingSink{}
	p := varnish.NewPoller(varnish.StaticInstances{"vhost1"}, fetcher, varnish.PerInstanceNaming{}, sink, nil)

	_, err := p.Tick(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.samples, 1)
	got := sink.samples[0]
	assert.Equal(t, "vhost1", got.PluginInstance)
	assert.Equal(t, "MAIN.sess_conn", got.TypeInstance)
	assert.Equal(t, varnish.KindGauge, got.Kind)
	assert.Equal(t, "7", got.Value.String())
}

func TestTickSkipsBitmapAndTimestamp(t *testing.T) {
	fetcher := &fakeFetcher{outputs: map[string]varnish.Output{
		"a": okOutput(flatSnapshot),
	}}
	sink := &recordingSink{}
	p := varnish.NewPoller(varnish.StaticInstances{"a"}, fetcher, varnish.PerInstanceNaming{}, sink, nil)

	_, err := p.Tick(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.samples, 3)
	for _, s := range sink.samples {
		assert.NotEqual(t, "timestamp", s.TypeInstance)
		assert.NotEqual(t, "VBE.boot.default.happy", s.TypeInstance)
	}
}

func TestTickVersionedDocumentSingleMode(t *testing.T) {
	fetcher := &fakeFetcher{outputs: map[string]varnish.Output{"": okOutput(versionedSnapshot)}}
	sink := &recordingSink{}
	p := varnish.NewPoller(varnish.ImplicitInstance{}, fetcher, varnish.PrefixNaming{}, sink, nil)

	_, err := p.Tick(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.samples, 2)
	assert.Equal(t, "MGT", sink.samples[0].PluginInstance)
	assert.Equal(t, "uptime", sink.samples[0].TypeInstance)
	assert.Equal(t, "SMA", sink.samples[1].PluginInstance)
	assert.Equal(t, "s0.g_bytes", sink.samples[1].TypeInstance)
}

func TestTickFetchFailure(t *testing.T) {
	fetchErr := &varnish.FetchError{Instance: "vhost1", Status: 1, Output: []byte("out\nerr\n")}
	fetcher := &fakeFetcher{
		outputs: map[string]varnish.Output{"vhost1": {Status: 1, Data: []byte("out\nerr\n")}},
		errs:    map[string]error{"vhost1": fetchErr},
	}
	sink := &recordingSink{}
	log, logs := observedLogger()
	p := varnish.NewPoller(varnish.StaticInstances{"vhost1"}, fetcher, varnish.PerInstanceNaming{}, sink, log)

	report, err := p.Tick(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, fetchErr)
	assert.Empty(t, sink.samples)
	assert.Equal(t, []string{"vhost1"}, report.FetchFailed)

	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "varnishstat", entries[0].LoggerName)
	assert.Equal(t, "out\nerr\n", entries[0].ContextMap()["output"])
}

func TestTickMalformedOutput(t *testing.T) {
	fetcher := &fakeFetcher{outputs: map[string]varnish.Output{"a": okOutput("not json")}}
	sink := &recordingSink{}
	log, logs := observedLogger()
	p := varnish.NewPoller(varnish.StaticInstances{"a"}, fetcher, varnish.PerInstanceNaming{}, sink, log)

	_, err := p.Tick(context.Background())
	var pe *varnish.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Empty(t, sink.samples)
	assert.Equal(t, 1, logs.FilterMessage("invalid varnishstat output").Len())
}

func TestTickUnknownFlagStopsSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{outputs: map[string]varnish.Output{"a": okOutput(`{
		"A.first": {"flag": "c", "format": "i", "value": 1},
		"B.odd": {"flag": "x", "format": "i", "value": 2},
		"C.last": {"flag": "g", "format": "i", "value": 3}
	}`)}}
	sink := &recordingSink{}
	p := varnish.NewPoller(varnish.StaticInstances{"a"}, fetcher, varnish.PerInstanceNaming{}, sink, nil)

	report, err := p.Tick(context.Background())
	assert.ErrorIs(t, err, varnish.ErrUnknownFlag)
	require.Len(t, sink.samples, 1)
	assert.Equal(t, "A.first", sink.samples[0].TypeInstance)
	assert.Equal(t, 1, report.Samples["a"])
	assert.Empty(t, report.FetchFailed)
}

func TestTickContinuesAfterFailedInstance(t *testing.T) {
	fetcher := &fakeFetcher{
		outputs: map[string]varnish.Output{
			"bad":  {Status: 2, Data: []byte("boom")},
			"good": okOutput(`{"MAIN.uptime": {"flag": "c", "format": "i", "value": 5}}`),
		},
		errs: map[string]error{"bad": &varnish.FetchError{Instance: "bad", Status: 2}},
	}
	sink := &recordingSink{}
	p := varnish.NewPoller(varnish.StaticInstances{"bad", "good"}, fetcher, varnish.PerInstanceNaming{}, sink, nil)

	report, err := p.Tick(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"bad", "good"}, fetcher.calls)
	require.Len(t, sink.samples, 1)
	assert.Equal(t, "good", sink.samples[0].PluginInstance)
	assert.Equal(t, []string{"bad"}, report.Failed)
}

func TestTickSinkErrorPropagates(t *testing.T) {
	fetcher := &fakeFetcher{outputs: map[string]varnish.Output{
		"a": okOutput(`{"MAIN.uptime": {"flag": "c", "format": "i", "value": 5}}`),
	}}
	sink := &recordingSink{err: assert.AnError}
	p := varnish.NewPoller(varnish.StaticInstances{"a"}, fetcher, varnish.PerInstanceNaming{}, sink, nil)

	_, err := p.Tick(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestTickNoInstances(t *testing.T) {
	d, err := varnish.NewDiscoverer(afero.NewMemMapFs(), testGlob, testPattern, nil)
	require.NoError(t, err)
	fetcher := &fakeFetcher{}
	sink := &recordingSink{}
	p := varnish.NewPoller(d, fetcher, varnish.PerInstanceNaming{}, sink, nil)

	report, err := p.Tick(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Instances)
	assert.Empty(t, fetcher.calls)
	assert.Empty(t, sink.samples)
}

func TestTickDiscoveryError(t *testing.T) {
	source := varnish.NewRunningFilter(varnish.StaticInstances{"a"}, func(context.Context) ([][]string, error) {
		return nil, assert.AnError
	}, nil)
	fetcher := &fakeFetcher{}
	p := varnish.NewPoller(source, fetcher, varnish.PerInstanceNaming{}, &recordingSink{}, nil)

	_, err := p.Tick(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, fetcher.calls)
}

func TestNewFromConfigModes(t *testing.T) {
	cfg := config.NewDefaultConfig().Varnish
	cfg.Command = fakeVarnishstat(t, `echo '{"MAIN.uptime": {"flag": "c", "format": "i", "value": 9}}'`)

	cfg.Mode = config.ModeSingle
	sink := &recordingSink{}
	p, err := varnish.NewFromConfig(cfg, afero.NewMemMapFs(), sink, nil)
	require.NoError(t, err)
	_, err = p.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, sink.samples, 1)
	assert.Equal(t, "MAIN", sink.samples[0].PluginInstance)

	cfg.Mode = config.ModePerInstance
	cfg.Instances = []string{"vhost1"}
	sink = &recordingSink{}
	p, err = varnish.NewFromConfig(cfg, afero.NewMemMapFs(), sink, nil)
	require.NoError(t, err)
	_, err = p.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, sink.samples, 1)
	assert.Equal(t, "vhost1", sink.samples[0].PluginInstance)
	assert.Equal(t, "MAIN.uptime", sink.samples[0].TypeInstance)

	cfg.Mode = "cluster"
	_, err = varnish.NewFromConfig(cfg, afero.NewMemMapFs(), sink, nil)
	assert.Error(t, err)
}
